package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	cfgio "github.com/felixgeelhaar/querykit/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a querykit configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (transport.base_url)
  - Field types and constraints
  - Persistence backend settings
  - Invalidation rule shapes
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  querykit validate -c config.yaml

  # Strict validation (fail on missing env vars)
  querykit validate -c config.yaml --strict

  # Show the JSON schema for configuration
  querykit validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	// Create loader with appropriate options
	loaderOpts := []cfgio.LoaderOption{
		cfgio.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, cfgio.WithStrictEnv(true))
	}

	loader := cfgio.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if cfg.Name != "" {
		fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	}
	if cfg.Version != "" {
		fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	}

	// Summary
	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Base URL: %s\n", cfg.Transport.BaseURL)
	fmt.Fprintf(a.stdout, "  Request timeout: %s\n", cfg.Transport.Timeout.Duration())

	var guards []string
	if cfg.Resilience.Retry.Enabled {
		guards = append(guards, fmt.Sprintf("retry(%d attempts)", cfg.Resilience.Retry.MaxAttempts))
	}
	if cfg.Resilience.CircuitBreaker.Enabled {
		guards = append(guards, fmt.Sprintf("circuit-breaker(threshold=%d)", cfg.Resilience.CircuitBreaker.Threshold))
	}
	if cfg.Resilience.Bulkhead.Enabled {
		guards = append(guards, fmt.Sprintf("bulkhead(max=%d)", cfg.Resilience.Bulkhead.MaxConcurrent))
	}
	if cfg.Resilience.RateLimit.Enabled {
		guards = append(guards, fmt.Sprintf("rate-limit(%d/s burst=%d)", cfg.Resilience.RateLimit.Rate, cfg.Resilience.RateLimit.Burst))
	}
	if len(guards) > 0 {
		fmt.Fprintf(a.stdout, "  Resilience: %s\n", strings.Join(guards, ", "))
	}

	if cfg.Cache.GCIdle > 0 {
		fmt.Fprintf(a.stdout, "  Cache GC: idle=%s sweep=%s\n", cfg.Cache.GCIdle.Duration(), cfg.Cache.GCInterval.Duration())
	}
	if cfg.Cache.FetchTimeout > 0 {
		fmt.Fprintf(a.stdout, "  Fetch timeout: %s\n", cfg.Cache.FetchTimeout.Duration())
	}

	if cfg.Persistence.Enabled {
		fmt.Fprintf(a.stdout, "  Persistence: %s\n", cfg.Persistence.Backend)
	}

	fmt.Fprintf(a.stdout, "  Logging: %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Observability.Tracing.Enabled {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", cfg.Observability.Tracing.Exporter)
	}
	if cfg.Observability.Metrics.Enabled {
		fmt.Fprintf(a.stdout, "  Metrics: enabled\n")
	}

	if len(cfg.Invalidation) > 0 {
		fmt.Fprintf(a.stdout, "  Invalidation rules: %d mutation(s)\n", len(cfg.Invalidation))
		names := make([]string, 0, len(cfg.Invalidation))
		for name := range cfg.Invalidation {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.stdout, "    - %s -> %s\n", name, strings.Join(cfg.Invalidation[name], ", "))
		}
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := cfgio.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
