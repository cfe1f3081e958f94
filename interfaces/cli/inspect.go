package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/querykit/domain/config"
	cfgio "github.com/felixgeelhaar/querykit/infrastructure/config"
)

// inspectOptions holds options for the inspect command.
type inspectOptions struct {
	configPath string
	outputJSON bool
	section    string
}

// newInspectCmd creates the inspect command.
func (a *App) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect configuration details",
		Long: `Inspect and display detailed configuration information.

This command provides a comprehensive view of the client configuration,
including transport, resilience, cache, persistence, and the
invalidation rules.

Sections:
  all           Show all configuration (default)
  transport     Show HTTP transport settings
  resilience    Show resilience configuration
  cache         Show cache settings
  persistence   Show snapshot persistence settings
  logging       Show logging settings
  observability Show tracing and metrics settings
  invalidation  Show mutation invalidation rules

Examples:
  # Inspect full configuration
  querykit inspect -c config.yaml

  # Inspect specific section
  querykit inspect -c config.yaml --section resilience

  # Output as JSON
  querykit inspect -c config.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.outputJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&opts.section, "section", "all", "Section to inspect")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// inspectConfig inspects the configuration.
func (a *App) inspectConfig(opts *inspectOptions) error {
	loader := cfgio.NewLoader()
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.outputJSON {
		return a.inspectJSON(cfg, opts.section)
	}

	return a.inspectText(cfg, opts.section)
}

// inspectJSON outputs configuration as JSON.
func (a *App) inspectJSON(cfg *config.Config, section string) error {
	var output any

	switch section {
	case "all":
		output = cfg
	case "transport":
		output = cfg.Transport
	case "resilience":
		output = cfg.Resilience
	case "cache":
		output = cfg.Cache
	case "persistence":
		output = cfg.Persistence
	case "logging":
		output = cfg.Logging
	case "observability":
		output = cfg.Observability
	case "invalidation":
		output = cfg.Invalidation
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// inspectText outputs configuration as formatted text.
func (a *App) inspectText(cfg *config.Config, section string) error {
	switch section {
	case "all":
		a.printHeader(cfg)
		a.printTransportSection(cfg)
		a.printResilienceSection(cfg)
		a.printCacheSection(cfg)
		a.printPersistenceSection(cfg)
		a.printLoggingSection(cfg)
		a.printObservabilitySection(cfg)
		a.printInvalidationSection(cfg)
	case "transport":
		a.printTransportSection(cfg)
	case "resilience":
		a.printResilienceSection(cfg)
	case "cache":
		a.printCacheSection(cfg)
	case "persistence":
		a.printPersistenceSection(cfg)
	case "logging":
		a.printLoggingSection(cfg)
	case "observability":
		a.printObservabilitySection(cfg)
	case "invalidation":
		a.printInvalidationSection(cfg)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	return nil
}

func (a *App) printHeader(cfg *config.Config) {
	name := cfg.Name
	if name == "" {
		name = "(unnamed)"
	}
	_, _ = fmt.Fprintf(a.stdout, "Client Configuration: %s\n", name)
	_, _ = fmt.Fprintf(a.stdout, "═══════════════════════════════════════\n")
	if cfg.Version != "" {
		_, _ = fmt.Fprintf(a.stdout, "Version: %s\n", cfg.Version)
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printTransportSection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Transport\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintf(a.stdout, "  Base URL: %s\n", cfg.Transport.BaseURL)
	_, _ = fmt.Fprintf(a.stdout, "  Timeout: %s\n", cfg.Transport.Timeout.Duration())
	if cfg.Transport.MaxBodySize > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Max Body Size: %d bytes\n", cfg.Transport.MaxBodySize)
	}
	if cfg.Transport.UserAgent != "" {
		_, _ = fmt.Fprintf(a.stdout, "  User-Agent: %s\n", cfg.Transport.UserAgent)
	}
	if len(cfg.Transport.Headers) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Headers (%d):\n", len(cfg.Transport.Headers))
		names := make([]string, 0, len(cfg.Transport.Headers))
		for k := range cfg.Transport.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(a.stdout, "    • %s\n", k)
		}
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printResilienceSection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Resilience Configuration\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")

	if cfg.Resilience.Timeout.Duration() > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Timeout: %s\n", cfg.Resilience.Timeout.Duration())
	}

	if cfg.Resilience.Retry.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Retry:\n")
		_, _ = fmt.Fprintf(a.stdout, "    Max Attempts: %d\n", cfg.Resilience.Retry.MaxAttempts)
		_, _ = fmt.Fprintf(a.stdout, "    Initial Delay: %s\n", cfg.Resilience.Retry.InitialDelay.Duration())
		_, _ = fmt.Fprintf(a.stdout, "    Multiplier: %.1f\n", cfg.Resilience.Retry.Multiplier)
	}

	if cfg.Resilience.CircuitBreaker.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Circuit Breaker:\n")
		_, _ = fmt.Fprintf(a.stdout, "    Threshold: %d failures\n", cfg.Resilience.CircuitBreaker.Threshold)
		_, _ = fmt.Fprintf(a.stdout, "    Timeout: %s\n", cfg.Resilience.CircuitBreaker.Timeout.Duration())
	}

	if cfg.Resilience.Bulkhead.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Bulkhead:\n")
		_, _ = fmt.Fprintf(a.stdout, "    Max Concurrent: %d\n", cfg.Resilience.Bulkhead.MaxConcurrent)
	}

	if cfg.Resilience.RateLimit.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Rate Limiting:\n")
		_, _ = fmt.Fprintf(a.stdout, "    Rate: %d/s\n", cfg.Resilience.RateLimit.Rate)
		_, _ = fmt.Fprintf(a.stdout, "    Burst: %d\n", cfg.Resilience.RateLimit.Burst)
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printCacheSection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Cache Configuration\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")
	if cfg.Cache.GCIdle > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  GC Idle: %s\n", cfg.Cache.GCIdle.Duration())
		_, _ = fmt.Fprintf(a.stdout, "  GC Interval: %s\n", cfg.Cache.GCInterval.Duration())
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  GC: disabled\n")
	}
	if cfg.Cache.FetchTimeout > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Fetch Timeout: %s\n", cfg.Cache.FetchTimeout.Duration())
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printPersistenceSection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Persistence Configuration\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")

	if !cfg.Persistence.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Enabled: false\n")
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Enabled: true\n")
		_, _ = fmt.Fprintf(a.stdout, "  Backend: %s\n", cfg.Persistence.Backend)
		if cfg.Persistence.Path != "" {
			_, _ = fmt.Fprintf(a.stdout, "  Path: %s\n", cfg.Persistence.Path)
		}
		if cfg.Persistence.Address != "" {
			_, _ = fmt.Fprintf(a.stdout, "  Address: %s\n", cfg.Persistence.Address)
			_, _ = fmt.Fprintf(a.stdout, "  DB: %d\n", cfg.Persistence.DB)
		}
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printLoggingSection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Logging Configuration\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintf(a.stdout, "  Level: %s\n", cfg.Logging.Level)
	_, _ = fmt.Fprintf(a.stdout, "  Format: %s\n", cfg.Logging.Format)
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printObservabilitySection(cfg *config.Config) {
	_, _ = fmt.Fprintf(a.stdout, "Observability Configuration\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")

	if cfg.Observability.ServiceName != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Service Name: %s\n", cfg.Observability.ServiceName)
	}
	if cfg.Observability.Tracing.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Tracing:\n")
		_, _ = fmt.Fprintf(a.stdout, "    Exporter: %s\n", cfg.Observability.Tracing.Exporter)
		if cfg.Observability.Tracing.Endpoint != "" {
			_, _ = fmt.Fprintf(a.stdout, "    Endpoint: %s\n", cfg.Observability.Tracing.Endpoint)
		}
		if cfg.Observability.Tracing.SampleRate > 0 {
			_, _ = fmt.Fprintf(a.stdout, "    Sample Rate: %.2f\n", cfg.Observability.Tracing.SampleRate)
		}
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Tracing: disabled\n")
	}
	if cfg.Observability.Metrics.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Metrics: enabled\n")
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Metrics: disabled\n")
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printInvalidationSection(cfg *config.Config) {
	if len(cfg.Invalidation) == 0 {
		return
	}
	_, _ = fmt.Fprintf(a.stdout, "Invalidation Rules\n")
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")
	names := make([]string, 0, len(cfg.Invalidation))
	for name := range cfg.Invalidation {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(a.stdout, "  • %s -> %s\n", name, strings.Join(cfg.Invalidation[name], ", "))
	}
	_, _ = fmt.Fprintln(a.stdout)
}
