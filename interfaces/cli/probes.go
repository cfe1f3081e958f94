package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/querykit/domain/config"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/probes"
)

// clientOptions holds the connection flags shared by commands that talk
// to the backend.
type clientOptions struct {
	configPath string
	baseURL    string
	timeout    time.Duration
}

// addClientFlags registers the shared connection flags.
func addClientFlags(cmd *cobra.Command, opts *clientOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "API base URL (alternative to --config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout (with --base-url)")
}

// buildClient creates a client from either a configuration file or a
// bare base URL.
func (a *App) buildClient(opts *clientOptions) (*api.Client, error) {
	switch {
	case opts.configPath != "":
		return api.FromConfigFile(opts.configPath)
	case opts.baseURL != "":
		cfg := config.Default()
		cfg.Transport.BaseURL = opts.baseURL
		if opts.timeout > 0 {
			cfg.Transport.Timeout = config.Duration(opts.timeout)
		}
		return api.FromConfig(cfg)
	default:
		return nil, fmt.Errorf("either --config or --base-url is required")
	}
}

// newProbesCmd creates the probes command group.
func (a *App) newProbesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probes",
		Short: "Work with visibility probes",
		Long: `Work with visibility probes: scheduled LLM queries that measure
whether and where a brand shows up in generated answers.`,
	}

	cmd.AddCommand(
		a.newProbesListCmd(),
		a.newProbesCreateCmd(),
		a.newProbesExecuteCmd(),
		a.newProbesResultsCmd(),
	)

	return cmd
}

// newProbesListCmd creates the probes list command.
func (a *App) newProbesListCmd() *cobra.Command {
	connOpts := &clientOptions{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured probes",
		Long: `List every configured probe with its status and schedule.

Examples:
  # List probes against a configured backend
  querykit probes list -c config.yaml

  # List probes against a bare URL
  querykit probes list --base-url http://localhost:8000

  # Machine-readable output
  querykit probes list -c config.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.buildClient(connOpts)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			query, err := probes.NewListQuery(client)
			if err != nil {
				return err
			}
			list, err := query.Value(cmd.Context())
			if err != nil {
				return fmt.Errorf("list probes: %w", err)
			}

			if jsonOutput {
				return a.printJSON(list)
			}

			fmt.Fprintf(a.stdout, "%d probe(s)\n", list.Total)
			for _, p := range list.Probes {
				fmt.Fprintf(a.stdout, "  %s  %-10s %-8s %s\n", p.ID, p.Status, p.Frequency, p.Brand)
			}
			return nil
		},
	}

	addClientFlags(cmd, connOpts)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// newProbesCreateCmd creates the probes create command.
func (a *App) newProbesCreateCmd() *cobra.Command {
	connOpts := &clientOptions{}
	var (
		brand      string
		keywords   []string
		frequency  string
		engines    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new probe",
		Long: `Schedule a new visibility probe for a brand.

Examples:
  # Daily probe with two keywords
  querykit probes create -c config.yaml --brand Acme \
    --keyword "crm software" --keyword "sales tools"

  # Hourly probe against specific engines
  querykit probes create -c config.yaml --brand Acme \
    --keyword crm --frequency hourly --engine gpt-4 --engine claude-3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.buildClient(connOpts)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			mutation, err := probes.NewCreateMutation(client)
			if err != nil {
				return err
			}
			if len(engines) == 0 {
				engines = probes.DefaultEngines()
			}
			created, err := mutation.Mutate(cmd.Context(), probes.CreateRequest{
				Brand:     brand,
				Keywords:  keywords,
				Frequency: frequency,
				Engines:   engines,
			})
			if err != nil {
				return fmt.Errorf("create probe: %w", err)
			}

			if jsonOutput {
				return a.printJSON(created)
			}

			fmt.Fprintf(a.stdout, "Probe created\n")
			fmt.Fprintf(a.stdout, "  ID: %s\n", created.ID)
			fmt.Fprintf(a.stdout, "  Brand: %s\n", created.Brand)
			fmt.Fprintf(a.stdout, "  Frequency: %s\n", created.Frequency)
			fmt.Fprintf(a.stdout, "  Engines: %v\n", created.Engines)
			fmt.Fprintf(a.stdout, "  Status: %s\n", created.Status)
			return nil
		},
	}

	addClientFlags(cmd, connOpts)
	cmd.Flags().StringVar(&brand, "brand", "", "Brand to probe (required)")
	cmd.Flags().StringArrayVar(&keywords, "keyword", nil, "Keyword to probe, repeatable (required)")
	cmd.Flags().StringVar(&frequency, "frequency", "", "Schedule: hourly, daily, or weekly")
	cmd.Flags().StringArrayVar(&engines, "engine", nil, "LLM engine to query, repeatable")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	_ = cmd.MarkFlagRequired("brand")
	_ = cmd.MarkFlagRequired("keyword")

	return cmd
}

// newProbesExecuteCmd creates the probes execute command.
func (a *App) newProbesExecuteCmd() *cobra.Command {
	connOpts := &clientOptions{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "execute JOB_ID",
		Short: "Run a probe immediately",
		Long: `Run a probe immediately instead of waiting for its schedule and
print the resulting visibility score.

Examples:
  querykit probes execute -c config.yaml probe-42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.buildClient(connOpts)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			mutation, err := probes.NewExecuteMutation(client)
			if err != nil {
				return err
			}
			results, err := mutation.Mutate(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("execute probe: %w", err)
			}

			if jsonOutput {
				return a.printJSON(results)
			}
			a.printResults(results)
			return nil
		},
	}

	addClientFlags(cmd, connOpts)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// newProbesResultsCmd creates the probes results command.
func (a *App) newProbesResultsCmd() *cobra.Command {
	connOpts := &clientOptions{}
	var (
		timeframe  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "results JOB_ID",
		Short: "Read a probe's aggregated results",
		Long: `Read a probe's aggregated results over a timeframe.

Examples:
  # Default window
  querykit probes results -c config.yaml probe-42

  # Quarterly window
  querykit probes results -c config.yaml probe-42 --timeframe 90d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.buildClient(connOpts)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			query, err := probes.NewResultsQuery(client, args[0], timeframe)
			if err != nil {
				return err
			}
			results, err := query.Value(cmd.Context())
			if err != nil {
				return fmt.Errorf("read results: %w", err)
			}

			if jsonOutput {
				return a.printJSON(results)
			}
			a.printResults(results)
			return nil
		},
	}

	addClientFlags(cmd, connOpts)
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "Results window: 7d, 30d, 90d, or 1y")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// printResults writes a results payload as text.
func (a *App) printResults(r probes.Results) {
	fmt.Fprintf(a.stdout, "Results for %s\n", r.JobID)
	fmt.Fprintf(a.stdout, "  Brand: %s\n", r.Brand)
	if r.Timeframe != "" {
		fmt.Fprintf(a.stdout, "  Timeframe: %s\n", r.Timeframe)
	}
	fmt.Fprintf(a.stdout, "  Visibility: %.1f\n", r.VisibilityScore.Overall)
	fmt.Fprintf(a.stdout, "    Mention rate: %.1f\n", r.VisibilityScore.MentionRate)
	fmt.Fprintf(a.stdout, "    Position score: %.1f\n", r.VisibilityScore.PositionScore)
	fmt.Fprintf(a.stdout, "    Consistency: %.1f\n", r.VisibilityScore.Consistency)
	fmt.Fprintf(a.stdout, "    Trend: %+.1f\n", r.VisibilityScore.Trend)
	fmt.Fprintf(a.stdout, "  Data points: %d\n", len(r.DataPoints))
}

// printJSON writes v to stdout as indented JSON.
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
