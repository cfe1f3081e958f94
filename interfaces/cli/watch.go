package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/querykit/domain/config"
	cfgio "github.com/felixgeelhaar/querykit/infrastructure/config"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/probes"
)

// watchOptions holds options for the watch command.
type watchOptions struct {
	configPath string
	interval   time.Duration
	jsonOutput bool
}

// newWatchCmd creates the watch command.
func (a *App) newWatchCmd() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream probe list updates",
		Long: `Subscribe to the probe list and print every cache state change:
loads, refreshes, invalidations, and failures. The list is refetched on
an interval, and edits to the configuration file take effect without a
restart.

Examples:
  # Watch with the default refresh interval
  querykit watch -c config.yaml

  # Refresh every five seconds, one JSON object per update
  querykit watch -c config.yaml --interval 5s --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 30*time.Second, "Refetch interval")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "One JSON object per update")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// runWatch streams list updates until the context is canceled,
// rebuilding the client whenever the configuration file changes.
func (a *App) runWatch(ctx context.Context, opts *watchOptions) error {
	loader := cfgio.NewLoader()
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	reload := make(chan *config.Config, 1)
	watcher, err := cfgio.NewWatcher(opts.configPath, loader, func(next *config.Config) {
		select {
		case reload <- next:
		default:
		}
	}, cfgio.WithErrorHandler(func(err error) {
		fmt.Fprintf(a.stderr, "configuration reload failed: %v\n", err)
	}))
	if err != nil {
		return fmt.Errorf("watch configuration: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("watch configuration: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	for {
		next, err := a.streamList(ctx, cfg, opts, reload)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		cfg = next
		fmt.Fprintln(a.stdout, "configuration reloaded")
	}
}

// streamList subscribes to the probe list and prints updates until the
// context ends (returns nil, nil) or the configuration changes (returns
// the new configuration).
func (a *App) streamList(ctx context.Context, cfg *config.Config, opts *watchOptions, reload <-chan *config.Config) (*config.Config, error) {
	client, err := api.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	defer func() { _ = client.Close() }()

	query, err := probes.NewListQuery(client)
	if err != nil {
		return nil, err
	}

	updates := make(chan api.QueryResult[probes.List], 16)
	cancel, err := query.Subscribe(func(r api.QueryResult[probes.List]) {
		select {
		case updates <- r:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer cancel()

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case next := <-reload:
			return next, nil
		case <-ticker.C:
			if err := query.Refetch(ctx); err != nil {
				fmt.Fprintf(a.stderr, "refetch failed: %v\n", err)
			}
		case r := <-updates:
			a.printListUpdate(r, opts.jsonOutput)
		}
	}
}

// printListUpdate writes one list state change.
func (a *App) printListUpdate(r api.QueryResult[probes.List], asJSON bool) {
	if asJSON {
		line := map[string]any{
			"time":     time.Now().Format(time.RFC3339),
			"key":      probes.ListKey().String(),
			"status":   r.Status.String(),
			"total":    r.Data.Total,
			"stale":    r.Stale,
			"fetching": r.IsFetching,
		}
		if r.Err != nil {
			line["error"] = r.Err.Error()
		}
		_ = json.NewEncoder(a.stdout).Encode(line)
		return
	}

	ts := time.Now().Format("15:04:05")
	switch {
	case r.Err != nil:
		fmt.Fprintf(a.stdout, "%s %s %s: %v\n", ts, probes.ListKey(), r.Status, r.Err)
	case r.IsFetching:
		fmt.Fprintf(a.stdout, "%s %s fetching (%d probe(s) cached)\n", ts, probes.ListKey(), r.Data.Total)
	default:
		stale := ""
		if r.Stale {
			stale = " (stale)"
		}
		fmt.Fprintf(a.stdout, "%s %s %s: %d probe(s)%s\n", ts, probes.ListKey(), r.Status, r.Data.Total, stale)
	}
}
