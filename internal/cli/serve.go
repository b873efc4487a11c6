package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/internal/server"
	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/history"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	noCache bool
	history bool
}

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dump pipeline over HTTP",
		Long: `Serve the dump pipeline over HTTP until interrupted.

Endpoints:
  POST /v1/dump     snapshot JSON in, panel list out
  POST /v1/match    one frame and a window list in, matched id out
  GET  /healthz     liveness
  GET  /metrics     Prometheus metrics`,
		Example: `  panelmap serve --addr :8087
  curl -s --data-binary @snapshot.json localhost:8087/v1/dump`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				opts.addr = c.Config.Server.Addr
			}
			return c.runServe(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the dump cache")
	cmd.Flags().BoolVar(&opts.history, "history", false, "record every dump in the history database (default from config)")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts *serveOpts) error {
	ctx := cmd.Context()

	ch, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	// served dumps share the cache with the CLI under their own key space
	runner := pipeline.NewRunner(ch, cache.NewScopedKeyer(cache.NewDefaultKeyer(), "serve:"), c.Logger)
	defer runner.Close()

	var store *history.Store
	if opts.history || c.Config.History.Enabled {
		store, err = c.openHistory(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		c.Logger.Info("recording history", "path", store.Path())
	}

	srv, err := server.New(server.Config{
		Runner:  runner,
		History: store,
		Options: c.pipelineOptions(),
		Logger:  c.Logger,
	})
	if err != nil {
		return err
	}
	srv.Metrics().Install()

	printInfo("Listening on %s", opts.addr)
	printDetail("Press Ctrl+C to stop")
	return srv.ListenAndServe(ctx, opts.addr)
}
