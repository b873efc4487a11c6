// Package cli implements the panelmap command-line interface.
//
// The commands read a captured snapshot (a file or stdin), run the dump
// pipeline and present the per-pane panel list as JSON, a table, an SVG
// layout drawing or a split-tree diagram. Supporting commands manage the
// dump cache, the local dump history, the HTTP service and the capture
// controller.
//
// # Configuration
//
// Settings come from config.toml (see `panelmap config path`), then
// PANELMAP_* environment variables, then command flags, each overriding the
// previous.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// also travels in the command context for code that only has a ctx.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/buildinfo"
	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/config"
	"github.com/matzehuels/panelmap/pkg/history"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "panelmap"

	// stdinArg reads the snapshot from standard input.
	stdinArg = "-"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any command runs.
	Config *config.Config

	configPath string
	configFile string
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "panelmap maps terminal panes to screen layout and window ids",
		Long: `panelmap reconstructs absolute pane frames from a captured split-pane
layout, ranks panes in reading order, matches each window to its OS window id
and emits one flat record per pane.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: search the config dir and .)")

	root.AddCommand(c.dumpCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.matchCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.ctlCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration and attaches the logger to the command
// context.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	loaded, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = loaded.Config
	c.configFile = loaded.File
	if loaded.File != "" {
		c.Logger.Debug("loaded config", "file", loaded.File)
	}
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

// newCache opens the configured cache backend. A file cache that cannot be
// created degrades to no caching; an unreachable Redis is an error.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}
	if c.Config.Cache.Backend == config.CacheRedis {
		return cache.DialRedis(ctx, c.redisOptions())
	}
	dir, err := c.Config.CachePath()
	if err != nil {
		c.Logger.Debug("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

func (c *CLI) redisOptions() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:     c.Config.Cache.RedisAddr,
		Password: c.Config.Cache.RedisPassword,
		DB:       c.Config.Cache.RedisDB,
		Prefix:   c.Config.Cache.RedisPrefix,
	}
}

// openHistory opens the history database at the configured path.
func (c *CLI) openHistory(ctx context.Context) (*history.Store, error) {
	path, err := c.Config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, path, c.Logger)
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions builds dump options from the configuration.
func (c *CLI) pipelineOptions() pipeline.Options {
	tol := c.Config.Match.Tolerances
	return pipeline.Options{
		Precision:  c.Config.Layout.Precision,
		Tolerances: &tol,
		Owners:     c.Config.Match.Owners,
		CacheTTL:   c.Config.CacheTTL(),
		Logger:     c.Logger,
	}
}

// dumpFlags are the flags shared by commands that run the pipeline.
type dumpFlags struct {
	precision int
	owners    []string
	noCache   bool
	refresh   bool
}

func (f *dumpFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.precision, "precision", 0, "decimal places used to compare leading coordinates, -1 for whole numbers (default from config)")
	cmd.Flags().StringSliceVar(&f.owners, "owner", nil, "OS window owner to match against (repeatable, default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the dump cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute and overwrite the cached dump")
}

// apply overrides opts with the flags the user set explicitly.
func (f *dumpFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	if cmd.Flags().Changed("precision") {
		opts.Precision = f.precision
	}
	if cmd.Flags().Changed("owner") {
		opts.Owners = f.owners
	}
	opts.Refresh = f.refresh
}

// timeoutContext derives a context bounded by d when d is positive.
func timeoutContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
