package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// dumpOpts holds the command-line flags for the dump command.
type dumpOpts struct {
	dumpFlags
	output  string // output file; stdout when empty
	format  string // "json" or "table"
	watch   bool   // re-dump whenever the snapshot file changes
	history bool   // record the result in the history database
}

// dumpCommand creates the dump command.
func (c *CLI) dumpCommand() *cobra.Command {
	opts := dumpOpts{format: formatJSON}

	cmd := &cobra.Command{
		Use:   "dump <snapshot.json|->",
		Short: "Compute the per-pane panel list of a snapshot",
		Long: `Compute the per-pane panel list of a captured snapshot.

Every pane gets its absolute layout frame, its reading-order rank within the
tab, the OS window id of its window and a "window.tab.rank" title.`,
		Example: `  panelmap dump snapshot.json
  panelmap dump - --format table < snapshot.json
  panelmap dump snapshot.json -o panels.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatTable {
				return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be 'json' or 'table')", opts.format)
			}
			if opts.watch && args[0] == stdinArg {
				return errors.New(errors.ErrCodeInvalidInput, "--watch needs a snapshot file, not stdin")
			}
			if opts.watch {
				return c.watchDump(cmd, args[0], &opts)
			}
			return c.runDump(cmd, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json, table")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-dump whenever the snapshot file changes")
	cmd.Flags().BoolVar(&opts.history, "history", false, "record the dump in the history database (default from config)")

	return cmd
}

// runDump reads, dumps and writes one snapshot.
func (c *CLI) runDump(cmd *cobra.Command, arg string, opts *dumpOpts) error {
	ctx := cmd.Context()
	res, err := c.computeDump(cmd, arg, &opts.dumpFlags)
	if err != nil {
		return err
	}

	if opts.history || c.Config.History.Enabled {
		c.recordHistory(ctx, res, sourceLabel(arg))
	}

	w, closeFn, err := openOutput(cmd, opts.output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := writeResult(w, res, opts.format); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}

	printTabErrors(res.Errors)
	if opts.output != "" {
		printSuccess("Wrote %d panels", len(res.Panels))
		printFile(opts.output)
	}
	printStats(res.Stats, len(res.Errors), res.CacheHit)
	return nil
}

// computeDump runs the cached pipeline on the snapshot named by arg.
func (c *CLI) computeDump(cmd *cobra.Command, arg string, flags *dumpFlags) (*pipeline.Result, error) {
	ctx := cmd.Context()
	snap, err := readSnapshot(cmd, arg)
	if err != nil {
		return nil, err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	popts := c.pipelineOptions()
	flags.apply(cmd, &popts)

	start := time.Now()
	res, err := runner.DumpWithCache(ctx, snap, popts)
	if err != nil {
		return nil, err
	}
	timed(c.Logger, start, "computed panels", "count", len(res.Panels), "cached", res.CacheHit)
	return res, nil
}

// recordHistory stores res in the history database. Failures are logged.
func (c *CLI) recordHistory(ctx context.Context, res *pipeline.Result, source string) {
	logger := loggerFromContext(ctx)
	store, err := c.openHistory(ctx)
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	e, err := store.Record(ctx, res, source)
	if err != nil {
		logger.Warn("history record failed", "error", err)
		return
	}
	if keep := c.Config.History.Keep; keep > 0 {
		if _, err := store.Prune(ctx, keep); err != nil {
			logger.Warn("history prune failed", "error", err)
		}
	}
	logger.Debug("recorded dump", "id", e.ID)
}

// writeResult encodes res in the requested format.
func writeResult(w io.Writer, res *pipeline.Result, format string) error {
	if format == formatTable {
		_, err := fmt.Fprintln(w, panelTable(res.Panels))
		return err
	}
	return writeJSON(w, res)
}
