package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/pipeline"
	"github.com/matzehuels/panelmap/pkg/render"
	"github.com/matzehuels/panelmap/pkg/snapshot"
	"github.com/matzehuels/panelmap/pkg/tree"
)

// treeOpts holds the command-line flags for the tree command.
type treeOpts struct {
	output  string
	format  string // dot, svg, pdf or png
	window  int
	tab     int
	frames  bool
	titles  bool
	noCache bool
}

// treeCommand creates the tree command for diagramming a tab's split tree.
func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOpts{window: 1, tab: 1, titles: true}

	cmd := &cobra.Command{
		Use:   "tree <snapshot.json|->",
		Short: "Diagram the split tree of one tab",
		Example: `  panelmap tree snapshot.json
  panelmap tree snapshot.json --frames -o tree.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(opts.format, opts.output, formatDOT, formatSVG, formatPDF, formatPNG)
			if err != nil {
				return err
			}
			opts.format = format
			return c.runTree(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot (default), svg, pdf, png")
	cmd.Flags().IntVar(&opts.window, "window", opts.window, "window index (1-based)")
	cmd.Flags().IntVar(&opts.tab, "tab", opts.tab, "tab index (1-based)")
	cmd.Flags().BoolVar(&opts.frames, "frames", false, "include reported pane frames in labels")
	cmd.Flags().BoolVar(&opts.titles, "titles", opts.titles, "label panes with their window.tab.rank title")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, arg string, opts *treeOpts) error {
	ctx := cmd.Context()
	snap, err := readSnapshot(cmd, arg)
	if err != nil {
		return err
	}
	if opts.window < 1 || opts.window > len(snap.Windows) {
		return errors.New(errors.ErrCodeNotFound, "window %d not found (snapshot has %d)", opts.window, len(snap.Windows))
	}
	w := snap.Windows[opts.window-1]
	if opts.tab < 1 || opts.tab > len(w.Tabs) {
		return errors.New(errors.ErrCodeNotFound, "tab %d not found in window %d (window has %d)", opts.tab, opts.window, len(w.Tabs))
	}
	root := w.Tabs[opts.tab-1].Root

	dotOpts := render.DOTOptions{Frames: opts.frames}
	if opts.titles {
		dotOpts.Titles = c.titles(ctx, snap, opts.window, opts.tab)
	}
	dot := render.ToDOT(root, dotOpts)
	c.Logger.Debug("tree", "window", opts.window, "tab", opts.tab, "shape", tree.Describe(root))

	data := []byte(dot)
	if opts.format != formatDOT {
		keyInput, err := json.Marshal(struct {
			DOT string `json:"dot"`
		}{dot})
		if err != nil {
			return err
		}
		keyOpts := cache.RenderKeyOpts{Kind: "tree", Format: opts.format, Window: opts.window, Tab: opts.tab}
		data, err = c.cachedRender(ctx, cache.Hash(keyInput), keyOpts, opts.noCache, func() ([]byte, error) {
			sp := startSpinner(ctx, "Laying out tree...")
			svg, err := render.RenderDOT(ctx, dot)
			sp.stop()
			if err != nil {
				return nil, err
			}
			return convertSVG(ctx, svg, opts.format, 2)
		})
		if err != nil {
			return err
		}
	}

	if err := writeOutput(cmd, opts.output, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if opts.output != "" {
		printSuccess("Rendered tree of window %d tab %d", opts.window, opts.tab)
		printFile(opts.output)
	}
	return nil
}

// titles maps pane ids of the selected tab to their titles. A tab that cannot
// be laid out yields no titles.
func (c *CLI) titles(ctx context.Context, snap *snapshot.Snapshot, window, tab int) map[string]string {
	res, err := pipeline.Dump(ctx, snap, c.pipelineOptions())
	if err != nil {
		c.Logger.Debug("titles unavailable", "error", err)
		return nil
	}
	out := make(map[string]string)
	for _, p := range res.Tab(window, tab) {
		out[p.PaneID] = p.Title
	}
	return out
}
