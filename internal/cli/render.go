package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/render"
)

const (
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
	formatDOT = "dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	dumpFlags
	output    string  // output file; stdout when empty
	format    string  // svg, pdf or png; inferred from the output extension when empty
	window    int     // 1-based window index
	tab       int     // 1-based tab index
	width     int     // output width in pixels
	paneIDs   bool    // print pane ids under titles
	highlight string  // title of the pane to outline
	scale     float64 // PNG scale factor
}

// renderCommand creates the render command for drawing a tab's pane layout.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{window: 1, tab: 1, width: render.DefaultWidth, scale: 2}

	cmd := &cobra.Command{
		Use:   "render <snapshot.json|->",
		Short: "Draw the pane layout of one tab",
		Example: `  panelmap render snapshot.json -o layout.svg
  panelmap render snapshot.json --window 2 --tab 1 --highlight 2.1.3 -o layout.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(opts.format, opts.output, formatSVG, formatPDF, formatPNG)
			if err != nil {
				return err
			}
			opts.format = format
			return c.runRender(cmd, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg (default), pdf, png")
	cmd.Flags().IntVar(&opts.window, "window", opts.window, "window index (1-based)")
	cmd.Flags().IntVar(&opts.tab, "tab", opts.tab, "tab index (1-based)")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "output width in pixels")
	cmd.Flags().BoolVar(&opts.paneIDs, "ids", false, "show pane ids below titles")
	cmd.Flags().StringVar(&opts.highlight, "highlight", "", "outline the pane with this title (e.g. 1.1.8)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, arg string, opts *renderOpts) error {
	ctx := cmd.Context()
	res, err := c.computeDump(cmd, arg, &opts.dumpFlags)
	if err != nil {
		return err
	}

	tabJSON, err := json.Marshal(res.Tab(opts.window, opts.tab))
	if err != nil {
		return err
	}
	keyOpts := cache.RenderKeyOpts{
		Kind:      "layout",
		Format:    opts.format,
		Window:    opts.window,
		Tab:       opts.tab,
		Width:     opts.width,
		Highlight: opts.highlight,
		PaneIDs:   opts.paneIDs,
	}

	data, err := c.cachedRender(ctx, cache.Hash(tabJSON), keyOpts, opts.noCache, func() ([]byte, error) {
		svgOpts := []render.SVGOption{render.WithWidth(opts.width)}
		if opts.paneIDs {
			svgOpts = append(svgOpts, render.WithPaneIDs())
		}
		if opts.highlight != "" {
			svgOpts = append(svgOpts, render.WithHighlight(opts.highlight))
		}
		svg, err := render.LayoutSVG(res, opts.window, opts.tab, svgOpts...)
		if err != nil {
			return nil, err
		}
		return convertSVG(ctx, svg, opts.format, opts.scale)
	})
	if err != nil {
		return err
	}

	if err := writeOutput(cmd, opts.output, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if opts.output != "" {
		printSuccess("Rendered window %d tab %d", opts.window, opts.tab)
		printFile(opts.output)
	}
	return nil
}

// cachedRender returns the cached artifact for key inputs, or renders and
// stores it. Cache failures never fail the render.
func (c *CLI) cachedRender(ctx context.Context, hash string, keyOpts cache.RenderKeyOpts, noCache bool, fn func() ([]byte, error)) ([]byte, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		c.Logger.Warn("render cache unavailable", "error", err)
		ch = cache.NewNullCache()
	}
	defer ch.Close()

	key := cache.NewDefaultKeyer().RenderKey(hash, keyOpts)
	if data, hit, err := ch.Get(ctx, key); err == nil && hit {
		c.Logger.Debug("render cache hit", "kind", keyOpts.Kind, "format", keyOpts.Format)
		return data, nil
	}

	data, err := fn()
	if err != nil {
		return nil, err
	}
	if err := ch.Set(ctx, key, data, cache.TTLRender); err != nil {
		c.Logger.Warn("render cache store failed", "error", err)
	}
	return data, nil
}

// convertSVG converts svg to format.
func convertSVG(ctx context.Context, svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case formatPDF:
		return render.ToPDF(ctx, svg)
	case formatPNG:
		return render.ToPNG(ctx, svg, scale)
	default:
		return svg, nil
	}
}

// outputFormat resolves the output format from the --format flag or the
// output file extension. The first allowed format is the default.
func outputFormat(flag, output string, allowed ...string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	if format == "" {
		return allowed[0], nil
	}
	for _, a := range allowed {
		if format == a {
			return format, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be one of: %s)", format, strings.Join(allowed, ", "))
}
