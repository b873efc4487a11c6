package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// DefaultWidth is the output width of layout SVGs in pixels.
const DefaultWidth = 800

var palette = []string{"#e8f1fb", "#fdf0e1", "#e7f6ec", "#f6e8f5", "#fff8d9", "#eceff3"}

// SVGOption configures LayoutSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width     float64
	showIDs   bool
	highlight string
}

// WithWidth sets the output width in pixels. Height follows the canvas aspect.
func WithWidth(px int) SVGOption {
	return func(r *svgRenderer) {
		if px > 0 {
			r.width = float64(px)
		}
	}
}

// WithPaneIDs adds the pane id below each title.
func WithPaneIDs() SVGOption { return func(r *svgRenderer) { r.showIDs = true } }

// WithHighlight outlines the pane with the given title.
func WithHighlight(title string) SVGOption {
	return func(r *svgRenderer) { r.highlight = title }
}

// LayoutSVG draws the panes of one tab. Panes without a layout frame are
// skipped. It fails with NOT_FOUND when the tab has no laid-out panes.
func LayoutSVG(res *pipeline.Result, window, tab int, opts ...SVGOption) ([]byte, error) {
	r := svgRenderer{width: DefaultWidth}
	for _, opt := range opts {
		opt(&r)
	}

	if res == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no dump result")
	}

	var (
		panes  []pipeline.Record
		canvas geom.Size
	)
	for _, p := range res.Tab(window, tab) {
		if p.LayoutFrame == nil {
			continue
		}
		panes = append(panes, p)
		if p.LayoutCanvasSize != nil {
			canvas = *p.LayoutCanvasSize
		}
	}
	if len(panes) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "window %d tab %d has no laid-out panes", window, tab)
	}
	if canvas.Empty() {
		canvas = extent(panes)
	}
	if canvas.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "window %d tab %d has an empty canvas", window, tab)
	}

	scale := r.width / canvas.W
	height := canvas.H * scale

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, height, r.width, height)
	fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%.1f" height="%.1f" fill="#ffffff"/>`+"\n", r.width, height)

	for i, p := range panes {
		r.renderPane(&buf, p, scale, palette[i%len(palette)])
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func (r *svgRenderer) renderPane(buf *bytes.Buffer, p pipeline.Record, scale float64, fill string) {
	f := p.LayoutFrame
	x, y, w, h := f.X*scale, f.Y*scale, f.W*scale, f.H*scale

	stroke, width := "#4a5568", 1.5
	if r.highlight != "" && p.Title == r.highlight {
		stroke, width = "#d53f8c", 4
	}
	fmt.Fprintf(buf, `  <rect id="pane-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
		html.EscapeString(p.PaneID), x, y, w, h, fill, stroke, width)

	cx, cy := x+w/2, y+h/2
	size := fontSize(w, h)
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-family="Menlo, monospace" font-size="%.1f" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
		cx, cy, size, html.EscapeString(p.Title))
	if r.showIDs {
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-family="Menlo, monospace" font-size="%.1f" fill="#718096" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			cx, cy+size*1.2, size*0.6, html.EscapeString(p.PaneID))
	}
}

func fontSize(w, h float64) float64 {
	return max(8, min(w/6, h/3, 28))
}

// extent returns the bounding size of the panes when no canvas size was
// recorded.
func extent(panes []pipeline.Record) geom.Size {
	b := panes[0].LayoutFrame.Bounds()
	for _, p := range panes[1:] {
		b = b.Union(p.LayoutFrame.Bounds())
	}
	return geom.Size{W: b.MaxX, H: b.MaxY}
}
