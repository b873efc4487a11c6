package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/panelmap/pkg/tree"
)

// DOTOptions configures ToDOT.
type DOTOptions struct {
	// Frames adds each pane's reported frame to its label.
	Frames bool

	// Titles maps pane ids to display titles such as "1.1.3".
	Titles map[string]string
}

// ToDOT describes a split tree in Graphviz DOT. Splits are drawn as ellipses
// labelled with their orientation, panes as boxes.
func ToDOT(root tree.Node, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph tree {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"Menlo\", fontsize=14];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n\n")

	var next int
	var visit func(n tree.Node) string
	visit = func(n tree.Node) string {
		id := fmt.Sprintf("n%d", next)
		next++
		switch v := n.(type) {
		case *tree.Pane:
			if v == nil {
				fmt.Fprintf(&buf, "  %s [shape=point];\n", id)
				return id
			}
			fmt.Fprintf(&buf, "  %s [shape=box, style=\"rounded,filled\", fillcolor=white, label=%q];\n", id, paneLabel(v, opts))
		case *tree.Split:
			if v == nil {
				fmt.Fprintf(&buf, "  %s [shape=point];\n", id)
				return id
			}
			fmt.Fprintf(&buf, "  %s [shape=ellipse, style=filled, fillcolor=lightgrey, label=%q];\n", id, string(v.Orientation))
			for _, c := range v.Children {
				cid := visit(c)
				fmt.Fprintf(&buf, "  %s -> %s;\n", id, cid)
			}
		default:
			fmt.Fprintf(&buf, "  %s [shape=point];\n", id)
		}
		return id
	}
	if root != nil {
		visit(root)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func paneLabel(p *tree.Pane, opts DOTOptions) string {
	lines := []string{p.ID}
	if t, ok := opts.Titles[p.ID]; ok {
		lines[0] = t + "  " + p.ID
	}
	if p.Name != "" {
		lines = append(lines, p.Name)
	}
	if opts.Frames {
		if f := p.Frame; f != nil {
			lines = append(lines, fmt.Sprintf("%g,%g %gx%g", f.X, f.Y, f.W, f.H))
		} else {
			lines = append(lines, "no frame")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderDOT lays out a DOT graph with Graphviz and returns SVG.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's root element to a zero-origin viewBox
// with matching pixel size.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
