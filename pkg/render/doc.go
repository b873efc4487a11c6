// Package render draws computed panel layouts and split trees.
//
// # Layout SVG
//
// [LayoutSVG] draws every pane of one tab at its layout frame, labelled with
// the pane's title, scaled to a target width:
//
//	svg, err := render.LayoutSVG(result, 1, 1, render.WithWidth(1200))
//
// # Tree Diagrams
//
// [ToDOT] describes a tab's split tree in Graphviz DOT; [RenderDOT] lays it
// out with the embedded Graphviz engine and returns SVG:
//
//	dot := render.ToDOT(root, render.DOTOptions{Frames: true})
//	svg, err := render.RenderDOT(ctx, dot)
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG through the external rsvg-convert tool.
package render
