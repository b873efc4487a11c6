// Package layout reconstructs absolute pane rectangles from a split tree.
//
// # Overview
//
// Terminal hosts report a frame for every pane, but the coordinate system of
// those frames is ambiguous. Sometimes siblings already carry distinct
// absolute offsets (an irregular grid); sometimes every sibling reports the
// same placeholder origin and relies on its parent to position it. This
// package decides per split which case applies and produces one normalized
// [geom.Rect] per pane, in a space whose origin is the tab root.
//
// # Algorithm
//
// Three recursive passes cooperate:
//
//  1. [Size] estimates the extent a subtree occupies.
//  2. [CollectBounds] unions the frames a subtree reports.
//  3. [Assigner.AssignInto] walks top-down. For each split it rounds every
//     child's leading coordinate along the split axis to [Options.Precision]
//     decimals. More than one distinct value means the children are already
//     placed and the origin passes through unchanged. Otherwise children are
//     laid out in order with a cursor advanced by each child's [Size].
//
// Missing geometry is never an error: a pane without a frame has size (0, 0),
// no bounds and no output entry. Structural defects are reported by [Assign]
// through [tree.Validate].
//
// # Usage
//
//	frames, err := layout.Assign(root, layout.Options{})
//	if err != nil {
//	    return err
//	}
//	canvas, ok := layout.CanvasSize(root)
package layout

import (
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/tree"
)

const (
	// DefaultPrecision is the number of decimals leading coordinates are
	// rounded to before comparing them.
	DefaultPrecision = 3

	// WholeNumbers is the Precision value that rounds leading coordinates
	// to integers. Values below it are invalid.
	WholeNumbers = -1
)

// Options configures frame assignment.
type Options struct {
	// Precision is the number of decimal places leading coordinates are
	// rounded to when deciding whether siblings are already positioned.
	// Zero means DefaultPrecision; WholeNumbers compares integers.
	Precision int
}

func (o Options) precision() int {
	switch {
	case o.Precision == 0:
		return DefaultPrecision
	case o.Precision < 0:
		return 0
	}
	return o.Precision
}

// Size returns the extent of n. Vertical splits sum widths and take the
// tallest child; horizontal splits sum heights and take the widest child.
func Size(n tree.Node) geom.Size {
	switch v := n.(type) {
	case *tree.Pane:
		if v == nil || v.Frame == nil {
			return geom.Size{}
		}
		return v.Frame.Size()
	case *tree.Split:
		if v == nil {
			return geom.Size{}
		}
		var out geom.Size
		for _, c := range v.Children {
			cs := Size(c)
			if v.Orientation == tree.Vertical {
				out.W += cs.W
				out.H = max(out.H, cs.H)
			} else {
				out.W = max(out.W, cs.W)
				out.H += cs.H
			}
		}
		return out
	default:
		return geom.Size{}
	}
}

// CollectBounds returns the union of every frame reported under n.
// It returns false when no pane under n has a frame.
func CollectBounds(n tree.Node) (geom.Bounds, bool) {
	switch v := n.(type) {
	case *tree.Pane:
		if v == nil || v.Frame == nil {
			return geom.Bounds{}, false
		}
		return v.Frame.Bounds(), true
	case *tree.Split:
		if v == nil {
			return geom.Bounds{}, false
		}
		var (
			out   geom.Bounds
			found bool
		)
		for _, c := range v.Children {
			b, ok := CollectBounds(c)
			if !ok {
				continue
			}
			if !found {
				out, found = b, true
				continue
			}
			out = out.Union(b)
		}
		return out, found
	default:
		return geom.Bounds{}, false
	}
}

// CanvasSize returns the extent of the tab rooted at n. It returns false when
// either dimension is zero.
func CanvasSize(n tree.Node) (geom.Size, bool) {
	s := Size(n)
	if s.Empty() {
		return geom.Size{}, false
	}
	return s, true
}

// Assigner computes layout frames. The zero value uses DefaultPrecision.
type Assigner struct {
	opts Options
}

// NewAssigner returns an Assigner with the given options.
func NewAssigner(opts Options) *Assigner {
	return &Assigner{opts: opts}
}

// Assign validates root and returns the layout frame of every pane that has
// a reported frame, keyed by pane id.
func Assign(root tree.Node, opts Options) (map[string]geom.Rect, error) {
	if err := tree.Validate(root); err != nil {
		return nil, err
	}
	out := make(map[string]geom.Rect, tree.Count(root))
	if err := NewAssigner(opts).AssignInto(root, 0, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignInto writes the layout frames of the panes under n into out, treating
// (originX, originY) as the position of n. It does not validate the tree;
// callers that accept untrusted input should use [Assign].
func (a *Assigner) AssignInto(n tree.Node, originX, originY float64, out map[string]geom.Rect) error {
	switch v := n.(type) {
	case *tree.Pane:
		if v == nil || v.Frame == nil {
			return nil
		}
		out[v.ID] = v.Frame.Offset(originX, originY)
		return nil

	case *tree.Split:
		if v == nil {
			return nil
		}
		axis := v.Orientation.Axis()
		if a.positioned(v.Children, axis) {
			for _, c := range v.Children {
				if err := a.AssignInto(c, originX, originY, out); err != nil {
					return err
				}
			}
			return nil
		}

		x, y := originX, originY
		for _, c := range v.Children {
			if err := a.AssignInto(c, x, y, out); err != nil {
				return err
			}
			step := Size(c).Along(axis)
			if axis == geom.AxisX {
				x += step
			} else {
				y += step
			}
		}
		return nil

	default:
		return errors.Wrap(errors.ErrCodeInvalidTree, tree.ErrUnknownNode(n), "assign layout")
	}
}

// positioned reports whether children carry more than one distinct leading
// coordinate along axis. Children without bounds have no coordinate and are
// left out of the comparison.
func (a *Assigner) positioned(children []tree.Node, axis geom.Axis) bool {
	places := a.opts.precision()
	var (
		first float64
		seen  bool
	)
	for _, c := range children {
		b, ok := CollectBounds(c)
		if !ok {
			continue
		}
		lead := geom.Round(b.Leading(axis), places)
		if !seen {
			first, seen = lead, true
			continue
		}
		if lead != first {
			return true
		}
	}
	return false
}
