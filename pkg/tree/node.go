// Package tree models a tab's split layout as a tree of panes and splits.
//
// # Node Variants
//
// [Node] is a closed sum type with exactly two variants:
//
//   - [*Pane]: a leaf terminal session with its own reported frame
//   - [*Split]: an interior node arranging its children along one axis
//
// The marker method is unexported, so no other package can add variants.
// Code that branches on a node uses a type switch and treats the default
// case as a defect (see [ErrUnknownNode]).
//
// # Frames
//
// A pane's Frame is whatever the host reported for that session. Hosts are
// inconsistent: some report absolute coordinates within the tab, others
// report placeholders relative to the parent split. Reconstructing absolute
// frames is the job of the layout package; this package only carries data.
// A nil Frame means the host could not report geometry for that pane.
//
// # Serialization
//
// Trees round-trip through tagged JSON objects:
//
//	{"type": "split", "orientation": "vertical", "children": [
//	    {"type": "pane", "id": "p1", "frame": {"x": 0, "y": 0, "w": 50, "h": 30}},
//	    {"type": "pane", "id": "p2", "frame": {"x": 0, "y": 0, "w": 60, "h": 30}}
//	]}
package tree

import (
	"fmt"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
)

// Node is either a *Pane or a *Split.
type Node interface {
	node()
}

// Orientation describes how a split arranges its children.
type Orientation string

const (
	// Vertical splits place children left-to-right (divider lines are vertical).
	Vertical Orientation = "vertical"
	// Horizontal splits stack children top-to-bottom.
	Horizontal Orientation = "horizontal"
)

// Axis returns the axis children are arranged along.
func (o Orientation) Axis() geom.Axis {
	if o == Vertical {
		return geom.AxisX
	}
	return geom.AxisY
}

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool {
	return o == Vertical || o == Horizontal
}

// Pane is a leaf terminal session.
type Pane struct {
	ID    string
	Name  string
	Frame *geom.Rect
}

// Split groups child nodes along one axis. Child order is significant.
type Split struct {
	Orientation Orientation
	Children    []Node
}

func (*Pane) node()  {}
func (*Split) node() {}

// ErrUnknownNode reports a Node implementation this package does not know.
// It can only happen with a nil interface holding a typed nil or a future
// variant that was added without updating a switch.
func ErrUnknownNode(n Node) error {
	return errors.New(errors.ErrCodeInvalidTree, "unknown node type %T", n)
}

// NewPane returns a pane with the given frame.
func NewPane(id string, frame geom.Rect) *Pane {
	return &Pane{ID: id, Frame: &frame}
}

// NewSplit returns a split with the given children.
func NewSplit(o Orientation, children ...Node) *Split {
	return &Split{Orientation: o, Children: children}
}

// Walk visits n and its descendants in pre-order. It stops descending into a
// node's children when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if s, ok := n.(*Split); ok && s != nil {
		for _, c := range s.Children {
			Walk(c, fn)
		}
	}
}

// Panes returns every pane under n in tree order.
func Panes(n Node) []*Pane {
	var out []*Pane
	Walk(n, func(n Node) bool {
		if p, ok := n.(*Pane); ok && p != nil {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Count returns the number of panes under n.
func Count(n Node) int {
	return len(Panes(n))
}

// Find returns the pane with the given id, or nil.
func Find(n Node, id string) *Pane {
	var found *Pane
	Walk(n, func(n Node) bool {
		if found != nil {
			return false
		}
		if p, ok := n.(*Pane); ok && p != nil && p.ID == id {
			found = p
			return false
		}
		return true
	})
	return found
}

// Describe returns a short human-readable label for n.
func Describe(n Node) string {
	switch v := n.(type) {
	case *Pane:
		if v == nil {
			return "nil pane"
		}
		return "pane " + v.ID
	case *Split:
		if v == nil {
			return "nil split"
		}
		return fmt.Sprintf("%s split (%d)", v.Orientation, len(v.Children))
	default:
		return fmt.Sprintf("%T", n)
	}
}
