package tree

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
)

// Node type tags used in the JSON encoding.
const (
	TypePane  = "pane"
	TypeSplit = "split"
)

// wireNode is the JSON shape of both variants.
type wireNode struct {
	Type        string      `json:"type"`
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Frame       *geom.Rect  `json:"frame,omitempty"`
	Orientation Orientation `json:"orientation,omitempty"`
	Children    []wireNode  `json:"children,omitempty"`
}

// Tree wraps a root Node so it can be embedded in JSON documents.
// A null or absent value decodes to a Tree with a nil Root.
type Tree struct {
	Root Node
}

// MarshalJSON implements json.Marshaler.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t.Root == nil {
		return []byte("null"), nil
	}
	return Marshal(t.Root)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tree) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Root = nil
		return nil
	}
	n, err := Unmarshal(data)
	if err != nil {
		return err
	}
	t.Root = n
	return nil
}

// Marshal encodes a tree as tagged JSON.
func Marshal(n Node) ([]byte, error) {
	w, err := toWire(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Unmarshal decodes tagged JSON into a tree. Unknown type or orientation tags
// fail with INVALID_FORMAT; structural checks are left to [Validate].
func Unmarshal(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode tree")
	}
	return fromWire(w, "root")
}

func toWire(n Node) (wireNode, error) {
	switch v := n.(type) {
	case *Pane:
		if v == nil {
			return wireNode{}, fmt.Errorf("encode tree: nil pane")
		}
		return wireNode{Type: TypePane, ID: v.ID, Name: v.Name, Frame: v.Frame}, nil
	case *Split:
		if v == nil {
			return wireNode{}, fmt.Errorf("encode tree: nil split")
		}
		w := wireNode{Type: TypeSplit, Orientation: v.Orientation, Children: make([]wireNode, 0, len(v.Children))}
		for _, c := range v.Children {
			cw, err := toWire(c)
			if err != nil {
				return wireNode{}, err
			}
			w.Children = append(w.Children, cw)
		}
		return w, nil
	default:
		return wireNode{}, ErrUnknownNode(n)
	}
}

func fromWire(w wireNode, path string) (Node, error) {
	switch w.Type {
	case TypePane:
		return &Pane{ID: w.ID, Name: w.Name, Frame: w.Frame}, nil
	case TypeSplit:
		if !w.Orientation.Valid() {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: unknown orientation %q", path, w.Orientation)
		}
		s := &Split{Orientation: w.Orientation, Children: make([]Node, 0, len(w.Children))}
		for i, cw := range w.Children {
			c, err := fromWire(cw, fmt.Sprintf("%s/%d", path, i))
			if err != nil {
				return nil, err
			}
			s.Children = append(s.Children, c)
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: unknown node type %q", path, w.Type)
	}
}
