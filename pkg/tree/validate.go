package tree

import (
	"strconv"

	"github.com/matzehuels/panelmap/pkg/errors"
)

// Validate checks the structure of a tree and returns the first defect found.
//
// Defects are reported as *errors.Error with code INVALID_TREE and a path of
// child indices from the root, e.g. "root/1/0":
//   - nil nodes (including typed nil panes and splits)
//   - splits with zero children or an unknown orientation
//   - panes with an invalid or duplicated id
//   - frames with negative width or height
//
// A pane without a frame is not a defect.
func Validate(root Node) error {
	v := validator{seen: make(map[string]string)}
	return v.visit(root, "root")
}

type validator struct {
	seen map[string]string // pane id -> path of first occurrence
}

func (v *validator) visit(n Node, path string) error {
	switch node := n.(type) {
	case *Pane:
		if node == nil {
			return errors.New(errors.ErrCodeInvalidTree, "%s: nil pane", path)
		}
		if err := errors.ValidatePaneID(node.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTree, err, "%s", path)
		}
		if first, dup := v.seen[node.ID]; dup {
			return errors.New(errors.ErrCodeInvalidTree, "%s: duplicate pane id %q (first at %s)", path, node.ID, first)
		}
		v.seen[node.ID] = path
		if f := node.Frame; f != nil && (f.W < 0 || f.H < 0) {
			return errors.New(errors.ErrCodeInvalidTree, "%s: pane %q has negative size %gx%g", path, node.ID, f.W, f.H)
		}
		return nil

	case *Split:
		if node == nil {
			return errors.New(errors.ErrCodeInvalidTree, "%s: nil split", path)
		}
		if !node.Orientation.Valid() {
			return errors.New(errors.ErrCodeInvalidTree, "%s: unknown orientation %q", path, node.Orientation)
		}
		if len(node.Children) == 0 {
			return errors.New(errors.ErrCodeInvalidTree, "%s: %s split has no children", path, node.Orientation)
		}
		for i, c := range node.Children {
			if err := v.visit(c, path+"/"+strconv.Itoa(i)); err != nil {
				return err
			}
		}
		return nil

	case nil:
		return errors.New(errors.ErrCodeInvalidTree, "%s: nil node", path)

	default:
		return errors.Wrap(errors.ErrCodeInvalidTree, ErrUnknownNode(n), "%s", path)
	}
}
