package layout_test

import (
	"fmt"

	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/layout"
	"github.com/matzehuels/panelmap/pkg/tree"
)

func ExampleAssign() {
	// Both panes report x=0, so the split positions them side by side.
	root := tree.NewSplit(tree.Vertical,
		tree.NewPane("left", geom.Rect{W: 50, H: 30}),
		tree.NewPane("right", geom.Rect{W: 60, H: 30}),
	)

	frames, err := layout.Assign(root, layout.Options{})
	if err != nil {
		panic(err)
	}
	canvas, _ := layout.CanvasSize(root)

	fmt.Println("left:", frames["left"])
	fmt.Println("right:", frames["right"])
	fmt.Println("canvas:", canvas)
	// Output:
	// left: {0 0 50 30}
	// right: {50 0 60 30}
	// canvas: {110 30}
}
