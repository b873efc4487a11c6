package layout

import (
	"testing"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/tree"
)

func pane(id string, x, y, w, h float64) *tree.Pane {
	return tree.NewPane(id, geom.Rect{X: x, Y: y, W: w, H: h})
}

func TestSize(t *testing.T) {
	tests := []struct {
		name string
		node tree.Node
		want geom.Size
	}{
		{"pane", pane("a", 5, 5, 40, 20), geom.Size{W: 40, H: 20}},
		{"missing frame", &tree.Pane{ID: "a"}, geom.Size{}},
		{
			"vertical sums widths",
			tree.NewSplit(tree.Vertical, pane("a", 0, 0, 50, 30), pane("b", 0, 0, 60, 40)),
			geom.Size{W: 110, H: 40},
		},
		{
			"horizontal sums heights",
			tree.NewSplit(tree.Horizontal, pane("a", 0, 0, 50, 30), pane("b", 0, 0, 60, 40)),
			geom.Size{W: 60, H: 70},
		},
		{
			"nested",
			tree.NewSplit(tree.Vertical,
				tree.NewSplit(tree.Horizontal, pane("a", 0, 0, 50, 30), pane("b", 0, 0, 50, 30)),
				pane("c", 0, 0, 40, 50),
			),
			geom.Size{W: 90, H: 60},
		},
		{
			"missing frame counts as zero",
			tree.NewSplit(tree.Vertical, pane("a", 0, 0, 50, 30), &tree.Pane{ID: "b"}),
			geom.Size{W: 50, H: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Size(tt.node); got != tt.want {
				t.Errorf("Size() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCollectBounds(t *testing.T) {
	b, ok := CollectBounds(tree.NewSplit(tree.Vertical,
		pane("a", 10, 5, 20, 20),
		&tree.Pane{ID: "gap"},
		pane("b", -5, 30, 10, 10),
	))
	if !ok {
		t.Fatal("CollectBounds() ok = false")
	}
	want := geom.Bounds{MinX: -5, MinY: 5, MaxX: 30, MaxY: 40}
	if b != want {
		t.Errorf("bounds = %+v, want %+v", b, want)
	}

	if _, ok := CollectBounds(tree.NewSplit(tree.Horizontal, &tree.Pane{ID: "a"}, &tree.Pane{ID: "b"})); ok {
		t.Error("split without frames should have no bounds")
	}
}

func TestAssignUniformSplit(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("p1", 0, 0, 50, 30), pane("p2", 0, 0, 60, 30))
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["p1"]; got != (geom.Rect{X: 0, Y: 0, W: 50, H: 30}) {
		t.Errorf("p1 = %+v", got)
	}
	if got := frames["p2"]; got != (geom.Rect{X: 50, Y: 0, W: 60, H: 30}) {
		t.Errorf("p2 = %+v, want x=50", got)
	}
}

func TestAssignUniformHorizontal(t *testing.T) {
	root := tree.NewSplit(tree.Horizontal, pane("top", 0, 0, 80, 20), pane("bottom", 0, 0, 80, 25))
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["bottom"]; got != (geom.Rect{X: 0, Y: 20, W: 80, H: 25}) {
		t.Errorf("bottom = %+v, want y=20", got)
	}
}

func TestAssignNonUniformPassthrough(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("p1", 0, 0, 100, 30), pane("p2", 100, 0, 60, 30))
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if frames["p1"].X != 0 || frames["p2"].X != 100 {
		t.Errorf("x = %v, %v; want 0, 100", frames["p1"].X, frames["p2"].X)
	}
}

func TestAssignGrid(t *testing.T) {
	root := tree.NewSplit(tree.Vertical,
		tree.NewSplit(tree.Horizontal, pane("tl", 0, 0, 50, 30), pane("bl", 0, 30, 50, 30)),
		tree.NewSplit(tree.Horizontal, pane("tr", 50, 0, 50, 30), pane("br", 50, 30, 50, 30)),
	)
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	want := map[string]geom.Rect{
		"tl": {X: 0, Y: 0, W: 50, H: 30},
		"tr": {X: 50, Y: 0, W: 50, H: 30},
		"bl": {X: 0, Y: 30, W: 50, H: 30},
		"br": {X: 50, Y: 30, W: 50, H: 30},
	}
	for id, w := range want {
		if got := frames[id]; got != w {
			t.Errorf("%s = %+v, want %+v", id, got, w)
		}
	}
}

func TestAssignNestedUniform(t *testing.T) {
	// every pane reports a placeholder origin; only the tree shape positions them
	root := tree.NewSplit(tree.Vertical,
		pane("left", 0, 0, 40, 60),
		tree.NewSplit(tree.Horizontal, pane("rt", 0, 0, 70, 25), pane("rb", 0, 0, 70, 35)),
	)
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["rt"]; got != (geom.Rect{X: 40, Y: 0, W: 70, H: 25}) {
		t.Errorf("rt = %+v", got)
	}
	if got := frames["rb"]; got != (geom.Rect{X: 40, Y: 25, W: 70, H: 35}) {
		t.Errorf("rb = %+v", got)
	}
}

func TestAssignMissingFrame(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("p1", 0, 0, 50, 30), &tree.Pane{ID: "gone"}, pane("p3", 0, 0, 40, 30))
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, ok := frames["gone"]; ok {
		t.Error("pane without frame should have no layout entry")
	}
	// the missing pane has zero width, so p3 sits right after p1
	if got := frames["p3"].X; got != 50 {
		t.Errorf("p3.x = %v, want 50", got)
	}
}

func TestAssignFramelessSiblingIgnored(t *testing.T) {
	// the siblings that do report frames agree, so the split is uniform
	root := tree.NewSplit(tree.Vertical, &tree.Pane{ID: "gone"}, pane("b", 100, 0, 50, 30), pane("c", 100, 0, 60, 30))
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["b"].X; got != 100 {
		t.Errorf("b.x = %v, want 100", got)
	}
	if got := frames["c"].X; got != 150 {
		t.Errorf("c.x = %v, want 150", got)
	}

	// a single bounded child has nothing to differ from
	frames, err = Assign(tree.NewSplit(tree.Horizontal, &tree.Pane{ID: "gone"}, pane("only", 0, 7, 50, 30)), Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["only"]; got != (geom.Rect{X: 0, Y: 7, W: 50, H: 30}) {
		t.Errorf("only = %+v", got)
	}
}

func TestAssignPrecision(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("a", 0, 0, 50, 30), pane("b", 0.0004, 0, 50, 30))

	// jitter below the default precision is absorbed: uniform, b offset by 50
	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := geom.Round(frames["b"].X, 4); got != 50.0004 {
		t.Errorf("default precision: b.x = %v, want 50.0004", got)
	}

	// finer precision sees two distinct coordinates: passthrough
	frames, err = Assign(root, Options{Precision: 4})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["b"].X; got != 0.0004 {
		t.Errorf("precision 4: b.x = %v, want 0.0004", got)
	}
}

func TestAssignWholeNumbers(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("a", 0, 0, 50, 30), pane("b", 0.4, 0, 50, 30))

	frames, err := Assign(root, Options{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := frames["b"].X; got != 0.4 {
		t.Errorf("default precision: b.x = %v, want 0.4", got)
	}

	frames, err = Assign(root, Options{Precision: WholeNumbers})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := geom.Round(frames["b"].X, 3); got != 50.4 {
		t.Errorf("whole numbers: b.x = %v, want 50.4", got)
	}
}

func TestAssignInvalidTree(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("a", 0, 0, 1, 1), tree.NewSplit(tree.Horizontal))
	frames, err := Assign(root, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidTree) {
		t.Fatalf("Assign() error = %v, want INVALID_TREE", err)
	}
	if frames != nil {
		t.Error("no frames should be assigned for a malformed tree")
	}
}

func TestCanvasSize(t *testing.T) {
	s, ok := CanvasSize(tree.NewSplit(tree.Vertical, pane("a", 0, 0, 50, 30), pane("b", 0, 0, 60, 30)))
	if !ok || s != (geom.Size{W: 110, H: 30}) {
		t.Errorf("CanvasSize() = %+v, %v", s, ok)
	}
	if _, ok := CanvasSize(&tree.Pane{ID: "a"}); ok {
		t.Error("zero canvas should report false")
	}
	if _, ok := CanvasSize(pane("a", 0, 0, 50, 0)); ok {
		t.Error("zero height canvas should report false")
	}
}

func TestAssignIdempotent(t *testing.T) {
	root := tree.NewSplit(tree.Vertical, pane("p1", 0, 0, 50, 30), pane("p2", 0, 0, 60, 30))
	a, _ := Assign(root, Options{})
	b, _ := Assign(root, Options{})
	for id, r := range a {
		if b[id] != r {
			t.Errorf("%s changed between runs: %+v vs %+v", id, r, b[id])
		}
	}
}
