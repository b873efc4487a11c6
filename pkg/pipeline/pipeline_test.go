package pipeline

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/match"
	"github.com/matzehuels/panelmap/pkg/snapshot"
	"github.com/matzehuels/panelmap/pkg/tree"
)

func rect(x, y, w, h float64) *geom.Rect {
	return &geom.Rect{X: x, Y: y, W: w, H: h}
}

func pane(id string, x, y, w, h float64) *tree.Pane {
	return &tree.Pane{ID: id, Name: "shell " + id, Frame: rect(x, y, w, h)}
}

// gridSnapshot has one window with two tabs: a 2x2 grid and a uniform split.
func gridSnapshot() *snapshot.Snapshot {
	grid := tree.NewSplit(tree.Vertical,
		tree.NewSplit(tree.Horizontal, pane("tl", 0, 0, 50, 30), pane("bl", 0, 30, 50, 30)),
		tree.NewSplit(tree.Horizontal, pane("tr", 50, 0, 50, 30), pane("br", 50, 30, 50, 30)),
	)
	uniform := tree.NewSplit(tree.Vertical, pane("u1", 0, 0, 50, 30), pane("u2", 0, 0, 60, 30))
	return &snapshot.Snapshot{
		Windows: []snapshot.Window{{
			Frame: rect(10, 10, 800, 600),
			Tabs:  []snapshot.Tab{{Root: grid}, {Root: uniform}},
		}},
		OSWindows: []match.Descriptor{
			{ID: 99, Owner: "Finder", X: 10, Y: 10, W: 800, H: 600},
			{ID: 4711, Owner: "iTerm2", X: 12, Y: 38, W: 800, H: 600},
		},
	}
}

func TestDumpGrid(t *testing.T) {
	res, err := Dump(context.Background(), gridSnapshot(), Options{Owners: []string{"iTerm2"}})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected tab errors: %+v", res.Errors)
	}

	wantOrder := []string{"tl", "tr", "bl", "br", "u1", "u2"}
	wantTitles := []string{"1.1.1", "1.1.2", "1.1.3", "1.1.4", "1.2.1", "1.2.2"}
	if len(res.Panels) != len(wantOrder) {
		t.Fatalf("got %d panels, want %d", len(res.Panels), len(wantOrder))
	}
	for i, p := range res.Panels {
		if p.PaneID != wantOrder[i] || p.Title != wantTitles[i] {
			t.Errorf("panel %d = %s %s, want %s %s", i, p.PaneID, p.Title, wantOrder[i], wantTitles[i])
		}
		if p.MatchedWindowID == nil || *p.MatchedWindowID != 4711 {
			t.Errorf("panel %s matched id = %v, want 4711", p.PaneID, p.MatchedWindowID)
		}
	}

	u2 := res.Panels[5]
	if u2.LayoutFrame == nil || u2.LayoutFrame.X != 50 {
		t.Errorf("u2 layout frame = %v, want x=50", u2.LayoutFrame)
	}
	if u2.LayoutCanvasSize == nil || *u2.LayoutCanvasSize != (geom.Size{W: 110, H: 30}) {
		t.Errorf("u2 canvas = %v", u2.LayoutCanvasSize)
	}
	if res.Stats.Windows != 1 || res.Stats.Tabs != 2 || res.Stats.Panes != 6 || res.Stats.Matched != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestDumpOwnerFilter(t *testing.T) {
	// without the owner filter the exact Finder window wins
	res, err := Dump(context.Background(), gridSnapshot(), Options{})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if id := res.Panels[0].MatchedWindowID; id == nil || *id != 99 {
		t.Errorf("matched id = %v, want 99", id)
	}
}

func TestDumpExplicitZeroTolerances(t *testing.T) {
	// an explicit all-zero set is kept, so only the exact Finder window matches
	res, err := Dump(context.Background(), gridSnapshot(), Options{Owners: []string{"iTerm2"}, Tolerances: &match.Tolerances{}})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if id := res.Panels[0].MatchedWindowID; id != nil {
		t.Errorf("matched id = %d, want none", *id)
	}

	res, err = Dump(context.Background(), gridSnapshot(), Options{Tolerances: &match.Tolerances{}})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if id := res.Panels[0].MatchedWindowID; id == nil || *id != 99 {
		t.Errorf("matched id = %v, want 99", id)
	}
}

func TestDumpMissingFrame(t *testing.T) {
	snap := &snapshot.Snapshot{Windows: []snapshot.Window{{
		Frame: nil,
		Tabs: []snapshot.Tab{{Root: tree.NewSplit(tree.Vertical,
			pane("a", 0, 0, 50, 30),
			&tree.Pane{ID: "0-lost"},
			pane("c", 0, 0, 40, 30),
		)}},
	}}}

	res, err := Dump(context.Background(), snap, Options{})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	got := make([]string, len(res.Panels))
	for i, p := range res.Panels {
		got[i] = p.PaneID
	}
	if !reflect.DeepEqual(got, []string{"a", "c", "0-lost"}) {
		t.Fatalf("order = %v, want unranked pane last", got)
	}

	lost := res.Panels[2]
	if lost.LayoutFrame != nil || lost.SpatialRank != nil || lost.PaneFrame != nil {
		t.Errorf("lost pane = %+v, want null geometry", lost)
	}
	if lost.Title != "1.1.?" {
		t.Errorf("lost title = %q", lost.Title)
	}
	if lost.MatchedWindowID != nil || lost.WindowFrame != nil {
		t.Error("window without frame should not match")
	}
	if *res.Panels[0].SpatialRank != 1 || *res.Panels[1].SpatialRank != 2 {
		t.Error("siblings should keep dense ranks 1 and 2")
	}
	if c := res.Panels[1].LayoutFrame; c == nil || c.X != 50 {
		t.Errorf("c layout = %v, want x=50", c)
	}
}

func TestDumpMalformedTabDoesNotAbortOthers(t *testing.T) {
	snap := &snapshot.Snapshot{Windows: []snapshot.Window{
		{
			Frame: rect(0, 0, 100, 100),
			Tabs: []snapshot.Tab{
				{Root: tree.NewSplit(tree.Vertical, pane("x", 0, 0, 50, 50), tree.NewSplit(tree.Horizontal))},
				{Root: pane("ok", 0, 0, 100, 100)},
			},
		},
		{
			Frame: rect(200, 0, 100, 100),
			Tabs:  []snapshot.Tab{{Root: pane("other", 0, 0, 100, 100)}},
		},
	}}

	res, err := Dump(context.Background(), snap, Options{})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want one", res.Errors)
	}
	te := res.Errors[0]
	if te.Window != 1 || te.Tab != 1 || te.Code != errors.ErrCodeInvalidTree {
		t.Errorf("tab error = %+v", te)
	}

	byID := map[string]Record{}
	for _, p := range res.Panels {
		byID[p.PaneID] = p
	}
	if x := byID["x"]; x.Title != "1.1.?" || x.LayoutFrame != nil || x.PaneFrame == nil {
		t.Errorf("malformed tab pane = %+v", x)
	}
	if ok := byID["ok"]; ok.Title != "1.2.1" || ok.LayoutFrame == nil {
		t.Errorf("healthy tab pane = %+v", ok)
	}
	if other := byID["other"]; other.Title != "2.1.1" {
		t.Errorf("second window pane = %+v", other)
	}
}

func TestDumpIdempotent(t *testing.T) {
	snap := gridSnapshot()
	a, err := Dump(context.Background(), snap, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Dump(context.Background(), snap, Options{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a.Panels)
	jb, _ := json.Marshal(b.Panels)
	if string(ja) != string(jb) {
		t.Errorf("dump not idempotent:\n%s\n%s", ja, jb)
	}
}

func TestDumpManyWindows(t *testing.T) {
	snap := &snapshot.Snapshot{}
	for i := 0; i < 16; i++ {
		snap.Windows = append(snap.Windows, snapshot.Window{
			Tabs: []snapshot.Tab{{Root: tree.NewSplit(tree.Horizontal, pane("a", 0, 0, 10, 10), pane("b", 0, 0, 10, 10))}},
		})
	}
	res, err := Dump(context.Background(), snap, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 32 {
		t.Fatalf("panels = %d, want 32", len(res.Panels))
	}
	for i, p := range res.Panels {
		if p.WindowIndex != i/2+1 {
			t.Fatalf("panel %d in window %d, want %d", i, p.WindowIndex, i/2+1)
		}
	}
}

func TestDumpCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Dump(ctx, gridSnapshot(), Options{}); err == nil {
		t.Error("cancelled dump should fail")
	}
}

func TestDumpInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"precision below whole numbers", Options{Precision: -2}},
		{"negative workers", Options{Workers: -2}},
		{"negative tolerance", Options{Tolerances: &match.Tolerances{MaxXDelta: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dump(context.Background(), gridSnapshot(), tt.opts)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestRecordJSONNulls(t *testing.T) {
	data, err := json.Marshal(Record{WindowIndex: 1, TabIndex: 1, PaneID: "p", Title: "1.1.?"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	for _, k := range []string{"spatial_rank", "matched_window_id", "window_frame", "pane_frame", "layout_frame", "layout_canvas_size"} {
		v, ok := m[k]
		if !ok || v != nil {
			t.Errorf("%s = %v (present %v), want null", k, v, ok)
		}
	}
}

func TestTitle(t *testing.T) {
	r := 8
	if got := Title(1, 1, &r); got != "1.1.8" {
		t.Errorf("Title = %s", got)
	}
	if got := Title(2, 3, nil); got != "2.3.?" {
		t.Errorf("Title = %s", got)
	}
	if err := errors.ValidateTitle(Title(2, 3, nil)); err != nil {
		t.Errorf("Title output fails validation: %v", err)
	}
}

func TestSelect(t *testing.T) {
	panels := []Record{{PaneID: "a", Title: "1.1.1"}, {PaneID: "b", Title: "1.1.8"}}
	if p, ok := Select(panels, "1.1.8"); !ok || p.PaneID != "b" {
		t.Errorf("Select(1.1.8) = %v", p.PaneID)
	}
	if p, ok := Select(panels, "9.9.9"); !ok || p.PaneID != "a" {
		t.Errorf("Select fallback = %v", p.PaneID)
	}
	if _, ok := Select(nil, "1.1.1"); ok {
		t.Error("Select on empty list should fail")
	}
}

func TestResultTab(t *testing.T) {
	res, _ := Dump(context.Background(), gridSnapshot(), Options{})
	if got := len(res.Tab(1, 2)); got != 2 {
		t.Errorf("Tab(1,2) = %d records, want 2", got)
	}
	if got := len(res.Tab(3, 1)); got != 0 {
		t.Errorf("Tab(3,1) = %d records, want 0", got)
	}
}
