package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

func ptr[T any](v T) *T { return &v }

func TestPanelRow(t *testing.T) {
	full := pipeline.Record{
		PaneID:           "s1",
		Name:             "vim",
		Title:            "1.2.3",
		SpatialRank:      ptr(3),
		MatchedWindowID:  ptr(int64(4711)),
		LayoutFrame:      &geom.Rect{X: 0, Y: 30.5, W: 50, H: 29.5},
		LayoutCanvasSize: &geom.Size{W: 100, H: 60},
	}
	want := []string{"1.2.3", "s1", "vim", "3", "4711", "0,30.5 50×29.5", "100×60"}
	got := panelRow(full)
	if len(got) != len(tableHeaders) {
		t.Fatalf("row has %d cells, headers have %d", len(got), len(tableHeaders))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d (%s) = %q, want %q", i, tableHeaders[i], got[i], want[i])
		}
	}

	empty := panelRow(pipeline.Record{PaneID: "s2", Title: "1.1.?"})
	for _, i := range []int{2, 3, 4, 5, 6} {
		if empty[i] != nullCell {
			t.Errorf("cell %d (%s) = %q, want %q", i, tableHeaders[i], empty[i], nullCell)
		}
	}
}

func TestPanelTable(t *testing.T) {
	out := panelTable([]pipeline.Record{
		{PaneID: "left", Title: "1.1.1", SpatialRank: ptr(1), LayoutFrame: &geom.Rect{W: 40, H: 20}},
		{PaneID: "right", Title: "1.1.2", SpatialRank: ptr(2), LayoutFrame: &geom.Rect{X: 40, W: 40, H: 20}},
	})
	for _, want := range []string{"Window ID", "left", "right", "1.1.2", "40,0 40×20"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
