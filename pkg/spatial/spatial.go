// Package spatial ranks panes in reading order.
//
// Panes are ordered by the vertical center of their layout frame, then the
// horizontal center, then id. The id comparison only matters when two panes
// share a center and keeps the ranking reproducible across runs.
package spatial

import (
	"cmp"
	"slices"

	"github.com/matzehuels/panelmap/pkg/geom"
)

type keyed struct {
	id       string
	row, col float64
}

// Order returns the pane ids of frames in reading order.
func Order(frames map[string]geom.Rect) []string {
	keys := make([]keyed, 0, len(frames))
	for id, r := range frames {
		cx, cy := r.Center()
		keys = append(keys, keyed{id: id, row: cy, col: cx})
	}
	slices.SortFunc(keys, func(a, b keyed) int {
		if c := cmp.Compare(a.row, b.row); c != 0 {
			return c
		}
		if c := cmp.Compare(a.col, b.col); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.id
	}
	return ids
}

// Rank returns the 1-based reading-order position of every pane in frames.
// The values are always a permutation of 1..len(frames).
func Rank(frames map[string]geom.Rect) map[string]int {
	ranks := make(map[string]int, len(frames))
	for i, id := range Order(frames) {
		ranks[id] = i + 1
	}
	return ranks
}
