package match

import (
	"testing"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
)

func TestMatchExact(t *testing.T) {
	frame := &geom.Rect{X: 10, Y: 10, W: 800, H: 600}
	res, ok := (&Matcher{}).Match(frame, []Descriptor{{ID: 42, X: 10, Y: 10, W: 800, H: 600}})
	if !ok {
		t.Fatal("Match() ok = false")
	}
	if res.ID != 42 || res.Score != 0 {
		t.Errorf("Match() = %+v, want id 42 score 0", res)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	m := NewMatcher(DefaultTolerances())
	if _, ok := m.Match(&geom.Rect{W: 10, H: 10}, nil); ok {
		t.Error("empty candidates should not match")
	}
	if _, ok := m.Match(nil, []Descriptor{{ID: 1}}); ok {
		t.Error("nil frame should not match")
	}
}

func TestMatchWidthOutOfTolerance(t *testing.T) {
	frame := &geom.Rect{X: 0, Y: 0, W: 800, H: 600}
	candidates := []Descriptor{
		{ID: 1, W: 821, H: 600},
		{ID: 2, W: 770, H: 600},
		{ID: 3, W: 1000, H: 600},
	}
	if res, ok := (&Matcher{}).Match(frame, candidates); ok {
		t.Errorf("Match() = %+v, want no match", res)
	}
}

func TestMatchPrefersShape(t *testing.T) {
	frame := &geom.Rect{X: 100, Y: 100, W: 800, H: 600}
	candidates := []Descriptor{
		{ID: 1, X: 100, Y: 100, W: 815, H: 600}, // score 30
		{ID: 2, X: 125, Y: 100, W: 800, H: 600}, // score 25
	}
	res, ok := (&Matcher{}).Match(frame, candidates)
	if !ok || res.ID != 2 || res.Score != 25 {
		t.Errorf("Match() = %+v, %v; want id 2 score 25", res, ok)
	}
}

func TestMatchTiesFirstWins(t *testing.T) {
	frame := &geom.Rect{X: 50, Y: 50, W: 400, H: 300}
	candidates := []Descriptor{
		{ID: 7, X: 55, Y: 50, W: 400, H: 300},
		{ID: 8, X: 45, Y: 50, W: 400, H: 300},
	}
	res, ok := (&Matcher{}).Match(frame, candidates)
	if !ok || res.ID != 7 {
		t.Errorf("Match() = %+v, want first candidate 7", res)
	}
}

func TestMatchRejectsBestWhenOutOfTolerance(t *testing.T) {
	// the nearest candidate is rejected; a farther one is never considered
	frame := &geom.Rect{X: 0, Y: 0, W: 500, H: 500}
	candidates := []Descriptor{
		{ID: 1, X: 0, Y: 121, W: 500, H: 500},   // score 121, dy too large
		{ID: 2, X: 0, Y: 0, W: 500 + 70, H: 500}, // score 140
	}
	if res, ok := (&Matcher{}).Match(frame, candidates); ok {
		t.Errorf("Match() = %+v, want no match", res)
	}
}

func TestMatchToleranceEdges(t *testing.T) {
	frame := geom.Rect{X: 100, Y: 100, W: 800, H: 600}
	tests := []struct {
		name string
		cand Descriptor
		want bool
	}{
		{"width at limit", Descriptor{ID: 1, X: 100, Y: 100, W: 820, H: 600}, true},
		{"width over limit", Descriptor{ID: 1, X: 100, Y: 100, W: 820.5, H: 600}, false},
		{"height at limit", Descriptor{ID: 1, X: 100, Y: 100, W: 800, H: 580}, true},
		{"height over limit", Descriptor{ID: 1, X: 100, Y: 100, W: 800, H: 621}, false},
		{"x at limit", Descriptor{ID: 1, X: 70, Y: 100, W: 800, H: 600}, true},
		{"x over limit", Descriptor{ID: 1, X: 131, Y: 100, W: 800, H: 600}, false},
		{"y at limit", Descriptor{ID: 1, X: 100, Y: 220, W: 800, H: 600}, true},
		{"y over limit", Descriptor{ID: 1, X: 100, Y: -21, W: 800, H: 600}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := (&Matcher{}).Match(&frame, []Descriptor{tt.cand})
			if ok != tt.want {
				t.Errorf("Match() ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMatchCustomTolerances(t *testing.T) {
	tol := DefaultTolerances()
	tol.MaxYDelta = 10
	frame := &geom.Rect{X: 0, Y: 0, W: 100, H: 100}
	cands := []Descriptor{{ID: 3, X: 0, Y: 25, W: 100, H: 100}}

	if _, ok := NewMatcher(tol).Match(frame, cands); ok {
		t.Error("custom MaxYDelta should reject dy=25")
	}
	if _, ok := NewMatcher(DefaultTolerances()).Match(frame, cands); !ok {
		t.Error("default tolerances should accept dy=25")
	}
}

func TestMatchZeroTolerances(t *testing.T) {
	frame := &geom.Rect{X: 10, Y: 10, W: 100, H: 100}
	strict := NewMatcher(Tolerances{})

	if _, ok := strict.Match(frame, []Descriptor{{ID: 1, X: 11, Y: 10, W: 100, H: 100}}); ok {
		t.Error("all-zero tolerances should reject a 1px offset")
	}
	res, ok := strict.Match(frame, []Descriptor{{ID: 2, X: 10, Y: 10, W: 100, H: 100}})
	if !ok || res.ID != 2 {
		t.Errorf("all-zero tolerances should accept an exact frame, got %+v, %v", res, ok)
	}
	if _, ok := (&Matcher{}).Match(frame, []Descriptor{{ID: 1, X: 11, Y: 10, W: 100, H: 100}}); !ok {
		t.Error("zero Matcher should fall back to default tolerances")
	}
}

func TestScore(t *testing.T) {
	got := (&Matcher{}).Score(geom.Rect{X: 0, Y: 0, W: 100, H: 100}, Descriptor{X: 3, Y: -4, W: 105, H: 98})
	// 2*5 + 2*2 + 3 + 4
	if got != 21 {
		t.Errorf("Score() = %v, want 21", got)
	}
}

func TestTolerancesValidate(t *testing.T) {
	if err := DefaultTolerances().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	bad := DefaultTolerances()
	bad.MaxXDelta = -1
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Validate() = %v, want INVALID_INPUT", err)
	}
}

func TestFilterOwners(t *testing.T) {
	all := []Descriptor{
		{ID: 1, Owner: "iTerm2"},
		{ID: 2, Owner: "Finder"},
		{ID: 3, Owner: "iTerm"},
	}
	got := FilterOwners(all, "iTerm", "iTerm2")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("FilterOwners() = %+v", got)
	}
	if got := FilterOwners(all); len(got) != 3 {
		t.Errorf("FilterOwners() with no owners = %d entries, want 3", len(got))
	}
}
