// Package match pairs an application window frame with an OS window id.
//
// The host window server reports every on-screen window as a [Descriptor].
// The terminal knows its own windows only by frame, so [Matcher.Match] picks
// the descriptor whose rectangle is nearest. Size differences weigh more than
// position differences because window shape is more stable than placement.
// A winner that is still too far off on any axis is rejected.
package match

import (
	"math"
	"slices"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
)

// Descriptor is an OS-reported window.
type Descriptor struct {
	ID    int64   `json:"id"`
	Owner string  `json:"owner,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Rect returns the descriptor's screen rectangle.
func (d Descriptor) Rect() geom.Rect {
	return geom.Rect{X: d.X, Y: d.Y, W: d.W, H: d.H}
}

// Tolerances bounds how far a matched descriptor may deviate from the query.
// The vertical allowance is the largest to absorb title and menu bar height.
type Tolerances struct {
	MaxWidthDelta  float64 `json:"max_width_delta" toml:"max_width_delta" mapstructure:"max_width_delta"`
	MaxHeightDelta float64 `json:"max_height_delta" toml:"max_height_delta" mapstructure:"max_height_delta"`
	MaxXDelta      float64 `json:"max_x_delta" toml:"max_x_delta" mapstructure:"max_x_delta"`
	MaxYDelta      float64 `json:"max_y_delta" toml:"max_y_delta" mapstructure:"max_y_delta"`
	SizeWeight     float64 `json:"size_weight" toml:"size_weight" mapstructure:"size_weight"`
	PositionWeight float64 `json:"position_weight" toml:"position_weight" mapstructure:"position_weight"`
}

// Default tolerance values.
const (
	DefaultMaxWidthDelta  = 20
	DefaultMaxHeightDelta = 20
	DefaultMaxXDelta      = 30
	DefaultMaxYDelta      = 120
	DefaultSizeWeight     = 2
	DefaultPositionWeight = 1
)

// DefaultTolerances returns the tolerances used when nothing is configured.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MaxWidthDelta:  DefaultMaxWidthDelta,
		MaxHeightDelta: DefaultMaxHeightDelta,
		MaxXDelta:      DefaultMaxXDelta,
		MaxYDelta:      DefaultMaxYDelta,
		SizeWeight:     DefaultSizeWeight,
		PositionWeight: DefaultPositionWeight,
	}
}

// Validate rejects negative thresholds and weights.
func (t Tolerances) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"max_width_delta", t.MaxWidthDelta},
		{"max_height_delta", t.MaxHeightDelta},
		{"max_x_delta", t.MaxXDelta},
		{"max_y_delta", t.MaxYDelta},
		{"size_weight", t.SizeWeight},
		{"position_weight", t.PositionWeight},
	}
	for _, f := range fields {
		if f.v < 0 || math.IsNaN(f.v) {
			return errors.New(errors.ErrCodeInvalidInput, "match tolerance %s must be non-negative, got %v", f.name, f.v)
		}
	}
	return nil
}

// Result is a successful match.
type Result struct {
	ID    int64   `json:"matched_window_id"`
	Score float64 `json:"score"`
}

// Matcher finds the OS window that corresponds to a frame.
// A nil Tolerances uses DefaultTolerances. A non-nil one is used as given,
// so an all-zero set accepts exact matches only.
type Matcher struct {
	Tolerances *Tolerances
}

// NewMatcher returns a Matcher with the given tolerances.
func NewMatcher(t Tolerances) *Matcher {
	return &Matcher{Tolerances: &t}
}

func (m *Matcher) tolerances() Tolerances {
	if m == nil || m.Tolerances == nil {
		return DefaultTolerances()
	}
	return *m.Tolerances
}

// Score returns the weighted distance between frame and d. Lower is closer.
func (m *Matcher) Score(frame geom.Rect, d Descriptor) float64 {
	t := m.tolerances()
	return score(t, frame, d)
}

func score(t Tolerances, f geom.Rect, d Descriptor) float64 {
	return t.SizeWeight*math.Abs(d.W-f.W) +
		t.SizeWeight*math.Abs(d.H-f.H) +
		t.PositionWeight*math.Abs(d.X-f.X) +
		t.PositionWeight*math.Abs(d.Y-f.Y)
}

// Match returns the candidate nearest to frame. The earliest candidate wins
// exact ties. It returns false when frame is nil, there are no candidates, or
// the nearest candidate exceeds any tolerance.
func (m *Matcher) Match(frame *geom.Rect, candidates []Descriptor) (Result, bool) {
	if frame == nil || len(candidates) == 0 {
		return Result{}, false
	}
	t := m.tolerances()

	best := -1
	var bestScore float64
	for i, c := range candidates {
		s := score(t, *frame, c)
		if best < 0 || s < bestScore {
			best, bestScore = i, s
		}
	}

	c := candidates[best]
	if math.Abs(c.W-frame.W) > t.MaxWidthDelta ||
		math.Abs(c.H-frame.H) > t.MaxHeightDelta ||
		math.Abs(c.X-frame.X) > t.MaxXDelta ||
		math.Abs(c.Y-frame.Y) > t.MaxYDelta {
		return Result{}, false
	}
	return Result{ID: c.ID, Score: bestScore}, true
}

// FilterOwners keeps the descriptors owned by one of owners. An empty owner
// list keeps everything.
func FilterOwners(candidates []Descriptor, owners ...string) []Descriptor {
	if len(owners) == 0 {
		return candidates
	}
	out := make([]Descriptor, 0, len(candidates))
	for _, c := range candidates {
		if slices.Contains(owners, c.Owner) {
			out = append(out, c)
		}
	}
	return out
}
