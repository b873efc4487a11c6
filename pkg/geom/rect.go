// Package geom holds the rectangle, bounds and size types shared by the
// layout, ranking and matching packages.
//
// All coordinates are in points with the origin at the top-left and Y growing
// downward, matching what terminal hosts report for sessions and windows.
package geom

import "math"

// Axis selects a coordinate direction.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// String returns "x" or "y".
func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// Rect is an axis-aligned rectangle. W and H are never negative; X and Y may be.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the center point of the rectangle.
func (r Rect) Center() (cx, cy float64) {
	return r.X + r.W*0.5, r.Y + r.H*0.5
}

// Size returns the rectangle's extent.
func (r Rect) Size() Size { return Size{W: r.W, H: r.H} }

// Bounds converts the rectangle to min/max form.
func (r Rect) Bounds() Bounds {
	return Bounds{MinX: r.X, MinY: r.Y, MaxX: r.Right(), MaxY: r.Bottom()}
}

// Offset returns the rectangle translated by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Bounds is a rectangle in min/max form.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Leading returns the minimum coordinate along axis.
func (b Bounds) Leading(axis Axis) float64 {
	if axis == AxisY {
		return b.MinY
	}
	return b.MinX
}

// Rect converts the bounds back to origin/extent form.
func (b Bounds) Rect() Rect {
	return Rect{X: b.MinX, Y: b.MinY, W: b.MaxX - b.MinX, H: b.MaxY - b.MinY}
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Along returns the extent along axis.
func (s Size) Along(axis Axis) float64 {
	if axis == AxisY {
		return s.H
	}
	return s.W
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Round rounds v to the given number of decimal places, half away from zero.
// Non-positive places round to an integer.
func Round(v float64, places int) float64 {
	if places <= 0 {
		return math.Round(v)
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
