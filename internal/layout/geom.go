package layout

import "math"

// Rect represents a geometry in logical pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in logical screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r. The left and top edges are
// inclusive, the right and bottom edges exclusive, so adjacent monitors never
// both contain the same point.
func (r Rect) Contains(p Point) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// PercentRect describes a region relative to a monitor, each field in percent.
type PercentRect struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Resolve maps the percentages onto the monitor rectangle. Values are clamped
// to [0,100] and the result never extends past the monitor.
func (p PercentRect) Resolve(monitor Rect) Rect {
	x := clampPercent(p.X)
	y := clampPercent(p.Y)
	w := clampPercent(p.Width)
	h := clampPercent(p.Height)
	if x+w > 100 {
		w = 100 - x
	}
	if y+h > 100 {
		h = 100 - y
	}
	return Rect{
		X:      monitor.X + monitor.Width*x/100,
		Y:      monitor.Y + monitor.Height*y/100,
		Width:  monitor.Width * w / 100,
		Height: monitor.Height * h / 100,
	}
}

// RelativeTo expresses r as percentages of the monitor rectangle, rounded to
// one decimal place.
func RelativeTo(r, monitor Rect) PercentRect {
	if monitor.Width <= 0 || monitor.Height <= 0 {
		return PercentRect{}
	}
	round := func(v float64) float64 { return math.Round(clampPercent(v)*10) / 10 }
	return PercentRect{
		X:      round((r.X - monitor.X) * 100 / monitor.Width),
		Y:      round((r.Y - monitor.Y) * 100 / monitor.Height),
		Width:  round(r.Width * 100 / monitor.Width),
		Height: round(r.Height * 100 / monitor.Height),
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ApproximatelyEqual reports whether two rects are almost equal.
func ApproximatelyEqual(a, b Rect, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance && math.Abs(a.Y-b.Y) <= tolerance &&
		math.Abs(a.Width-b.Width) <= tolerance && math.Abs(a.Height-b.Height) <= tolerance
}
