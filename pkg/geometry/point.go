// Package geometry turns raw pointer samples into the point sequence that is drawn and
// shared. It is pure: no clocks, no randomness, identical input gives identical output.
package geometry

import "math"

type Point struct {
	X, Y float64
}

func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Flatten converts points into x,y pairs.
func Flatten(points []Point) []float64 {
	out := make([]float64, 0, len(points)*2)
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Unflatten is the inverse of Flatten. A trailing odd coordinate is ignored.
func Unflatten(flat []float64) []Point {
	out := make([]Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, Point{X: flat[i], Y: flat[i+1]})
	}
	return out
}
