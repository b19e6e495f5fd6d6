// Package curve evaluates piecewise-linear control curves.
package curve

import (
	"math"
	"sort"
)

// minSpan guards interpolation against zero-length segments.
const minSpan = 1e-6

// Point is a control point of a normalized curve; both axes live in [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp bounds v into [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Evaluate interpolates the curve described by points at x. Each point's x
// is clamped into [xMin, xMax] and points are stably sorted by x. Queries
// outside the covered range return the nearest end value. ok is false for an
// empty point set.
func Evaluate[P any](points []P, x float64, xOf, yOf func(P) float64, xMin, xMax float64) (y float64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}

	ordered := make([]Point, len(points))
	for i, p := range points {
		ordered[i] = Point{X: Clamp(xOf(p), xMin, xMax), Y: yOf(p)}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].X < ordered[j].X })

	if x <= ordered[0].X {
		return ordered[0].Y, true
	}
	for i := 1; i < len(ordered); i++ {
		prev, next := ordered[i-1], ordered[i]
		if x <= next.X {
			span := math.Max(next.X-prev.X, minSpan)
			t := Clamp((x-prev.X)/span, 0, 1)
			return prev.Y + (next.Y-prev.Y)*t, true
		}
	}
	return ordered[len(ordered)-1].Y, true
}

// Linear evaluates a normalized curve over x in [0, 1].
func Linear(points []Point, x float64) (float64, bool) {
	return Evaluate(points, x, pointX, pointY, 0, 1)
}

func pointX(p Point) float64 { return p.X }
func pointY(p Point) float64 { return p.Y }
