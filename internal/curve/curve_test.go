package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinear_ClampsAtDomainEdges(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 1, Y: 1}}

	tests := []struct {
		x, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{2, 1},
		{0, 0},
		{1, 1},
		{0.25, 0.25},
	}
	for _, tt := range tests {
		got, ok := Linear(points, tt.x)
		assert.True(t, ok)
		assert.InDelta(t, tt.want, got, 1e-9, "x=%v", tt.x)
	}
}

func TestLinear_Empty(t *testing.T) {
	_, ok := Linear(nil, 0.5)
	assert.False(t, ok)
}

func TestEvaluate_SortsUnorderedPoints(t *testing.T) {
	points := []Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 0.5, Y: 0.8}}
	got, ok := Linear(points, 0.75)
	assert.True(t, ok)
	assert.InDelta(t, 0.4, got, 1e-9)
}

func TestEvaluate_DuplicateX(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 0.5, Y: 0.2}, {X: 0.5, Y: 0.9}, {X: 1, Y: 1}}

	got, _ := Linear(points, 0.5)
	assert.InDelta(t, 0.2, got, 1e-9, "first of the duplicates wins at the shared x")

	got, _ = Linear(points, 0.75)
	assert.InDelta(t, 0.95, got, 1e-9)
}

func TestEvaluate_ClampsPointsIntoDomain(t *testing.T) {
	type segment struct {
		minute, kelvin float64
	}
	segments := []segment{{-30, 2700}, {720, 5500}, {2000, 2700}}
	minuteOf := func(s segment) float64 { return s.minute }
	kelvinOf := func(s segment) float64 { return s.kelvin }

	got, ok := Evaluate(segments, 360, minuteOf, kelvinOf, 0, 1440)
	assert.True(t, ok)
	assert.InDelta(t, 4100, got, 1e-9)

	got, _ = Evaluate(segments, 1440, minuteOf, kelvinOf, 0, 1440)
	assert.InDelta(t, 2700, got, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 1.0, Clamp(math.Inf(1), 0, 1))
	assert.Equal(t, 0.3, Clamp(0.3, 0, 1))
}
