package autolight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestResolveLuxBounds(t *testing.T) {
	assert.Equal(t, LuxBounds{Min: 1, Max: 2}, ResolveLuxBounds(0, 0))
	assert.Equal(t, LuxBounds{Min: 5, Max: 1500}, ResolveLuxBounds(4.6, 1500))
	assert.Equal(t, LuxBounds{Min: 10, Max: 11}, ResolveLuxBounds(10, 3))
	assert.Equal(t, LuxBounds{Min: 1, Max: 2}, ResolveLuxBounds(math.NaN(), math.Inf(1)))
}

func TestCapabilityBounds(t *testing.T) {
	sensors := []SensorRange{
		{ID: "a", MinValue: ptr(2), MaxValue: ptr(800)},
		{ID: "b", MinValue: ptr(0)},
	}
	assert.Equal(t, LuxBounds{Min: 2, Max: 800}, CapabilityBounds(sensors, "a"))
	assert.Equal(t, LuxBounds{Min: 1, Max: 800}, CapabilityBounds(sensors, "b"), "max falls back to the first sensor")
	assert.Equal(t, LuxBounds{Min: 1, Max: SensorMaxFallback}, CapabilityBounds(nil, ""))
}

func TestLuxToPercent_Endpoints(t *testing.T) {
	bounds := LuxBounds{Min: 10, Max: 1000}
	assert.InDelta(t, 100, LuxToPercent(10, bounds), 1e-9)
	assert.InDelta(t, 0, LuxToPercent(1000, bounds), 1e-9)
	assert.InDelta(t, 50, LuxToPercent(100, bounds), 1e-9)
	assert.InDelta(t, 100, LuxToPercent(math.NaN(), bounds), 1e-9)
	assert.InDelta(t, 0, LuxToPercent(1e9, bounds), 1e-9)
}

func TestLuxPercentRoundTrip(t *testing.T) {
	bounds := LuxBounds{Min: 5, Max: 5000}
	for p := 0.0; p <= 100; p += 2.5 {
		lux := PercentToLux(p, bounds)
		assert.GreaterOrEqual(t, lux, 5.0)
		assert.LessOrEqual(t, lux, 5000.0)
		assert.InDelta(t, p, LuxToPercent(lux, bounds), 1e-6)
	}
}

func TestSnapLuxValue(t *testing.T) {
	assert.Equal(t, 42.0, SnapLuxValue(42))
	assert.Equal(t, 150.0, SnapLuxValue(145))
	assert.Equal(t, 1500.0, SnapLuxValue(1450))
	assert.Equal(t, 15000.0, SnapLuxValue(14500))
	assert.Equal(t, 1.0, SnapLuxValue(0))
	assert.Equal(t, 1.0, SnapLuxValue(math.NaN()))
}

func TestBuildLuxTicks(t *testing.T) {
	assert.Equal(t, []float64{5, 10, 100, 1000, 1500}, BuildLuxTicks(LuxBounds{Min: 5, Max: 1500}))
	assert.Equal(t, []float64{10, 100, 1000}, BuildLuxTicks(LuxBounds{Min: 10, Max: 1000}))
	assert.Equal(t, []float64{7, 3}, BuildLuxTicks(LuxBounds{Min: 7, Max: 3}))
}

func TestNormalizeAutoBrightness(t *testing.T) {
	got := NormalizeAutoBrightness(BrightnessDraft{
		LuxMin:        ptr(0),
		LuxMax:        ptr(1),
		BrightnessMin: ptr(100),
		BrightnessMax: ptr(0),
	}, LuxBounds{Min: 5, Max: 20})

	assert.Equal(t, 5.0, got.LuxMin)
	assert.Equal(t, 6.0, got.LuxMax)
	assert.Equal(t, 0.0, got.BrightnessMin)
	assert.Equal(t, 1.0, got.BrightnessMax)
}

func TestNormalizeAutoBrightness_Defaults(t *testing.T) {
	got := NormalizeAutoBrightness(BrightnessDraft{SensorID: "s1", Enabled: true}, LuxBounds{Min: 1, Max: 1500})
	assert.Equal(t, BrightnessRange{SensorID: "s1", Enabled: true, LuxMin: 1, LuxMax: 1500, BrightnessMin: 0, BrightnessMax: 100}, got)
}

func TestLuxToNormalized(t *testing.T) {
	n, ok := LuxToNormalized(750.5, 1, 1500)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, n, 1e-9)

	n, _ = LuxToNormalized(-5, 1, 1500)
	assert.Equal(t, 0.0, n)

	n, _ = LuxToNormalized(50, 0, 0)
	assert.InDelta(t, 0.5, n, 1e-9, "L_off defaults to 100")

	_, ok = LuxToNormalized(math.NaN(), 1, 1500)
	assert.False(t, ok)
}
