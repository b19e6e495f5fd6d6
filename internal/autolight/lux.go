package autolight

import (
	"math"
	"sort"

	"github.com/dokzlo13/lightplan/internal/curve"
)

// Sensor range floors and fallbacks.
const (
	SensorMinFloor    = 1
	SensorMaxFallback = 100000
)

// LuxBounds is the usable illuminance range of a sensor.
type LuxBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SensorRange is the capability metadata a sensor reports.
type SensorRange struct {
	ID       string   `json:"id"`
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`
}

func (b LuxBounds) normalized() (float64, float64) {
	lo := math.Max(b.Min, SensorMinFloor)
	if math.IsNaN(lo) {
		lo = SensorMinFloor
	}
	hi := math.Max(b.Max, lo+1)
	if math.IsNaN(hi) {
		hi = lo + 1
	}
	return lo, hi
}

// LuxToPercent maps a lux reading onto the 0..100 "darkness threshold"
// scale: the bottom of the range is 100%, the top 0%. The scale is
// logarithmic in lux.
func LuxToPercent(lux float64, bounds LuxBounds) float64 {
	lo, hi := bounds.normalized()
	if math.IsNaN(lux) || math.IsInf(lux, 0) || lux == 0 {
		lux = lo
	}
	clamped := curve.Clamp(lux, lo, hi)
	logMin, logMax := math.Log10(lo), math.Log10(hi)
	if logMax == logMin {
		return 0
	}
	return 100 - (math.Log10(clamped)-logMin)/(logMax-logMin)*100
}

// PercentToLux is the inverse of LuxToPercent.
func PercentToLux(percent float64, bounds LuxBounds) float64 {
	lo, hi := bounds.normalized()
	if math.IsInf(percent, 0) {
		percent = 0
	}
	logMin, logMax := math.Log10(lo), math.Log10(hi)
	ratio := 1 - curve.Clamp(percent, 0, 100)/100
	return curve.Clamp(math.Pow(10, logMin+(logMax-logMin)*ratio), lo, hi)
}

// ResolveLuxBounds enforces min >= 1 and max >= min+1. Zero or non-finite
// candidates fall back to the floor and to min+1.
func ResolveLuxBounds(minCandidate, maxCandidate float64) LuxBounds {
	lo := float64(SensorMinFloor)
	if finiteNonZero(minCandidate) {
		lo = math.Max(SensorMinFloor, math.Round(minCandidate))
	}
	hi := lo + 1
	if finiteNonZero(maxCandidate) {
		hi = math.Max(lo+1, math.Round(maxCandidate))
	}
	return LuxBounds{Min: lo, Max: hi}
}

// CapabilityBounds resolves the lux range of the selected sensor, falling
// back to the first known sensor and then to [1, 100000].
func CapabilityBounds(sensors []SensorRange, selectedID string) LuxBounds {
	var selected, first *SensorRange
	for i := range sensors {
		if first == nil {
			first = &sensors[i]
		}
		if sensors[i].ID == selectedID && selected == nil {
			selected = &sensors[i]
		}
	}

	pick := func(get func(*SensorRange) *float64) (float64, bool) {
		for _, s := range []*SensorRange{selected, first} {
			if s == nil {
				continue
			}
			if v := get(s); v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
				return *v, true
			}
		}
		return 0, false
	}

	lo := float64(SensorMinFloor)
	if v, ok := pick(func(s *SensorRange) *float64 { return s.MinValue }); ok && v > 0 {
		lo = v
	}
	hi := float64(SensorMaxFallback)
	if v, ok := pick(func(s *SensorRange) *float64 { return s.MaxValue }); ok && v > lo {
		hi = v
	}
	return ResolveLuxBounds(lo, hi)
}

// SnapLuxValue rounds a lux value by magnitude for display.
func SnapLuxValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	rounded := math.Max(1, math.Round(v))
	switch {
	case rounded < 100:
		return rounded
	case rounded < 1000:
		return math.Round(rounded/10) * 10
	case rounded < 10000:
		return math.Round(rounded/100) * 100
	default:
		return math.Round(rounded/1000) * 1000
	}
}

// BuildLuxTicks returns the bounds plus every power of ten strictly between
// them, ascending.
func BuildLuxTicks(bounds LuxBounds) []float64 {
	lo, hi := bounds.Min, bounds.Max
	if !finite(lo) || !finite(hi) || hi <= lo {
		var out []float64
		for _, v := range []float64{lo, hi} {
			if finite(v) {
				out = append(out, v)
			}
		}
		return out
	}

	ticks := []float64{lo, hi}
	minPower := int(math.Floor(math.Log10(lo)))
	maxPower := int(math.Ceil(math.Log10(hi)))
	for p := minPower; p <= maxPower; p++ {
		v := math.Pow(10, float64(p))
		if v > lo && v < hi {
			ticks = append(ticks, v)
		}
	}
	sort.Float64s(ticks)
	return ticks
}

// BrightnessDraft is an edited auto-brightness range; nil fields are unset.
type BrightnessDraft struct {
	SensorID      string   `json:"sensorId"`
	Enabled       bool     `json:"enabled"`
	LuxMin        *float64 `json:"luxMin,omitempty"`
	LuxMax        *float64 `json:"luxMax,omitempty"`
	BrightnessMin *float64 `json:"brightnessMin,omitempty"`
	BrightnessMax *float64 `json:"brightnessMax,omitempty"`
}

// BrightnessRange is a consistent lux range paired with a brightness range
// in percent.
type BrightnessRange struct {
	SensorID      string  `json:"sensorId"`
	Enabled       bool    `json:"enabled"`
	LuxMin        float64 `json:"luxMin"`
	LuxMax        float64 `json:"luxMax"`
	BrightnessMin float64 `json:"brightnessMin"`
	BrightnessMax float64 `json:"brightnessMax"`
}

// NormalizeAutoBrightness clamps a draft into the sensor bounds: lux min
// below lux max, brightness min below brightness max, brightness in 0..100.
func NormalizeAutoBrightness(draft BrightnessDraft, bounds LuxBounds) BrightnessRange {
	minBound := math.Max(SensorMinFloor, bounds.Min)
	maxBound := math.Max(minBound+1, bounds.Max)

	luxMin := curve.Clamp(math.Round(valueOr(draft.LuxMin, minBound)), minBound, maxBound-1)
	luxMax := curve.Clamp(math.Round(valueOr(draft.LuxMax, maxBound)), luxMin+1, maxBound)

	rawMax := valueOr(draft.BrightnessMax, 100)
	brightnessMin := curve.Clamp(math.Round(valueOr(draft.BrightnessMin, 0)), 0, math.Max(0, rawMax-1))
	brightnessMax := curve.Clamp(math.Round(rawMax), math.Max(brightnessMin+1, 1), 100)

	return BrightnessRange{
		SensorID:      draft.SensorID,
		Enabled:       draft.Enabled,
		LuxMin:        luxMin,
		LuxMax:        luxMax,
		BrightnessMin: brightnessMin,
		BrightnessMax: brightnessMax,
	}
}

// LuxToNormalized maps lux into [0, 1] between the dark and off thresholds.
// ok is false for a non-finite reading.
func LuxToNormalized(lux, lDark, lOff float64) (float64, bool) {
	ld := math.Max(0, zeroIfNaN(lDark))
	lo := lOff
	if !finiteNonZero(lo) {
		lo = 100
	}
	lo = math.Max(ld+1, lo)
	n := (lux - ld) / (lo - ld)
	if !finite(n) {
		return 0, false
	}
	return curve.Clamp(n, 0, 1), true
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteNonZero(v float64) bool {
	return finite(v) && v != 0
}

func zeroIfNaN(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
