// Package autolight models sensor-driven scenarios: the mapping between lux
// readings and the brightness/CCT curves they drive.
package autolight

import (
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/curve"
	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/schedule"
)

// ScenarioType identifies auto-light scenarios.
const ScenarioType = "auto-light-v1"

// Status values of the auto-light runtime.
const (
	StatusActive = "ACTIVE"
	StatusPause  = "PAUSE"
)

// Default lux thresholds.
const (
	DefaultLDark = 1
	DefaultLOff  = 1500
)

// Params tunes the auto-light controller.
type Params struct {
	Alpha                 float64 `json:"alpha"`
	Beta                  float64 `json:"beta"`
	BrightnessWindow      float64 `json:"brightnessWindow"`
	CCTWindowMin          float64 `json:"cctWindowMin"`
	PauseMinutes          float64 `json:"pauseMinutes"`
	RampMinutes           float64 `json:"rampMinutes"`
	EvaluationIntervalMin float64 `json:"evaluationIntervalMin"`
	RampApplySeconds      float64 `json:"rampApplySeconds"`
	MinBrightness         float64 `json:"minBrightness"`
	MaxBrightness         float64 `json:"maxBrightness"`
	MinCCT                float64 `json:"minCct"`
	MaxCCT                float64 `json:"maxCct"`
}

// DefaultParams returns the controller defaults.
func DefaultParams() Params {
	return Params{
		Alpha:                 0.5,
		Beta:                  0.5,
		BrightnessWindow:      0.1,
		CCTWindowMin:          45,
		PauseMinutes:          120,
		RampMinutes:           30,
		EvaluationIntervalMin: 4,
		RampApplySeconds:      1,
		MinBrightness:         0.01,
		MaxBrightness:         1,
		MinCCT:                1000,
		MaxCCT:                6500,
	}
}

// DefaultDayCurve maps normalized lux to brightness during the day.
func DefaultDayCurve() []curve.Point {
	return []curve.Point{
		{X: 0, Y: 1.0},
		{X: 0.05, Y: 0.98},
		{X: 0.15, Y: 0.85},
		{X: 0.3, Y: 0.65},
		{X: 0.55, Y: 0.35},
		{X: 0.8, Y: 0.15},
		{X: 1.0, Y: 0.05},
	}
}

// DefaultEveningCurve keeps full brightness regardless of lux.
func DefaultEveningCurve() []curve.Point {
	return []curve.Point{{X: 0, Y: 1.0}, {X: 1.0, Y: 1.0}}
}

// DefaultWindow is the schedule of a new auto-light scenario.
func DefaultWindow() schedule.Window {
	w := schedule.DefaultWindow()
	w.End = schedule.Sun(schedule.Sunset, 30)
	return w
}

// CCTPoint pins a colour temperature to a minute of the local day.
type CCTPoint struct {
	TMin      float64 `json:"t_min"`
	C         float64 `json:"C"`
	Note      string  `json:"note,omitempty"`
	Source    string  `json:"source,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Location places the sensor for sun-relative CCT segments.
type Location struct {
	TZ  string  `json:"tz"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// State is the runtime status the backend reports.
type State struct {
	Status     string `json:"status"`
	PauseUntil *int64 `json:"pauseUntil"` // epoch ms
}

// Paused reports whether the runtime is paused at now.
func (s State) Paused(now time.Time) bool {
	if s.Status != StatusPause {
		return false
	}
	return s.PauseUntil == nil || now.UnixMilli() < *s.PauseUntil
}

// Config is the canonical auto-light block of a scenario.
type Config struct {
	SensorID                   string        `json:"sensorId"`
	LDark                      float64       `json:"L_dark"`
	LOff                       float64       `json:"L_off"`
	Params                     Params        `json:"params"`
	BrightnessCurveDayBase     []curve.Point `json:"brightnessCurveDayBase"`
	BrightnessCurveDay         []curve.Point `json:"brightnessCurveDay"`
	BrightnessCurveEveningBase []curve.Point `json:"brightnessCurveEveningBase"`
	BrightnessCurveEvening     []curve.Point `json:"brightnessCurveEvening"`
	CCTOverrides               []CCTPoint    `json:"cctOverrides"`
	Location                   Location      `json:"location"`
	State                      State         `json:"state"`
}

// Normalize builds a Config from the raw "autoLight" object, filling
// defaults. window supplies the location when the block has none.
func Normalize(raw any, window schedule.Window) Config {
	src, _ := jsonx.Map(raw)

	cfg := Config{
		LDark:  DefaultLDark,
		LOff:   DefaultLOff,
		Params: normalizeParams(src["params"]),
	}
	cfg.SensorID = jsonx.Text(src["sensorId"])
	if v, ok := jsonx.Float(src["L_dark"]); ok {
		cfg.LDark = v
	}
	if v, ok := jsonx.Float(src["L_off"]); ok {
		cfg.LOff = v
	}

	_, hasDayBase := jsonx.Slice(src["brightnessCurveDayBase"])
	_, hasDay := jsonx.Slice(src["brightnessCurveDay"])
	if !hasDayBase && !hasDay {
		// Legacy single-curve configs are reset to the defaults.
		cfg.BrightnessCurveDayBase = DefaultDayCurve()
		cfg.BrightnessCurveDay = DefaultDayCurve()
	} else {
		cfg.BrightnessCurveDayBase = normalizeCurve(jsonx.Pick(src, "brightnessCurveDayBase", "brightnessCurveBase"), DefaultDayCurve())
		cfg.BrightnessCurveDay = normalizeCurve(jsonx.Pick(src, "brightnessCurveDay", "brightnessCurve"), cfg.BrightnessCurveDayBase)
	}
	cfg.BrightnessCurveEveningBase = normalizeCurve(src["brightnessCurveEveningBase"], DefaultEveningCurve())
	cfg.BrightnessCurveEvening = normalizeCurve(src["brightnessCurveEvening"], cfg.BrightnessCurveEveningBase)

	cfg.CCTOverrides = []CCTPoint{}
	if list, ok := jsonx.Slice(src["cctOverrides"]); ok {
		for _, entry := range list {
			e, _ := jsonx.Map(entry)
			c, ok := jsonx.Number(e["C"])
			if !ok || c == 0 {
				c = DefaultParams().MaxCCT
			}
			cfg.CCTOverrides = append(cfg.CCTOverrides, CCTPoint{
				TMin:      curve.Clamp(jsonx.FloatOr(e["t_min"], 0), 0, schedule.MinutesPerDay),
				C:         c,
				Note:      jsonx.Text(e["note"]),
				Source:    jsonx.Text(e["source"]),
				UpdatedAt: jsonx.Text(e["updatedAt"]),
			})
		}
	}

	cfg.Location = Location{TZ: window.TZ, Lat: window.Lat, Lon: window.Lon}
	if loc, ok := jsonx.Map(src["location"]); ok {
		if tz, ok := jsonx.String(loc["tz"]); ok && strings.TrimSpace(tz) != "" {
			cfg.Location.TZ = tz
		}
		if v, ok := jsonx.Number(loc["lat"]); ok {
			cfg.Location.Lat = v
		}
		if v, ok := jsonx.Number(loc["lon"]); ok {
			cfg.Location.Lon = v
		}
	}

	state, _ := jsonx.Map(src["state"])
	cfg.State.Status = StatusActive
	if s, _ := jsonx.String(state["status"]); s == StatusPause {
		cfg.State.Status = StatusPause
	}
	if v, ok := jsonx.Float(state["pauseUntil"]); ok {
		ms := int64(v)
		cfg.State.PauseUntil = &ms
	}

	return cfg
}

func normalizeParams(raw any) Params {
	p := DefaultParams()
	src, ok := jsonx.Map(raw)
	if !ok {
		return p
	}
	fields := map[string]*float64{
		"alpha":                 &p.Alpha,
		"beta":                  &p.Beta,
		"brightnessWindow":      &p.BrightnessWindow,
		"cctWindowMin":          &p.CCTWindowMin,
		"pauseMinutes":          &p.PauseMinutes,
		"rampMinutes":           &p.RampMinutes,
		"evaluationIntervalMin": &p.EvaluationIntervalMin,
		"rampApplySeconds":      &p.RampApplySeconds,
		"minBrightness":         &p.MinBrightness,
		"maxBrightness":         &p.MaxBrightness,
		"maxCct":                &p.MaxCCT,
	}
	for key, dst := range fields {
		if v, ok := jsonx.Float(src[key]); ok {
			*dst = v
		}
	}
	// minCct is fixed.
	return p
}

func normalizeCurve(raw any, fallback []curve.Point) []curve.Point {
	list, ok := jsonx.Slice(raw)
	if !ok || len(list) == 0 {
		out := make([]curve.Point, len(fallback))
		copy(out, fallback)
		return out
	}
	out := make([]curve.Point, 0, len(list))
	for _, entry := range list {
		p, _ := jsonx.Map(entry)
		out = append(out, curve.Point{
			X: curve.Clamp(jsonx.FloatOr(p["x"], 0), 0, 1),
			Y: curve.Clamp(jsonx.FloatOr(p["y"], 0), 0, 1),
		})
	}
	return out
}
