package autolight

import (
	"math"
	"time"

	"github.com/dokzlo13/lightplan/internal/curve"
	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/schedule"
)

// Base CCT levels in kelvin.
const (
	WarmCCT = 2700
	DayCCT  = 5500
)

// eveningMinute is when the base CCT is back to warm (21:00).
const eveningMinute = 21 * 60

// CCTBaseSegments returns the sun-driven CCT profile of a day: warm until an
// hour before sunrise, daylight from sunrise to sunset, warm again by 21:00.
func CCTBaseSegments(env geo.Environment) []CCTPoint {
	preDawn := max(0, env.SunriseMin-60)
	evening := min(eveningMinute, schedule.MinutesPerDay)
	return []CCTPoint{
		{TMin: 0, C: WarmCCT},
		{TMin: float64(preDawn), C: WarmCCT},
		{TMin: float64(env.SunriseMin), C: DayCCT},
		{TMin: float64(env.SunsetMin), C: DayCCT},
		{TMin: float64(evening), C: WarmCCT},
		{TMin: schedule.MinutesPerDay, C: WarmCCT},
	}
}

// Phase names which brightness curve applies.
type Phase string

const (
	PhaseDay     Phase = "day"
	PhaseEvening Phase = "evening"
)

// Evaluation is the output of the auto-light model at one (lux, minute).
type Evaluation struct {
	Lux           float64 `json:"lux"`
	Normalized    float64 `json:"normalized"`
	Phase         Phase   `json:"phase"`
	Brightness    float64 `json:"brightness"` // 0..1
	BrightnessPct int     `json:"brightnessPct"`
	CCT           float64 `json:"cct"`
	CCTSource     string  `json:"cctSource"` // "overrides" or "base"
	Minute        int     `json:"minute"`
}

// Evaluate computes brightness and CCT for a lux reading at a minute of the
// local day. The day curve applies before sunset, the evening curve after.
// ok is false when lux is not a finite number.
func Evaluate(cfg Config, env geo.Environment, lux float64, minute int) (Evaluation, bool) {
	x, ok := LuxToNormalized(lux, cfg.LDark, cfg.LOff)
	if !ok {
		return Evaluation{}, false
	}
	minute = schedule.Wrap(minute)

	ev := Evaluation{Lux: lux, Normalized: x, Phase: PhaseDay, Minute: minute}
	points := cfg.BrightnessCurveDay
	if minute >= env.SunsetMin {
		ev.Phase = PhaseEvening
		points = cfg.BrightnessCurveEvening
	}

	y, ok := curve.Linear(points, x)
	if !ok {
		y = cfg.Params.MaxBrightness
	}
	lo, hi := cfg.Params.MinBrightness, cfg.Params.MaxBrightness
	if hi < lo {
		hi = lo
	}
	ev.Brightness = curve.Clamp(y, lo, hi)
	ev.BrightnessPct = int(math.Round(ev.Brightness * 100))

	segments := cfg.CCTOverrides
	ev.CCTSource = "overrides"
	if len(segments) == 0 {
		segments = CCTBaseSegments(env)
		ev.CCTSource = "base"
	}
	cct, _ := curve.Evaluate(segments, float64(minute), cctMinute, cctKelvin, 0, schedule.MinutesPerDay)
	ev.CCT = math.Round(curve.Clamp(cct, cfg.Params.MinCCT, math.Max(cfg.Params.MinCCT, cfg.Params.MaxCCT)))

	return ev, true
}

func cctMinute(p CCTPoint) float64 { return p.TMin }
func cctKelvin(p CCTPoint) float64 { return p.C }

// PercentPoint is a curve point with y expressed as a whole percent.
type PercentPoint struct {
	X     float64 `json:"x"`
	Value int     `json:"value"`
}

// CurveToPercent converts a normalized curve for display.
func CurveToPercent(points []curve.Point) []PercentPoint {
	out := make([]PercentPoint, len(points))
	for i, p := range points {
		out[i] = PercentPoint{X: p.X, Value: int(math.Round(curve.Clamp(p.Y, 0, 1) * 100))}
	}
	return out
}

// CurvePair is a base curve and its user-edited version.
type CurvePair struct {
	Base  []PercentPoint `json:"base"`
	Curve []PercentPoint `json:"curve"`
}

// Derived is the read-model of an auto-light scenario.
type Derived struct {
	Brightness struct {
		Day     CurvePair `json:"day"`
		Evening CurvePair `json:"evening"`
	} `json:"brightness"`
	CCT struct {
		Base      []CCTPoint `json:"base"`
		Overrides []CCTPoint `json:"overrides"`
	} `json:"cct"`
	Status      string          `json:"status"`
	Paused      bool            `json:"paused"`
	PauseUntil  *int64          `json:"pauseUntil"`
	Environment geo.Environment `json:"environment"`
}

// Derive builds the read-model of cfg at now.
func Derive(cfg Config, env geo.Environment, now time.Time) Derived {
	var d Derived
	d.Brightness.Day = CurvePair{
		Base:  CurveToPercent(cfg.BrightnessCurveDayBase),
		Curve: CurveToPercent(cfg.BrightnessCurveDay),
	}
	d.Brightness.Evening = CurvePair{
		Base:  CurveToPercent(cfg.BrightnessCurveEveningBase),
		Curve: CurveToPercent(cfg.BrightnessCurveEvening),
	}
	d.CCT.Base = CCTBaseSegments(env)
	d.CCT.Overrides = cfg.CCTOverrides
	if d.CCT.Overrides == nil {
		d.CCT.Overrides = []CCTPoint{}
	}
	d.Status = cfg.State.Status
	d.Paused = cfg.State.Paused(now)
	d.PauseUntil = cfg.State.PauseUntil
	d.Environment = env
	return d
}
