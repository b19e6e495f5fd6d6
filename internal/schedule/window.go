package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/jsonx"
)

// Schedule defaults applied when a payload omits them.
const (
	DefaultTZ  = "Europe/Moscow"
	DefaultLat = 55.751
	DefaultLon = 37.617
)

// scanDays bounds how far Next/Prev look for an occurrence.
const scanDays = 8

// Window is the recurring schedule of a scenario.
type Window struct {
	TZ    string   `json:"tz"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Start Boundary `json:"start"`
	End   Boundary `json:"end"`
	Days  []int    `json:"days"` // ISO weekdays, Monday=1
}

// AllDays returns every ISO weekday.
func AllDays() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}

// DefaultWindow is the schedule of a freshly created scenario.
func DefaultWindow() Window {
	return Window{
		TZ:    DefaultTZ,
		Lat:   DefaultLat,
		Lon:   DefaultLon,
		Start: Clock("18:00"),
		End:   Clock("23:00"),
		Days:  AllDays(),
	}
}

// NormalizeWindow builds a Window from the scenario "time" object, filling
// each missing or invalid field from defaults.
func NormalizeWindow(raw any, defaults Window) Window {
	src, _ := jsonx.Map(raw)

	w := Window{
		TZ:    defaults.TZ,
		Lat:   jsonx.FloatOr(src["lat"], defaults.Lat),
		Lon:   jsonx.FloatOr(src["lon"], defaults.Lon),
		Days:  NormalizeDays(src["days"]),
		Start: NormalizeBoundary(src["start"], defaults.Start),
		End:   NormalizeBoundary(src["end"], defaults.End),
	}
	if tz, ok := jsonx.String(src["tz"]); ok && strings.TrimSpace(tz) != "" {
		w.TZ = strings.TrimSpace(tz)
	}
	if w.TZ == "" {
		w.TZ = DefaultTZ
	}
	return w
}

// NormalizeDays keeps the distinct ISO weekdays in 1..7, sorted. An empty or
// invalid list means every day.
func NormalizeDays(raw any) []int {
	list, ok := jsonx.Slice(raw)
	if !ok {
		return AllDays()
	}
	seen := make(map[int]bool, 7)
	days := make([]int, 0, 7)
	for _, v := range list {
		f, ok := jsonx.Number(v)
		if !ok || f != float64(int(f)) || f < 1 || f > 7 {
			continue
		}
		d := int(f)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return AllDays()
	}
	sort.Ints(days)
	return days
}

// RunsOn reports whether the schedule recurs on the weekday.
func (w Window) RunsOn(day time.Weekday) bool {
	iso := int(day)
	if iso == 0 {
		iso = 7
	}
	days := w.Days
	if len(days) == 0 {
		days = AllDays()
	}
	for _, d := range days {
		if d == iso {
			return true
		}
	}
	return false
}

// RunWindow is one concrete occurrence of a schedule. A nil bound is open.
type RunWindow struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Empty reports whether neither bound is set.
func (r RunWindow) Empty() bool {
	return r.Start == nil && r.End == nil
}

// Contains reports whether at lies within [Start, End]. Open bounds are
// unbounded on their side; an empty window contains nothing.
func (r RunWindow) Contains(at time.Time) bool {
	if r.Empty() {
		return false
	}
	if r.Start != nil && at.Before(*r.Start) {
		return false
	}
	if r.End != nil && at.After(*r.End) {
		return false
	}
	return true
}

// SunSource provides sunrise/sunset minutes for a location and day.
type SunSource interface {
	Environment(now time.Time, tz string, lat, lon float64) geo.Environment
}

// Occurrence resolves the run that starts on the local calendar day of day.
// ok is false when the schedule does not recur on that weekday.
func (w Window) Occurrence(day time.Time, sun SunSource) (RunWindow, bool) {
	loc := geo.LoadLocation(w.TZ)
	y, m, d := day.In(loc).Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, loc)
	if !w.RunsOn(noon.Weekday()) {
		return RunWindow{}, false
	}

	env := sun.Environment(noon, w.TZ, w.Lat, w.Lon)
	startMin := ResolveMinutes(w.Start, env, 18*60)
	endMin := ResolveMinutes(w.End, env, 23*60)

	start := time.Date(y, m, d, 0, startMin, 0, 0, loc)
	endDay := d
	if endMin <= startMin {
		endDay++
	}
	end := time.Date(y, m, endDay, 0, endMin, 0, 0, loc)

	return RunWindow{Start: &start, End: &end}, true
}

// Next returns the first occurrence starting strictly after after.
func (w Window) Next(after time.Time, sun SunSource) (RunWindow, bool) {
	for i := 0; i < scanDays; i++ {
		occ, ok := w.Occurrence(w.local(after).AddDate(0, 0, i), sun)
		if ok && occ.Start.After(after) {
			return occ, true
		}
	}
	return RunWindow{}, false
}

// Prev returns the latest occurrence that ended at or before before.
func (w Window) Prev(before time.Time, sun SunSource) (RunWindow, bool) {
	for i := 0; i < scanDays; i++ {
		occ, ok := w.Occurrence(w.local(before).AddDate(0, 0, -i), sun)
		if ok && !occ.End.After(before) {
			return occ, true
		}
	}
	return RunWindow{}, false
}

// Current returns the occurrence in progress at at, including one that
// started the previous day and crosses midnight.
func (w Window) Current(at time.Time, sun SunSource) (RunWindow, bool) {
	for i := 0; i >= -1; i-- {
		occ, ok := w.Occurrence(w.local(at).AddDate(0, 0, i), sun)
		if ok && !at.Before(*occ.Start) && at.Before(*occ.End) {
			return occ, true
		}
	}
	return RunWindow{}, false
}

func (w Window) local(t time.Time) time.Time {
	return t.In(geo.LoadLocation(w.TZ))
}
