package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightplan/internal/geo"
)

type fixedSun struct {
	sunrise, sunset int
}

func (f fixedSun) Environment(_ time.Time, tz string, lat, lon float64) geo.Environment {
	return geo.Environment{TZ: tz, Lat: lat, Lon: lon, SunriseMin: f.sunrise, SunsetMin: f.sunset}
}

func utcWindow(start, end Boundary, days ...int) Window {
	w := DefaultWindow()
	w.TZ = "UTC"
	w.Start, w.End = start, end
	if len(days) > 0 {
		w.Days = days
	}
	return w
}

func TestNormalizeWindow_Defaults(t *testing.T) {
	w := NormalizeWindow(nil, DefaultWindow())
	assert.Equal(t, DefaultWindow(), w)

	w = NormalizeWindow(map[string]any{
		"tz":   "UTC",
		"lat":  "59.9",
		"lon":  30.3,
		"days": []any{5.0, 1.0, 9.0, "3", 1.0},
		"end":  map[string]any{"type": "sun", "anchor": "sunset", "offsetMin": 30.0},
	}, DefaultWindow())
	assert.Equal(t, "UTC", w.TZ)
	assert.Equal(t, 59.9, w.Lat)
	assert.Equal(t, 30.3, w.Lon)
	assert.Equal(t, []int{1, 3, 5}, w.Days)
	assert.Equal(t, Clock("18:00"), w.Start)
	assert.Equal(t, Sun(Sunset, 30), w.End)
}

func TestNormalizeDays_InvalidMeansAll(t *testing.T) {
	assert.Equal(t, AllDays(), NormalizeDays([]any{0.0, 8.0, "x"}))
	assert.Equal(t, AllDays(), NormalizeDays("mon"))
}

func TestRunsOn_SundayIsSeven(t *testing.T) {
	w := utcWindow(Clock("18:00"), Clock("23:00"), 7)
	assert.True(t, w.RunsOn(time.Sunday))
	assert.False(t, w.RunsOn(time.Monday))
}

func TestWindowNext_SameDayAndRecurrence(t *testing.T) {
	sun := fixedSun{sunrise: 300, sunset: 1200}
	// 2024-06-03 is a Monday.
	w := utcWindow(Clock("18:00"), Clock("23:00"), 1, 3)

	next, ok := w.Next(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), sun)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC), next.Start.UTC())
	assert.Equal(t, time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC), next.End.UTC())

	next, ok = w.Next(time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC), sun)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), next.Start.UTC())
}

func TestWindowNext_SunBoundaryCrossesMidnight(t *testing.T) {
	sun := fixedSun{sunrise: 4 * 60, sunset: 21 * 60}
	w := utcWindow(Sun(Sunset, 30), Clock("01:00"))

	next, ok := w.Next(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), sun)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 21, 30, 0, 0, time.UTC), next.Start.UTC())
	assert.Equal(t, time.Date(2024, 6, 4, 1, 0, 0, 0, time.UTC), next.End.UTC())
}

func TestWindowCurrentAndPrev(t *testing.T) {
	sun := fixedSun{}
	w := utcWindow(Clock("22:00"), Clock("02:00"))

	at := time.Date(2024, 6, 4, 1, 0, 0, 0, time.UTC)
	cur, ok := w.Current(at, sun)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC), cur.Start.UTC())
	assert.True(t, cur.Contains(at))

	prev, ok := w.Prev(at, sun)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 2, 0, 0, 0, time.UTC), prev.End.UTC())

	_, ok = w.Current(time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC), sun)
	assert.False(t, ok)
}

func TestWindowNext_NoMatchingDay(t *testing.T) {
	w := utcWindow(Clock("18:00"), Clock("23:00"))
	w.Days = []int{}
	// Empty days behave as every day.
	_, ok := w.Next(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), fixedSun{})
	assert.True(t, ok)
}

func TestWindowOccurrence_LocalZone(t *testing.T) {
	w := DefaultWindow() // Europe/Moscow, UTC+3
	occ, ok := w.Occurrence(time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC), fixedSun{})
	require.True(t, ok)
	// 22:00 UTC is already June 4 in Moscow.
	assert.Equal(t, time.Date(2024, 6, 4, 15, 0, 0, 0, time.UTC), occ.Start.UTC())
	assert.Equal(t, time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC), occ.End.UTC())
}

func TestRunWindowContains(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	assert.True(t, RunWindow{Start: &before, End: &after}.Contains(now))
	assert.True(t, RunWindow{Start: &before}.Contains(now))
	assert.True(t, RunWindow{End: &after}.Contains(now))
	assert.False(t, RunWindow{Start: &after}.Contains(now))
	assert.False(t, RunWindow{}.Contains(now))
}
