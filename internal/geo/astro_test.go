package geo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	moscowLat = 55.751
	moscowLon = 37.617
	moscowTZ  = "Europe/Moscow"
)

func between(t *testing.T, got time.Time, from, to string) {
	t.Helper()
	lo, err := time.Parse(time.RFC3339, from)
	require.NoError(t, err)
	hi, err := time.Parse(time.RFC3339, to)
	require.NoError(t, err)
	assert.Truef(t, !got.Before(lo) && !got.After(hi), "%s not within [%s, %s]", got, from, to)
}

func TestSunTimes_Moscow(t *testing.T) {
	date := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	sunrise := SunriseUTC(date, moscowLat, moscowLon, moscowTZ)
	sunset := SunsetUTC(date, moscowLat, moscowLon, moscowTZ)

	between(t, sunrise, "2024-06-01T00:35:00Z", "2024-06-01T01:05:00Z")
	between(t, sunset, "2024-06-01T17:45:00Z", "2024-06-01T18:15:00Z")
	assert.True(t, sunrise.Before(sunset))
}

func TestSunTimes_ResolvesLocalDay(t *testing.T) {
	// 23:30 UTC on June 1 is already June 2 in Moscow.
	late := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	next := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	assert.Equal(t,
		SunriseUTC(next, moscowLat, moscowLon, moscowTZ),
		SunriseUTC(late, moscowLat, moscowLon, moscowTZ))

	// The same instant in UTC still belongs to June 1.
	assert.Equal(t,
		SunriseUTC(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), moscowLat, moscowLon, "UTC"),
		SunriseUTC(late, moscowLat, moscowLon, "UTC"))
}

func TestSunTimes_PolarClamp(t *testing.T) {
	summer := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	winter := time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC)

	rise := SunriseUTC(summer, 80, 20, "UTC")
	set := SunsetUTC(summer, 80, 20, "UTC")
	assert.False(t, rise.IsZero())
	assert.True(t, rise.Before(set), "polar day spans the whole day")
	assert.InDelta(t, 24*time.Hour, set.Sub(rise), float64(5*time.Minute))

	rise = SunriseUTC(winter, 80, 20, "UTC")
	set = SunsetUTC(winter, 80, 20, "UTC")
	assert.False(t, set.Before(rise))
	assert.InDelta(t, 0, set.Sub(rise), float64(5*time.Minute))
}

func TestSunTimes_NonFiniteCoordinates(t *testing.T) {
	date := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	got := SunriseUTC(date, math.NaN(), math.Inf(1), "UTC")
	want := SunriseUTC(date, 0, 0, "UTC")
	assert.Equal(t, want, got)
}

func TestLoadLocation_Fallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
	assert.Equal(t, "Europe/Moscow", LoadLocation(moscowTZ).String())
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, 18*60+30, MinuteOfDay(at, moscowTZ))
	assert.Equal(t, 15*60+30, MinuteOfDay(at, "UTC"))
}

func TestCalculator_CachesAndFallsBack(t *testing.T) {
	calc := NewCalculator(Location{Name: "Moscow", Latitude: moscowLat, Longitude: moscowLon, Timezone: moscowTZ})
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	env := calc.Environment(now, "", 0, 0)
	assert.Equal(t, moscowTZ, env.TZ)
	assert.Equal(t, moscowLat, env.Lat)
	assert.True(t, env.Daylight)
	assert.Greater(t, env.SunAltitude, 30.0)
	assert.InDelta(t, 3*60+50, env.SunriseMin, 20)
	assert.InDelta(t, 21*60, env.SunsetMin, 20)

	first := calc.Times(now, moscowLat, moscowLon, moscowTZ)
	second := calc.Times(now.Add(2*time.Hour), moscowLat, moscowLon, moscowTZ)
	assert.Equal(t, first, second)
	assert.Len(t, calc.cache, 1)

	night := calc.Environment(time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC), moscowTZ, moscowLat, moscowLon)
	assert.False(t, night.Daylight)
}
