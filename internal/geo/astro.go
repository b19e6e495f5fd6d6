// Package geo computes sunrise and sunset instants for scenario schedules.
package geo

import (
	"math"
	"time"
)

const (
	rad     = math.Pi / 180
	dayMs   = 86400000.0
	j1970   = 2440588.0
	j2000   = 2451545.0
	j0      = 0.0009
	perihel = 102.9372 * rad
	obliq   = 23.4397 * rad

	// Standard sunrise/sunset elevation: refraction plus solar radius
	horizon = -0.833 * rad
)

// SunriseUTC returns the sunrise instant for the local calendar day that
// contains date in the given time zone.
func SunriseUTC(date time.Time, lat, lon float64, tz string) time.Time {
	return sunEvent(date, lat, lon, tz, true)
}

// SunsetUTC returns the sunset instant for the local calendar day that
// contains date in the given time zone.
func SunsetUTC(date time.Time, lat, lon float64, tz string) time.Time {
	return sunEvent(date, lat, lon, tz, false)
}

// LocalNoonUTC resolves the calendar day of at in tz and returns 12:00 UTC of
// that day. Unknown zones resolve in UTC.
func LocalNoonUTC(at time.Time, tz string) time.Time {
	y, m, d := at.In(LoadLocation(tz)).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// MinuteOfDay formats t into tz and returns hour*60+minute.
func MinuteOfDay(t time.Time, tz string) int {
	local := t.In(LoadLocation(tz))
	return local.Hour()*60 + local.Minute()
}

// LoadLocation loads an IANA zone, falling back to UTC for empty or unknown names.
func LoadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func sunEvent(date time.Time, lat, lon float64, tz string, rising bool) time.Time {
	lat = finiteOr(lat, 0)
	lon = finiteOr(lon, 0)

	noon := LocalNoonUTC(date, tz)
	lw := lon * rad
	phi := lat * rad

	d := toDays(noon)
	n := math.Round(d - j0 - lw/(2*math.Pi))
	ds := j0 - lw/(2*math.Pi) + n

	m := meanAnomaly(ds)
	l := eclipticLongitude(m)
	dec := declination(l)

	w := hourAngle(horizon, phi, dec)
	var a float64
	if rising {
		a = j0 - (w+lw)/(2*math.Pi) + n
	} else {
		a = j0 + (w-lw)/(2*math.Pi) + n
	}
	return fromJulian(transitJ(a, m, l))
}

func toJulian(t time.Time) float64 {
	return float64(t.UnixMilli())/dayMs - 0.5 + j1970
}

func fromJulian(j float64) time.Time {
	ms := (j - j1970 + 0.5) * dayMs
	return time.UnixMilli(int64(math.Round(ms))).UTC()
}

func toDays(t time.Time) float64 {
	return toJulian(t) - j2000
}

func meanAnomaly(d float64) float64 {
	return rad * (357.5291 + 0.98560028*d)
}

func eclipticLongitude(m float64) float64 {
	c := rad * (1.9148*math.Sin(m) + 0.02*math.Sin(2*m) + 0.0003*math.Sin(3*m))
	return m + c + perihel + math.Pi
}

func declination(l float64) float64 {
	return math.Asin(math.Sin(obliq) * math.Sin(l))
}

// hourAngle clamps the cosine into [-1, 1]; polar days and nights degrade to
// a full or empty arc instead of NaN.
func hourAngle(h, phi, dec float64) float64 {
	x := (math.Sin(h) - math.Sin(phi)*math.Sin(dec)) / (math.Cos(phi) * math.Cos(dec))
	if math.IsNaN(x) {
		x = 1
	}
	return math.Acos(math.Max(-1, math.Min(1, x)))
}

func transitJ(ds, m, l float64) float64 {
	return j2000 + ds + 0.0053*math.Sin(m) - 0.0069*math.Sin(2*l)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
