package geo

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sixdouglas/suncalc"
)

// SunTimes holds the sunrise and sunset instants of one local day.
type SunTimes struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// Environment is the solar context of a location at a given instant.
type Environment struct {
	TZ          string    `json:"tz"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	SunriseUTC  time.Time `json:"sunriseUtc"`
	SunsetUTC   time.Time `json:"sunsetUtc"`
	SunriseMin  int       `json:"sunriseMin"`
	SunsetMin   int       `json:"sunsetMin"`
	SunAltitude float64   `json:"sunAltitude"` // degrees above the horizon
	Daylight    bool      `json:"daylight"`
}

// Location is a named coordinate with its time zone.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Calculator memoizes sun times per (lat, lon, local date).
type Calculator struct {
	mu    sync.RWMutex
	cache map[string]SunTimes

	// Persistent cache (optional, backed by SQLite)
	persistent *Cache

	// Used when callers omit coordinates
	defaultLocation Location
}

// NewCalculator creates a calculator without persistent cache.
func NewCalculator(def Location) *Calculator {
	return &Calculator{
		cache:           make(map[string]SunTimes),
		defaultLocation: def,
	}
}

// NewCalculatorWithCache creates a calculator backed by a persistent cache.
func NewCalculatorWithCache(def Location, persistent *Cache) *Calculator {
	c := NewCalculator(def)
	c.persistent = persistent

	log.Info().
		Str("name", def.Name).
		Float64("lat", def.Latitude).
		Float64("lon", def.Longitude).
		Str("tz", def.Timezone).
		Msg("Geo calculator initialized with persistent sun-time cache")

	return c
}

// DefaultLocation returns the configured fallback location.
func (c *Calculator) DefaultLocation() Location {
	return c.defaultLocation
}

// Times returns the sunrise/sunset of the local day containing date.
func (c *Calculator) Times(date time.Time, lat, lon float64, tz string) SunTimes {
	day := LocalNoonUTC(date, tz).Format("2006-01-02")
	key := fmt.Sprintf("%.4f,%.4f,%s", lat, lon, day)

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	if c.persistent != nil {
		if stored, found := c.persistent.Get(key); found {
			c.mu.Lock()
			c.cache[key] = stored
			c.mu.Unlock()
			return stored
		}
	}

	times := SunTimes{
		Sunrise: SunriseUTC(date, lat, lon, tz),
		Sunset:  SunsetUTC(date, lat, lon, tz),
	}

	c.mu.Lock()
	c.cache[key] = times
	c.mu.Unlock()

	if c.persistent != nil {
		_ = c.persistent.Put(key, times)
	}

	log.Debug().
		Str("key", key).
		Time("sunrise", times.Sunrise).
		Time("sunset", times.Sunset).
		Msg("Sun times computed")

	return times
}

// Environment computes the solar context for now at the given location.
// Empty tz and zero coordinates fall back to the default location.
func (c *Calculator) Environment(now time.Time, tz string, lat, lon float64) Environment {
	if tz == "" {
		tz = c.defaultLocation.Timezone
	}
	if lat == 0 && lon == 0 {
		lat, lon = c.defaultLocation.Latitude, c.defaultLocation.Longitude
	}

	times := c.Times(now, lat, lon, tz)
	pos := suncalc.GetPosition(now, lat, lon)
	altitude := pos.Altitude / rad

	return Environment{
		TZ:          tz,
		Lat:         lat,
		Lon:         lon,
		SunriseUTC:  times.Sunrise,
		SunsetUTC:   times.Sunset,
		SunriseMin:  MinuteOfDay(times.Sunrise, tz),
		SunsetMin:   MinuteOfDay(times.Sunset, tz),
		SunAltitude: altitude,
		Daylight:    altitude > horizon/rad,
	}
}
