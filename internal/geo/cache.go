package geo

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache provides persistent storage for computed sun times
type Cache struct {
	db *sql.DB
}

// NewCache creates a new sun-time cache backed by SQLite
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves cached sun times by key ("lat,lon,YYYY-MM-DD")
func (c *Cache) Get(key string) (SunTimes, bool) {
	var sunrise, sunset int64
	err := c.db.QueryRow(`
		SELECT sunrise_ms, sunset_ms
		FROM sun_times
		WHERE key = ?
	`, key).Scan(&sunrise, &sunset)

	if err == sql.ErrNoRows {
		return SunTimes{}, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read sun-time cache")
		return SunTimes{}, false
	}

	log.Debug().Str("key", key).Msg("Sun-time cache hit")
	return SunTimes{
		Sunrise: time.UnixMilli(sunrise).UTC(),
		Sunset:  time.UnixMilli(sunset).UTC(),
	}, true
}

// Put stores computed sun times
func (c *Cache) Put(key string, times SunTimes) error {
	now := time.Now().Unix()
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO sun_times (key, sunrise_ms, sunset_ms, created_at)
		VALUES (?, ?, ?, ?)
	`, key, times.Sunrise.UnixMilli(), times.Sunset.UnixMilli(), now)

	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to write sun-time cache")
		return err
	}
	return nil
}
