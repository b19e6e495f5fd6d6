package status

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/jsonx"
)

const (
	// epochMillisThreshold separates epoch seconds from epoch milliseconds.
	epochMillisThreshold = 1e12
	// maxEpochMillis bounds representable instants to ±100,000,000 days.
	maxEpochMillis = 8.64e15
)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp accepts epoch seconds, epoch milliseconds (anything above
// 1e12), numeric strings up to 13 characters, ISO-8601 strings and
// time.Time values. Anything else is absent.
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case string:
		return parseTimestampString(x)
	}
	f, ok := jsonx.Float(v)
	if !ok {
		return time.Time{}, false
	}
	return fromEpoch(f)
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if len(s) <= 13 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ParseTimestamp(f)
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fromEpoch(f float64) (time.Time, bool) {
	ms := f
	if f <= epochMillisThreshold {
		ms = f * 1000
	}
	if math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// pickTimestamp returns the first candidate that parses.
func pickTimestamp(candidates ...any) (time.Time, bool) {
	for _, c := range candidates {
		if t, ok := ParseTimestamp(c); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func timePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}
