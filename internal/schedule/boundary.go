// Package schedule resolves scenario time boundaries into local minutes and
// previews the run windows a schedule produces.
package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/jsonx"
)

// Kind tells a fixed clock boundary from a sun-relative one.
type Kind string

const (
	KindClock Kind = "clock"
	KindSun   Kind = "sun"
)

// Anchor is the solar event a sun boundary is relative to.
type Anchor string

const (
	Sunrise Anchor = "sunrise"
	Sunset  Anchor = "sunset"
)

// MaxOffsetMinutes bounds sun offsets in both directions.
const MaxOffsetMinutes = 60

// Boundary is one edge of a schedule window: either a clock time or a
// sunrise/sunset anchor with an offset in minutes.
type Boundary struct {
	Kind          Kind
	Time          string // HH:MM, clock only
	Anchor        Anchor // sun only
	OffsetMinutes int    // sun only, within ±MaxOffsetMinutes
}

// Clock returns a fixed clock boundary.
func Clock(hhmm string) Boundary {
	return Boundary{Kind: KindClock, Time: hhmm}
}

// Sun returns a sun-relative boundary; the offset is clamped.
func Sun(anchor Anchor, offsetMinutes int) Boundary {
	if anchor != Sunrise {
		anchor = Sunset
	}
	return Boundary{Kind: KindSun, Anchor: anchor, OffsetMinutes: clampOffset(offsetMinutes)}
}

// IsSun reports whether the boundary follows the sun.
func (b Boundary) IsSun() bool {
	return b.Kind == KindSun
}

var (
	// Match patterns like "@sunset", "@sunrise + 30m", "@sunset - 1h"
	sunPattern = regexp.MustCompile(`^@(\w+)\s*([+-]\s*\d+[hm](?:\d+m)?)?$`)
	// Match patterns like "22:15", "06:30"
	clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	// Match duration like "+30m", "-1h", "+1h30m"
	offsetPattern = regexp.MustCompile(`^([+-])\s*(.+)$`)
)

// ParseBoundary parses the textual boundary form: "18:00", "@sunset",
// "@sunrise + 30m", "@sunset - 1h".
func ParseBoundary(text string) (Boundary, error) {
	text = strings.TrimSpace(text)

	if _, ok := ParseClock(text); ok {
		return Clock(canonicalClock(text)), nil
	}

	matches := sunPattern.FindStringSubmatch(text)
	if matches == nil {
		return Boundary{}, fmt.Errorf("invalid time boundary: %q", text)
	}

	var anchor Anchor
	switch strings.ToLower(matches[1]) {
	case "sunrise":
		anchor = Sunrise
	case "sunset":
		anchor = Sunset
	default:
		return Boundary{}, fmt.Errorf("unknown sun anchor: %s", matches[1])
	}

	offset, err := parseOffset(strings.ReplaceAll(matches[2], " ", ""))
	if err != nil {
		return Boundary{}, fmt.Errorf("invalid offset: %w", err)
	}
	if offset < -MaxOffsetMinutes || offset > MaxOffsetMinutes {
		return Boundary{}, fmt.Errorf("offset %dm outside ±%dm", offset, MaxOffsetMinutes)
	}

	return Boundary{Kind: KindSun, Anchor: anchor, OffsetMinutes: offset}, nil
}

// parseOffset parses "+30m", "-1h", "+1h30m" into whole minutes.
func parseOffset(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	matches := offsetPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	d, err := time.ParseDuration(matches[2])
	if err != nil {
		return 0, err
	}

	minutes := int(math.Round(d.Minutes()))
	if matches[1] == "-" {
		minutes = -minutes
	}
	return minutes, nil
}

// String renders the textual form accepted by ParseBoundary.
func (b Boundary) String() string {
	if b.Kind != KindSun {
		return b.Time
	}
	s := "@" + string(b.Anchor)
	if b.OffsetMinutes == 0 {
		return s
	}
	sign := "+"
	abs := b.OffsetMinutes
	if abs < 0 {
		sign, abs = "-", -abs
	}
	var d string
	switch {
	case abs%60 == 0:
		d = fmt.Sprintf("%dh", abs/60)
	case abs > 60:
		d = fmt.Sprintf("%dh%dm", abs/60, abs%60)
	default:
		d = fmt.Sprintf("%dm", abs)
	}
	return s + " " + sign + " " + d
}

// NormalizeBoundary builds a Boundary from a loosely shaped payload. Accepted
// shapes: {type:"clock",time}, {type:"sun",anchor,offsetMin|offset},
// {type:"sunrise"|"sunset"}, {anchor}, and the textual form. Anything else
// yields fallback.
func NormalizeBoundary(raw any, fallback Boundary) Boundary {
	if text, ok := raw.(string); ok {
		if b, err := ParseBoundary(text); err == nil {
			return b
		}
		return fallback
	}

	src, ok := jsonx.Map(raw)
	if !ok {
		return fallback
	}

	kind, _ := jsonx.String(src["type"])
	anchor, _ := jsonx.String(src["anchor"])

	if kind == "sun" || kind == "sunrise" || kind == "sunset" || anchor == "sunrise" || anchor == "sunset" {
		if anchor == "" {
			anchor = kind
		}
		offset := 0.0
		if v, ok := jsonx.Float(src["offsetMin"]); ok {
			offset = v
		} else if v, ok := jsonx.Float(src["offset"]); ok {
			offset = v
		}
		return Sun(Anchor(anchor), int(math.Round(offset)))
	}

	if t, ok := jsonx.String(src["time"]); ok {
		t = strings.TrimSpace(t)
		if _, valid := ParseClock(t); valid {
			return Clock(canonicalClock(t))
		}
	}
	if fallback.Kind == KindClock && fallback.Time != "" {
		return fallback
	}
	return Clock("18:00")
}

// MarshalJSON writes the object form consumed by the scenario backend.
func (b Boundary) MarshalJSON() ([]byte, error) {
	if b.Kind == KindSun {
		return json.Marshal(struct {
			Type      string `json:"type"`
			Anchor    Anchor `json:"anchor"`
			OffsetMin int    `json:"offsetMin"`
		}{"sun", b.Anchor, b.OffsetMinutes})
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Time string `json:"time"`
	}{"clock", b.Time})
}

// UnmarshalJSON accepts every shape NormalizeBoundary does.
func (b *Boundary) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = NormalizeBoundary(raw, Clock("18:00"))
	return nil
}

func clampOffset(m int) int {
	if m < -MaxOffsetMinutes {
		return -MaxOffsetMinutes
	}
	if m > MaxOffsetMinutes {
		return MaxOffsetMinutes
	}
	return m
}

func canonicalClock(s string) string {
	m, _ := ParseClock(s)
	return FormatMinutes(m)
}

// ParseClock parses "HH:MM" (24h) into minutes since midnight.
func ParseClock(s string) (int, bool) {
	matches := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
