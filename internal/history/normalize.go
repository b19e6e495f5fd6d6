// Package history turns the backend's sparse event log into a display
// timeline with carried-forward brightness and color.
package history

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/dokzlo13/lightplan/internal/color"
	"github.com/dokzlo13/lightplan/internal/jsonx"
)

// DefaultFallbackColor is the color of a timeline before any color was
// reported.
const DefaultFallbackColor = "#a855f7"

// StatusKind classifies a timeline entry.
type StatusKind string

const (
	StatusRunning   StatusKind = "running"
	StatusPause     StatusKind = "pause"
	StatusSensorOff StatusKind = "sensor-off"
)

// Event is one normalized timeline entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Brightness is the carried-forward percentage, nil while unknown or
	// while the sensor holds the light off.
	Brightness    *float64 `json:"brightness"`
	HasBrightness bool     `json:"hasBrightness"`
	// Color is the carried-forward display color.
	Color string `json:"color"`

	StatusKind  StatusKind `json:"statusKind"`
	StatusLabel string     `json:"statusLabel"`

	SensorOff       bool     `json:"sensorOff"`
	SensorLux       *float64 `json:"sensorLux"`
	SensorOffReason string   `json:"sensorOffReason"`

	Origin         string `json:"origin"`
	TriggerLabel   string `json:"triggerLabel"`
	TriggerVariant string `json:"triggerVariant"`

	ScenarioKey  string `json:"scenarioKey"`
	ScenarioID   string `json:"scenarioId"`
	ScenarioName string `json:"scenarioName"`
	ScenarioType string `json:"scenarioType,omitempty"`

	// ColorHex and ColorTemperature are set only when the color changed.
	ColorHex         string   `json:"colorHex,omitempty"`
	ColorTemperature *float64 `json:"colorTemperature"`
	// ReportedColorTemperature is the event's own CCT, shown or not.
	ReportedColorTemperature *float64 `json:"reportedColorTemperature"`

	ShowBrightness bool `json:"showBrightness"`
	ShowColor      bool `json:"showColor"`
	StatusOnly     bool `json:"statusOnly"`
}

// Options tunes Normalize.
type Options struct {
	// FallbackColor seeds the color carry-forward. Defaults to
	// DefaultFallbackColor.
	FallbackColor string
	// Now stamps events without a readable timestamp. Defaults to time.Now.
	Now time.Time
}

// scenarioState is the carry-forward and change-detection state of one
// scenario key.
type scenarioState struct {
	brightness      *float64
	color           string
	shownBrightness string
	shownColorKey   string

	// seen is set once the scenario has produced an event.
	seen bool
}

// Normalize folds raw events oldest-first and returns the timeline
// newest-first. Non-object elements are skipped; idx may be nil.
func Normalize(raw any, idx Index, opts Options) []Event {
	list, ok := jsonx.Slice(raw)
	if !ok {
		return []Event{}
	}
	if opts.FallbackColor == "" {
		opts.FallbackColor = DefaultFallbackColor
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	seen := make(map[string]int)
	parsed := make([]rawEvent, 0, len(list))
	for _, item := range list {
		src, ok := jsonx.Map(item)
		if !ok {
			continue
		}
		e := parseEvent(src, idx, opts.Now)

		n := seen[e.id]
		seen[e.id] = n + 1
		if n > 0 {
			e.id += "_" + strconv.Itoa(n+1)
		}
		parsed = append(parsed, e)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].timestamp.Before(parsed[j].timestamp)
	})

	states := make(map[string]*scenarioState)
	out := make([]Event, len(parsed))
	for i, e := range parsed {
		st, ok := states[e.scenarioKey]
		if !ok {
			st = &scenarioState{color: opts.FallbackColor}
			states[e.scenarioKey] = st
		}
		out[len(parsed)-1-i] = fold(e, st)
	}
	return out
}

func fold(e rawEvent, st *scenarioState) Event {
	ev := Event{
		ID:              e.id,
		Timestamp:       e.timestamp,
		SensorOff:       e.sensorOff,
		SensorLux:       e.sensorLux,
		SensorOffReason: e.sensorOffReason,
		Origin:          e.origin,
		TriggerLabel:    TriggerLabel(e.origin),
		TriggerVariant:  TriggerVariant(e.origin),
		ScenarioKey:     e.scenarioKey,
		ScenarioID:      e.scenarioID,
		ScenarioName:    e.scenarioName,
		ScenarioType:    e.scenarioType,
		StatusOnly:      e.statusOnly,
		StatusKind:      StatusRunning,
	}

	// Brightness carry-forward; a sensor-off event clears it.
	switch {
	case e.sensorOff:
		st.brightness = nil
	case e.brightness != nil:
		st.brightness = e.brightness
	}
	if st.brightness != nil {
		b := *st.brightness
		ev.Brightness = &b
		ev.HasBrightness = true
	}

	switch {
	case e.colorHex != "":
		st.color = e.colorHex
	case e.cct != nil:
		st.color = color.TemperatureToHex(*e.cct)
	}
	ev.Color = st.color

	switch {
	case e.sensorOff:
		ev.StatusKind = StatusSensorOff
		ev.StatusLabel = sensorOffLabel(e.sensorLux, e.sensorOffReason)
	case e.paused:
		ev.StatusKind = StatusPause
		ev.StatusLabel = e.statusLabel
	default:
		ev.StatusLabel = e.statusLabel
	}

	// Change detection against what this scenario last displayed.
	display := ""
	if e.brightness != nil && !e.sensorOff {
		display = strconv.Itoa(int(*e.brightness)) + "%"
	}
	// A scenario's first event never shows brightness; color shows on first
	// occurrence.
	ev.ShowBrightness = st.seen && display != "" && display != st.shownBrightness && !e.statusOnly
	if display != "" {
		st.shownBrightness = display
	}

	key := e.colorKey()
	ev.ShowColor = key != "" && key != st.shownColorKey && !e.statusOnly
	if key != "" {
		st.shownColorKey = key
	}

	if e.cct != nil && !e.statusOnly {
		c := math.Round(*e.cct)
		ev.ReportedColorTemperature = &c
		if ev.ShowColor {
			shown := c
			ev.ColorTemperature = &shown
		}
	}
	if ev.ShowColor {
		ev.ColorHex = e.colorHex
	}
	st.seen = true
	return ev
}
