// Package scenario holds the canonical scenario model and the directory of
// last-seen scenarios.
package scenario

import (
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/autolight"
	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/schedule"
	"github.com/dokzlo13/lightplan/internal/status"
)

// Scenario defaults.
const (
	DefaultType = "scenario-v1"
	DefaultName = "Новый сценарий"
)

// Presence modes.
const (
	PresenceAlways       = "always"
	PresenceOnlyWhenHome = "onlyWhenHome"
	PresenceOnlyWhenAway = "onlyWhenAway"
)

// Target lists the groups and devices a scenario drives.
type Target struct {
	Groups  []string `json:"groups"`
	Devices []string `json:"devices"`
}

// Runtime holds runtime conditions.
type Runtime struct {
	Presence string `json:"presence"`
}

// Scenario is the canonical form of a scenario payload.
type Scenario struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Version   int               `json:"version"`
	Disabled  bool              `json:"disabled"`
	Target    Target            `json:"target"`
	Time      schedule.Window   `json:"time"`
	Runtime   Runtime           `json:"runtime"`
	Actions   []any             `json:"actions"`
	AutoLight *autolight.Config `json:"autoLight,omitempty"`
	Pause     *status.Pause     `json:"pause"`

	// Raw is the payload the scenario was parsed from.
	Raw jsonx.Object `json:"-"`
}

// IsAutoLight reports whether the scenario is sensor driven.
func (s Scenario) IsAutoLight() bool {
	return s.Type == autolight.ScenarioType
}

// NameKey is the lookup key of a scenario name: trimmed and lowercased.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Parse builds a Scenario from a raw payload. ok is false when raw is not an
// object.
func Parse(raw any) (Scenario, bool) {
	src, ok := jsonx.Map(raw)
	if !ok {
		return Scenario{}, false
	}

	s := Scenario{
		ID:       jsonx.Text(src["id"]),
		Name:     DefaultName,
		Type:     DefaultType,
		Version:  1,
		Disabled: jsonx.Bool(src["disabled"]),
		Actions:  []any{},
		Pause:    status.ParsePause(src["pause"]),
		Raw:      src,
	}
	if name, ok := jsonx.String(src["name"]); ok && strings.TrimSpace(name) != "" {
		s.Name = name
	}
	if t := jsonx.Text(jsonx.Pick(src, "type")); t != "" {
		s.Type = t
	}
	if v, ok := jsonx.Number(src["version"]); ok {
		s.Version = int(v)
	}

	target, _ := jsonx.Map(src["target"])
	s.Target = Target{
		Groups:  sanitizeIDs(target["groups"]),
		Devices: sanitizeIDs(target["devices"]),
	}

	defaults := schedule.DefaultWindow()
	if s.IsAutoLight() {
		defaults = autolight.DefaultWindow()
	}
	s.Time = schedule.NormalizeWindow(src["time"], defaults)

	runtime, _ := jsonx.Map(src["runtime"])
	s.Runtime.Presence, _ = jsonx.String(runtime["presence"])
	switch s.Runtime.Presence {
	case PresenceAlways, PresenceOnlyWhenHome:
	case PresenceOnlyWhenAway:
		if !s.IsAutoLight() {
			s.Runtime.Presence = PresenceAlways
		}
	default:
		s.Runtime.Presence = PresenceAlways
	}

	if actions, ok := jsonx.Slice(src["actions"]); ok {
		s.Actions = append(s.Actions, actions...)
	}

	if s.IsAutoLight() || src["autoLight"] != nil {
		cfg := autolight.Normalize(src["autoLight"], s.Time)
		s.AutoLight = &cfg
	}

	return s, true
}

func sanitizeIDs(raw any) []string {
	out := []string{}
	list, ok := jsonx.Slice(raw)
	if !ok {
		return out
	}
	for _, v := range list {
		if id := jsonx.Text(v); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Meta is the backend's cache metadata for a scenario.
type Meta struct {
	LastModified string `json:"lastModified,omitempty"`
	ETag         string `json:"etag,omitempty"`
}

// Entry is a scenario with its last reported status.
type Entry struct {
	Scenario Scenario `json:"scenario"`
	// Status is the raw status record; it is summarized on every read.
	Status any   `json:"status"`
	Meta   *Meta `json:"meta,omitempty"`
}

// Snapshot rebuilds the status snapshot of the entry.
func (e Entry) Snapshot() *status.Snapshot {
	return &status.Snapshot{
		Disabled: e.Scenario.Disabled,
		Pause:    e.Scenario.Pause,
		Status:   status.Summarize(e.Status),
	}
}

// Derive evaluates the entry's status at now.
func (e Entry) Derive(now time.Time) status.Derived {
	return status.Derive(e.Snapshot(), now)
}

// ParseEntry reads one element of a scenario list. Both the wrapped form
// {scenario, status, lastModified, etag} and bare scenarios are accepted.
func ParseEntry(raw any) (Entry, bool) {
	src, ok := jsonx.Map(raw)
	if !ok {
		return Entry{}, false
	}

	scenarioRaw := any(src)
	statusRaw := src["status"]
	if inner, ok := jsonx.Map(src["scenario"]); ok {
		scenarioRaw = inner
		if statusRaw == nil {
			statusRaw = inner["status"]
		}
	}

	sc, ok := Parse(scenarioRaw)
	if !ok || sc.ID == "" {
		return Entry{}, false
	}

	entry := Entry{Scenario: sc, Status: statusRaw}
	if src["lastModified"] != nil || jsonx.Truthy(src["etag"]) {
		entry.Meta = &Meta{
			LastModified: jsonx.Text(src["lastModified"]),
			ETag:         jsonx.Text(src["etag"]),
		}
	}
	return entry, true
}

// ParseList reads a scenario list payload: a bare array or an object with
// an "items" or "scenarios" array. Elements without an id are skipped.
func ParseList(raw any) []Entry {
	list, ok := jsonx.Slice(raw)
	if !ok {
		if obj, isObj := jsonx.Map(raw); isObj {
			list, _ = jsonx.Slice(jsonx.Pick(obj, "items", "scenarios"))
		}
	}
	entries := make([]Entry, 0, len(list))
	for _, item := range list {
		if e, ok := ParseEntry(item); ok {
			entries = append(entries, e)
		}
	}
	return entries
}
