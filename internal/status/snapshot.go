package status

import (
	"time"

	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/schedule"
)

// Result is the canonical form of the backend's last run result.
type Result struct {
	Active        bool                `json:"active"`
	Reason        string              `json:"reason,omitempty"`
	ActionsSent   *float64            `json:"actionsSent"`
	TZ            string              `json:"tz,omitempty"`
	CurrentWindow *schedule.RunWindow `json:"currentWindow"`
	NextWindow    *schedule.RunWindow `json:"nextWindow"`
	LastWindow    *schedule.RunWindow `json:"lastWindow"`
	LastEndedAt   *time.Time          `json:"lastEndedAt"`
	NextStartAt   *time.Time          `json:"nextStartAt"`
}

// HasWindowData reports whether any run window was reported.
func (r *Result) HasWindowData() bool {
	return r != nil && (r.CurrentWindow != nil || r.NextWindow != nil || r.LastWindow != nil)
}

// Record is the canonical status record of a scenario.
type Record struct {
	TS     *time.Time `json:"ts"`
	Origin string     `json:"origin,omitempty"`
	Result *Result    `json:"result"`
	Error  string     `json:"error,omitempty"`
}

// Pause describes why a scenario is paused.
type Pause struct {
	Source string `json:"source,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Snapshot is everything the deriver needs about one scenario.
type Snapshot struct {
	Disabled bool    `json:"disabled"`
	Pause    *Pause  `json:"pause"`
	Status   *Record `json:"status"`
}

// Result returns the status result or nil.
func (s *Snapshot) Result() *Result {
	if s == nil || s.Status == nil {
		return nil
	}
	return s.Status.Result
}

// Result key aliases, in priority order.
var (
	currentWindowKeys = []string{"window", "currentWindow", "activeWindow"}
	nextWindowKeys    = []string{"nextWindow", "upcomingWindow", "next"}
	lastWindowKeys    = []string{"lastWindow", "previousWindow"}

	windowStartKeys = []string{"start", "from", "begin", "openAt"}
	windowEndKeys   = []string{"end", "to", "finish", "closeAt"}

	lastEndedKeys = []string{"lastEndedAt", "lastWindowEnd", "windowEnd", "endAt", "completedAt"}
	nextStartKeys = []string{"nextStartAt", "nextStart", "nextWindowStart", "startAt", "upcomingStart", "nextRunUtc"}
)

// NewSnapshot reads the status-relevant fields of a raw scenario payload.
func NewSnapshot(raw any) *Snapshot {
	src, ok := jsonx.Map(raw)
	if !ok {
		return nil
	}
	return &Snapshot{
		Disabled: jsonx.Bool(src["disabled"]),
		Pause:    ParsePause(src["pause"]),
		Status:   Summarize(src["status"]),
	}
}

// ParsePause reads a pause payload. Any truthy value counts as a pause;
// an object may carry reason.source and reason.label.
func ParsePause(raw any) *Pause {
	if !jsonx.Truthy(raw) {
		return nil
	}
	p := &Pause{}
	if m, ok := jsonx.Map(raw); ok {
		reason, _ := jsonx.Map(m["reason"])
		p.Source = jsonx.Text(reason["source"])
		p.Label = jsonx.Text(reason["label"])
	}
	return p
}

// Summarize resolves every alias of a raw status record once and returns the
// canonical Record. It returns nil when raw is not an object.
func Summarize(raw any) *Record {
	src, ok := jsonx.Map(raw)
	if !ok {
		return nil
	}

	rec := &Record{
		TS:     timePtr(ParseTimestamp(src["ts"])),
		Origin: jsonx.Text(src["origin"]),
		Error:  errorText(src["error"]),
	}

	res, ok := jsonx.Map(src["result"])
	if !ok {
		return rec
	}

	timeline, _ := jsonx.Map(res["windowTimeline"])
	current := findWindow(res, currentWindowKeys)
	if current == nil {
		current = parseWindow(timeline["current"])
	}
	next := findWindow(res, nextWindowKeys)
	if next == nil {
		next = parseWindow(timeline["next"])
	}
	last := findWindow(res, lastWindowKeys)
	if last == nil {
		last = parseWindow(timeline["previous"])
	}

	lastEnded := firstTruthy(
		jsonx.Pick(res, lastEndedKeys...),
		jsonx.Path(res, "lastWindow", "end"),
		jsonx.Path(timeline, "previous", "end"),
	)
	nextStart := firstTruthy(
		jsonx.Pick(res, nextStartKeys...),
		jsonx.Path(res, "nextWindow", "start"),
		jsonx.Path(res, "next", "start"),
		jsonx.Path(timeline, "next", "start"),
	)

	result := &Result{
		Active:        jsonx.Truthy(res["active"]),
		Reason:        jsonx.Text(jsonx.Pick(res, "reason")),
		TZ:            jsonx.Text(jsonx.Pick(res, "tz", "timeZone")),
		CurrentWindow: current,
		NextWindow:    next,
		LastWindow:    last,
		LastEndedAt:   timePtr(ParseTimestamp(lastEnded)),
		NextStartAt:   timePtr(ParseTimestamp(nextStart)),
	}
	if n, ok := jsonx.Number(res["actionsSent"]); ok {
		result.ActionsSent = &n
	}
	rec.Result = result
	return rec
}

func findWindow(res jsonx.Object, keys []string) *schedule.RunWindow {
	for _, key := range keys {
		if w := parseWindow(res[key]); w != nil {
			return w
		}
	}
	return nil
}

func parseWindow(raw any) *schedule.RunWindow {
	src, ok := jsonx.Map(raw)
	if !ok {
		return nil
	}
	w := &schedule.RunWindow{
		Start: timePtr(ParseTimestamp(jsonx.Pick(src, windowStartKeys...))),
		End:   timePtr(ParseTimestamp(jsonx.Pick(src, windowEndKeys...))),
	}
	if w.Empty() {
		return nil
	}
	return w
}

func firstTruthy(values ...any) any {
	for _, v := range values {
		if jsonx.Truthy(v) {
			return v
		}
	}
	return nil
}

func errorText(v any) string {
	if m, ok := jsonx.Map(v); ok {
		return jsonx.Text(jsonx.Pick(m, "message", "error", "code"))
	}
	return jsonx.Text(v)
}
