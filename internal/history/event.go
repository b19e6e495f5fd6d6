package history

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/color"
	"github.com/dokzlo13/lightplan/internal/curve"
	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/scenario"
	"github.com/dokzlo13/lightplan/internal/status"
)

// Reason codes that mark enable/disable events.
const (
	reasonEnabled  = "enabled"
	reasonDisabled = "disabled"
)

// Index resolves scenario identity for events that carry only a name or id.
// *scenario.Directory satisfies it.
type Index interface {
	ByID(id string) (scenario.Entry, bool)
	ByName(name string) (scenario.Entry, bool)
}

// rawEvent is one backend event with every alias resolved.
type rawEvent struct {
	id        string
	timestamp time.Time

	origin string

	scenarioKey  string
	scenarioID   string
	scenarioName string
	scenarioType string

	brightness *float64
	colorHex   string
	cct        *float64

	sensorOff       bool
	sensorLux       *float64
	sensorOffReason string

	// statusOnly marks pause events; they never display brightness or color.
	statusOnly  bool
	paused      bool
	statusLabel string
}

func parseEvent(src jsonx.Object, idx Index, now time.Time) rawEvent {
	e := rawEvent{
		origin:          jsonx.Text(src["origin"]),
		sensorOff:       jsonx.Bool(src["sensorOff"]) || jsonx.Bool(src["sensor_off"]),
		brightness:      parseBrightness(src["brightness"]),
		cct:             finitePtr(src["colorTemperature"], false),
		sensorLux:       finitePtr(src["sensorLux"], true),
		sensorOffReason: jsonx.Text(src["sensorOffReason"]),
	}

	e.timestamp = now
	if ts, ok := status.ParseTimestamp(jsonx.Pick(src, "ts", "timestamp")); ok {
		e.timestamp = ts
	}
	e.id = jsonx.Text(src["id"])
	if e.id == "" {
		e.id = "evt_" + strconv.FormatInt(e.timestamp.UnixMilli(), 10)
	}

	for _, key := range []string{"colorHex", "colorHexDisplay"} {
		if s, ok := jsonx.String(src[key]); ok {
			if hex, ok := color.NormalizeHex(s); ok {
				e.colorHex = hex
				break
			}
		}
	}

	e.resolveScenario(src, idx)
	e.resolveStatus(src)
	return e
}

func (e *rawEvent) resolveScenario(src jsonx.Object, idx Index) {
	nested, _ := jsonx.Map(src["scenario"])

	for _, v := range []any{src["scenarioId"], src["scenario_id"], nested["id"], nested["scenarioId"]} {
		if v != nil {
			e.scenarioID = jsonx.Text(v)
			break
		}
	}

	e.scenarioName = jsonx.Text(jsonx.Pick(src, "scenarioName"))
	if e.scenarioName == "" {
		e.scenarioName = jsonx.Text(jsonx.Pick(nested, "name"))
	}
	if e.scenarioName == "" {
		e.scenarioName = e.scenarioID
	}
	if e.scenarioName == "" {
		e.scenarioName = LabelUnnamedScenario
	}

	e.scenarioKey = e.scenarioID
	if e.scenarioKey == "" {
		e.scenarioKey = e.scenarioName
	}

	e.scenarioType = jsonx.Text(jsonx.Pick(nested, "type"))
	if e.scenarioType == "" {
		e.scenarioType = jsonx.Text(jsonx.Pick(src, "scenarioType"))
	}
	if idx == nil {
		return
	}

	var byID, byName scenario.Entry
	var foundID, foundName bool
	if e.scenarioID != "" {
		byID, foundID = idx.ByID(e.scenarioID)
	}
	byName, foundName = idx.ByName(e.scenarioName)

	if e.scenarioID == "" && foundName {
		e.scenarioID = byName.Scenario.ID
	}
	if e.scenarioType == "" {
		switch {
		case foundID:
			e.scenarioType = byID.Scenario.Type
		case foundName:
			e.scenarioType = byName.Scenario.Type
		}
	}
}

func (e *rawEvent) resolveStatus(src jsonx.Object) {
	result, _ := jsonx.Map(src["result"])

	pauseRaw := jsonx.Pick(src, "pause")
	if pauseRaw == nil {
		pauseRaw = jsonx.Pick(result, "pause")
	}
	reason := jsonx.Text(jsonx.Pick(src, "resultReason"))
	if reason == "" {
		reason = jsonx.Text(jsonx.Pick(result, "reason"))
	}

	pause := status.ParsePause(pauseRaw)
	switch {
	case pause != nil || reason == status.ReasonAppButtonPause || reason == status.ReasonAutoPause ||
		strings.Contains(e.origin, "pause"):
		e.paused = true
		label := ""
		if pause != nil {
			label = status.ResolvePauseReason(pause, &status.Record{Result: &status.Result{Reason: reason}})
		}
		e.statusLabel = status.PauseLabel(label)
	case e.origin == "resume":
		e.statusLabel = LabelResumed
	case e.origin == "enable" || reason == reasonEnabled:
		e.statusLabel = LabelEnabled
	case e.origin == "disable" || reason == reasonDisabled:
		e.statusLabel = LabelDisabled
	}
	e.statusOnly = e.paused
}

// colorKey identifies the reported color for change detection.
func (e rawEvent) colorKey() string {
	if e.colorHex != "" {
		return "hex:" + e.colorHex
	}
	if e.cct != nil {
		return "cct:" + strconv.Itoa(int(math.Round(*e.cct)))
	}
	return ""
}

// parseBrightness reads a percentage from a number or a "40%" / "40,5 %"
// string, clamped to [0, 100] and rounded.
func parseBrightness(v any) *float64 {
	f, ok := jsonx.Float(v)
	if !ok {
		s, isString := v.(string)
		if !isString {
			return nil
		}
		s = strings.TrimSpace(strings.Replace(strings.Replace(s, "%", "", 1), ",", ".", 1))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil
		}
		f = parsed
	}
	b := curve.Clamp(math.Round(f), 0, 100)
	return &b
}

func finitePtr(v any, round bool) *float64 {
	f, ok := jsonx.Float(v)
	if !ok {
		return nil
	}
	if round {
		f = math.Round(f)
	}
	return &f
}

func formatLux(lux float64) string {
	return strconv.FormatFloat(math.Round(lux), 'f', 0, 64)
}
