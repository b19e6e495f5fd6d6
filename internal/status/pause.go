package status

import "strings"

// Reason codes reported by the backend.
const (
	ReasonAppButtonPause = "app_button_pause"
	ReasonAutoPause      = "autopause"
)

// Pause reason labels.
const (
	LabelManualCorrection = "Ручная коррекция"
	LabelManualChange     = "Свет изменен вручную"
	LabelNobodyHome       = "Никого нет дома"
)

// PauseClass groups pause sources by how they are surfaced.
type PauseClass int

const (
	// PauseManual pauses are shown whenever present.
	PauseManual PauseClass = iota
	// PauseAuto pauses are shown only while they are relevant to a window.
	PauseAuto
)

var manualSources = map[string]bool{
	"manual":             true,
	"manual_pause":       true,
	"manual_override":    true,
	ReasonAppButtonPause: true,
}

var autoSources = map[string]bool{
	ReasonAutoPause:  true,
	"presence":       true,
	"presence_guard": true,
	"away":           true,
	"presence_away":  true,
}

var pauseReasonLabels = map[string]string{
	"manual_override": LabelManualChange,
	"manual_adjust":   LabelManualChange,
	"manual_change":   LabelManualChange,
	"manual_control":  LabelManualChange,
	"presence":        LabelNobodyHome,
	"presence_guard":  LabelNobodyHome,
	"away":            LabelNobodyHome,
	"presence_away":   LabelNobodyHome,
}

// ClassifyPauseSource sorts a source into the manual or auto/presence group.
// Unknown sources are manual.
func ClassifyPauseSource(source string) PauseClass {
	source = normalizeSource(source)
	if autoSources[source] || (!manualSources[source] && strings.Contains(source, "presence")) {
		return PauseAuto
	}
	return PauseManual
}

// PauseSource is the pause's own source, falling back to the status reason.
func PauseSource(p *Pause, rec *Record) string {
	if p != nil && p.Source != "" {
		return normalizeSource(p.Source)
	}
	return normalizeSource(statusReason(rec))
}

// ResolvePauseReason returns the human reason suffix of a pause, or "".
// A manual pause whose status reason is app_button_pause gets no suffix.
func ResolvePauseReason(p *Pause, rec *Record) string {
	source := PauseSource(p, rec)
	if manualSources[source] && statusReason(rec) == ReasonAppButtonPause {
		return ""
	}
	if label, ok := pauseReasonLabels[source]; ok {
		return label
	}
	if manualSources[source] {
		return LabelManualCorrection
	}
	if strings.Contains(source, "presence") {
		return LabelNobodyHome
	}
	if p != nil {
		return p.Label
	}
	return ""
}

// PauseLabel renders "Пауза" with an optional reason.
func PauseLabel(reason string) string {
	if reason == "" {
		return "Пауза"
	}
	return "Пауза · " + reason
}

func statusReason(rec *Record) string {
	if rec == nil || rec.Result == nil {
		return ""
	}
	return rec.Result.Reason
}

func normalizeSource(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
