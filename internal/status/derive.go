// Package status derives the present-tense status of a scenario from its
// pause flag, the backend's run-window telemetry and the current time.
package status

import (
	"time"

	"github.com/dokzlo13/lightplan/internal/schedule"
)

// Kind is the coarse scenario state.
type Kind string

const (
	KindRunning Kind = "running"
	KindPaused  Kind = "paused"
	KindWaiting Kind = "waiting"
	KindOff     Kind = "off"
)

// Fixed labels.
const (
	LabelOff      = "Выключен"
	LabelRunning  = "Работает"
	LabelFinished = "Завершен"
)

// Derived is the displayed status of a scenario.
type Derived struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Derive evaluates the scenario at now. The first matching rule wins:
// disabled, pause, running, waiting.
func Derive(s *Snapshot, now time.Time) Derived {
	if s == nil {
		return Derived{KindWaiting, LabelFinished}
	}
	if s.Disabled {
		return Derived{KindOff, LabelOff}
	}

	result := s.Result()
	active := activeWindow(result, now)

	reason := ""
	if result != nil {
		reason = result.Reason
	}
	if s.Pause != nil || reason == ReasonAppButtonPause || reason == ReasonAutoPause {
		source := PauseSource(s.Pause, s.Status)
		// Auto pauses only count while a window is live; without any window
		// data they are assumed live.
		if ClassifyPauseSource(source) == PauseManual || active != nil || !result.HasWindowData() {
			return Derived{KindPaused, PauseLabel(ResolvePauseReason(s.Pause, s.Status))}
		}
	}

	if active != nil || (result != nil && result.Active && (windowActive(result.CurrentWindow, now) || fallbackActive(result))) {
		return Derived{KindRunning, LabelRunning}
	}

	if label := waitingLabel(result, now); label != "" {
		return Derived{KindWaiting, label}
	}
	return Derived{KindWaiting, LabelFinished}
}

func activeWindow(r *Result, now time.Time) *schedule.RunWindow {
	if r == nil {
		return nil
	}
	if windowActive(r.CurrentWindow, now) {
		return r.CurrentWindow
	}
	if windowActive(r.NextWindow, now) {
		return r.NextWindow
	}
	return nil
}

func windowActive(w *schedule.RunWindow, now time.Time) bool {
	return w != nil && w.Contains(now)
}

// fallbackActive treats a result without any window data as running once
// actions were sent.
func fallbackActive(r *Result) bool {
	return !r.HasWindowData() && r.ActionsSent != nil && *r.ActionsSent > 0
}
