package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/schedule"
)

// countdownHoursOnly is the countdown above which minutes are dropped.
const countdownHoursOnly = 120

// waitingLabel phrases the gap between the last run and the next one. Right
// after a run ends (the first quarter of the gap) it reports the elapsed
// time, then counts down to the next start.
func waitingLabel(r *Result, now time.Time) string {
	if r == nil {
		return ""
	}

	lastEnd, hasLast := firstInstant(
		windowEnd(r.LastWindow),
		windowEnd(r.CurrentWindow),
		r.LastEndedAt,
	)
	nextStart, hasNext := firstInstant(
		windowStart(r.NextWindow),
		r.NextStartAt,
	)

	if hasLast && hasNext && nextStart.After(lastEnd) {
		gap := nextStart.Sub(lastEnd)
		sinceEnd := now.Sub(lastEnd)
		if sinceEnd >= 0 && sinceEnd <= gap/4 {
			return recentlyCompletedPhrase(sinceEnd)
		}
		if now.Before(nextStart) {
			return countdownPhrase(nextStart.Sub(now))
		}
	}
	if hasNext && nextStart.After(now) {
		return countdownPhrase(nextStart.Sub(now))
	}
	if hasLast {
		return LabelFinished + " в " + formatClock(lastEnd, r.TZ)
	}
	return ""
}

func countdownPhrase(d time.Duration) string {
	if d <= 0 {
		return "Запуск через 0 мин"
	}
	total := int(math.Ceil(d.Minutes()))
	if total > countdownHoursOnly {
		return fmt.Sprintf("Запуск через %d ч", max(1, total/60))
	}
	return "Запуск через " + hoursMinutes(total)
}

func recentlyCompletedPhrase(d time.Duration) string {
	return LabelFinished + " " + hoursMinutes(int(d/time.Minute)) + " назад"
}

// hoursMinutes renders "1 ч 10 мин", "2 ч", "5 мин" or "0 мин".
func hoursMinutes(totalMinutes int) string {
	hours, minutes := totalMinutes/60, totalMinutes%60
	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d ч", hours))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d мин", minutes))
	}
	return strings.Join(parts, " ")
}

// formatClock renders HH:MM in tz, or in the process zone when tz is empty.
func formatClock(t time.Time, tz string) string {
	loc := time.Local
	if tz != "" {
		loc = geo.LoadLocation(tz)
	}
	return t.In(loc).Format("15:04")
}

func windowStart(w *schedule.RunWindow) *time.Time {
	if w == nil {
		return nil
	}
	return w.Start
}

func windowEnd(w *schedule.RunWindow) *time.Time {
	if w == nil {
		return nil
	}
	return w.End
}

func firstInstant(candidates ...*time.Time) (time.Time, bool) {
	for _, t := range candidates {
		if t != nil && !t.IsZero() {
			return *t, true
		}
	}
	return time.Time{}, false
}
