package schedule

import (
	"fmt"

	"github.com/dokzlo13/lightplan/internal/geo"
)

// MinutesPerDay is the length of a local day in minutes.
const MinutesPerDay = 1440

// ResolveMinutes converts a boundary into minutes since local midnight in
// [0, 1440). Sun boundaries use the environment's sunrise/sunset minute plus
// the offset. Malformed clock times resolve to fallback.
func ResolveMinutes(b Boundary, env geo.Environment, fallback int) int {
	switch b.Kind {
	case KindSun:
		base := env.SunsetMin
		if b.Anchor == Sunrise {
			base = env.SunriseMin
		}
		return Wrap(base + b.OffsetMinutes)
	case KindClock:
		if m, ok := ParseClock(b.Time); ok {
			return m
		}
	}
	return Wrap(fallback)
}

// Wrap folds any minute count into [0, 1440).
func Wrap(m int) int {
	return ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(m int) string {
	m = Wrap(m)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
