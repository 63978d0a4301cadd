package domain

import "time"

// StreakLength is the number of consecutive UTC calendar days a streak spans.
const StreakLength = 7

// DayKey reduces an instant to its UTC calendar-day key. All streak math uses
// UTC days so sessions started near local midnight cannot split a day.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// StreakWindow returns the inclusive [reference-6d, reference] range whose
// session starts feed the streak evaluation.
func StreakWindow(reference time.Time) (time.Time, time.Time) {
	return reference.UTC().AddDate(0, 0, -(StreakLength - 1)), reference.UTC()
}

// HasStreak reports whether the given session-start instants cover every UTC
// calendar day in the seven-day window ending at reference. No session starts
// means no streak.
func HasStreak(starts []time.Time, reference time.Time) bool {
	if len(starts) == 0 {
		return false
	}

	days := make(map[string]struct{}, len(starts))
	for _, start := range starts {
		days[DayKey(start)] = struct{}{}
	}

	for offset := 0; offset < StreakLength; offset++ {
		key := DayKey(reference.UTC().AddDate(0, 0, -offset))
		if _, ok := days[key]; !ok {
			return false
		}
	}
	return true
}
