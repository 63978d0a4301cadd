package domain

import (
	"testing"
	"time"
)

func TestHasStreakAllSevenDays(t *testing.T) {
	reference := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	var starts []time.Time
	for offset := 0; offset < StreakLength; offset++ {
		starts = append(starts, reference.AddDate(0, 0, -offset))
	}

	if !HasStreak(starts, reference) {
		t.Fatal("expected streak with sessions on all seven days")
	}
}

func TestHasStreakFailsWhenAnyDayMissing(t *testing.T) {
	reference := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	for missing := 0; missing < StreakLength; missing++ {
		var starts []time.Time
		for offset := 0; offset < StreakLength; offset++ {
			if offset == missing {
				continue
			}
			starts = append(starts, reference.AddDate(0, 0, -offset))
		}
		if HasStreak(starts, reference) {
			t.Fatalf("expected no streak with day offset %d missing", missing)
		}
	}
}

func TestHasStreakEmpty(t *testing.T) {
	if HasStreak(nil, time.Now()) {
		t.Fatal("expected no streak with zero sessions")
	}
}

func TestHasStreakMultipleSessionsSameDay(t *testing.T) {
	reference := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	var starts []time.Time
	for offset := 0; offset < StreakLength; offset++ {
		day := reference.AddDate(0, 0, -offset)
		starts = append(starts, day, day.Add(-6*time.Hour))
	}

	if !HasStreak(starts, reference) {
		t.Fatal("expected multiple same-day sessions to still satisfy the streak")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2026, 3, 9, 23, 30, 0, 0, loc)

	if got := DayKey(local); got != "2026-03-10" {
		t.Fatalf("DayKey = %q, want %q", got, "2026-03-10")
	}
}

func TestStreakWindow(t *testing.T) {
	reference := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	from, to := StreakWindow(reference)

	if !from.Equal(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("window start = %v", from)
	}
	if !to.Equal(reference) {
		t.Fatalf("window end = %v", to)
	}
}
