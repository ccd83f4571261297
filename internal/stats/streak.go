package stats

import (
	"growwly/internal/dayset"
)

// maxWalkBack bounds the current-streak walk so it always terminates.
const maxWalkBack = 365

type StreakState struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// Streaks computes the current streak ending today and the longest run of
// consecutive days anywhere in days. A today with no activity yields a
// current streak of 0 even if yesterday was active.
func Streaks(days dayset.Set, today dayset.DayKey) StreakState {
	return StreakState{
		Current: currentStreak(days, today),
		Longest: longestStreak(days.Sorted()),
	}
}

func currentStreak(days dayset.Set, today dayset.DayKey) int {
	streak := 0
	day := today
	for i := 0; i < maxWalkBack; i++ {
		if !days.Has(day) {
			break
		}
		streak++
		day = dayset.AddDays(day, -1)
	}
	return streak
}

func longestStreak(sorted []dayset.DayKey) int {
	if len(sorted) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		diff, err := dayset.DaysBetween(sorted[i-1], sorted[i])
		if err == nil && diff == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// RunEndingAt counts the consecutive days in days that end at day, with no
// walk-back cap.
func RunEndingAt(days dayset.Set, day dayset.DayKey) int {
	n := 0
	for days.Has(day) && n < days.Len() {
		n++
		day = dayset.AddDays(day, -1)
	}
	return n
}
