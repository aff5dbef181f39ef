// Package streak recomputes participant streaks from their daily entries.
// Stored streak counters are display copies; these functions are the source
// of truth and run every time a streak is shown or persisted.
package streak

import (
	"sort"

	"cloud.google.com/go/civil"
)

// maxWalk bounds the backwards walk so corrupted data cannot loop forever.
const maxWalk = 36500

// Day is one daily entry as far as streaks are concerned.
type Day struct {
	Date      civil.Date `json:"date"`
	Completed bool       `json:"completed"`
}

type Streak struct {
	CurrentStreak int         `json:"current_streak"`
	LongestStreak int         `json:"longest_streak"`
	LastCompleted *civil.Date `json:"last_completed_date"`
}

func completedSet(entries []Day) map[civil.Date]struct{} {
	set := make(map[civil.Date]struct{}, len(entries))
	for _, e := range entries {
		if e.Completed && e.Date.IsValid() {
			set[e.Date] = struct{}{}
		}
	}
	return set
}

// CalculateDisplayStreak counts consecutive completed days ending on today.
// A missing or incomplete today yields 0.
func CalculateDisplayStreak(entries []Day, today civil.Date) int {
	if len(entries) == 0 || !today.IsValid() {
		return 0
	}
	done := completedSet(entries)

	count := 0
	for day := today; count < maxWalk; day = day.AddDays(-1) {
		if _, ok := done[day]; !ok {
			break
		}
		count++
	}
	return count
}

// Longest returns the longest run of consecutive completed days anywhere in
// entries.
func Longest(entries []Day) int {
	done := completedSet(entries)
	if len(done) == 0 {
		return 0
	}

	dates := make([]civil.Date, 0, len(done))
	for d := range done {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].AddDays(1) == dates[i] {
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

// Calculate returns both streak figures and the most recent completed day.
func Calculate(entries []Day, today civil.Date) Streak {
	s := Streak{
		CurrentStreak: CalculateDisplayStreak(entries, today),
		LongestStreak: Longest(entries),
	}
	for d := range completedSet(entries) {
		if d.After(today) {
			continue
		}
		if s.LastCompleted == nil || d.After(*s.LastCompleted) {
			last := d
			s.LastCompleted = &last
		}
	}
	return s
}
