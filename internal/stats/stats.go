package stats

import (
	"cloud.google.com/go/civil"

	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/scoring"
	"gritfulAPI/internal/streak"
)

type ParticipantStats struct {
	scoring.Totals
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	DaysSubmitted    int     `json:"days_submitted"`
	DaysCompleted    int     `json:"days_completed"`
	DaysElapsed      int     `json:"days_elapsed"`
	CompletionRate   float64 `json:"completion_rate"`
	PeriodicDone     int     `json:"periodic_completions"`
	OnetimeDone      int     `json:"onetime_completed"`
	OnetimeAvailable int     `json:"onetime_available"`
	LateEntries      int     `json:"late_entries"`
}

// Input is everything stored for one participant.
type Input struct {
	Today        civil.Date
	StartsAt     civil.Date
	End          *civil.Date
	OnetimeTasks int
	Entries      []*entry.DailyEntry
	Periodic     []*entry.PeriodicTaskCompletion
	Onetime      []*entry.OnetimeTaskCompletion
}

// Compute derives participant statistics from scratch.
func Compute(in Input) ParticipantStats {
	s := ParticipantStats{
		Totals:           scoring.Aggregate(entry.DailyRecords(in.Entries), entry.OnetimeRecords(in.Onetime), entry.PeriodicRecords(in.Periodic)),
		DaysSubmitted:    len(in.Entries),
		PeriodicDone:     len(in.Periodic),
		OnetimeDone:      len(in.Onetime),
		OnetimeAvailable: in.OnetimeTasks,
		DaysElapsed:      DaysElapsed(in.StartsAt, in.End, in.Today),
	}

	st := streak.Calculate(entry.StreakDays(in.Entries), in.Today)
	s.CurrentStreak = st.CurrentStreak
	s.LongestStreak = st.LongestStreak

	for _, e := range in.Entries {
		if e.IsCompleted {
			s.DaysCompleted++
		}
		if e.IsLate {
			s.LateEntries++
		}
	}
	if s.DaysElapsed > 0 {
		s.CompletionRate = float64(s.DaysCompleted) / float64(s.DaysElapsed)
		if s.CompletionRate > 1 {
			s.CompletionRate = 1
		}
	}
	return s
}

// DaysElapsed counts challenge days from start through min(today, end).
func DaysElapsed(start civil.Date, end *civil.Date, today civil.Date) int {
	last := today
	if end != nil && end.Before(today) {
		last = *end
	}
	if last.Before(start) {
		return 0
	}
	return last.DaysSince(start) + 1
}
