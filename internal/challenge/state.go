package challenge

import (
	"time"

	"cloud.google.com/go/civil"

	"gritfulAPI/internal/civildate"
)

type State string

const (
	StateUpcoming    State = "upcoming"
	StateActive      State = "active"
	StateGracePeriod State = "grace_period"
	StateArchived    State = "archived"
	StateOngoing     State = "ongoing"
)

// Schedule is the part of a challenge that decides its lifecycle.
type Schedule struct {
	StartsAt        civil.Date
	EndsAt          *civil.Date
	EndedAt         *time.Time
	GracePeriodDays int
}

type StateResult struct {
	State                State       `json:"state"`
	IsEntryAllowed       bool        `json:"is_entry_allowed"`
	DaysInGracePeriod    *int        `json:"days_in_grace_period"`
	GracePeriodEndsAt    *civil.Date `json:"grace_period_ends_at"`
	DaysRemainingInGrace *int        `json:"days_remaining_in_grace"`
}

var archived = StateResult{State: StateArchived}

// EndsFromDuration returns the last day of a challenge that runs for days
// calendar days starting on start.
func EndsFromDuration(start civil.Date, days int) civil.Date {
	if days < 1 {
		days = 1
	}
	return start.AddDays(days - 1)
}

// EffectiveEnd is the manual end date when the challenge was ended early,
// otherwise its scheduled end. ok is false for open-ended challenges.
func (s Schedule) EffectiveEnd(loc *time.Location) (civil.Date, bool) {
	if s.EndedAt != nil {
		return civildate.ToCivilDate(*s.EndedAt, loc), true
	}
	if s.EndsAt != nil {
		return *s.EndsAt, true
	}
	return civil.Date{}, false
}

// GetState evaluates the schedule at ref, resolved to a calendar date in loc.
func GetState(s Schedule, ref time.Time, loc *time.Location) StateResult {
	return StateOn(s, civildate.ToCivilDate(ref, loc), loc)
}

// StateOn evaluates the schedule on a calendar day. It is total: anything it
// cannot make sense of is archived with entries disallowed.
func StateOn(s Schedule, day civil.Date, loc *time.Location) StateResult {
	if !s.StartsAt.IsValid() || !day.IsValid() || s.GracePeriodDays < 0 {
		return archived
	}
	if s.EndsAt != nil && !s.EndsAt.IsValid() {
		return archived
	}

	end, ok := s.EffectiveEnd(loc)
	if !ok {
		return StateResult{
			State:          StateOngoing,
			IsEntryAllowed: !day.Before(s.StartsAt),
		}
	}

	switch {
	case day.Before(s.StartsAt):
		return StateResult{State: StateUpcoming}
	case !day.After(end):
		return StateResult{State: StateActive, IsEntryAllowed: true}
	}

	graceEnd := end.AddDays(s.GracePeriodDays)
	if s.GracePeriodDays > 0 && !day.After(graceEnd) {
		elapsed := civildate.DaysBetween(end, day)
		remaining := civildate.DaysBetween(day, graceEnd)
		if remaining < 1 {
			remaining = 1
		}
		return StateResult{
			State:                StateGracePeriod,
			IsEntryAllowed:       true,
			DaysInGracePeriod:    &elapsed,
			GracePeriodEndsAt:    &graceEnd,
			DaysRemainingInGrace: &remaining,
		}
	}

	return archived
}

// IsActiveView reports whether a challenge in state belongs on the active list.
func IsActiveView(state State) bool {
	switch state {
	case StateActive, StateGracePeriod, StateOngoing:
		return true
	}
	return false
}

// IsHistoryView reports whether a challenge in state belongs on the history list.
func IsHistoryView(state State) bool {
	return state == StateArchived
}

// InView reports whether state is listed under view.
func InView(state State, view ListView) bool {
	switch view {
	case ViewHistory:
		return IsHistoryView(state)
	case ViewUpcoming:
		return state == StateUpcoming
	}
	return IsActiveView(state)
}

// HasEnded reports whether the challenge's effective end date lies before day.
func (s Schedule) HasEnded(day civil.Date, loc *time.Location) bool {
	end, ok := s.EffectiveEnd(loc)
	return ok && day.After(end)
}

// CanEnd reports whether the challenge may still be ended early on day.
// Ending is only possible while it is upcoming, active or ongoing; a
// challenge past its scheduled end keeps that end and its grace window.
func (s Schedule) CanEnd(day civil.Date, loc *time.Location) bool {
	if s.EndedAt != nil || s.HasEnded(day, loc) {
		return false
	}
	switch StateOn(s, day, loc).State {
	case StateGracePeriod, StateArchived:
		return false
	}
	return true
}
