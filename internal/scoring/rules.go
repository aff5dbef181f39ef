package scoring

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrDuplicateCompletion = errors.New("task already completed for this period")
	ErrAlreadyCompleted    = errors.New("task already completed")
	ErrChallengeEnded      = errors.New("challenge has ended")
	ErrDeadlinePassed      = errors.New("task deadline has passed")
	ErrEntriesClosed       = errors.New("challenge is not accepting entries")
	ErrFutureDate          = errors.New("cannot submit entries for future dates")
	ErrBeforeStart         = errors.New("date is before the challenge start")
	ErrWrongFrequency      = errors.New("task frequency does not allow this action")
	ErrUnknownTask         = errors.New("task not found in challenge")
)

// Window is what the completion rules need to know about the challenge on the
// participant's current day.
type Window struct {
	Today          civil.Date
	StartsAt       civil.Date
	End            *civil.Date
	EntriesAllowed bool
}

func (w Window) endedBy(day civil.Date) bool {
	return w.End != nil && day.After(*w.End)
}

type DailyRecord struct {
	Date         civil.Date
	PointsEarned int
	BonusPoints  int
}

type PeriodicRecord struct {
	TaskID       string
	PeriodStart  civil.Date
	PointsEarned int
}

type OnetimeRecord struct {
	TaskID       string
	PointsEarned int
}

// CheckDailySubmission validates submitting (or backfilling) the entry for
// entryDate.
func CheckDailySubmission(w Window, entryDate civil.Date) error {
	switch {
	case !w.EntriesAllowed:
		return ErrEntriesClosed
	case entryDate.After(w.Today):
		return ErrFutureDate
	case entryDate.Before(w.StartsAt):
		return ErrBeforeStart
	case w.endedBy(entryDate):
		return ErrChallengeEnded
	}
	return nil
}

// CheckPeriodicCompletion validates completing task in period given the
// participant's existing periodic completions.
func CheckPeriodicCompletion(w Window, task Task, period Period, existing []PeriodicRecord) error {
	if !task.IsPeriodic() {
		return ErrWrongFrequency
	}
	if !w.EntriesAllowed {
		return ErrEntriesClosed
	}
	for _, rec := range existing {
		if rec.TaskID == task.ID && rec.PeriodStart == period.Start {
			return ErrDuplicateCompletion
		}
	}
	return nil
}

// CheckOnetimeCompletion validates completing a one-time task.
func CheckOnetimeCompletion(w Window, task Task, existing []OnetimeRecord) error {
	if task.EffectiveFrequency() != FrequencyOnetime {
		return ErrWrongFrequency
	}
	for _, rec := range existing {
		if rec.TaskID == task.ID {
			return ErrAlreadyCompleted
		}
	}
	if w.endedBy(w.Today) {
		return ErrChallengeEnded
	}
	if !w.EntriesAllowed {
		return ErrEntriesClosed
	}
	if task.Deadline != nil && w.Today.After(*task.Deadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// IsLate reports whether an entry was submitted on a later calendar day than
// the day it records. It is a display flag only and never affects points.
func IsLate(entryDate civil.Date, submittedAt time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(submittedAt.In(loc)).After(entryDate)
}
