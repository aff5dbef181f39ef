package entry

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"gritfulAPI/internal/scoring"
	"gritfulAPI/internal/streak"
)

type DailyEntry struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	ParticipantID uuid.UUID      `json:"participant_id" db:"participant_id"`
	EntryDate     civil.Date     `json:"entry_date" db:"entry_date"`
	Values        map[string]any `json:"values" db:"values"`
	IsCompleted   bool           `json:"is_completed" db:"is_completed"`
	PointsEarned  int            `json:"points_earned" db:"points_earned"`
	BonusPoints   int            `json:"bonus_points" db:"bonus_points"`
	SubmittedAt   time.Time      `json:"submitted_at" db:"submitted_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	IsLate        bool           `json:"is_late"`
}

type PeriodicTaskCompletion struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ParticipantID uuid.UUID  `json:"participant_id" db:"participant_id"`
	TaskID        string     `json:"task_id" db:"task_id"`
	PeriodStart   civil.Date `json:"period_start" db:"period_start"`
	PeriodEnd     civil.Date `json:"period_end" db:"period_end"`
	Value         any        `json:"value" db:"value"`
	PointsEarned  int        `json:"points_earned" db:"points_earned"`
	CompletedAt   time.Time  `json:"completed_at" db:"completed_at"`
}

type OnetimeTaskCompletion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ParticipantID uuid.UUID `json:"participant_id" db:"participant_id"`
	TaskID        string    `json:"task_id" db:"task_id"`
	Value         any       `json:"value" db:"value"`
	PointsEarned  int       `json:"points_earned" db:"points_earned"`
	CompletedAt   time.Time `json:"completed_at" db:"completed_at"`
}

// TaskStatus describes a non-daily task for the participant's current day.
type TaskStatus struct {
	Task        scoring.Task    `json:"task"`
	Period      *scoring.Period `json:"period,omitempty"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Points      int             `json:"points_earned"`
}

func StreakDays(entries []*DailyEntry) []streak.Day {
	days := make([]streak.Day, 0, len(entries))
	for _, e := range entries {
		days = append(days, streak.Day{Date: e.EntryDate, Completed: e.IsCompleted})
	}
	return days
}

func DailyRecords(entries []*DailyEntry) []scoring.DailyRecord {
	out := make([]scoring.DailyRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, scoring.DailyRecord{Date: e.EntryDate, PointsEarned: e.PointsEarned, BonusPoints: e.BonusPoints})
	}
	return out
}

func PeriodicRecords(completions []*PeriodicTaskCompletion) []scoring.PeriodicRecord {
	out := make([]scoring.PeriodicRecord, 0, len(completions))
	for _, c := range completions {
		out = append(out, scoring.PeriodicRecord{TaskID: c.TaskID, PeriodStart: c.PeriodStart, PointsEarned: c.PointsEarned})
	}
	return out
}

func OnetimeRecords(completions []*OnetimeTaskCompletion) []scoring.OnetimeRecord {
	out := make([]scoring.OnetimeRecord, 0, len(completions))
	for _, c := range completions {
		out = append(out, scoring.OnetimeRecord{TaskID: c.TaskID, PointsEarned: c.PointsEarned})
	}
	return out
}
