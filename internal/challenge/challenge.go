package challenge

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"gritfulAPI/internal/scoring"
)

const DefaultGracePeriodDays = 7

type Challenge struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	CreatorID       uuid.UUID      `json:"creator_id" db:"creator_id"`
	Name            string         `json:"name" db:"name"`
	Description     string         `json:"description" db:"description"`
	InviteCode      string         `json:"invite_code,omitempty" db:"invite_code"`
	StartsAt        civil.Date     `json:"starts_at" db:"starts_at"`
	EndsAt          *civil.Date    `json:"ends_at" db:"ends_at"`
	EndedAt         *time.Time     `json:"ended_at" db:"ended_at"`
	GracePeriodDays int            `json:"grace_period_days" db:"grace_period_days"`
	Metrics         []scoring.Task `json:"metrics" db:"metrics"`
	BonusEnabled    bool           `json:"bonus_enabled" db:"bonus_enabled"`
	BonusPoints     int            `json:"bonus_points" db:"bonus_points"`
	IsPublic        bool           `json:"is_public" db:"is_public"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Schedule extracts the fields the state machine looks at.
func (c *Challenge) Schedule() Schedule {
	return Schedule{
		StartsAt:        c.StartsAt,
		EndsAt:          c.EndsAt,
		EndedAt:         c.EndedAt,
		GracePeriodDays: c.GracePeriodDays,
	}
}

// Bonus returns the daily completion bonus configured on the challenge.
func (c *Challenge) Bonus() scoring.Bonus {
	return scoring.Bonus{Enabled: c.BonusEnabled, Points: c.BonusPoints}
}

// Task looks up a metric by id.
func (c *Challenge) Task(id string) (scoring.Task, bool) {
	for _, t := range c.Metrics {
		if t.ID == id {
			return t, true
		}
	}
	return scoring.Task{}, false
}

// TasksByFrequency returns the metrics with the given frequency, in order.
func (c *Challenge) TasksByFrequency(freq scoring.Frequency) []scoring.Task {
	var out []scoring.Task
	for _, t := range c.Metrics {
		if t.EffectiveFrequency() == freq {
			out = append(out, t)
		}
	}
	return out
}

type ChallengeWithState struct {
	*Challenge
	State            StateResult `json:"state"`
	ParticipantCount int         `json:"participant_count"`
	IsCreator        bool        `json:"is_creator"`
	IsParticipant    bool        `json:"is_participant"`
}

type Participant struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id" db:"challenge_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	LongestStreak int       `json:"longest_streak" db:"longest_streak"`
	TotalPoints   int       `json:"total_points" db:"total_points"`
	JoinedAt      time.Time `json:"joined_at" db:"joined_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
