package challenge

import (
	"github.com/google/uuid"

	"gritfulAPI/internal/scoring"
)

type CreateChallengeRequest struct {
	Name            string         `json:"name" validate:"required,min=3,max=120"`
	Description     string         `json:"description" validate:"max=2000"`
	StartsAt        string         `json:"starts_at" validate:"required,datetime=2006-01-02"`
	DurationDays    *int           `json:"duration_days,omitempty" validate:"omitempty,min=1,max=3650"`
	GracePeriodDays *int           `json:"grace_period_days,omitempty" validate:"omitempty,min=0,max=90"`
	Metrics         []scoring.Task `json:"metrics" validate:"required,min=1,max=30,dive"`
	BonusEnabled    bool           `json:"bonus_enabled"`
	BonusPoints     int            `json:"bonus_points" validate:"min=0,max=10000"`
	IsPublic        bool           `json:"is_public"`
}

type JoinChallengeRequest struct {
	InviteCode  string     `json:"invite_code,omitempty" validate:"omitempty,len=8,alphanum"`
	ChallengeID *uuid.UUID `json:"challenge_id,omitempty" validate:"required_without=InviteCode"`
}

type ListView string

const (
	ViewActive   ListView = "active"
	ViewHistory  ListView = "history"
	ViewUpcoming ListView = "upcoming"
)

// ParseListView defaults to the active view.
func ParseListView(s string) (ListView, bool) {
	switch ListView(s) {
	case "", ViewActive:
		return ViewActive, true
	case ViewHistory, ViewUpcoming:
		return ListView(s), true
	}
	return "", false
}
