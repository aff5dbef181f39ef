package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeChallengeJoined  NotificationType = "challenge_joined"
	TypeChallengeEnded   NotificationType = "challenge_ended"
	TypeChallengeMessage NotificationType = "challenge_message"
	TypeStreakMilestone  NotificationType = "streak_milestone"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Data      map[string]any   `json:"data" db:"data"`
	ReadAt    *time.Time       `json:"read_at" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}
