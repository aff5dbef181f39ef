package feed

import (
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityJoined         ActivityKind = "joined"
	ActivityLeft           ActivityKind = "left"
	ActivityDailyEntry     ActivityKind = "daily_entry"
	ActivityTaskCompleted  ActivityKind = "task_completed"
	ActivityStreak         ActivityKind = "streak_milestone"
	ActivityChallengeEnded ActivityKind = "challenge_ended"
)

type ActivityFeedItem struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	ChallengeID uuid.UUID      `json:"challenge_id" db:"challenge_id"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Username    string         `json:"username" db:"username"`
	ImageURL    *string        `json:"image_url" db:"image_url"`
	Kind        ActivityKind   `json:"kind" db:"kind"`
	Payload     map[string]any `json:"payload" db:"payload"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

type ChallengeMessage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ChallengeID    uuid.UUID `json:"challenge_id" db:"challenge_id"`
	SenderID       uuid.UUID `json:"sender_id" db:"sender_id"`
	SenderUsername string    `json:"sender_username" db:"sender_username"`
	Body           string    `json:"body" db:"body"`
	IsAnnouncement bool      `json:"is_announcement" db:"is_announcement"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type PostMessageRequest struct {
	Body           string `json:"body" validate:"required,min=1,max=2000"`
	IsAnnouncement bool   `json:"is_announcement"`
}

// StreakMilestones are the streak lengths announced on the activity feed.
var StreakMilestones = []int{7, 14, 30, 50, 100, 365}

// IsStreakMilestone reports whether reaching streak days deserves a feed post.
func IsStreakMilestone(days int) bool {
	for _, m := range StreakMilestones {
		if days == m {
			return true
		}
	}
	return false
}
