package leaderboard

import (
	"sort"

	"github.com/google/uuid"
)

type LeaderboardEntry struct {
	ParticipantID uuid.UUID `json:"participant_id" db:"participant_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Username      string    `json:"username" db:"username"`
	ImageURL      *string   `json:"image_url" db:"image_url"`
	TotalPoints   int       `json:"total_points" db:"total_points"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	DaysCompleted int       `json:"days_completed"`
	Rank          int       `json:"rank"`
}

type Leaderboard struct {
	ChallengeID  uuid.UUID           `json:"challenge_id"`
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}

// Rank orders entries by points, then current streak, then username, and
// assigns dense-competition ranks (ties share a rank, the next rank skips).
func Rank(entries []*LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.CurrentStreak != b.CurrentStreak {
			return a.CurrentStreak > b.CurrentStreak
		}
		return a.Username < b.Username
	})
	for i, e := range entries {
		if i > 0 && e.TotalPoints == entries[i-1].TotalPoints && e.CurrentStreak == entries[i-1].CurrentStreak {
			e.Rank = entries[i-1].Rank
			continue
		}
		e.Rank = i + 1
	}
}

// Build ranks entries and picks the caller's row.
func Build(challengeID, userID uuid.UUID, entries []*LeaderboardEntry) *Leaderboard {
	Rank(entries)
	lb := &Leaderboard{ChallengeID: challengeID, Entries: entries, TotalUsers: len(entries)}
	for _, e := range entries {
		if e.UserID == userID {
			lb.UserPosition = e
			break
		}
	}
	return lb
}
