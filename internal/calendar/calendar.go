package calendar

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"gritfulAPI/internal/entry"
)

var ErrInvalidMonth = errors.New("invalid year or month")

type CalendarDay struct {
	Date        civil.Date `json:"date"`
	HasEntry    bool       `json:"has_entry"`
	IsCompleted bool       `json:"is_completed"`
	Points      int        `json:"points"`
	IsLate      bool       `json:"is_late"`
	IsToday     bool       `json:"is_today"`
	InChallenge bool       `json:"in_challenge"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

// BuildMonth lays out one calendar month for a participant. end is the
// challenge's effective last day, nil for open-ended challenges.
func BuildMonth(year, month int, today, startsAt civil.Date, end *civil.Date, entries []*entry.DailyEntry) (*CalendarResponse, error) {
	if month < 1 || month > 12 || year < 1970 || year > 9999 {
		return nil, ErrInvalidMonth
	}

	byDate := make(map[civil.Date]*entry.DailyEntry, len(entries))
	for _, e := range entries {
		byDate[e.EntryDate] = e
	}

	first := civil.Date{Year: year, Month: time.Month(month), Day: 1}
	resp := &CalendarResponse{Year: year, Month: month}
	for d := first; d.Month == first.Month; d = d.AddDays(1) {
		day := &CalendarDay{
			Date:        d,
			IsToday:     d == today,
			InChallenge: !d.Before(startsAt) && (end == nil || !d.After(*end)),
		}
		if e, ok := byDate[d]; ok {
			day.HasEntry = true
			day.IsCompleted = e.IsCompleted
			day.Points = e.PointsEarned + e.BonusPoints
			day.IsLate = e.IsLate
		}
		resp.Days = append(resp.Days, day)
	}
	return resp, nil
}
