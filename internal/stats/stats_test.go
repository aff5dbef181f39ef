package stats

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"gritfulAPI/internal/entry"
)

func d(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: day}
}

func TestDaysElapsed(t *testing.T) {
	end := d(10)
	assert.Equal(t, 0, DaysElapsed(d(5), nil, d(4)))
	assert.Equal(t, 1, DaysElapsed(d(5), nil, d(5)))
	assert.Equal(t, 6, DaysElapsed(d(5), &end, d(20)))
	assert.Equal(t, 3, DaysElapsed(d(5), &end, d(7)))
}

func TestCompute(t *testing.T) {
	in := Input{
		Today:        d(5),
		StartsAt:     d(1),
		OnetimeTasks: 2,
		Entries: []*entry.DailyEntry{
			{EntryDate: d(1), IsCompleted: true, PointsEarned: 10, BonusPoints: 5},
			{EntryDate: d(3), IsCompleted: true, PointsEarned: 10},
			{EntryDate: d(4), IsCompleted: true, PointsEarned: 10, IsLate: true},
			{EntryDate: d(5), IsCompleted: false, PointsEarned: 3},
		},
		Periodic: []*entry.PeriodicTaskCompletion{{TaskID: "w", PointsEarned: 20}},
		Onetime:  []*entry.OnetimeTaskCompletion{{TaskID: "o", PointsEarned: 50}},
	}
	s := Compute(in)

	assert.Equal(t, 108, s.TotalPoints)
	assert.Equal(t, 5, s.BonusPoints)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 4, s.DaysSubmitted)
	assert.Equal(t, 3, s.DaysCompleted)
	assert.Equal(t, 5, s.DaysElapsed)
	assert.InDelta(t, 0.6, s.CompletionRate, 1e-9)
	assert.Equal(t, 1, s.LateEntries)
	assert.Equal(t, 1, s.OnetimeDone)
	assert.Equal(t, 2, s.OnetimeAvailable)
}
