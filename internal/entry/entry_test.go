package entry

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"gritfulAPI/internal/scoring"
	"gritfulAPI/internal/streak"
)

func TestRecordConversions(t *testing.T) {
	jan := func(d int) civil.Date { return civil.Date{Year: 2024, Month: time.January, Day: d} }
	entries := []*DailyEntry{
		{EntryDate: jan(1), IsCompleted: true, PointsEarned: 4, BonusPoints: 1},
		{EntryDate: jan(2), IsCompleted: false, PointsEarned: 2},
	}

	assert.Equal(t, []streak.Day{{Date: jan(1), Completed: true}, {Date: jan(2)}}, StreakDays(entries))
	assert.Equal(t, []scoring.DailyRecord{
		{Date: jan(1), PointsEarned: 4, BonusPoints: 1},
		{Date: jan(2), PointsEarned: 2},
	}, DailyRecords(entries))

	periodic := PeriodicRecords([]*PeriodicTaskCompletion{{TaskID: "run", PeriodStart: jan(1), PointsEarned: 7}})
	assert.Equal(t, []scoring.PeriodicRecord{{TaskID: "run", PeriodStart: jan(1), PointsEarned: 7}}, periodic)

	onetime := OnetimeRecords([]*OnetimeTaskCompletion{{TaskID: "signup", PointsEarned: 9}})
	assert.Equal(t, []scoring.OnetimeRecord{{TaskID: "signup", PointsEarned: 9}}, onetime)

	assert.Empty(t, StreakDays(nil))
}
