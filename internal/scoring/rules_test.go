package scoring

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var civilDay = civil.Date{Year: 2024, Month: time.January, Day: 15}

func day(m time.Month, d int) civil.Date {
	return civil.Date{Year: 2024, Month: m, Day: d}
}

func TestGetPeriodForDate(t *testing.T) {
	// 2024-01-17 is a Wednesday.
	p, err := GetPeriodForDate(FrequencyWeekly, day(time.January, 17))
	require.NoError(t, err)
	assert.Equal(t, day(time.January, 15), p.Start)
	assert.Equal(t, day(time.January, 21), p.End)

	// Sunday belongs to the week that started the previous Monday.
	p, err = GetPeriodForDate(FrequencyWeekly, day(time.January, 21))
	require.NoError(t, err)
	assert.Equal(t, day(time.January, 15), p.Start)

	p, err = GetPeriodForDate(FrequencyWeekly, day(time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, day(time.January, 1), p.Start)

	p, err = GetPeriodForDate(FrequencyMonthly, day(time.February, 10))
	require.NoError(t, err)
	assert.Equal(t, day(time.February, 1), p.Start)
	assert.Equal(t, day(time.February, 29), p.End)

	p, err = GetPeriodForDate(FrequencyMonthly, day(time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, day(time.December, 1), p.Start)
	assert.Equal(t, day(time.December, 31), p.End)
	assert.True(t, p.Contains(day(time.December, 15)))
	assert.False(t, p.Contains(day(time.November, 30)))

	p, err = GetPeriodForDate(FrequencyDaily, day(time.March, 3))
	require.NoError(t, err)
	assert.Equal(t, p.Start, p.End)

	_, err = GetPeriodForDate(FrequencyOnetime, day(time.March, 3))
	assert.ErrorIs(t, err, ErrNoPeriod)

	_, err = GetPeriodForDate(FrequencyWeekly, civil.Date{})
	assert.Error(t, err)
}

func TestGetPeriodForDate_EveryDayOfWeekMapsToMonday(t *testing.T) {
	for d := day(time.March, 1); d.Before(day(time.May, 1)); d = d.AddDays(1) {
		p, err := GetPeriodForDate(FrequencyWeekly, d)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, p.Start.In(time.UTC).Weekday(), d.String())
		assert.True(t, p.Contains(d))
		assert.Equal(t, 6, p.End.DaysSince(p.Start))
	}
}

func openWindow(today civil.Date) Window {
	end := day(time.January, 31)
	return Window{Today: today, StartsAt: day(time.January, 1), End: &end, EntriesAllowed: true}
}

func TestCheckDailySubmission(t *testing.T) {
	w := openWindow(day(time.January, 10))

	assert.NoError(t, CheckDailySubmission(w, day(time.January, 10)))
	assert.NoError(t, CheckDailySubmission(w, day(time.January, 2)))
	assert.ErrorIs(t, CheckDailySubmission(w, day(time.January, 11)), ErrFutureDate)

	w2 := w
	w2.StartsAt = day(time.January, 5)
	assert.ErrorIs(t, CheckDailySubmission(w2, day(time.January, 3)), ErrBeforeStart)

	closed := w
	closed.EntriesAllowed = false
	assert.ErrorIs(t, CheckDailySubmission(closed, day(time.January, 10)), ErrEntriesClosed)

	grace := openWindow(day(time.February, 3))
	assert.NoError(t, CheckDailySubmission(grace, day(time.January, 31)))
	assert.ErrorIs(t, CheckDailySubmission(grace, day(time.February, 2)), ErrChallengeEnded)
}

func TestCheckPeriodicCompletion(t *testing.T) {
	task := Task{ID: "long-run", Type: TypeBoolean, Frequency: FrequencyWeekly, Points: 20}
	w := openWindow(day(time.January, 17))
	period, err := GetPeriodForDate(task.Frequency, w.Today)
	require.NoError(t, err)

	assert.NoError(t, CheckPeriodicCompletion(w, task, period, nil))

	existing := []PeriodicRecord{{TaskID: "long-run", PeriodStart: day(time.January, 8)}}
	assert.NoError(t, CheckPeriodicCompletion(w, task, period, existing))

	existing = append(existing, PeriodicRecord{TaskID: "long-run", PeriodStart: period.Start})
	assert.ErrorIs(t, CheckPeriodicCompletion(w, task, period, existing), ErrDuplicateCompletion)

	daily := Task{ID: "daily", Type: TypeBoolean}
	assert.ErrorIs(t, CheckPeriodicCompletion(w, daily, period, nil), ErrWrongFrequency)

	w.EntriesAllowed = false
	assert.ErrorIs(t, CheckPeriodicCompletion(w, task, period, nil), ErrEntriesClosed)
}

func TestCheckOnetimeCompletion(t *testing.T) {
	deadline := day(time.January, 20)
	task := Task{ID: "signup", Type: TypeBoolean, Frequency: FrequencyOnetime, Points: 10, Deadline: &deadline}

	w := openWindow(day(time.January, 10))
	assert.NoError(t, CheckOnetimeCompletion(w, task, nil))
	assert.ErrorIs(t, CheckOnetimeCompletion(w, task, []OnetimeRecord{{TaskID: "signup"}}), ErrAlreadyCompleted)

	late := openWindow(day(time.January, 21))
	assert.ErrorIs(t, CheckOnetimeCompletion(late, task, nil), ErrDeadlinePassed)

	ended := openWindow(day(time.February, 2))
	assert.ErrorIs(t, CheckOnetimeCompletion(ended, Task{ID: "x", Type: TypeBoolean, Frequency: FrequencyOnetime}, nil), ErrChallengeEnded)

	assert.ErrorIs(t, CheckOnetimeCompletion(w, Task{ID: "d", Type: TypeBoolean}, nil), ErrWrongFrequency)
}

func TestIsLate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	entry := day(time.January, 10)
	sameEvening := time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC) // 22:00 on the 10th in New York
	nextMorning := time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC)

	assert.False(t, IsLate(entry, sameEvening, ny))
	assert.True(t, IsLate(entry, sameEvening, time.UTC))
	assert.True(t, IsLate(entry, nextMorning, ny))
}

func TestAggregate_RecomputesFromScratch(t *testing.T) {
	daily := []DailyRecord{
		{Date: day(time.January, 1), PointsEarned: 10, BonusPoints: 2},
		{Date: day(time.January, 2), PointsEarned: 5},
	}
	onetime := []OnetimeRecord{{TaskID: "signup", PointsEarned: 25}}
	periodic := []PeriodicRecord{
		{TaskID: "long-run", PeriodStart: day(time.January, 1), PointsEarned: 20},
		{TaskID: "long-run", PeriodStart: day(time.January, 8), PointsEarned: 20},
	}

	total := Aggregate(daily, onetime, periodic)
	assert.Equal(t, Totals{DailyPoints: 15, BonusPoints: 2, OnetimePoints: 25, PeriodicPoints: 40, TotalPoints: 82}, total)

	// Undo then redo the second periodic completion.
	afterUndo := Aggregate(daily, onetime, periodic[:1])
	assert.Equal(t, 62, afterUndo.TotalPoints)
	redone := append(append([]PeriodicRecord(nil), periodic[:1]...), periodic[1])
	assert.Equal(t, total, Aggregate(daily, onetime, redone))

	reordered := []PeriodicRecord{periodic[1], periodic[0]}
	assert.Equal(t, total, Aggregate([]DailyRecord{daily[1], daily[0]}, onetime, reordered))

	assert.Equal(t, Totals{}, Aggregate(nil, nil, nil))
}
