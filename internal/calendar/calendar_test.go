package calendar

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gritfulAPI/internal/entry"
)

func TestBuildMonth(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.February, Day: 10}
	end := civil.Date{Year: 2024, Month: time.February, Day: 20}
	today := civil.Date{Year: 2024, Month: time.February, Day: 15}
	entries := []*entry.DailyEntry{
		{EntryDate: civil.Date{Year: 2024, Month: time.February, Day: 12}, IsCompleted: true, PointsEarned: 10, BonusPoints: 5, IsLate: true},
	}

	cal, err := BuildMonth(2024, 2, today, start, &end, entries)
	require.NoError(t, err)
	require.Len(t, cal.Days, 29)

	assert.False(t, cal.Days[8].InChallenge)
	assert.True(t, cal.Days[9].InChallenge)
	assert.True(t, cal.Days[19].InChallenge)
	assert.False(t, cal.Days[20].InChallenge)

	d12 := cal.Days[11]
	assert.True(t, d12.HasEntry)
	assert.True(t, d12.IsCompleted)
	assert.True(t, d12.IsLate)
	assert.Equal(t, 15, d12.Points)

	assert.True(t, cal.Days[14].IsToday)
	assert.False(t, cal.Days[13].IsToday)
}

func TestBuildMonthOpenEnded(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.January, Day: 1}
	cal, err := BuildMonth(2025, 4, start, start, nil, nil)
	require.NoError(t, err)
	assert.Len(t, cal.Days, 30)
	for _, d := range cal.Days {
		assert.True(t, d.InChallenge)
	}
}

func TestBuildMonthInvalid(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.January, Day: 1}
	_, err := BuildMonth(2024, 13, d, d, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = BuildMonth(2024, 0, d, d, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
