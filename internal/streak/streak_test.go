package streak

import (
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func d(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.January, Day: day}
}

func exampleEntries() []Day {
	return []Day{
		{Date: d(1), Completed: true},
		{Date: d(2), Completed: true},
		{Date: d(3), Completed: true},
		{Date: d(4), Completed: true},
		{Date: d(5), Completed: true},
		{Date: d(6), Completed: false},
		{Date: d(7), Completed: true},
	}
}

func TestCalculateDisplayStreak_Examples(t *testing.T) {
	entries := exampleEntries()
	assert.Equal(t, 1, CalculateDisplayStreak(entries, d(7)))
	assert.Equal(t, 5, CalculateDisplayStreak(entries, d(5)))
	assert.Equal(t, 0, CalculateDisplayStreak(entries, d(6)))
	assert.Equal(t, 0, CalculateDisplayStreak(entries, d(8)))
}

func TestCalculateDisplayStreak_Empty(t *testing.T) {
	assert.Equal(t, 0, CalculateDisplayStreak(nil, d(1)))
	assert.Equal(t, 0, CalculateDisplayStreak([]Day{}, d(1)))
}

func TestCalculateDisplayStreak_OrderIndependent(t *testing.T) {
	entries := exampleEntries()
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]Day(nil), entries...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, 5, CalculateDisplayStreak(shuffled, d(5)))
		assert.Equal(t, 1, CalculateDisplayStreak(shuffled, d(7)))
		assert.Equal(t, 5, Longest(shuffled))
	}
}

func TestCalculateDisplayStreak_AcrossMonthBoundary(t *testing.T) {
	entries := []Day{
		{Date: civil.Date{Year: 2024, Month: time.February, Day: 28}, Completed: true},
		{Date: civil.Date{Year: 2024, Month: time.February, Day: 29}, Completed: true},
		{Date: civil.Date{Year: 2024, Month: time.March, Day: 1}, Completed: true},
	}
	assert.Equal(t, 3, CalculateDisplayStreak(entries, civil.Date{Year: 2024, Month: time.March, Day: 1}))
}

func TestCalculateDisplayStreak_DuplicatesDoNotInflate(t *testing.T) {
	entries := []Day{
		{Date: d(1), Completed: true},
		{Date: d(2), Completed: true},
		{Date: d(2), Completed: true},
		{Date: d(2), Completed: false},
	}
	assert.Equal(t, 2, CalculateDisplayStreak(entries, d(2)))
}

func TestLongest(t *testing.T) {
	assert.Equal(t, 0, Longest(nil))
	assert.Equal(t, 0, Longest([]Day{{Date: d(1)}}))
	assert.Equal(t, 1, Longest([]Day{{Date: d(1), Completed: true}, {Date: d(3), Completed: true}}))
	assert.Equal(t, 5, Longest(exampleEntries()))
}

func TestCalculate(t *testing.T) {
	s := Calculate(exampleEntries(), d(9))
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 5, s.LongestStreak)
	if assert.NotNil(t, s.LastCompleted) {
		assert.Equal(t, d(7), *s.LastCompleted)
	}
}
