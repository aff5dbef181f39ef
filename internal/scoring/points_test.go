package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestCalculateMetricPoints_Tiered(t *testing.T) {
	task := Task{
		ID: "pages", Type: TypeNumber, Points: 10,
		ScoringMode: ModeTiered, ThresholdType: ThresholdMin,
		Tiers: []Tier{{Threshold: 10, Points: 5}, {Threshold: 20, Points: 10}},
	}

	assert.Equal(t, 5, CalculateMetricPoints(task, 15.0))
	assert.Equal(t, 10, CalculateMetricPoints(task, 25.0))
	assert.Equal(t, 0, CalculateMetricPoints(task, 5.0))
	assert.Equal(t, 10, CalculateMetricPoints(task, 20.0))
}

func TestCalculateMetricPoints_TieredMax(t *testing.T) {
	task := Task{
		ID: "screen", Type: TypeDuration, ScoringMode: ModeTiered, ThresholdType: ThresholdMax,
		Tiers: []Tier{{Threshold: 120, Points: 2}, {Threshold: 30, Points: 10}, {Threshold: 60, Points: 5}},
	}

	assert.Equal(t, 10, CalculateMetricPoints(task, 20.0))
	assert.Equal(t, 5, CalculateMetricPoints(task, 45.0))
	assert.Equal(t, 2, CalculateMetricPoints(task, "1:30"))
	assert.Equal(t, 0, CalculateMetricPoints(task, 200.0))
}

func TestCalculateMetricPoints_Boolean(t *testing.T) {
	task := Task{ID: "meditate", Type: TypeBoolean, Points: 3}
	assert.Equal(t, 3, CalculateMetricPoints(task, true))
	assert.Equal(t, 0, CalculateMetricPoints(task, false))
	assert.Equal(t, 0, CalculateMetricPoints(task, nil))
	assert.Equal(t, 3, CalculateMetricPoints(task, "true"))
}

func TestCalculateMetricPoints_Binary(t *testing.T) {
	minTask := Task{ID: "steps", Type: TypeNumber, Points: 4, ScoringMode: ModeBinary, Threshold: ptr(10000)}
	assert.Equal(t, 4, CalculateMetricPoints(minTask, 10000.0))
	assert.Equal(t, 0, CalculateMetricPoints(minTask, 9999.0))
	assert.Equal(t, 4, CalculateMetricPoints(minTask, json.Number("12000")))
	assert.Equal(t, 0, CalculateMetricPoints(minTask, "lots"))

	maxTask := minTask
	maxTask.ThresholdType = ThresholdMax
	maxTask.Threshold = ptr(2)
	assert.Equal(t, 4, CalculateMetricPoints(maxTask, 2.0))
	assert.Equal(t, 0, CalculateMetricPoints(maxTask, 3.0))
}

func TestCalculateMetricPoints_ScaledIsMonotonicAndCapped(t *testing.T) {
	task := Task{ID: "run", Type: TypeNumber, Points: 10, ScoringMode: ModeScaled, Threshold: ptr(5)}

	assert.Equal(t, 0, CalculateMetricPoints(task, 0.0))
	assert.Equal(t, 0, CalculateMetricPoints(task, -3.0))
	assert.Equal(t, 5, CalculateMetricPoints(task, 2.5))
	assert.Equal(t, 10, CalculateMetricPoints(task, 5.0))
	assert.Equal(t, 10, CalculateMetricPoints(task, 50.0))

	prev := -1
	for v := 0.0; v <= 10; v += 0.25 {
		got := CalculateMetricPoints(task, v)
		assert.GreaterOrEqual(t, got, prev, "value %v", v)
		assert.LessOrEqual(t, got, task.Points)
		prev = got
	}

	maxTask := task
	maxTask.ThresholdType = ThresholdMax
	assert.Equal(t, 10, CalculateMetricPoints(maxTask, 4.0))
	assert.Equal(t, 5, CalculateMetricPoints(maxTask, 10.0))

	prev = task.Points + 1
	for v := 0.0; v <= 20; v += 0.5 {
		got := CalculateMetricPoints(maxTask, v)
		assert.LessOrEqual(t, got, prev, "value %v", v)
		prev = got
	}
}

func TestCalculateMetricPoints_PresenceScoring(t *testing.T) {
	text := Task{ID: "journal", Type: TypeText, Points: 2}
	assert.Equal(t, 2, CalculateMetricPoints(text, "felt good"))
	assert.Equal(t, 0, CalculateMetricPoints(text, "   "))

	number := Task{ID: "water", Type: TypeNumber, Points: 1}
	assert.Equal(t, 1, CalculateMetricPoints(number, 0.0))
	assert.Equal(t, 0, CalculateMetricPoints(number, nil))
}

func TestIsTaskCompleted(t *testing.T) {
	binary := Task{ID: "steps", Type: TypeNumber, Points: 4, ScoringMode: ModeBinary, Threshold: ptr(100)}
	assert.True(t, IsTaskCompleted(binary, 150.0))
	assert.False(t, IsTaskCompleted(binary, 50.0))
	assert.False(t, IsTaskCompleted(binary, nil))

	scaled := Task{ID: "run", Type: TypeNumber, Points: 10, ScoringMode: ModeScaled, Threshold: ptr(5)}
	assert.True(t, IsTaskCompleted(scaled, 1.0))

	choice := Task{ID: "mood", Type: TypeChoice, Options: []string{"good", "bad"}}
	assert.True(t, IsTaskCompleted(choice, "good"))
	assert.False(t, IsTaskCompleted(choice, ""))
}

func TestScoreDailyEntry(t *testing.T) {
	tasks := []Task{
		{ID: "read", Type: TypeBoolean, Points: 5},
		{ID: "pages", Type: TypeNumber, Points: 10, ScoringMode: ModeTiered, Tiers: []Tier{{Threshold: 10, Points: 5}, {Threshold: 20, Points: 10}}},
		{ID: "note", Type: TypeText, Points: 1, Optional: true},
		{ID: "long-run", Type: TypeNumber, Points: 50, Frequency: FrequencyWeekly},
	}
	bonus := Bonus{Enabled: true, Points: 3}

	full := ScoreDailyEntry(tasks, map[string]any{"read": true, "pages": 25.0, "long-run": 99.0}, bonus)
	assert.True(t, full.IsCompleted)
	assert.Equal(t, 15, full.PointsEarned)
	assert.Equal(t, 3, full.BonusPoints)
	assert.NotContains(t, full.TaskPoints, "long-run")

	partial := ScoreDailyEntry(tasks, map[string]any{"read": true, "pages": 5.0, "note": "x"}, bonus)
	assert.False(t, partial.IsCompleted)
	assert.Equal(t, 6, partial.PointsEarned)
	assert.Equal(t, 0, partial.BonusPoints)

	noBonus := ScoreDailyEntry(tasks, map[string]any{"read": true, "pages": 12.0}, Bonus{})
	assert.True(t, noBonus.IsCompleted)
	assert.Equal(t, 0, noBonus.BonusPoints)

	none := ScoreDailyEntry([]Task{{ID: "w", Type: TypeBoolean, Frequency: FrequencyWeekly}}, nil, bonus)
	assert.False(t, none.IsCompleted)
}

func TestValidateTasks(t *testing.T) {
	assert.NoError(t, ValidateTasks([]Task{
		{ID: "a", Type: TypeBoolean},
		{ID: "b", Type: TypeNumber, ScoringMode: ModeBinary, Threshold: ptr(1)},
	}))

	bad := [][]Task{
		{{ID: "a", Type: TypeBoolean}, {ID: "a", Type: TypeText}},
		{{ID: "t", Type: TypeNumber, ScoringMode: ModeTiered}},
		{{ID: "s", Type: TypeNumber, ScoringMode: ModeScaled}},
		{{ID: "c", Type: TypeChoice}},
		{{ID: "d", Type: TypeBoolean, Deadline: &civilDay}},
	}
	for _, tasks := range bad {
		assert.ErrorIs(t, ValidateTasks(tasks), ErrInvalidTask)
	}
}
