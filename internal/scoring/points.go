package scoring

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Bonus is the extra reward for a day on which every required daily task was
// completed.
type Bonus struct {
	Enabled bool `json:"enabled"`
	Points  int  `json:"points"`
}

type DailyScore struct {
	PointsEarned int            `json:"points_earned"`
	BonusPoints  int            `json:"bonus_points"`
	IsCompleted  bool           `json:"is_completed"`
	TaskPoints   map[string]int `json:"task_points"`
}

// CalculateMetricPoints scores a single submitted value against task. The
// result is never negative and never exceeds the task's reward (or its best
// tier for tiered tasks).
func CalculateMetricPoints(task Task, value any) int {
	if task.Type == TypeBoolean {
		if truthy(value) {
			return max(task.Points, 0)
		}
		return 0
	}

	if !task.isNumeric() || task.ScoringMode == "" {
		if IsProvided(value) {
			return max(task.Points, 0)
		}
		return 0
	}

	v, ok := numericValue(value)
	if !ok {
		return 0
	}

	switch task.ScoringMode {
	case ModeBinary:
		if task.Threshold == nil || meets(task.effectiveThresholdType(), v, *task.Threshold) {
			return max(task.Points, 0)
		}
		return 0
	case ModeScaled:
		return scaledPoints(task, v)
	case ModeTiered:
		return tieredPoints(task, v)
	}
	return 0
}

func meets(tt ThresholdType, value, threshold float64) bool {
	if tt == ThresholdMax {
		return value <= threshold
	}
	return value >= threshold
}

// scaledPoints interpolates linearly towards the threshold. For min tasks the
// reward grows with the value until it reaches the threshold; for max tasks
// the full reward holds up to the threshold and shrinks as threshold/value
// beyond it.
func scaledPoints(task Task, v float64) int {
	points := float64(max(task.Points, 0))
	if task.Threshold == nil {
		return int(points)
	}
	threshold := *task.Threshold

	var ratio float64
	if task.effectiveThresholdType() == ThresholdMax {
		switch {
		case v <= threshold:
			ratio = 1
		case threshold <= 0:
			ratio = 0
		default:
			ratio = threshold / v
		}
	} else {
		switch {
		case threshold <= 0 || v >= threshold:
			ratio = 1
		case v <= 0:
			ratio = 0
		default:
			ratio = v / threshold
		}
	}
	return int(math.Floor(points * ratio))
}

func tieredPoints(task Task, v float64) int {
	tiers := append([]Tier(nil), task.Tiers...)
	tt := task.effectiveThresholdType()
	if tt == ThresholdMax {
		sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Threshold < tiers[j].Threshold })
	} else {
		sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Threshold > tiers[j].Threshold })
	}
	for _, tier := range tiers {
		if meets(tt, v, tier.Threshold) {
			return max(tier.Points, 0)
		}
	}
	return 0
}

// IsTaskCompleted decides whether value counts as doing the task for the
// purpose of a day's completion flag.
func IsTaskCompleted(task Task, value any) bool {
	if task.Type == TypeBoolean {
		return truthy(value)
	}
	if !IsProvided(value) {
		return false
	}
	if !task.isNumeric() {
		return true
	}
	v, ok := numericValue(value)
	if !ok {
		return false
	}
	switch task.ScoringMode {
	case ModeBinary:
		return task.Threshold == nil || meets(task.effectiveThresholdType(), v, *task.Threshold)
	case ModeTiered:
		return tieredPoints(task, v) > 0
	}
	return true
}

// ScoreDailyEntry scores the daily tasks of one submission. Non-daily tasks in
// tasks are ignored. The day counts as completed when every non-optional daily
// task is completed.
func ScoreDailyEntry(tasks []Task, values map[string]any, bonus Bonus) DailyScore {
	score := DailyScore{TaskPoints: make(map[string]int)}

	daily := 0
	allDone := true
	for _, t := range tasks {
		if t.EffectiveFrequency() != FrequencyDaily {
			continue
		}
		daily++
		value := values[t.ID]
		pts := CalculateMetricPoints(t, value)
		score.TaskPoints[t.ID] = pts
		score.PointsEarned += pts
		if !t.Optional && !IsTaskCompleted(t, value) {
			allDone = false
		}
	}

	score.IsCompleted = daily > 0 && allDone
	if score.IsCompleted && bonus.Enabled && bonus.Points > 0 {
		score.BonusPoints = bonus.Points
	}
	return score
}

// IsProvided reports whether a submitted value carries anything.
func IsProvided(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	if n, ok := numericValue(value); ok {
		return n != 0
	}
	return false
}

// numericValue reads numbers as decoded from JSON, plus "H:MM" / "H:MM:SS"
// duration strings which become minutes.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if strings.Contains(s, ":") {
			return durationMinutes(s)
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func durationMinutes(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var nums []int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		nums = append(nums, n)
	}
	minutes := float64(nums[0]*60 + nums[1])
	if len(nums) == 3 {
		minutes += float64(nums[2]) / 60
	}
	return minutes, true
}
