// Package scoring turns task submissions into points and decides which
// completions a participant may record.
package scoring

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

type TaskType string

const (
	TypeBoolean  TaskType = "boolean"
	TypeNumber   TaskType = "number"
	TypeDuration TaskType = "duration"
	TypeChoice   TaskType = "choice"
	TypeText     TaskType = "text"
	TypeFile     TaskType = "file"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyOnetime Frequency = "onetime"
)

type ScoringMode string

const (
	ModeBinary ScoringMode = "binary"
	ModeScaled ScoringMode = "scaled"
	ModeTiered ScoringMode = "tiered"
)

type ThresholdType string

const (
	ThresholdMin ThresholdType = "min"
	ThresholdMax ThresholdType = "max"
)

type Tier struct {
	Threshold float64 `json:"threshold" validate:"gte=0"`
	Points    int     `json:"points" validate:"gte=0,lte=10000"`
}

// Task is one metric of a challenge. Challenges store them as a JSON array.
type Task struct {
	ID            string        `json:"id" validate:"required,max=64"`
	Name          string        `json:"name" validate:"required,max=120"`
	Description   string        `json:"description,omitempty" validate:"max=500"`
	Type          TaskType      `json:"type" validate:"required,oneof=boolean number duration choice text file"`
	Frequency     Frequency     `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly onetime"`
	Points        int           `json:"points" validate:"gte=0,lte=10000"`
	Optional      bool          `json:"optional,omitempty"`
	ScoringMode   ScoringMode   `json:"scoring_mode,omitempty" validate:"omitempty,oneof=binary scaled tiered"`
	Threshold     *float64      `json:"threshold,omitempty"`
	ThresholdType ThresholdType `json:"threshold_type,omitempty" validate:"omitempty,oneof=min max"`
	Tiers         []Tier        `json:"tiers,omitempty" validate:"omitempty,max=20,dive"`
	Options       []string      `json:"options,omitempty" validate:"omitempty,max=50"`
	Unit          string        `json:"unit,omitempty" validate:"max=32"`
	Deadline      *civil.Date   `json:"deadline,omitempty"`
}

// EffectiveFrequency defaults an unset frequency to daily.
func (t Task) EffectiveFrequency() Frequency {
	if t.Frequency == "" {
		return FrequencyDaily
	}
	return t.Frequency
}

func (t Task) effectiveThresholdType() ThresholdType {
	if t.ThresholdType == ThresholdMax {
		return ThresholdMax
	}
	return ThresholdMin
}

func (t Task) isNumeric() bool {
	return t.Type == TypeNumber || t.Type == TypeDuration
}

// IsPeriodic reports whether completions are bucketed into weeks or months.
func (t Task) IsPeriodic() bool {
	f := t.EffectiveFrequency()
	return f == FrequencyWeekly || f == FrequencyMonthly
}

var ErrInvalidTask = errors.New("invalid task")

// ValidateTasks checks the cross-field rules struct tags cannot express.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidTask, t.ID)
		}
		seen[t.ID] = struct{}{}

		if t.Deadline != nil && t.EffectiveFrequency() != FrequencyOnetime {
			return fmt.Errorf("%w: %q: only one-time tasks can have a deadline", ErrInvalidTask, t.ID)
		}
		if t.Type == TypeChoice && len(t.Options) == 0 {
			return fmt.Errorf("%w: %q: choice tasks need options", ErrInvalidTask, t.ID)
		}
		if t.ScoringMode == "" || !t.isNumeric() {
			continue
		}
		switch t.ScoringMode {
		case ModeTiered:
			if len(t.Tiers) == 0 {
				return fmt.Errorf("%w: %q: tiered scoring needs tiers", ErrInvalidTask, t.ID)
			}
		case ModeBinary, ModeScaled:
			if t.Threshold == nil {
				return fmt.Errorf("%w: %q: %s scoring needs a threshold", ErrInvalidTask, t.ID, t.ScoringMode)
			}
		}
	}
	return nil
}
