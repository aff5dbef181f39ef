package scoring

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var ErrNoPeriod = errors.New("frequency has no period")

// Period is the inclusive window a periodic completion is scoped to.
type Period struct {
	Start civil.Date `json:"period_start"`
	End   civil.Date `json:"period_end"`
}

func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// GetPeriodForDate buckets ref into its ISO week (Monday to Sunday) or
// calendar month. Daily tasks get a single-day period.
func GetPeriodForDate(freq Frequency, ref civil.Date) (Period, error) {
	if !ref.IsValid() {
		return Period{}, fmt.Errorf("invalid reference date %v", ref)
	}
	switch freq {
	case FrequencyDaily, "":
		return Period{Start: ref, End: ref}, nil
	case FrequencyWeekly:
		// time.Weekday counts from Sunday; shift so Monday is 0.
		offset := (int(ref.In(time.UTC).Weekday()) + 6) % 7
		start := ref.AddDays(-offset)
		return Period{Start: start, End: start.AddDays(6)}, nil
	case FrequencyMonthly:
		start := civil.Date{Year: ref.Year, Month: ref.Month, Day: 1}
		next := civil.DateOf(start.In(time.UTC).AddDate(0, 1, 0))
		return Period{Start: start, End: next.AddDays(-1)}, nil
	}
	return Period{}, fmt.Errorf("%w: %s", ErrNoPeriod, freq)
}
