// Package civildate converts between stored instants, calendar dates and
// caller supplied IANA time zones. Every other piece of the challenge logic
// works on civil.Date values produced here.
package civildate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the YYYY-MM-DD wire format of a civil date.
const Layout = "2006-01-02"

var ErrMissingTimezone = errors.New("timezone is required")

// LoadLocation resolves an IANA zone name. An empty name is an error: callers
// must say which zone they mean instead of inheriting the server's.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, ErrMissingTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Today returns the current calendar date in tz, falling back to UTC when the
// zone cannot be resolved.
func Today(tz string) civil.Date {
	loc, err := LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return TodayAt(time.Now(), loc)
}

// TodayAt is Today for an explicit clock reading.
func TodayAt(now time.Time, loc *time.Location) civil.Date {
	return ToCivilDate(now, loc)
}

// ToCivilDate returns the calendar date t falls on in loc. It never truncates
// the UTC date, which would put late-evening entries on the following day.
func ToCivilDate(t time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}

// TimestampToCivilDate parses an ISO-8601 timestamp and converts it with
// ToCivilDate.
func TimestampToCivilDate(ts, tz string) (civil.Date, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return civil.Date{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(ts))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return ToCivilDate(t, loc), nil
}

// ParseCivilDate parses YYYY-MM-DD.
func ParseCivilDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// Midnight returns the zone-less midnight instant for d. UTC only carries the
// value; it is never used to reinterpret the date.
func Midnight(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// FromDBDate reads a Postgres DATE column, which pgx hands back as midnight
// UTC.
func FromDBDate(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

// FromDBDatePtr is FromDBDate for nullable columns.
func FromDBDatePtr(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := FromDBDate(*t)
	return &d
}

// DaysBetween returns b - a in days, positive when b is later.
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

// Weekday returns the day of week of d.
func Weekday(d civil.Date) time.Weekday {
	return Midnight(d).Weekday()
}

// MaxDate returns the later of a and b.
func MaxDate(a, b civil.Date) civil.Date {
	if a.After(b) {
		return a
	}
	return b
}
