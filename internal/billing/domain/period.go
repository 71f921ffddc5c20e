package billing

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is a billing month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a YYYY-MM label.
func ParsePeriod(label string) (Period, error) {
	if label == "" {
		return Period{}, ErrInvalidPeriod
	}
	t, err := time.Parse(periodLayout, label)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// Label returns the YYYY-MM form used for storage and display.
func (p Period) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start returns midnight of the first day of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodOf(p.Start(time.UTC).AddDate(0, 1, 0))
}

// DisplayName returns e.g. "January 2025".
func (p Period) DisplayName() string {
	return fmt.Sprintf("%s %d", p.Month.String(), p.Year)
}

func (p Period) String() string { return p.Label() }

// DateOf truncates t to midnight of its calendar day in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the whole calendar days from a to b (negative when b is before a).
// Only the calendar dates matter, so DST shifts in either location do not change the result.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
