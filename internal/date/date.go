// Package date provides a calendar-date type with no time-of-day component.
//
// All day-offset arithmetic in the notification scheduler goes through this
// type. Dates are pinned to UTC midnight internally, so subtracting two dates
// always yields a whole number of days regardless of the host timezone or
// DST transitions.
package date

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire format for dates (ISO 8601 date, no time).
const Layout = "2006-01-02"

// Date is a calendar date (year, month, day) with no time or zone.
// The zero Date is invalid; use IsZero to detect it.
type Date struct {
	t time.Time // always midnight UTC
}

// New builds a Date from year/month/day. Out-of-range components are
// normalized the same way time.Date normalizes them.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of truncates an instant to its calendar date in the given location.
// A nil loc means the instant's own location.
func Of(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return New(y, m, d)
}

// Today returns the current calendar date in loc (time.Local if nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Of(time.Now(), loc)
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, errors.New("empty date")
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParse is Parse that panics on error, for constants in tests.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	return d.t.Format(Layout)
}

// AddDays returns the date n calendar days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the whole number of calendar days from d to other
// (positive when other is in the future relative to d).
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Time returns the date as midnight UTC, for interoperating with
// time-based APIs (ICS ranges, RRULE windows).
func (d Date) Time() time.Time { return d.t }

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string. An empty string decodes
// to the zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
