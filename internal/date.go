package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time of day. The zero value means "not set".
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate returns the given calendar date
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today returns the current local calendar date
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Before(o Date) bool {
	return d.t.Before(o.t)
}

func (d Date) After(o Date) bool {
	return d.t.After(o.t)
}

func (d Date) Equal(o Date) bool {
	return d.t.Equal(o.t)
}

// AddDays moves the date n calendar days (negative n goes backwards)
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// API payloads sometimes carry full timestamps where a date is expected
	if len(s) > len(dateLayout) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ResolveInterval turns command-line range flags into an interval. to defaults
// to today; from defaults to days-1 days before to.
func ResolveInterval(from, to string, days int, today Date) (DateInterval, error) {
	end := today
	if to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return DateInterval{}, err
		}
		end = d
	}

	var start Date
	if from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return DateInterval{}, err
		}
		start = d
	} else {
		if days < 1 {
			return DateInterval{}, fmt.Errorf("days must be at least 1, got %d", days)
		}
		start = end.AddDays(-(days - 1))
	}

	return NewDateInterval(start, end)
}
