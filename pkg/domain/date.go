package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used when a Date is written.
const DateFormat = "2006-01-02"

// readDateFormat is permissive and accepts single-digit months and days.
const readDateFormat = "2006-1-2"

// MonthLabelFormat renders the month a payment is booked against.
const MonthLabelFormat = "January 2006"

// Date is a calendar day with no time-of-day component.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.Time().Date()
	return d
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date { return NewDate(t.Date()) }

// ParseDate parses a Date, accepting "2025-7-1" as well as "2025-07-01".
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, DateFormat, err)
	}
	return NewDate(on.Date()), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.Time().After(x.Time()) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int { return d.Time().Compare(x.Time()) }

// String formats the date using DateFormat.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateFormat)
}

// MonthLabel renders the date as "January 2006".
func (d Date) MonthLabel() string { return d.Time().Format(MonthLabelFormat) }

// MarshalJSON writes the date as an ISO string; the zero date is written as "".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an ISO date string, an RFC 3339 timestamp, or "".
func (d *Date) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	if str == "" {
		*d = Date{}
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, str); err == nil {
		*d = DateOf(ts)
		return nil
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)

// DateRange is an inclusive span of days.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether day lies within the range, bounds included.
func (r DateRange) Contains(day Date) bool {
	return !day.Before(r.From) && !day.After(r.To)
}

// MonthRange returns the first and last calendar day of the month containing now.
func MonthRange(now time.Time) DateRange {
	y, m, _ := now.Date()
	first := NewDate(y, m, 1)
	last := NewDate(y, m+1, 0)
	return DateRange{From: first, To: last}
}
