// Package dates implements calendar-date arithmetic for rental windows.
//
// A Date has no time of day and no zone: it is stored as UTC midnight so adding days
// never crosses a DST boundary. Windows are half-open, [Start, End).
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Layout is the wire format of a calendar date.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

var reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Date struct {
	t time.Time
}

func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Parse accepts YYYY-MM-DD as is; any other value is read as an RFC 3339
// timestamp and truncated to its UTC calendar date.
func Parse(value string) (Date, error) {
	if reDateOnly.MatchString(value) {
		t, err := time.Parse(Layout, value)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
		return Date{t: t}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return FromTime(t.UTC()), nil
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Today returns the calendar date of now as seen from loc.
func Today(loc *time.Location, now time.Time) Date {
	return FromTime(now.In(loc))
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) IsZero() bool       { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// DaysUntil returns the number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share a day.
// Touching ranges (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Window is a half-open rental period.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewWindow(start Date, days int) Window {
	return Window{Start: start, End: start.AddDays(days)}
}

func (w Window) Overlaps(o Window) bool {
	return Overlaps(w.Start, w.End, o.Start, o.End)
}

func (w Window) Days() int {
	return w.Start.DaysUntil(w.End)
}

// Valid reports whether the window covers at least one day.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.Start.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

// Display formats the window with an inclusive last day, as people read it.
func (w Window) Display() string {
	if !w.Valid() {
		return fmt.Sprintf("%s to %s", w.Start, w.End)
	}
	return fmt.Sprintf("%s to %s", w.Start, w.End.AddDays(-1))
}
