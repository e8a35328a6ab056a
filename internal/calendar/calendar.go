// Package calendar is the boundary to the external calendar that stores reservations.
// One calendar (partition) holds every reservation of one dumpster size.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dumpster-booking/internal/dates"
)

var (
	ErrNotFound       = errors.New("calendar event not found")
	ErrMalformedEvent = errors.New("malformed calendar event")
)

// StatusCancelled is the calendar's own status for removed events.
const StatusCancelled = "cancelled"

// EventTime is either an all-day date or a timestamp.
type EventTime struct {
	Date     string // YYYY-MM-DD, all-day events
	DateTime string // RFC 3339
}

func AllDay(d dates.Date) EventTime {
	return EventTime{Date: d.String()}
}

// CalendarDate resolves the time to a calendar date.
func (t EventTime) CalendarDate() (dates.Date, error) {
	switch {
	case t.Date != "":
		d, err := dates.Parse(t.Date)
		if err != nil || d.String() != t.Date {
			return dates.Date{}, fmt.Errorf("%w: bad date %q", ErrMalformedEvent, t.Date)
		}
		return d, nil
	case t.DateTime != "":
		d, err := dates.Parse(t.DateTime)
		if err != nil {
			return dates.Date{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedEvent, t.DateTime)
		}
		return d, nil
	}
	return dates.Date{}, fmt.Errorf("%w: missing date", ErrMalformedEvent)
}

type Event struct {
	ID          string
	Summary     string
	Description string
	Status      string
	Start       EventTime
	End         EventTime
}

// Window resolves the event's half-open date range. Both ends must resolve and the
// range must cover at least one day.
func (e Event) Window() (dates.Window, error) {
	start, err := e.Start.CalendarDate()
	if err != nil {
		return dates.Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := e.End.CalendarDate()
	if err != nil {
		return dates.Window{}, fmt.Errorf("end: %w", err)
	}
	w := dates.Window{Start: start, End: end}
	if !w.Valid() {
		return dates.Window{}, fmt.Errorf("%w: end %s is not after start %s", ErrMalformedEvent, end, start)
	}
	return w, nil
}

func (e Event) Cancelled() bool {
	return e.Status == StatusCancelled
}

// Patch holds the fields a status transition rewrites.
type Patch struct {
	Summary     string
	Description string
}

// Service is the subset of calendar operations the booking engine needs. Calls are
// synchronous and never retried here.
type Service interface {
	// List returns events intersecting [from, to).
	List(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)
	Get(ctx context.Context, calendarID, eventID string) (*Event, error)
	Insert(ctx context.Context, calendarID string, ev Event) (*Event, error)
	Patch(ctx context.Context, calendarID, eventID string, p Patch) (*Event, error)
	// Delete returns ErrNotFound when the event is already gone.
	Delete(ctx context.Context, calendarID, eventID string) error
}
