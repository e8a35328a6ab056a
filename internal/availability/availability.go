// Package availability answers whether a dumpster tier has a free unit for a date
// window, using the tier's calendar as the only source of truth.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dumpster-booking/internal/calendar"
	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/reservation"
)

// Skip reasons reported for events that do not count against capacity.
const (
	SkipMalformed = "malformed dates"
	SkipUntagged  = "no status tag"
)

// Skipped is an event the engine ignored. Operators should look at these: a hold
// that lost its tag or dates no longer blocks the calendar.
type Skipped struct {
	EventID string `json:"eventId"`
	Summary string `json:"summary"`
	Reason  string `json:"reason"`
}

// Report is the day-by-day availability of one tier.
type Report struct {
	Size         inventory.Tier `json:"size"`
	DurationDays int            `json:"durationDays"`
	Days         int            `json:"days"`
	Available    []dates.Date   `json:"available"`
	Unavailable  []dates.Date   `json:"unavailable"`
	Skipped      []Skipped      `json:"-"`
}

// Reservation is an active hold decoded from the calendar.
type Reservation struct {
	EventID string
	Record  reservation.Record
}

type Engine struct {
	cal    calendar.Service
	policy *inventory.Policy
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func New(cal calendar.Service, policy *inventory.Policy, opts ...Option) *Engine {
	e := &Engine{
		cal:    cal,
		policy: policy,
		loc:    time.UTC,
		now:    time.Now,
		logger: slog.With("component", "availability"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current calendar date in the business time zone.
func (e *Engine) Today() dates.Date {
	return dates.Today(e.loc, e.now())
}

// Decide reports whether one more reservation fits in w.
func (e *Engine) Decide(ctx context.Context, tier inventory.Tier, w dates.Window) (bool, error) {
	unit, err := e.policy.Unit(tier)
	if err != nil {
		return false, err
	}

	active, _, err := e.activeWindows(ctx, unit, w.Start.AddDays(-inventory.MaxDuration), w.End)
	if err != nil {
		return false, err
	}
	return countOverlaps(active, w) < unit.Cap, nil
}

// Query evaluates every start date in [today, today+horizon) for the given duration.
// One calendar read covers the whole horizon.
func (e *Engine) Query(ctx context.Context, tier inventory.Tier, duration, horizon int) (*Report, error) {
	unit, err := e.policy.Unit(tier)
	if err != nil {
		return nil, err
	}

	today := e.Today()
	from := today.AddDays(-inventory.MaxDuration)
	to := today.AddDays(horizon + duration)

	active, skipped, err := e.activeWindows(ctx, unit, from, to)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Size:         unit.Tier,
		DurationDays: duration,
		Days:         horizon,
		Available:    []dates.Date{},
		Unavailable:  []dates.Date{},
		Skipped:      skipped,
	}
	for i := 0; i < horizon; i++ {
		start := today.AddDays(i)
		if countOverlaps(active, dates.NewWindow(start, duration)) < unit.Cap {
			report.Available = append(report.Available, start)
		} else {
			report.Unavailable = append(report.Unavailable, start)
		}
	}
	return report, nil
}

// Reservations lists the active holds of a tier intersecting [from, to).
func (e *Engine) Reservations(ctx context.Context, tier inventory.Tier, from, to dates.Date) ([]Reservation, []Skipped, error) {
	unit, err := e.policy.Unit(tier)
	if err != nil {
		return nil, nil, err
	}

	events, err := e.cal.List(ctx, unit.CalendarID, from.Time(), to.Time())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list %s reservations: %w", unit.Tier, err)
	}

	var out []Reservation
	var skipped []Skipped
	for _, ev := range events {
		w, ok := e.classify(ev, &skipped)
		if !ok {
			continue
		}
		rec := reservation.Parse(ev.Summary, ev.Description)
		rec.Window = w
		if rec.Tier == "" {
			rec.Tier = unit.Tier
		}
		out = append(out, Reservation{EventID: ev.ID, Record: rec})
	}
	return out, skipped, nil
}

// activeWindows lists the calendar over [from, to) and keeps the windows of active,
// well-formed holds. Everything else is reported as skipped, never counted.
func (e *Engine) activeWindows(ctx context.Context, unit inventory.Unit, from, to dates.Date) ([]dates.Window, []Skipped, error) {
	events, err := e.cal.List(ctx, unit.CalendarID, from.Time(), to.Time())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list %s reservations: %w", unit.Tier, err)
	}

	var windows []dates.Window
	var skipped []Skipped
	for _, ev := range events {
		if w, ok := e.classify(ev, &skipped); ok {
			windows = append(windows, w)
		}
	}
	return windows, skipped, nil
}

func (e *Engine) classify(ev calendar.Event, skipped *[]Skipped) (dates.Window, bool) {
	if ev.Cancelled() {
		return dates.Window{}, false
	}

	status := reservation.DecodeStatus(ev.Summary, ev.Description)
	if !status.Active() {
		if status == reservation.StatusUnknown {
			e.skip(ev, SkipUntagged, skipped)
		}
		return dates.Window{}, false
	}

	w, err := ev.Window()
	if err != nil {
		e.skip(ev, SkipMalformed, skipped)
		return dates.Window{}, false
	}
	return w, true
}

func (e *Engine) skip(ev calendar.Event, reason string, skipped *[]Skipped) {
	e.logger.Warn("Ignoring calendar event", "event_id", ev.ID, "summary", ev.Summary, "reason", reason)
	*skipped = append(*skipped, Skipped{EventID: ev.ID, Summary: ev.Summary, Reason: reason})
}

func countOverlaps(active []dates.Window, w dates.Window) int {
	n := 0
	for _, a := range active {
		if a.Overlaps(w) {
			n++
		}
	}
	return n
}
