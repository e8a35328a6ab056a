package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"dumpster-booking/internal/calendar"
	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/jwt"
	"dumpster-booking/internal/notify"
	"dumpster-booking/internal/reservation"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

// ParseAction is case-insensitive and defaults to approve.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case "", ActionApprove:
		return ActionApprove, true
	case ActionDecline:
		return ActionDecline, true
	}
	return "", false
}

type OutcomeStatus string

const (
	OutcomeApproved OutcomeStatus = "approved"
	OutcomeDeclined OutcomeStatus = "declined"
	OutcomeInvalid  OutcomeStatus = "invalid"
	OutcomeError    OutcomeStatus = "error"
)

// Outcome is what the operator sees after following an approval link.
type Outcome struct {
	Status OutcomeStatus
	Name   string
	Size   string
	Range  string

	// Changed is false when the link had already been used.
	Changed      bool
	Notification Delivery
}

// Transitions applies approve and decline links to calendar holds.
type Transitions struct {
	cal      calendar.Service
	signer   *jwt.Signer
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewTransitions(cal calendar.Service, signer *jwt.Signer, notifier *notify.Notifier) *Transitions {
	return &Transitions{
		cal:      cal,
		signer:   signer,
		notifier: notifier,
		logger:   slog.With("component", "transition"),
	}
}

// Handle verifies token and applies action. It never returns an error: every
// failure is folded into the outcome status and logged.
func (t *Transitions) Handle(ctx context.Context, token, action string) Outcome {
	act, ok := ParseAction(action)
	if !ok {
		t.logger.Info("Unknown approval action", "action", action)
		return Outcome{Status: OutcomeInvalid}
	}

	p, err := t.signer.Verify(token)
	if err != nil {
		return Outcome{Status: OutcomeInvalid}
	}

	w := dates.Window{Start: dates.FromTime(p.Start.UTC()), End: dates.FromTime(p.End.UTC())}
	out := Outcome{Name: p.CustomerName, Range: w.Display()}
	logger := t.logger.With("event_id", p.EventID, "action", act)

	if act == ActionDecline {
		return t.decline(ctx, p, out, logger)
	}
	return t.approve(ctx, p, out, logger)
}

func (t *Transitions) approve(ctx context.Context, p *jwt.Payload, out Outcome, logger *slog.Logger) Outcome {
	ev, err := t.cal.Get(ctx, p.CalendarID, p.EventID)
	if err != nil {
		logger.Error("Failed to read reservation", "error", err)
		return Outcome{Status: OutcomeError}
	}
	if tier, ok := reservation.TierFromTitle(ev.Summary); ok {
		out.Size = string(tier)
	}

	if reservation.IsConfirmed(ev.Summary, ev.Description) {
		logger.Info("Reservation already confirmed")
		out.Status = OutcomeApproved
		return out
	}

	summary, description := reservation.Confirm(ev.Summary, ev.Description)
	if _, err := t.cal.Patch(ctx, p.CalendarID, p.EventID, calendar.Patch{Summary: summary, Description: description}); err != nil {
		logger.Error("Failed to confirm reservation", "error", err)
		return Outcome{Status: OutcomeError}
	}
	logger.Info("Reservation confirmed")
	out.Status = OutcomeApproved
	out.Changed = true

	out.Notification = t.deliver(logger, t.notifier.Approved(ctx, t.decision(p, out)))
	return out
}

func (t *Transitions) decline(ctx context.Context, p *jwt.Payload, out Outcome, logger *slog.Logger) Outcome {
	// Read the size before the event disappears. Missing is fine here.
	if ev, err := t.cal.Get(ctx, p.CalendarID, p.EventID); err == nil {
		if tier, ok := reservation.TierFromTitle(ev.Summary); ok {
			out.Size = string(tier)
		}
	}

	err := t.cal.Delete(ctx, p.CalendarID, p.EventID)
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		logger.Info("Reservation already removed")
		out.Status = OutcomeDeclined
		return out
	case err != nil:
		logger.Error("Failed to delete reservation", "error", err)
		return Outcome{Status: OutcomeError}
	}
	logger.Info("Reservation declined")
	out.Status = OutcomeDeclined
	out.Changed = true

	out.Notification = t.deliver(logger, t.notifier.Declined(ctx, t.decision(p, out)))
	return out
}

func (t *Transitions) decision(p *jwt.Payload, out Outcome) notify.Decision {
	return notify.Decision{Name: p.CustomerName, Email: p.CustomerEmail, Size: out.Size, Range: out.Range}
}

func (t *Transitions) deliver(logger *slog.Logger, err error) Delivery {
	if err != nil {
		logger.Warn("Customer was not notified", "error", err)
		return Delivery{Err: err}
	}
	return Delivery{Sent: true}
}
