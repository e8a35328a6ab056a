package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"dumpster-booking/internal/availability"
	"dumpster-booking/internal/calendar"
	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/jwt"
	"dumpster-booking/internal/notify"
	"dumpster-booking/internal/reservation"
)

// Delivery records a best-effort email.
type Delivery struct {
	Sent bool
	Err  error
}

type CreateResult struct {
	Available   bool
	EventID     string
	Window      dates.Window
	CustomerAck Delivery
}

// Writer places tentative holds in the tier calendar and notifies both parties.
type Writer struct {
	engine   *availability.Engine
	cal      calendar.Service
	signer   *jwt.Signer
	notifier *notify.Notifier
	siteURL  string
	logger   *slog.Logger
}

func NewWriter(engine *availability.Engine, cal calendar.Service, signer *jwt.Signer, notifier *notify.Notifier, siteURL string) *Writer {
	return &Writer{
		engine:   engine,
		cal:      cal,
		signer:   signer,
		notifier: notifier,
		siteURL:  siteURL,
		logger:   slog.With("component", "writer"),
	}
}

// Create re-checks capacity and writes a REQUEST hold. Nothing is written when the
// window is full. A failed operator email is returned as ErrNotifyFailed; the hold
// stays in the calendar.
func (w *Writer) Create(ctx context.Context, b *Booking) (*CreateResult, error) {
	ok, err := w.engine.Decide(ctx, b.Tier(), b.Window)
	if err != nil {
		return nil, err
	}
	if !ok {
		w.logger.Info("Requested window is full", "size", b.Tier(), "window", b.Window.String())
		return &CreateResult{Available: false}, nil
	}

	rec := b.Record()
	ev, err := w.cal.Insert(ctx, b.Unit.CalendarID, calendar.Event{
		Summary:     rec.Title(),
		Description: rec.Body(),
		Start:       calendar.AllDay(b.Window.Start),
		End:         calendar.AllDay(b.Window.End),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	if ev == nil || ev.ID == "" {
		return nil, fmt.Errorf("%w: calendar returned no event id", ErrCreateFailed)
	}
	logger := w.logger.With("event_id", ev.ID, "size", b.Tier())
	logger.Info("Created reservation request", "window", b.Window.String())

	result := &CreateResult{Available: true, EventID: ev.ID, Window: b.Window}

	expires := w.signer.Expiry()
	token, err := w.signer.Issue(jwt.Payload{
		CalendarID:    b.Unit.CalendarID,
		EventID:       ev.ID,
		CustomerEmail: b.Contact.Email,
		CustomerName:  b.Contact.Name,
		Start:         b.Window.Start.Time(),
		End:           b.Window.End.Time(),
		ExpiresAt:     expires,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}
	approveURL, declineURL := ApprovalLinks(w.siteURL, token)

	msg := notify.Request{
		Size:         string(b.Tier()),
		Dimensions:   b.Unit.Dimensions,
		Name:         b.Contact.Name,
		Phone:        b.Contact.Phone,
		Email:        b.Contact.Email,
		Address:      b.Contact.Address,
		Notes:        b.Contact.Notes,
		Start:        b.Window.Start.String(),
		End:          b.Window.End.String(),
		Range:        b.Window.Display(),
		DurationDays: b.DurationDays,
		StandardDays: inventory.StandardDuration,
		OverageFee:   b.OverageFee,
		ApproveURL:   approveURL,
		DeclineURL:   declineURL,
		LinksExpire:  expires.Format("2006-01-02 15:04 MST"),
	}
	if err := w.notifier.OperatorRequest(ctx, msg); err != nil {
		logger.Error("Operator was not notified of request", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}

	if err := w.notifier.CustomerAck(ctx, msg); err != nil {
		logger.Warn("Customer acknowledgement failed", "error", err)
		result.CustomerAck = Delivery{Err: err}
	} else {
		result.CustomerAck = Delivery{Sent: true}
	}
	return result, nil
}

// Links are a fresh pair of approval URLs for an existing hold.
type Links struct {
	Approve string
	Decline string
	Expires time.Time
}

// Reissue signs new approve and decline links for a hold already in the calendar,
// for when the operator email was lost.
func (w *Writer) Reissue(ctx context.Context, unit inventory.Unit, eventID string) (*Links, error) {
	ev, err := w.cal.Get(ctx, unit.CalendarID, eventID)
	if err != nil {
		return nil, err
	}
	win, err := ev.Window()
	if err != nil {
		return nil, err
	}
	rec := reservation.Parse(ev.Summary, ev.Description)

	links := &Links{Expires: w.signer.Expiry()}
	token, err := w.signer.Issue(jwt.Payload{
		CalendarID:    unit.CalendarID,
		EventID:       ev.ID,
		CustomerEmail: rec.Contact.Email,
		CustomerName:  rec.Contact.Name,
		Start:         win.Start.Time(),
		End:           win.End.Time(),
		ExpiresAt:     links.Expires,
	})
	if err != nil {
		return nil, err
	}
	links.Approve, links.Decline = ApprovalLinks(w.siteURL, token)
	w.logger.Info("Reissued approval links", "event_id", ev.ID, "size", unit.Tier)
	return links, nil
}

// ApprovalLinks builds the approve and decline URLs for a token.
func ApprovalLinks(siteURL, token string) (approve, decline string) {
	base := strings.TrimRight(siteURL, "/") + "/api/approve?token=" + url.QueryEscape(token)
	return base, base + "&action=decline"
}
