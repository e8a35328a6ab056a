package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Events per page; the API maximum.
const listPageSize = 2500

// Google talks to Google Calendar with a service account.
type Google struct {
	svc    *gcal.Service
	logger *slog.Logger
}

// NewGoogle creates the adapter. Pass option.WithHTTPClient and option.WithEndpoint to
// point it somewhere else.
func NewGoogle(ctx context.Context, opts ...option.ClientOption) (*Google, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Google{
		svc:    svc,
		logger: slog.With("component", "calendar"),
	}, nil
}

// ServiceAccountClient builds an authorized HTTP client from service account JSON,
// given inline or as a file path.
func ServiceAccountClient(ctx context.Context, credentialsJSON, credentialsFile string) (*http.Client, error) {
	data := []byte(credentialsJSON)
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account file: %w", err)
		}
	}
	conf, err := google.JWTConfigFromJSON(data, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}
	return conf.Client(ctx), nil
}

func (g *Google) List(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	call := g.svc.Events.List(calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(listPageSize)

	var out []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			out = append(out, fromAPI(item))
		}
		return nil
	})
	if err != nil {
		return nil, g.wrap("list", calendarID, "", err)
	}
	g.logger.Debug("Listed events", "calendar", calendarID, "from", from, "to", to, "count", len(out))
	return out, nil
}

func (g *Google) Get(ctx context.Context, calendarID, eventID string) (*Event, error) {
	item, err := g.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, g.wrap("get", calendarID, eventID, err)
	}
	// Deleted events can still be fetched by id, flagged as cancelled.
	if item.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	ev := fromAPI(item)
	return &ev, nil
}

func (g *Google) Insert(ctx context.Context, calendarID string, ev Event) (*Event, error) {
	item, err := g.svc.Events.Insert(calendarID, toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return nil, g.wrap("insert", calendarID, "", err)
	}
	created := fromAPI(item)
	return &created, nil
}

func (g *Google) Patch(ctx context.Context, calendarID, eventID string, p Patch) (*Event, error) {
	body := &gcal.Event{Summary: p.Summary, Description: p.Description}
	item, err := g.svc.Events.Patch(calendarID, eventID, body).Context(ctx).Do()
	if err != nil {
		return nil, g.wrap("patch", calendarID, eventID, err)
	}
	ev := fromAPI(item)
	return &ev, nil
}

func (g *Google) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return g.wrap("delete", calendarID, eventID, err)
	}
	return nil
}

// wrap maps "not found" and "gone" onto ErrNotFound.
func (g *Google) wrap(op, calendarID, eventID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %s %s/%s", ErrNotFound, op, calendarID, eventID)
	}
	return fmt.Errorf("calendar %s %s: %w", op, calendarID, err)
}

func fromAPI(item *gcal.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
	}
	if item.Start != nil {
		ev.Start = EventTime{Date: item.Start.Date, DateTime: item.Start.DateTime}
	}
	if item.End != nil {
		ev.End = EventTime{Date: item.End.Date, DateTime: item.End.DateTime}
	}
	return ev
}

func toAPI(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{Date: ev.Start.Date, DateTime: ev.Start.DateTime},
		End:         &gcal.EventDateTime{Date: ev.End.Date, DateTime: ev.End.DateTime},
	}
}
