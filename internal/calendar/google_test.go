package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
)

// fakeCalendarAPI serves just enough of the Calendar v3 REST surface.
type fakeCalendarAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	inserted map[string]any
	patched  map[string]any
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	path := r.URL.Path
	if i := strings.Index(path, "/calendars/"); i >= 0 {
		path = path[i:]
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/calendars/cal-20/events":
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": "evt-1", "summary": "REQUEST – 20 Yard – Pat", "status": "confirmed",
						"start": map[string]string{"date": "2024-06-10"}, "end": map[string]string{"date": "2024-06-17"}},
				},
				"nextPageToken": "page-2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "evt-2", "summary": "CONFIRMED – 20 Yard – Sam", "status": "confirmed",
					"start": map[string]string{"dateTime": "2024-06-20T09:00:00-05:00"}, "end": map[string]string{"dateTime": "2024-06-27T09:00:00-05:00"}},
			},
		})

	case r.Method == http.MethodGet && path == "/calendars/cal-20/events/evt-1":
		json.NewEncoder(w).Encode(map[string]any{
			"id": "evt-1", "summary": "REQUEST – 20 Yard – Pat", "description": "Status: REQUEST", "status": "confirmed",
			"start": map[string]string{"date": "2024-06-10"}, "end": map[string]string{"date": "2024-06-17"},
		})

	case r.Method == http.MethodGet && path == "/calendars/cal-20/events/deleted":
		json.NewEncoder(w).Encode(map[string]any{"id": "deleted", "status": "cancelled"})

	case r.Method == http.MethodPost && path == "/calendars/cal-20/events":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.inserted = body
		f.mu.Unlock()
		body["id"] = "new-1"
		json.NewEncoder(w).Encode(body)

	case r.Method == http.MethodPatch && path == "/calendars/cal-20/events/evt-1":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.patched = body
		f.mu.Unlock()
		body["id"] = "evt-1"
		json.NewEncoder(w).Encode(body)

	case r.Method == http.MethodDelete && path == "/calendars/cal-20/events/evt-1":
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodDelete && path == "/calendars/cal-20/events/gone":
		w.WriteHeader(http.StatusGone)
		w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))

	case path == "/calendars/broken/events":
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	}
}

func newFakeGoogle(t *testing.T) (*Google, *fakeCalendarAPI) {
	t.Helper()
	api := &fakeCalendarAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	g, err := NewGoogle(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	return g, api
}

func TestGoogle_ListFollowsPages(t *testing.T) {
	g, api := newFakeGoogle(t)
	from := time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	events, err := g.List(context.Background(), "cal-20", from, to)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Start.Date != "2024-06-10" || events[1].Start.DateTime == "" {
		t.Fatalf("unexpected events: %+v", events)
	}

	q := api.requests[0].URL.Query()
	if q.Get("timeMin") != "2024-05-27T00:00:00Z" || q.Get("timeMax") != "2024-07-01T00:00:00Z" {
		t.Errorf("time bounds = %s / %s", q.Get("timeMin"), q.Get("timeMax"))
	}
	if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
		t.Errorf("query = %v", q)
	}
}

func TestGoogle_GetInsertPatchDelete(t *testing.T) {
	g, api := newFakeGoogle(t)
	ctx := context.Background()

	ev, err := g.Get(ctx, "cal-20", "evt-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ev.Description != "Status: REQUEST" {
		t.Fatalf("Get = %+v", ev)
	}

	created, err := g.Insert(ctx, "cal-20", Event{
		Summary: "REQUEST – 20 Yard – Pat",
		Start:   EventTime{Date: "2024-06-10"},
		End:     EventTime{Date: "2024-06-17"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if created.ID != "new-1" {
		t.Fatalf("created id = %q", created.ID)
	}
	start, _ := api.inserted["start"].(map[string]any)
	if start["date"] != "2024-06-10" {
		t.Fatalf("inserted start = %v", api.inserted["start"])
	}

	if _, err := g.Patch(ctx, "cal-20", "evt-1", Patch{Summary: "CONFIRMED – 20 Yard – Pat", Description: "Status: CONFIRMED"}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if api.patched["summary"] != "CONFIRMED – 20 Yard – Pat" {
		t.Fatalf("patched = %v", api.patched)
	}

	if err := g.Delete(ctx, "cal-20", "evt-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestGoogle_NotFoundMapping(t *testing.T) {
	g, _ := newFakeGoogle(t)
	ctx := context.Background()

	if err := g.Delete(ctx, "cal-20", "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(gone) = %v, want ErrNotFound", err)
	}
	if _, err := g.Get(ctx, "cal-20", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}
	if _, err := g.Get(ctx, "cal-20", "deleted"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(deleted) = %v, want ErrNotFound", err)
	}

	_, err := g.List(ctx, "broken", time.Now(), time.Now().Add(time.Hour))
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("List(broken) = %v, want a non-not-found error", err)
	}
}
