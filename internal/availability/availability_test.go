package availability

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dumpster-booking/internal/calendar"
	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/reservation"
)

const (
	cal20 = "cal-20"
	cal30 = "cal-30"
)

// 2024-06-01 07:00 in Chicago.
var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, cal calendar.Service) *Engine {
	t.Helper()
	policy, err := inventory.NewPolicy(
		inventory.Unit{Tier: inventory.Yard20, Cap: 1, CalendarID: cal20},
		inventory.Unit{Tier: inventory.Yard30, Cap: 2, CalendarID: cal30},
	)
	if err != nil {
		t.Fatal(err)
	}
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	return New(cal, policy, WithLocation(loc), WithClock(func() time.Time { return testNow }))
}

func hold(t *testing.T, m *calendar.Memory, calID string, status reservation.Status, tier inventory.Tier, start string, days int) string {
	t.Helper()
	d, err := dates.Parse(start)
	if err != nil {
		t.Fatal(err)
	}
	rec := reservation.Record{
		Status:  status,
		Tier:    tier,
		Window:  dates.NewWindow(d, days),
		Contact: reservation.Contact{Name: "Pat", Email: "pat@example.com", Phone: "555-0100"},
	}
	ev, err := m.Insert(context.Background(), calID, calendar.Event{
		Summary:     rec.Title(),
		Description: rec.Body(),
		Start:       calendar.AllDay(rec.Window.Start),
		End:         calendar.AllDay(rec.Window.End),
	})
	if err != nil {
		t.Fatal(err)
	}
	return ev.ID
}

func window(start string, days int) dates.Window {
	d, _ := dates.Parse(start)
	return dates.NewWindow(d, days)
}

func TestDecide(t *testing.T) {
	m := calendar.NewMemory()
	hold(t, m, cal20, reservation.StatusRequested, inventory.Yard20, "2024-06-10", 7)
	e := newEngine(t, m)
	ctx := context.Background()

	tests := []struct {
		name  string
		start string
		days  int
		want  bool
	}{
		{"same window", "2024-06-10", 7, false},
		{"overlapping tail", "2024-06-16", 7, false},
		{"adjacent after", "2024-06-17", 7, true},
		{"adjacent before", "2024-06-03", 7, true},
		{"one day into hold", "2024-06-04", 7, false},
		{"far away", "2024-08-01", 14, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Decide(ctx, inventory.Yard20, window(tt.start, tt.days))
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Decide(%s, %d) = %v, want %v", tt.start, tt.days, got, tt.want)
			}
		})
	}
}

func TestDecide_CapacityTwo(t *testing.T) {
	m := calendar.NewMemory()
	e := newEngine(t, m)
	ctx := context.Background()
	w := window("2024-07-01", 7)

	hold(t, m, cal30, reservation.StatusConfirmed, inventory.Yard30, "2024-06-28", 7)
	if ok, _ := e.Decide(ctx, inventory.Yard30, w); !ok {
		t.Fatal("one of two units held, want available")
	}
	hold(t, m, cal30, reservation.StatusRequested, inventory.Yard30, "2024-07-05", 10)
	if ok, _ := e.Decide(ctx, inventory.Yard30, w); ok {
		t.Fatal("both units held, want unavailable")
	}
}

func TestDecide_IgnoresInactiveEvents(t *testing.T) {
	m := calendar.NewMemory()
	ctx := context.Background()
	w := window("2024-06-10", 7)

	// untagged, declined, cancelled and malformed events never block
	m.Insert(ctx, cal20, calendar.Event{ID: "note", Summary: "Truck service", Start: calendar.AllDay(w.Start), End: calendar.AllDay(w.End)})
	m.Insert(ctx, cal20, calendar.Event{ID: "declined", Summary: "Old", Description: "Status: DECLINED", Start: calendar.AllDay(w.Start), End: calendar.AllDay(w.End)})
	m.Insert(ctx, cal20, calendar.Event{ID: "gone", Summary: "REQUEST – 20 Yard – X", Status: calendar.StatusCancelled, Start: calendar.AllDay(w.Start), End: calendar.AllDay(w.End)})
	m.Insert(ctx, cal20, calendar.Event{ID: "broken", Summary: "CONFIRMED – 20 Yard – Y", Start: calendar.AllDay(w.Start)})

	e := newEngine(t, m)
	ok, err := e.Decide(ctx, inventory.Yard20, w)
	if err != nil || !ok {
		t.Fatalf("Decide = %v, %v; want available", ok, err)
	}

	report, err := e.Query(ctx, inventory.Yard20, 7, 30)
	if err != nil {
		t.Fatal(err)
	}
	reasons := map[string]string{}
	for _, s := range report.Skipped {
		reasons[s.EventID] = s.Reason
	}
	if reasons["note"] != SkipUntagged || reasons["broken"] != SkipMalformed || len(reasons) != 2 {
		t.Fatalf("Skipped = %+v", report.Skipped)
	}
}

func TestQuery(t *testing.T) {
	m := calendar.NewMemory()
	hold(t, m, cal20, reservation.StatusConfirmed, inventory.Yard20, "2024-06-10", 7)
	// started before the horizon, still occupying the first days
	hold(t, m, cal30, reservation.StatusConfirmed, inventory.Yard30, "2024-05-25", 14)
	hold(t, m, cal30, reservation.StatusConfirmed, inventory.Yard30, "2024-05-28", 7)
	e := newEngine(t, m)

	report, err := e.Query(context.Background(), inventory.Yard20, 7, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Available)+len(report.Unavailable) != 30 {
		t.Fatalf("covered %d days", len(report.Available)+len(report.Unavailable))
	}
	if report.Available[0].String() != "2024-06-01" {
		t.Fatalf("first day = %s", report.Available[0])
	}
	// starts 06-04 through 06-16 collide with [06-10, 06-17)
	if len(report.Unavailable) != 13 {
		t.Fatalf("unavailable = %v", report.Unavailable)
	}
	if report.Unavailable[0].String() != "2024-06-04" || report.Unavailable[12].String() != "2024-06-16" {
		t.Fatalf("unavailable range = %s..%s", report.Unavailable[0], report.Unavailable[12])
	}

	report, err = e.Query(context.Background(), inventory.Yard30, 7, 10)
	if err != nil {
		t.Fatal(err)
	}
	// both units busy until 06-04, one until 06-08
	if got := report.Available[0].String(); got != "2024-06-04" {
		t.Fatalf("first available 30 yard = %s", got)
	}
}

func TestQuery_EmptyAndFullyBooked(t *testing.T) {
	m := calendar.NewMemory()
	e := newEngine(t, m)
	ctx := context.Background()

	report, err := e.Query(ctx, inventory.Yard30, 7, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Available) != 90 || report.Unavailable == nil || len(report.Unavailable) != 0 {
		t.Fatalf("empty calendar: %d available, unavailable = %v", len(report.Available), report.Unavailable)
	}

	// both 30 yard units booked back to back well past the horizon
	start, _ := dates.Parse("2024-05-20")
	for d := start; d.Before(testNowDate().AddDays(120)); d = d.AddDays(14) {
		for unit := 0; unit < 2; unit++ {
			hold(t, m, cal30, reservation.StatusConfirmed, inventory.Yard30, d.String(), 14)
		}
	}

	report, err = e.Query(ctx, inventory.Yard30, 7, 90)
	if err != nil {
		t.Fatal(err)
	}
	if report.Available == nil || len(report.Available) != 0 || len(report.Unavailable) != 90 {
		t.Fatalf("fully booked: available = %v, %d unavailable", report.Available, len(report.Unavailable))
	}
	if b, _ := json.Marshal(report); !strings.Contains(string(b), `"available":[]`) {
		t.Fatalf("json = %s", b)
	}

	// the other tier is untouched
	report, err = e.Query(ctx, inventory.Yard20, 14, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Available) != 90 {
		t.Fatalf("20 yard available = %d", len(report.Available))
	}
}

func testNowDate() dates.Date {
	return dates.New(2024, time.June, 1)
}

func TestQuery_TodayUsesBusinessZone(t *testing.T) {
	m := calendar.NewMemory()
	e := newEngine(t, m)
	// 03:00 UTC on the 2nd is still the 1st in Chicago
	e.now = func() time.Time { return time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC) }

	report, err := e.Query(context.Background(), inventory.Yard20, 7, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := report.Available[0].String(); got != "2024-06-01" {
		t.Fatalf("today = %s, want 2024-06-01", got)
	}
}

func TestEngine_CalendarFailure(t *testing.T) {
	m := calendar.NewMemory()
	boom := errors.New("backend unavailable")
	m.FailOn(calendar.OpList, boom)
	e := newEngine(t, m)

	if _, err := e.Decide(context.Background(), inventory.Yard20, window("2024-06-10", 7)); !errors.Is(err, boom) {
		t.Fatalf("Decide err = %v", err)
	}
	if _, err := e.Query(context.Background(), inventory.Yard20, 7, 5); !errors.Is(err, boom) {
		t.Fatalf("Query err = %v", err)
	}
}

func TestEngine_UnconfiguredTier(t *testing.T) {
	e := newEngine(t, calendar.NewMemory())
	if _, err := e.Decide(context.Background(), inventory.Yard40, window("2024-06-10", 7)); !errors.Is(err, inventory.ErrUnknownTier) {
		t.Fatalf("err = %v", err)
	}
}

func TestReservations(t *testing.T) {
	m := calendar.NewMemory()
	id := hold(t, m, cal30, reservation.StatusRequested, inventory.Yard30, "2024-06-10", 9)
	e := newEngine(t, m)

	list, _, err := e.Reservations(context.Background(), inventory.Yard30, dates.New(2024, 6, 1), dates.New(2024, 7, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].EventID != id {
		t.Fatalf("Reservations = %+v", list)
	}
	rec := list[0].Record
	if rec.Status != reservation.StatusRequested || rec.Window.Days() != 9 || rec.Contact.Name != "Pat" {
		t.Fatalf("record = %+v", rec)
	}
}
