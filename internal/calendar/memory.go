package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op names a Memory operation for error injection and call counting.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpInsert Op = "insert"
	OpPatch  Op = "patch"
	OpDelete Op = "delete"
)

// Memory is an in-process calendar for development and tests.
type Memory struct {
	mu        sync.Mutex
	calendars map[string]map[string]Event
	calls     map[Op]int
	errs      map[Op]error
}

func NewMemory() *Memory {
	return &Memory{
		calendars: make(map[string]map[string]Event),
		calls:     make(map[Op]int),
		errs:      make(map[Op]error),
	}
}

// FailOn makes every call of op return err until cleared with a nil error.
func (m *Memory) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) begin(op Op) error {
	m.calls[op]++
	return m.errs[op]
}

func (m *Memory) List(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpList); err != nil {
		return nil, err
	}

	var out []Event
	for _, ev := range m.calendars[calendarID] {
		if intersects(ev, from, to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := startKey(out[i]), startKey(out[j])
		if ki != kj {
			return ki < kj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func startKey(ev Event) string {
	if ev.Start.Date != "" {
		return ev.Start.Date
	}
	return ev.Start.DateTime
}

// intersects mirrors the remote filter: event end after from, start before to.
// Events whose dates cannot be resolved are returned so callers see them.
func intersects(ev Event, from, to time.Time) bool {
	w, err := ev.Window()
	if err != nil {
		return true
	}
	return w.End.Time().After(from) && w.Start.Time().Before(to)
}

func (m *Memory) Get(ctx context.Context, calendarID, eventID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGet); err != nil {
		return nil, err
	}
	ev, ok := m.calendars[calendarID][eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	return &ev, nil
}

func (m *Memory) Insert(ctx context.Context, calendarID string, ev Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpInsert); err != nil {
		return nil, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Status == "" {
		ev.Status = "confirmed"
	}
	if m.calendars[calendarID] == nil {
		m.calendars[calendarID] = make(map[string]Event)
	}
	m.calendars[calendarID][ev.ID] = ev
	return &ev, nil
}

func (m *Memory) Patch(ctx context.Context, calendarID, eventID string, p Patch) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpPatch); err != nil {
		return nil, err
	}
	ev, ok := m.calendars[calendarID][eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	if p.Summary != "" {
		ev.Summary = p.Summary
	}
	if p.Description != "" {
		ev.Description = p.Description
	}
	m.calendars[calendarID][eventID] = ev
	return &ev, nil
}

func (m *Memory) Delete(ctx context.Context, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete); err != nil {
		return err
	}
	if _, ok := m.calendars[calendarID][eventID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	delete(m.calendars[calendarID], eventID)
	return nil
}
