package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps hit logs in a map. A janitor goroutine drops idle keys.
type MemoryStore struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	window time.Duration
	stop   chan struct{}
	once   sync.Once
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	s := &MemoryStore{
		hits:   make(map[string][]time.Time),
		window: window,
		stop:   make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := trim(s.hits[key], now.Add(-window))
	usage := Usage{Count: len(live)}
	if len(live) < limit {
		live = append(live, now)
		usage.Allowed = true
		usage.Count++
	}
	if len(live) > 0 {
		usage.Oldest = live[0]
		s.hits[key] = live
	} else {
		delete(s.hits, key)
	}
	return usage, nil
}

// trim drops hits at or before cutoff. hits is sorted.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

func (s *MemoryStore) expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, hits := range s.hits {
		if live := trim(hits, now.Add(-s.window)); len(live) == 0 {
			delete(s.hits, key)
		} else {
			s.hits[key] = live
		}
	}
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.expire(now)
		case <-s.stop:
			return
		}
	}
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
