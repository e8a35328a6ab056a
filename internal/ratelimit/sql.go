package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dumpster-booking/internal/storage"
)

// SQLStore keeps hit logs in the local database so limits survive restarts.
type SQLStore struct {
	storage storage.Provider
	window  time.Duration
	logger  *slog.Logger
	stop    chan struct{}
	once    sync.Once
}

func NewSQLStore(provider storage.Provider, window time.Duration) *SQLStore {
	s := &SQLStore{
		storage: provider,
		window:  window,
		logger:  slog.With("component", "ratelimit", "store", "sql"),
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *SQLStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error) {
	w, err := s.storage.TakeHit(ctx, key, now, window, limit)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Allowed: w.Allowed, Count: w.Count, Oldest: w.Oldest}, nil
}

func (s *SQLStore) janitor() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if _, err := s.storage.PruneHits(context.Background(), now.Add(-s.window)); err != nil {
				s.logger.Error("Failed to prune rate limit hits", "error", err)
			}
		case <-s.stop:
			return
		}
	}
}

// Close stops the janitor. The storage provider is owned by the caller.
func (s *SQLStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
