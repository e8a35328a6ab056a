// Package ratelimit throttles booking submissions per client with a sliding-window
// log: a request is allowed when fewer than Limit requests were accepted for the
// same client in the preceding Window. Denied requests are not recorded.
package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"dumpster-booking/internal/config"
	"dumpster-booking/internal/storage"
)

// Usage is a store's view of one key after a Take.
type Usage struct {
	Allowed bool
	Count   int
	Oldest  time.Time
}

type Store interface {
	// Take records a hit at now unless limit hits already fall in (now-window, now].
	Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error)
	Close() error
}

// Result feeds the X-RateLimit-* response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
	// RetryAfter is zero unless the request was denied.
	RetryAfter time.Duration
}

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		prefix: "request:",
		now:    time.Now,
		logger: slog.With("component", "ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow takes one request from client's budget.
func (l *Limiter) Allow(ctx context.Context, client string) (Result, error) {
	now := l.now()
	usage, err := l.store.Take(ctx, hashKey(l.prefix+client), now, l.window, l.limit)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	res := Result{
		Allowed:   usage.Allowed,
		Limit:     l.limit,
		Remaining: max(l.limit-usage.Count, 0),
		Reset:     now.Add(l.window),
	}
	if !usage.Oldest.IsZero() {
		res.Reset = usage.Oldest.Add(l.window)
	}
	if !res.Allowed {
		res.RetryAfter = max(res.Reset.Sub(now), 0)
		l.logger.Info("Rate limited", "client", client, "reset", res.Reset)
	}
	return res, nil
}

func (l *Limiter) Close() error {
	return l.store.Close()
}

// hashKey keeps client addresses out of the store.
func hashKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NewStore builds the configured store. The sql store needs a storage provider.
func NewStore(cfg config.RateLimitConfig, provider storage.Provider) (Store, error) {
	switch cfg.Store {
	case "memory":
		return NewMemoryStore(cfg.Window), nil
	case "sql":
		if provider == nil {
			return nil, fmt.Errorf("sql rate limit store needs storage")
		}
		return NewSQLStore(provider, cfg.Window), nil
	case "redis":
		return NewRedisStore(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}
