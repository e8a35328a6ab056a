package ratelimit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"dumpster-booking/internal/config"
	"dumpster-booking/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func stores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider, err := storage.NewProvider(context.Background(), &config.Storage{SQLite: &config.SQLiteStorage{Path: ":memory:"}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { provider.Close() })

	out := map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"sql":    NewSQLStore(provider, time.Hour),
		"redis":  NewRedisStoreWithClient(client),
	}
	for _, s := range out {
		t.Cleanup(func() { s.Close() })
	}
	return out
}

func TestLimiter_SlidingWindow(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
			start := c.t
			l := New(store, 10, 15*time.Minute, WithClock(c.Now))
			ctx := context.Background()

			for i := 0; i < 10; i++ {
				res, err := l.Allow(ctx, "203.0.113.7")
				if err != nil {
					t.Fatal(err)
				}
				if !res.Allowed || res.Remaining != 9-i || res.Limit != 10 {
					t.Fatalf("request %d = %+v", i+1, res)
				}
				c.t = c.t.Add(time.Minute)
			}

			res, err := l.Allow(ctx, "203.0.113.7")
			if err != nil {
				t.Fatal(err)
			}
			if res.Allowed || res.Remaining != 0 {
				t.Fatalf("11th request = %+v", res)
			}
			if want := start.Add(15 * time.Minute); !res.Reset.Equal(want) {
				t.Fatalf("reset = %s, want %s", res.Reset, want)
			}
			if got := res.RetryAfter; got != 5*time.Minute {
				t.Fatalf("retry after = %s", got)
			}

			// a different client has its own budget
			if res, _ := l.Allow(ctx, "198.51.100.1"); !res.Allowed {
				t.Fatal("other client was limited")
			}

			// denied attempts were not recorded: once the first hit ages out exactly
			// one slot is free
			c.t = start.Add(15 * time.Minute)
			if res, _ := l.Allow(ctx, "203.0.113.7"); !res.Allowed || res.Remaining != 0 {
				t.Fatalf("after slide = %+v", res)
			}
			if res, _ := l.Allow(ctx, "203.0.113.7"); res.Allowed {
				t.Fatal("second request after slide should be denied")
			}
		})
	}
}

func TestLimiter_FirstRequestReset(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(time.Hour), 10, 15*time.Minute, WithClock(c.Now))
	defer l.Close()

	res, err := l.Allow(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reset.Equal(c.t.Add(15*time.Minute)) || res.RetryAfter != 0 {
		t.Fatalf("result = %+v", res)
	}
}

type failingStore struct{ err error }

func (s failingStore) Take(context.Context, string, time.Time, time.Duration, int) (Usage, error) {
	return Usage{}, s.err
}
func (s failingStore) Close() error { return nil }

func TestLimiter_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	l := New(failingStore{err: boom}, 10, time.Minute)
	if _, err := l.Allow(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestRedisStore_KeysAreHashedAndExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()
	l := New(store, 10, 15*time.Minute)

	if _, err := l.Allow(context.Background(), "203.0.113.7"); err != nil {
		t.Fatal(err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v", keys)
	}
	if strings.Contains(keys[0], "203.0.113.7") || !strings.HasPrefix(keys[0], redisKeyPrefix) {
		t.Fatalf("raw address stored: %s", keys[0])
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > 15*time.Minute {
		t.Fatalf("ttl = %s", ttl)
	}
}

func TestMemoryStore_Expire(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Take(context.Background(), "a", now, time.Minute, 5)
	s.expire(now.Add(2 * time.Minute))

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hits) != 0 {
		t.Fatalf("hits = %v", s.hits)
	}
}

func TestNewStore(t *testing.T) {
	if _, err := NewStore(config.RateLimitConfig{Store: "sql", Window: time.Minute}, nil); err == nil {
		t.Fatal("sql store without storage should fail")
	}
	if _, err := NewStore(config.RateLimitConfig{Store: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("unknown store should fail")
	}
	s, err := NewStore(config.RateLimitConfig{Store: "memory", Window: time.Minute}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
}
