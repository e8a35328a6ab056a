package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dumpster-booking/internal/config"
)

const (
	redisKeyPrefix = "ratelimit:"
	redisRetries   = 3
)

// RedisStore keeps each key's hit log in a sorted set scored by unix microseconds,
// so several service instances share one budget.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}))
}

func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Take reads the window under WATCH and writes in MULTI, retrying when another
// instance touched the key in between.
func (s *RedisStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error) {
	key = redisKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
	live := "(" + cutoff

	var usage Usage
	txf := func(tx *redis.Tx) error {
		count, err := tx.ZCount(ctx, key, live, "+inf").Result()
		if err != nil {
			return err
		}
		oldest, err := tx.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: live, Max: "+inf", Count: 1}).Result()
		if err != nil {
			return err
		}

		usage = Usage{Count: int(count)}
		if len(oldest) > 0 {
			usage.Oldest = time.UnixMicro(int64(oldest[0].Score))
		}
		allowed := int(count) < limit

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			if allowed {
				pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
				pipe.PExpire(ctx, key, window)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if allowed {
			usage.Allowed = true
			usage.Count++
			if usage.Oldest.IsZero() {
				usage.Oldest = time.UnixMicro(now.UnixMicro())
			}
		}
		return nil
	}

	for i := 0; i < redisRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Usage{}, fmt.Errorf("redis rate limit: %w", err)
		}
		return usage, nil
	}
	return Usage{}, fmt.Errorf("redis rate limit: %w", redis.TxFailedErr)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
