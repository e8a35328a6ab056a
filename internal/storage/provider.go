package storage

import (
	"context"
	"errors"
	"time"

	"dumpster-booking/internal/config"
)

var ErrUnsupportedStorage = errors.New("unsupported storage configuration")

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// TakeHit records a hit for key at now unless limit hits already fall inside
	// (now-window, now]. Check and insert are atomic.
	TakeHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (HitWindow, error)
	// PruneHits removes hits at or before the cutoff.
	PruneHits(ctx context.Context, before time.Time) (int64, error)
}

// NewProvider opens the configured database and migrates it.
func NewProvider(ctx context.Context, cfg *config.Storage) (Provider, error) {
	switch {
	case cfg.SQLite != nil:
		provider, err := NewSQLiteProvider(cfg)
		if err != nil {
			return nil, err
		}
		if err := provider.runMigrations(ctx, "sqlite3"); err != nil {
			provider.Close()
			return nil, err
		}
		return provider, nil
	}
	return nil, ErrUnsupportedStorage
}
