package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"dumpster-booking/internal/config"
)

type SQLProvider struct {
	db     *sqlx.DB
	config *config.Storage
	logger *slog.Logger
}

func NewSQLProvider(cfg *config.Storage, driverName, dataSource string) (*SQLProvider, error) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	return &SQLProvider{
		db:     db,
		config: cfg,
		logger: slog.With("component", "storage", "driver", driverName),
	}, nil
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) TakeHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (HitWindow, error) {
	cutoff := now.Add(-window).UnixMicro()

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return HitWindow{}, fmt.Errorf("failed to begin hit transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limit_hits WHERE key = ? AND hit_at <= ?`, key, cutoff); err != nil {
		return HitWindow{}, fmt.Errorf("failed to expire hits: %w", err)
	}

	var hits []Hit
	if err := tx.SelectContext(ctx, &hits, `SELECT id, key, hit_at FROM rate_limit_hits WHERE key = ? ORDER BY hit_at`, key); err != nil {
		return HitWindow{}, fmt.Errorf("failed to count hits: %w", err)
	}

	result := HitWindow{Count: len(hits)}
	if len(hits) > 0 {
		result.Oldest = hits[0].Time()
	}
	if len(hits) < limit {
		hit := Hit{ID: uuid.NewString(), Key: key, HitAt: now.UnixMicro()}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO rate_limit_hits (id, key, hit_at) VALUES (:id, :key, :hit_at)`, hit); err != nil {
			return HitWindow{}, fmt.Errorf("failed to record hit: %w", err)
		}
		result.Allowed = true
		result.Count++
		if result.Oldest.IsZero() {
			result.Oldest = hit.Time()
		}
	}

	if err := tx.Commit(); err != nil {
		return HitWindow{}, fmt.Errorf("failed to commit hit: %w", err)
	}
	return result, nil
}

func (p *SQLProvider) PruneHits(ctx context.Context, before time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM rate_limit_hits WHERE hit_at <= ?`, before.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to prune hits: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		p.logger.Debug("Pruned rate limit hits", "count", n)
	}
	return n, nil
}
