// Package storage holds the local SQL database used for rate-limit counters.
//
// Schema changes are plain SQL files embedded under migrations/<driver>/ and named
// NNNN_name.up.sql or NNNN_name.down.sql. The applied version is tracked in the
// schema_migrations table.
//
// Modelled on Authelia's migration runner https://github.com/authelia/authelia/blob/master/internal/storage/migrations.go
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/**/*.sql
var migrationsFS embed.FS

var reMigrationFilename = regexp.MustCompile(`^(?P<Version>\d{4})_(?P<Name>[^.]+)\.(?P<Direction>up|down)\.sql$`)

// LatestVersion asks Migrate for every available up migration.
const LatestVersion = -1

var ErrMigrateCurrentVersionSameAsTarget = errors.New("current version is the same as target version")

// SchemaMigration is one parsed migration file.
type SchemaMigration struct {
	Version int
	Name    string
	Up      bool
	SQL     string
}

// After is the schema version once the migration has run.
func (m SchemaMigration) After() int {
	if m.Up {
		return m.Version
	}
	return m.Version - 1
}

type MigrationRunner struct {
	driver string
	logger *slog.Logger
}

func NewMigrationRunner(driver string) *MigrationRunner {
	return &MigrationRunner{
		driver: driver,
		logger: slog.With("component", "migrations", "driver", driver),
	}
}

func (mr *MigrationRunner) dir() (string, error) {
	switch mr.driver {
	case "sqlite3":
		return "migrations/sqlite3", nil
	}
	return "", fmt.Errorf("unsupported driver: %s", mr.driver)
}

// all parses every migration file of the driver.
func (mr *MigrationRunner) all() ([]SchemaMigration, error) {
	dir, err := mr.dir()
	if err != nil {
		return nil, err
	}
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var out []SchemaMigration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, err := parseMigrationFile(path.Join(dir, entry.Name()))
		if err != nil {
			mr.logger.Warn("Skipping migration file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (mr *MigrationRunner) LatestVersion() (int, error) {
	migrations, err := mr.all()
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, m := range migrations {
		if m.Up && m.Version > latest {
			latest = m.Version
		}
	}
	return latest, nil
}

// Plan returns the migrations taking the schema from prior to target, in the order
// they must run. A target of LatestVersion means every known up migration.
func (mr *MigrationRunner) Plan(prior, target int) ([]SchemaMigration, error) {
	if target == LatestVersion {
		latest, err := mr.LatestVersion()
		if err != nil {
			return nil, err
		}
		target = latest
	}
	if prior == target {
		return nil, ErrMigrateCurrentVersionSameAsTarget
	}

	migrations, err := mr.all()
	if err != nil {
		return nil, err
	}

	up := target > prior
	var plan []SchemaMigration
	for _, m := range migrations {
		switch {
		case up && m.Up && m.Version > prior && m.Version <= target:
			plan = append(plan, m)
		case !up && !m.Up && m.Version <= prior && m.Version > target:
			plan = append(plan, m)
		}
	}
	sort.Slice(plan, func(i, j int) bool {
		if up {
			return plan[i].Version < plan[j].Version
		}
		return plan[i].Version > plan[j].Version
	})

	mr.logger.Debug("Planned migrations", "count", len(plan), "from_version", prior, "to_version", target)
	return plan, nil
}

func parseMigrationFile(name string) (SchemaMigration, error) {
	parts := reMigrationFilename.FindStringSubmatch(path.Base(name))
	if parts == nil {
		return SchemaMigration{}, fmt.Errorf("invalid migration filename: %s", path.Base(name))
	}

	sql, err := migrationsFS.ReadFile(name)
	if err != nil {
		return SchemaMigration{}, fmt.Errorf("failed to read migration file: %w", err)
	}

	version, _ := strconv.Atoi(parts[reMigrationFilename.SubexpIndex("Version")])
	return SchemaMigration{
		Version: version,
		Name:    parts[reMigrationFilename.SubexpIndex("Name")],
		Up:      parts[reMigrationFilename.SubexpIndex("Direction")] == "up",
		SQL:     string(sql),
	}, nil
}

// runMigrations brings the schema to the latest version. Each migration runs in its
// own transaction together with its version bookkeeping.
func (p *SQLProvider) runMigrations(ctx context.Context, driver string) error {
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := p.GetSchemaVersion(ctx)
	if err != nil {
		return err
	}

	plan, err := NewMigrationRunner(driver).Plan(current, LatestVersion)
	if errors.Is(err, ErrMigrateCurrentVersionSameAsTarget) {
		p.logger.Debug("Schema is up to date", "version", current)
		return nil
	}
	if err != nil {
		return err
	}

	for _, m := range plan {
		if err := p.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", m.Version, m.Name, err)
		}
		p.logger.Info("Applied migration", "version", m.Version, "name", m.Name, "up", m.Up)
	}
	return nil
}

func (p *SQLProvider) applyMigration(ctx context.Context, m SchemaMigration) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if m.Up {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, m.Version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetSchemaVersion returns the highest applied migration, zero for a fresh database.
func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := p.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
