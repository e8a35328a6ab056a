package storage

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"dumpster-booking/internal/config"
)

const memoryPath = ":memory:"

type SQLiteProvider struct {
	*SQLProvider
}

func NewSQLiteProvider(cfg *config.Storage) (*SQLiteProvider, error) {
	path := cfg.SQLite.Path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	sqlProvider, err := NewSQLProvider(cfg, "sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is its own database.
	if cfg.SQLite.Path == memoryPath {
		sqlProvider.db.SetMaxOpenConns(1)
	}
	return &SQLiteProvider{SQLProvider: sqlProvider}, nil
}
