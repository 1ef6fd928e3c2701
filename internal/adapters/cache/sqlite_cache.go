package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of core.CacheRepository
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer avoids "database is locked" under concurrent requests
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			cache_key TEXT PRIMARY KEY,
			result BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_verdict_expires_at ON verdict_cache(expires_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	dialect := sqlDialect{
		name: "sqlite",
		upsert: `INSERT OR REPLACE INTO verdict_cache (cache_key, result, created_at, expires_at)
			VALUES (?, ?, ?, ?)`,
	}
	return &SQLiteCache{sqlCache: newSQLCache(db, dialect, logger, cleanupFreq)}, nil
}
