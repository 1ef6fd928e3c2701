package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// sqlDialect holds the statements that differ between SQL backends
type sqlDialect struct {
	name   string
	upsert string
}

// sqlCache stores verdicts as JSON in a verdict_cache table. Timestamps are unix
// seconds so expiry comparisons behave the same on every backend.
type sqlCache struct {
	db          *sql.DB
	dialect     sqlDialect
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(db *sql.DB, dialect sqlDialect, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	c := &sqlCache{
		db:          db,
		dialect:     dialect,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}
	return c
}

// Get retrieves a cached verdict by record fingerprint
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var payload []byte
	var createdAt, expiresAt int64

	err := c.db.QueryRowContext(ctx, `
		SELECT result, created_at, expires_at
		FROM verdict_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, time.Now().Unix()).Scan(&payload, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s cache: %w", c.dialect.name, err)
	}

	var result core.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}

	return &core.CacheEntry{
		Key:       key,
		Result:    &result,
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}

// Set stores a cache entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return errors.New("cache entry has no key")
	}
	payload, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	_, err = c.db.ExecContext(ctx, c.dialect.upsert,
		entry.Key, payload, entry.CreatedAt.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert %s cache entry: %w", c.dialect.name, err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (c *sqlCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database",
				zap.String("backend", c.dialect.name), zap.Error(err))
		}
	})
}
