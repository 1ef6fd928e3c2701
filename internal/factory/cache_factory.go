package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/phishing-filter/internal/adapters/cache"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates verdict caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictCache returns the configured cache, or nil when caching is off
func (f *CacheFactory) CreateVerdictCache() (core.CacheRepository, error) {
	if !f.IsCacheEnabled() {
		f.logger.Info("Verdict cache disabled")
		return nil, nil
	}
	return f.CreateCacheRepository()
}

// CreateCacheRepository creates the cache backend named by cache.type
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	f.logger.Info("Creating verdict cache",
		zap.String("type", cacheType),
		zap.Duration("cleanup_frequency", cleanupFreq))

	switch cacheType {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		path := f.cfg.GetString("cache.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(path, f.logger, cleanupFreq)
	case "mysql":
		return cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// GetCacheTTL returns how long a verdict stays cached
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}

// IsCacheEnabled reports whether verdicts are cached
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
