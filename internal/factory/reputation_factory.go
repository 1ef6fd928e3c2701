package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/phishing-filter/internal/adapters/repository"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

// ReputationFactory creates reputation table backends based on configuration
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationStore opens the configured backend
func (f *ReputationFactory) CreateReputationStore() (core.ReputationStore, error) {
	repCfg := f.cfg.GetReputation()

	switch repCfg.Store {
	case "csv":
		return repository.NewCSVRepository(repCfg.CSVPath, f.logger)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(repCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return repository.NewSQLiteRepository(repCfg.SQLitePath, f.logger)
	case "mysql":
		return repository.NewMySQLRepository(repCfg.MySQLDSN, f.logger)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return repository.NewPostgresRepository(ctx, repCfg.PostgresURL, f.logger)
	default:
		return nil, fmt.Errorf("unsupported reputation store: %s", repCfg.Store)
	}
}

// CreateWritableStore opens the configured backend for the import job. A CSV
// table that does not exist yet is created on the first ReplaceAll.
func (f *ReputationFactory) CreateWritableStore() (core.ReputationStore, error) {
	repCfg := f.cfg.GetReputation()
	if repCfg.Store == "csv" {
		if _, err := os.Stat(repCfg.CSVPath); os.IsNotExist(err) {
			return repository.NewEmptyCSVRepository(repCfg.CSVPath, f.logger), nil
		}
	}
	return f.CreateReputationStore()
}

// OpenReputationStore opens the configured backend for serving. A missing or
// unreachable table is not fatal: the result is nil and every lookup reports
// "Not Found".
func (f *ReputationFactory) OpenReputationStore() core.ReputationStore {
	store, err := f.CreateReputationStore()
	if err != nil {
		f.logger.Warn("Reputation table unavailable, sender lookups will report Not Found",
			zap.String("store", f.cfg.GetString("reputation.store")),
			zap.Error(err))
		return nil
	}
	return store
}

// CreateLookup wraps store in the sender reputation lookup
func (f *ReputationFactory) CreateLookup(store core.ReputationStore) *reputation.Lookup {
	return reputation.NewLookup(store, f.logger)
}
