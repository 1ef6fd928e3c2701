package factory

import (
	"context"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/truststore"
	"go.uber.org/zap"
)

// TrustStoreFactory builds the trust store once per process
type TrustStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrustStoreFactory creates a new trust store factory
func NewTrustStoreFactory(cfg *config.Config, logger *zap.Logger) *TrustStoreFactory {
	return &TrustStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTrustStore loads the trusted domains from the legitimate-domains file,
// or from the reputation store when trust.from_reputation is set. store may be nil.
func (f *TrustStoreFactory) CreateTrustStore(store core.ReputationStore) *truststore.Store {
	trustCfg := f.cfg.GetTrust()

	if trustCfg.FromReputation && store != nil {
		rows, err := store.All(context.Background())
		if err == nil {
			trusted := truststore.FromReputation(rows, trustCfg.Threshold)
			return truststore.Build(trusted, trustCfg.SafeHostsFile, trustCfg.SafeHostnames, f.logger)
		}
		f.logger.Warn("Failed to read reputation table for trust store, falling back to files",
			zap.Error(err))
	}

	return truststore.LoadFiles(
		trustCfg.DomainsFile,
		trustCfg.SafeHostsFile,
		trustCfg.Threshold,
		trustCfg.SafeHostnames,
		f.logger,
	)
}
