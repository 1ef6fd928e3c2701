package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/factory"
	"github.com/mikey/phishing-filter/internal/keywords"
	"github.com/mikey/phishing-filter/internal/logging"
	"github.com/mikey/phishing-filter/internal/ports"
	"github.com/mikey/phishing-filter/internal/reputation"
	"github.com/mikey/phishing-filter/internal/truststore"
	"github.com/mikey/phishing-filter/internal/utils"
)

// BuildContainer creates and configures the container of the daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(config.New); err != nil {
		return nil, err
	}
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Verdict cache, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything between configuration and the
// phishing service. It expects *config.Config, *zap.Logger and
// core.CacheRepository to be provided by the caller.
func provideAnalysis(container *dig.Container) error {
	constructors := []interface{}{
		factory.NewCacheFactory,
		factory.NewReputationFactory,
		factory.NewTrustStoreFactory,
		factory.NewAnalyzerFactory,
		factory.NewTextProcessorFactory,
	}
	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return err
		}
	}

	// Reputation table, nil when unavailable
	if err := container.Provide(func(f *factory.ReputationFactory) core.ReputationStore {
		return f.OpenReputationStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ReputationFactory, store core.ReputationStore) *reputation.Lookup {
		return f.CreateLookup(store)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.TrustStoreFactory, store core.ReputationStore) *truststore.Store {
		return f.CreateTrustStore(store)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.AnalyzerFactory) (*keywords.Scorer, error) {
		return f.CreateKeywordScorer()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	return container.Provide(func(
		f *factory.AnalyzerFactory,
		scorer *keywords.Scorer,
		store *truststore.Store,
		lookup *reputation.Lookup,
		cache core.CacheRepository,
		text *utils.TextProcessor,
		logger *zap.Logger,
	) (*core.PhishingService, error) {
		detector, err := f.CreateLookalikeDetector(store)
		if err != nil {
			return nil, err
		}
		opts, err := f.ServiceOptions()
		if err != nil {
			return nil, err
		}
		return core.NewPhishingService(
			scorer,
			f.CreateValidator(store),
			detector,
			lookup,
			cache,
			text,
			logger,
			opts,
		), nil
	})
}
