package factory

import (
	"fmt"
	"os"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/keywords"
	"github.com/mikey/phishing-filter/internal/lookalike"
	"github.com/mikey/phishing-filter/internal/truststore"
	"go.uber.org/zap"
)

// AnalyzerFactory creates the per-signal analysers of the ensemble
type AnalyzerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, logger *zap.Logger) *AnalyzerFactory {
	return &AnalyzerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateKeywordScorer builds the scorer from the configured vocabulary file,
// or the built-in list when none is set
func (f *AnalyzerFactory) CreateKeywordScorer() (*keywords.Scorer, error) {
	kwCfg := f.cfg.GetKeywords()
	opts := keywords.Options{
		SpamThreshold:  kwCfg.SpamThreshold,
		SubjectWeight:  kwCfg.SubjectWeight,
		LeadWeight:     kwCfg.LeadWeight,
		BodyWeight:     kwCfg.BodyWeight,
		LeadChars:      kwCfg.LeadChars,
		HighlightOpen:  kwCfg.HighlightOpen,
		HighlightClose: kwCfg.HighlightClose,
	}

	terms := keywords.DefaultKeywords
	if kwCfg.File != "" {
		file, err := os.Open(kwCfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open keywords file: %w", err)
		}
		defer file.Close()
		terms, err = keywords.LoadKeywords(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load keywords file: %w", err)
		}
		f.logger.Info("Loaded keywords", zap.String("file", kwCfg.File), zap.Int("count", len(terms)))
	}

	return keywords.NewScorer(terms, opts)
}

// CreateValidator builds the URL validator over store
func (f *AnalyzerFactory) CreateValidator(store *truststore.Store) *truststore.Validator {
	return truststore.NewValidator(store)
}

// CreateLookalikeDetector indexes the trusted domains with the configured index
func (f *AnalyzerFactory) CreateLookalikeDetector(store *truststore.Store) (*lookalike.Detector, error) {
	laCfg := f.cfg.GetLookalike()

	var index lookalike.Index
	switch laCfg.Index {
	case "", "linear":
		index = lookalike.NewLinearIndex(store.Domains())
	case "bktree":
		index = lookalike.NewBKTree(store.Domains())
	default:
		return nil, fmt.Errorf("unsupported lookalike index: %s", laCfg.Index)
	}

	f.logger.Debug("Lookalike index built",
		zap.String("index", laCfg.Index),
		zap.Int("domains", index.Len()))

	return lookalike.NewDetector(index, lookalike.Options{
		MaxDistance: laCfg.MaxDistance,
		CountExact:  laCfg.CountExact,
		Combosquat:  laCfg.Combosquat,
	}, f.logger), nil
}

// ServiceOptions assembles the service options from configuration
func (f *AnalyzerFactory) ServiceOptions() (core.ServiceOptions, error) {
	fuCfg := f.cfg.GetFusion()
	ttl, err := f.cfg.GetDuration("cache.ttl")
	if err != nil {
		return core.ServiceOptions{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	return core.ServiceOptions{
		Fusion: core.FusionOptions{
			HighRiskThreshold:  f.cfg.GetKeywords().HighRiskThreshold,
			SpamVotes:          fuCfg.SpamVotes,
			ScoreDenominator:   fuCfg.ScoreDenominator,
			ReputationVote:     fuCfg.ReputationVote,
			ReputationOverride: fuCfg.ReputationOverride,
		},
		MaxBodySize:     f.cfg.GetInt("analysis.max_body_size"),
		ParallelDomains: fuCfg.ParallelDomains,
		CacheEnabled:    f.cfg.GetBool("cache.enabled"),
		CacheTTL:        ttl,
	}, nil
}
