package factory

import (
	"fmt"

	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/keywords"
	"github.com/mikey/phishing-filter/internal/ports"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	service    *core.PhishingService
	keywords   *keywords.Scorer
	reputation *reputation.Lookup
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.PhishingService,
	scorer *keywords.Scorer,
	lookup *reputation.Lookup,
) *FilterFactory {
	return &FilterFactory{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		keywords:   scorer,
		reputation: lookup,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	srv := f.cfg.GetServer()

	switch srv.FilterType {
	case "http":
		readTimeout, err := f.cfg.GetDuration("server.read_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid read timeout: %w", err)
		}
		writeTimeout, err := f.cfg.GetDuration("server.write_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid write timeout: %w", err)
		}
		return filter.NewHTTPFilter(
			f.service,
			f.keywords,
			f.reputation,
			f.logger,
			srv.ListenAddress,
			srv.MaxRequestSize,
			readTimeout,
			writeTimeout,
		), nil
	case "postfix":
		return filter.NewPostfixFilter(
			f.service,
			f.logger,
			srv.ListenAddress,
			srv.BlockSpam,
			srv.StatusHeader,
			srv.ScoreHeader,
			srv.VotesHeader,
			srv.PostfixAddress,
			srv.PostfixPort,
			srv.SubjectPrefix,
			srv.ModifySubject,
		), nil
	case "cli":
		return f.CreateCliFilter(), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", srv.FilterType)
	}
}

// CreateCliFilter creates the one-shot printer
func (f *FilterFactory) CreateCliFilter() *filter.CliFilter {
	return filter.NewCliFilter(
		f.service,
		f.logger,
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetBool("cli.json"),
	)
}
