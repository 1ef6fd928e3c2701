package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/phishing-filter/internal/domains"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions configure the PhishingService
type ServiceOptions struct {
	Fusion FusionOptions
	// MaxBodySize truncates the body before analysis; 0 disables truncation
	MaxBodySize int
	// ParallelDomains bounds concurrent per-domain checks; 0 runs them inline
	ParallelDomains int
	CacheEnabled    bool
	CacheTTL        time.Duration
}

// PhishingService is the ensemble scoring engine
type PhishingService struct {
	keywords   KeywordScorer
	validator  URLValidator
	lookalike  LookalikeDetector
	reputation ReputationLookup
	cache      CacheRepository
	text       TextProcessor
	logger     *zap.Logger
	opts       ServiceOptions
}

// NewPhishingService creates a new phishing service. cache and text may be nil.
func NewPhishingService(
	keywords KeywordScorer,
	validator URLValidator,
	lookalike LookalikeDetector,
	reputation ReputationLookup,
	cache CacheRepository,
	text TextProcessor,
	logger *zap.Logger,
	opts ServiceOptions,
) *PhishingService {
	return &PhishingService{
		keywords:   keywords,
		validator:  validator,
		lookalike:  lookalike,
		reputation: reputation,
		cache:      cache,
		text:       text,
		logger:     logger,
		opts:       opts,
	}
}

// Evaluate analyses record and never fails: errors and panics become an
// "Error" result with empty, aligned fields.
func (s *PhishingService) Evaluate(ctx context.Context, record EmailRecord) (result *AnalysisResult) {
	processingID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Analysis panicked",
				zap.String("processing_id", processingID),
				zap.Any("panic", r))
			result = NewErrorResult(processingID, fmt.Errorf("internal error: %v", r))
		}
	}()

	res, err := s.analyze(ctx, processingID, record)
	if err != nil {
		s.logger.Error("Analysis failed",
			zap.String("processing_id", processingID),
			zap.Error(err))
		return NewErrorResult(processingID, err)
	}
	return res
}

// Analyze runs every check on record and fuses the outcome
func (s *PhishingService) Analyze(ctx context.Context, record EmailRecord) (*AnalysisResult, error) {
	return s.analyze(ctx, uuid.NewString(), record)
}

func (s *PhishingService) analyze(ctx context.Context, processingID string, record EmailRecord) (*AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record = s.sanitize(record)

	key := Fingerprint(record)
	if s.opts.CacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, key); err == nil && entry.Result != nil {
			s.logger.Debug("Cache hit for record", zap.String("fingerprint", key))
			cached := entry.Result.clone()
			cached.ProcessingID = processingID
			cached.Source = "cache"
			return cached, nil
		}
	}

	kw := s.keywords.Analyze(record.Subject, record.Body)
	candidates := CandidateDomains(record)

	urlCheck, editCheck, lookalikes, err := s.checkDomains(ctx, candidates)
	if err != nil {
		return nil, err
	}

	rep := NotFoundReputation()
	if record.HasSender() && s.reputation != nil {
		rep = s.reputation.Lookup(ctx, record.SenderEmail)
	}

	verdict := Fuse(Signals{
		Keywords:   kw,
		URLCheck:   urlCheck,
		Lookalike:  lookalikes,
		HasSender:  record.HasSender(),
		Reputation: rep,
	}, s.opts.Fusion)

	result := &AnalysisResult{
		ProcessingID:       processingID,
		FinalLabel:         verdict.Label,
		OverallScore:       verdict.Score,
		SpamVotes:          verdict.Votes,
		KeywordScore:       kw.Score,
		KeywordLabel:       kw.Label,
		Keywords:           nonNil(kw.Keywords),
		SubjectHighlighted: kw.SubjectHighlighted,
		BodyHighlighted:    kw.BodyHighlighted,
		URLs:               candidates,
		URLCheck:           urlCheck,
		EditCheck:          editCheck,
		Reputation:         rep,
		Checks:             verdict.Checks,
		Source:             "analysis",
		AnalyzedAt:         time.Now(),
	}

	s.logger.Info("Email analysed",
		zap.String("processing_id", processingID),
		zap.String("final_label", result.FinalLabel),
		zap.Int("spam_votes", result.SpamVotes),
		zap.Int("keyword_score", result.KeywordScore),
		zap.Int("domains", len(candidates)))

	if s.opts.CacheEnabled && s.cache != nil {
		now := time.Now()
		entry := &CacheEntry{
			Key:       key,
			Result:    result.clone(),
			CreatedAt: now,
			ExpiresAt: now.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}

// checkDomains runs the validator and the lookalike detector on every candidate.
// Results are aligned with candidates.
func (s *PhishingService) checkDomains(ctx context.Context, candidates []string) ([]bool, []LookalikeMatch, []bool, error) {
	urlCheck := make([]bool, len(candidates))
	editCheck := make([]LookalikeMatch, len(candidates))
	lookalikes := make([]bool, len(candidates))

	check := func(i int) {
		urlCheck[i] = s.validator.Validate(candidates[i])
		editCheck[i] = s.lookalike.Nearest(candidates[i])
		lookalikes[i] = s.lookalike.IsLookalike(editCheck[i])
	}

	if s.opts.ParallelDomains <= 0 || len(candidates) < 2 {
		for i := range candidates {
			check(i)
		}
		return urlCheck, editCheck, lookalikes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ParallelDomains)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			check(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, fmt.Errorf("domain checks interrupted: %w", err)
	}
	return urlCheck, editCheck, lookalikes, nil
}

func (s *PhishingService) sanitize(record EmailRecord) EmailRecord {
	if s.text == nil {
		return record
	}
	record.Subject = s.text.ProcessText(record.Subject, 0)
	record.Body = s.text.ProcessText(record.Body, s.opts.MaxBodySize)
	return record
}

// CandidateDomains lists the domains linked from the body, then the supplied URL,
// then the sender's domain, each reduced to its base domain and deduplicated in
// order.
func CandidateDomains(record EmailRecord) []string {
	var raw []string
	raw = append(raw, domains.ExtractURLDomains(record.Body)...)
	if record.URL != "" {
		raw = append(raw, record.URL)
	}
	if sender, ok := domains.EmailDomain(record.SenderEmail); ok {
		raw = append(raw, sender)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		base := domains.BaseDomain(r)
		if base == "" {
			continue
		}
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}
	return out
}

// Fingerprint identifies a record for the verdict cache
func Fingerprint(record EmailRecord) string {
	h := sha256.New()
	for _, field := range []string{record.Subject, record.Body, record.SenderEmail, record.URL} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// clone copies r so that callers never share slices with a cached entry
func (r *AnalysisResult) clone() *AnalysisResult {
	c := *r
	c.Keywords = slices.Clone(r.Keywords)
	c.URLs = slices.Clone(r.URLs)
	c.URLCheck = slices.Clone(r.URLCheck)
	c.EditCheck = slices.Clone(r.EditCheck)
	c.Checks = slices.Clone(r.Checks)
	return &c
}
