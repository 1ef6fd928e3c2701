package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/keywords"
	"github.com/mikey/phishing-filter/internal/lookalike"
	"github.com/mikey/phishing-filter/internal/reputation"
	"github.com/mikey/phishing-filter/internal/truststore"
	"go.uber.org/zap"
)

type stubRepo map[string]core.DomainReputation

func (r stubRepo) FindByDomain(_ context.Context, domain string) (*core.DomainReputation, error) {
	row, ok := r[domain]
	if !ok {
		return nil, core.ErrReputationNotFound
	}
	return &row, nil
}

type stubCache struct {
	entries map[string]*core.CacheEntry
	sets    int
}

func (c *stubCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	if e, ok := c.entries[key]; ok {
		return e, nil
	}
	return nil, errors.New("miss")
}

func (c *stubCache) Set(_ context.Context, entry *core.CacheEntry) error {
	c.entries[entry.Key] = entry
	c.sets++
	return nil
}

func (c *stubCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *stubCache) Cleanup(context.Context) error { return nil }

type panickingScorer struct{}

func (panickingScorer) Analyze(string, string) core.KeywordAnalysis {
	panic("scorer exploded")
}

func newService(t *testing.T, trusted []string, repo core.ReputationRepository, opts core.ServiceOptions) *core.PhishingService {
	t.Helper()
	logger := zap.NewNop()
	store := truststore.NewStore(trusted, []string{"docs.python.org"})
	return core.NewPhishingService(
		keywords.Default(),
		truststore.NewValidator(store),
		lookalike.NewDetector(lookalike.NewBKTree(store.Domains()), lookalike.DefaultOptions(), logger),
		reputation.NewLookup(repo, logger),
		nil,
		nil,
		logger,
		opts,
	)
}

func defaultOptions() core.ServiceOptions {
	return core.ServiceOptions{Fusion: core.DefaultFusionOptions()}
}

func TestEnsemblePhishingScenario(t *testing.T) {
	svc := newService(t, []string{"paypal.com", "google.com", "gnu.org"}, stubRepo{}, defaultOptions())

	res, err := svc.Analyze(context.Background(), core.EmailRecord{
		Subject:     "Urgent: Verify your account now",
		Body:        "Your access is limited. Restore it at https://paypa1-secure.com/login today.",
		SenderEmail: "user@paypa1-secure.com",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.SpamVotes < 3 {
		t.Errorf("SpamVotes = %d, want >= 3 (checks %+v)", res.SpamVotes, res.Checks)
	}
	if res.FinalLabel != core.LabelSpam {
		t.Errorf("FinalLabel = %s, want Spam", res.FinalLabel)
	}
	if want := []string{"paypa1-secure.com"}; !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
	if len(res.URLCheck) != len(res.URLs) || len(res.EditCheck) != len(res.URLs) {
		t.Fatalf("per-domain arrays not aligned: %d %d %d", len(res.URLs), len(res.URLCheck), len(res.EditCheck))
	}
	if res.URLCheck[0] {
		t.Error("lookalike domain must not validate")
	}
	if m := res.EditCheck[0]; m.Distance > 2 || m.Domain != "paypal.com" {
		t.Errorf("EditCheck[0] = %+v, want distance <= 2 against paypal.com", m)
	}
	if res.OverallScore != float64(res.SpamVotes)/5 {
		t.Errorf("OverallScore = %v for %d votes", res.OverallScore, res.SpamVotes)
	}
}

func TestEmptyRecordIsSafe(t *testing.T) {
	svc := newService(t, []string{"paypal.com"}, nil, defaultOptions())

	res, err := svc.Analyze(context.Background(), core.EmailRecord{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.KeywordScore != 0 || res.SpamVotes != 0 || res.FinalLabel != core.LabelSafe {
		t.Errorf("unexpected verdict %+v", res)
	}
	if res.URLs == nil || len(res.URLs) != 0 || res.Keywords == nil {
		t.Errorf("expected empty non-nil slices, got urls=%v keywords=%v", res.URLs, res.Keywords)
	}
	if res.OverallScore != 0 {
		t.Errorf("OverallScore = %v, want 0", res.OverallScore)
	}
}

func TestTrustedSenderStaysSafe(t *testing.T) {
	repo := stubRepo{"gnu.org": {Domain: "gnu.org", LegitimacyScore: 95, Category: core.CategoryLegitimate}}
	opts := defaultOptions()
	opts.Fusion.ReputationVote = true
	svc := newService(t, []string{"gnu.org"}, repo, opts)

	res := svc.Evaluate(context.Background(), core.EmailRecord{
		Subject:     "Release notes",
		Body:        "The changelog is at https://www.gnu.org/software/",
		SenderEmail: "maintainer@gnu.org",
	})

	if res.FinalLabel != core.LabelSafe {
		t.Errorf("FinalLabel = %s, want Safe (checks %+v)", res.FinalLabel, res.Checks)
	}
	if !res.Reputation.Found || res.Reputation.Reputation.Domain != "gnu.org" {
		t.Errorf("Reputation = %+v", res.Reputation)
	}
	for i, ok := range res.URLCheck {
		if !ok {
			t.Errorf("URLCheck[%d] for %s = false", i, res.URLs[i])
		}
	}
}

func TestReputationOverride(t *testing.T) {
	repo := stubRepo{"shady.biz": {Domain: "shady.biz", LegitimacyScore: 10, Category: core.CategorySpam}}
	record := core.EmailRecord{Subject: "Hello", Body: "Lunch tomorrow?", SenderEmail: "bob@shady.biz"}

	svc := newService(t, nil, repo, defaultOptions())
	if res := svc.Evaluate(context.Background(), record); res.FinalLabel != core.LabelSpam {
		t.Errorf("override enabled: FinalLabel = %s, want Spam", res.FinalLabel)
	}

	opts := defaultOptions()
	opts.Fusion.ReputationOverride = false
	svc = newService(t, nil, repo, opts)
	if res := svc.Evaluate(context.Background(), record); res.FinalLabel != core.LabelSafe {
		t.Errorf("override disabled: FinalLabel = %s, want Safe", res.FinalLabel)
	}
}

func TestEvaluateRecoversPanics(t *testing.T) {
	logger := zap.NewNop()
	store := truststore.NewStore(nil, nil)
	svc := core.NewPhishingService(
		panickingScorer{},
		truststore.NewValidator(store),
		lookalike.NewDetector(lookalike.NewLinearIndex(nil), lookalike.DefaultOptions(), logger),
		reputation.NewLookup(nil, logger),
		nil, nil, logger, defaultOptions(),
	)

	res := svc.Evaluate(context.Background(), core.EmailRecord{Subject: "x"})
	if res.FinalLabel != core.LabelError || res.Error == "" {
		t.Fatalf("expected Error result, got %+v", res)
	}
	if res.URLs == nil || res.URLCheck == nil || res.EditCheck == nil || res.Keywords == nil {
		t.Error("error result should carry empty, non-nil arrays")
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"final_label":"Error"`) || !strings.Contains(string(data), `"urls":[]`) {
		t.Errorf("unexpected error payload %s", data)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	svc := newService(t, nil, nil, defaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := svc.Evaluate(ctx, core.EmailRecord{}); res.FinalLabel != core.LabelError {
		t.Errorf("FinalLabel = %s, want Error", res.FinalLabel)
	}
}

func TestParallelDomainChecksMatchSequential(t *testing.T) {
	record := core.EmailRecord{
		Subject: "Invoice",
		Body:    "http://paypa1.com http://g00gle.com https://gnu.org http://unknown-site.info http://micros0ft.com",
		URL:     "https://www.paypal.com",
	}
	trusted := []string{"paypal.com", "google.com", "gnu.org", "microsoft.com"}

	seq, err := newService(t, trusted, nil, defaultOptions()).Analyze(context.Background(), record)
	if err != nil {
		t.Fatal(err)
	}
	opts := defaultOptions()
	opts.ParallelDomains = 3
	par, err := newService(t, trusted, nil, opts).Analyze(context.Background(), record)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(seq.URLs, par.URLs) || !reflect.DeepEqual(seq.URLCheck, par.URLCheck) ||
		!reflect.DeepEqual(seq.EditCheck, par.EditCheck) || seq.SpamVotes != par.SpamVotes {
		t.Errorf("parallel result differs:\nseq=%+v\npar=%+v", seq, par)
	}
	if seq.URLs[len(seq.URLs)-1] != "paypal.com" {
		t.Errorf("supplied URL should follow body domains, got %v", seq.URLs)
	}
}

func TestVerdictCache(t *testing.T) {
	cache := &stubCache{entries: make(map[string]*core.CacheEntry)}
	logger := zap.NewNop()
	store := truststore.NewStore([]string{"paypal.com"}, nil)
	svc := core.NewPhishingService(
		keywords.Default(),
		truststore.NewValidator(store),
		lookalike.NewDetector(lookalike.NewLinearIndex(store.Domains()), lookalike.DefaultOptions(), logger),
		reputation.NewLookup(nil, logger),
		cache,
		nil,
		logger,
		core.ServiceOptions{Fusion: core.DefaultFusionOptions(), CacheEnabled: true, CacheTTL: time.Hour},
	)

	record := core.EmailRecord{Subject: "Verify your account", Body: "http://paypa1.com"}
	first := svc.Evaluate(context.Background(), record)
	second := svc.Evaluate(context.Background(), record)

	if cache.sets != 1 {
		t.Errorf("cache set %d times, want 1", cache.sets)
	}
	if first.Source != "analysis" || second.Source != "cache" {
		t.Errorf("sources = %s, %s", first.Source, second.Source)
	}
	if first.FinalLabel != second.FinalLabel || first.SpamVotes != second.SpamVotes {
		t.Error("cached verdict differs from the original")
	}
	if first.ProcessingID == second.ProcessingID {
		t.Errorf("cache hit reused processing id %s", first.ProcessingID)
	}

	second.URLs[0] = "tampered.com"
	second.URLCheck[0] = !second.URLCheck[0]
	first.Keywords = append(first.Keywords[:0], "tampered")
	third := svc.Evaluate(context.Background(), record)
	if third.URLs[0] != "paypa1.com" {
		t.Errorf("cached urls were mutated through a returned result: %v", third.URLs)
	}
	if third.URLCheck[0] == second.URLCheck[0] {
		t.Error("cached urlCheck was mutated through a returned result")
	}
	if len(third.Keywords) > 0 && third.Keywords[0] == "tampered" {
		t.Errorf("cached keywords were mutated through the first result: %v", third.Keywords)
	}
}

func TestCandidateDomains(t *testing.T) {
	got := core.CandidateDomains(core.EmailRecord{
		Body:        "See https://mail.example.co.uk/a and http://www.example.com, again https://example.com/b",
		URL:         "https://login.example.com/path",
		SenderEmail: "Support <help@news.other.org>",
	})
	want := []string{"example.co.uk", "example.com", "other.org"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CandidateDomains() = %v, want %v", got, want)
	}
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	a := core.Fingerprint(core.EmailRecord{Subject: "ab", Body: "c"})
	b := core.Fingerprint(core.EmailRecord{Subject: "a", Body: "bc"})
	if a == b {
		t.Error("fingerprint should separate field boundaries")
	}
}

func TestLookalikeMatchJSON(t *testing.T) {
	data, err := json.Marshal([]core.LookalikeMatch{{Distance: 1, Domain: "paypal.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[[1,"paypal.com"]]` {
		t.Errorf("json = %s", data)
	}

	var back []core.LookalikeMatch
	if err := json.Unmarshal(data, &back); err != nil || back[0].Domain != "paypal.com" || back[0].Distance != 1 {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}
