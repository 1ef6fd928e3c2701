package reputation

import (
	"sort"
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/domains"
	"go.uber.org/zap"
)

// CorpusRecord is one labeled email of the training corpus. Columns missing from the
// corpus file are empty here.
type CorpusRecord struct {
	Spam    bool
	Subject string
	Body    string
	From    string
	To      string
	URLs    string
}

// knownLegitimate are infrastructure and open-source domains matched by substring
var knownLegitimate = []string{
	"sourceforge.net", "linux.ie", "slashnull.org", "github.com", "microsoft.com",
	"google.com", "apache.org", "kernel.org", "gnu.org", "debian.org", "ubuntu.com",
	"redhat.com",
}

// spamIndicators are substrings typical of throwaway or promotional senders
var spamIndicators = []string{
	"geocities.com", "mailexcite.com", "hotmail.com", "aol.com", "free", "promo", "deal",
}

// Baseline is the neutral legitimacy score every domain starts from
const Baseline = 50

type tally struct {
	total   int
	spam    int
	ham     int
	sources map[core.Source]struct{}
}

// Analyzer tallies domains over a corpus and scores them
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze returns one row per domain seen in records, sorted by legitimacy score
// descending and then by domain. A domain counts once per record.
func (a *Analyzer) Analyze(records []CorpusRecord) []core.DomainReputation {
	tallies := make(map[string]*tally)

	for _, rec := range records {
		seen := make(map[string]struct{})
		observe := func(text string, src core.Source) {
			for _, d := range domains.ExtractDomains(text) {
				t, ok := tallies[d]
				if !ok {
					t = &tally{sources: make(map[core.Source]struct{})}
					tallies[d] = t
				}
				if src != "" {
					t.sources[src] = struct{}{}
				}
				if _, counted := seen[d]; counted {
					continue
				}
				seen[d] = struct{}{}
				t.total++
				if rec.Spam {
					t.spam++
				} else {
					t.ham++
				}
			}
		}

		// body and recipient domains count as occurrences but name no source
		observe(rec.URLs, core.SourceURLs)
		observe(rec.Body, "")
		observe(rec.From, core.SourceFrom)
		observe(rec.To, "")
	}

	rows := make([]core.DomainReputation, 0, len(tallies))
	for domain, t := range tallies {
		score := LegitimacyScore(domain, t.spam, t.ham)
		rows = append(rows, core.DomainReputation{
			Domain:           domain,
			LegitimacyScore:  score,
			TotalOccurrences: t.total,
			InSpam:           t.spam,
			InHam:            t.ham,
			Sources:          sortedSources(t.sources),
			Category:         core.CategoryFor(score),
		})
	}
	SortRows(rows)

	a.logger.Info("Corpus analysed",
		zap.Int("records", len(records)),
		zap.Int("domains", len(rows)))
	return rows
}

// LegitimacyScore applies the ordered heuristic adjustments to the baseline and
// clamps the result to [0, 100].
func LegitimacyScore(domain string, inSpam, inHam int) int {
	domain = strings.ToLower(domain)
	score := Baseline

	if containsAny(domain, knownLegitimate) {
		score += 40
	}
	if containsAny(domain, spamIndicators) {
		score -= 30
	}

	switch {
	case inHam > inSpam:
		score += 25
	case inSpam > inHam:
		score -= 25
	}

	if inSpam+inHam == 1 && inSpam == 1 {
		score -= 20
	}

	tld := domain
	if i := strings.LastIndex(domain, "."); i >= 0 {
		tld = domain[i+1:]
	}
	switch tld {
	case "org", "edu", "gov":
		score += 15
	case "com", "net":
		if inHam > 0 {
			score += 5
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// SortRows orders rows by legitimacy score descending, then domain ascending
func SortRows(rows []core.DomainReputation) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].LegitimacyScore != rows[j].LegitimacyScore {
			return rows[i].LegitimacyScore > rows[j].LegitimacyScore
		}
		return rows[i].Domain < rows[j].Domain
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sortedSources(set map[core.Source]struct{}) []core.Source {
	out := make([]core.Source, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
