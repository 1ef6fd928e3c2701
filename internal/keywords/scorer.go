package keywords

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mikey/phishing-filter/internal/core"
)

// DefaultKeywords is the curated phishing vocabulary
var DefaultKeywords = []string{
	"account has been suspended",
	"account suspended",
	"act now",
	"action required",
	"bank",
	"billing",
	"claim",
	"click here",
	"click the link",
	"confirm",
	"confirm your identity",
	"congratulations",
	"credit card",
	"dear customer",
	"dear user",
	"expire",
	"expired",
	"expires",
	"final notice",
	"free",
	"gift card",
	"immediately",
	"invoice",
	"limited time",
	"locked",
	"login",
	"lottery",
	"password",
	"payment",
	"prize",
	"refund",
	"reset your password",
	"restricted",
	"security alert",
	"social security",
	"suspended",
	"suspicious activity",
	"unauthorized",
	"unusual activity",
	"update your information",
	"update your payment",
	"urgent",
	"validate",
	"verify",
	"verify your account",
	"winner",
	"wire transfer",
}

// Options tune keyword scoring
type Options struct {
	SpamThreshold int
	SubjectWeight int
	LeadWeight    int
	BodyWeight    int
	// LeadChars is how many leading body characters get LeadWeight
	LeadChars int
	// HighlightOpen and HighlightClose wrap each highlighted match
	HighlightOpen  string
	HighlightClose string
}

// DefaultOptions returns the historical weights and threshold
func DefaultOptions() Options {
	return Options{
		SpamThreshold:  50,
		SubjectWeight:  3,
		LeadWeight:     2,
		BodyWeight:     1,
		LeadChars:      200,
		HighlightOpen:  `<span class="keyword-highlight">`,
		HighlightClose: `</span>`,
	}
}

// Scorer matches a fixed keyword set compiled into one case-insensitive whole-word
// pattern. It holds no per-request state and is safe for concurrent use.
type Scorer struct {
	pattern  *regexp.Regexp
	keywords []string
	opts     Options
}

var whitespace = regexp.MustCompile(`\s+`)

// NewScorer compiles terms into a scorer. Longer phrases are tried first so
// "verify your account" wins over "verify".
func NewScorer(terms []string, opts Options) (*Scorer, error) {
	seen := make(map[string]struct{}, len(terms))
	var cleaned []string
	for _, term := range terms {
		term = whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(term)), " ")
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		cleaned = append(cleaned, term)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no keywords supplied")
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})

	alternatives := make([]string, len(cleaned))
	for i, term := range cleaned {
		words := strings.Split(term, " ")
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alternatives[i] = strings.Join(words, `\s+`)
	}

	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile keyword pattern: %w", err)
	}

	return &Scorer{pattern: pattern, keywords: cleaned, opts: opts}, nil
}

// Default returns a scorer over DefaultKeywords with DefaultOptions
func Default() *Scorer {
	s, err := NewScorer(DefaultKeywords, DefaultOptions())
	if err != nil {
		panic(err)
	}
	return s
}

// LoadKeywords reads one keyword or phrase per line; blank lines and lines starting
// with # are skipped.
func LoadKeywords(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keywords: %w", err)
	}
	return terms, nil
}

// Keywords returns the compiled vocabulary, longest first
func (s *Scorer) Keywords() []string {
	out := make([]string, len(s.keywords))
	copy(out, s.keywords)
	return out
}

// Score weights subject matches, matches starting in the body lead, and the rest
func (s *Scorer) Score(subject, body string) int {
	score := len(s.pattern.FindAllStringIndex(subject, -1)) * s.opts.SubjectWeight

	for _, loc := range s.pattern.FindAllStringIndex(body, -1) {
		if utf8.RuneCountInString(body[:loc[0]]) < s.opts.LeadChars {
			score += s.opts.LeadWeight
		} else {
			score += s.opts.BodyWeight
		}
	}
	return score
}

// Label returns Spam when score reaches the spam threshold
func (s *Scorer) Label(score int) string {
	if score >= s.opts.SpamThreshold {
		return core.LabelSpam
	}
	return core.LabelSafe
}

// FindKeywords returns the distinct matched terms in text, lowercased and sorted
func (s *Scorer) FindKeywords(text string) []string {
	return s.collect(make(map[string]struct{}), text)
}

// Highlight wraps every match in the highlight markup and leaves the rest of text
// untouched.
func (s *Scorer) Highlight(text string) string {
	if text == "" {
		return text
	}
	return s.pattern.ReplaceAllStringFunc(text, func(m string) string {
		return s.opts.HighlightOpen + m + s.opts.HighlightClose
	})
}

// Analyze runs scoring, matching and highlighting for one request
func (s *Scorer) Analyze(subject, body string) core.KeywordAnalysis {
	score := s.Score(subject, body)
	seen := make(map[string]struct{})
	s.collect(seen, subject)
	found := s.collect(seen, body)

	return core.KeywordAnalysis{
		Score:              score,
		Label:              s.Label(score),
		Keywords:           found,
		SubjectHighlighted: s.Highlight(subject),
		BodyHighlighted:    s.Highlight(body),
	}
}

// collect adds matches of text to seen and returns every term in seen, sorted
func (s *Scorer) collect(seen map[string]struct{}, text string) []string {
	for _, m := range s.pattern.FindAllString(text, -1) {
		seen[whitespace.ReplaceAllString(strings.ToLower(m), " ")] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
