package core

import (
	"encoding/json"
	"errors"
	"time"
)

// Labels produced by the keyword scorer and the ensemble
const (
	LabelSpam  = "Spam"
	LabelSafe  = "Safe"
	LabelError = "Error"
)

// NotFound is the marker written to every field of a missing reputation row
const NotFound = "Not Found"

// ErrReputationNotFound is returned by reputation repositories for unknown domains
var ErrReputationNotFound = errors.New("domain reputation not found")

// EmailRecord is the unit of analysis. Optional fields are empty strings.
type EmailRecord struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	SenderEmail string `json:"sender_email,omitempty"`
	URL         string `json:"url,omitempty"`
}

// HasSender reports whether a sender address was supplied
func (r EmailRecord) HasSender() bool {
	return r.SenderEmail != ""
}

// Category classifies a domain by its legitimacy score
type Category string

const (
	CategoryLegitimate Category = "legitimate"
	CategoryUncertain  Category = "uncertain"
	CategorySpam       Category = "spam"
)

// CategoryFor maps a legitimacy score to its category
func CategoryFor(score int) Category {
	switch {
	case score >= 70:
		return CategoryLegitimate
	case score >= 40:
		return CategoryUncertain
	default:
		return CategorySpam
	}
}

// Source names the corpus field a domain was observed in
type Source string

const (
	SourceFrom Source = "from"
	SourceURLs Source = "urls"
)

// DomainReputation is one row of the reputation table
type DomainReputation struct {
	Domain           string   `json:"domain"`
	LegitimacyScore  int      `json:"legitimacy_score"`
	TotalOccurrences int      `json:"total_occurrences"`
	InSpam           int      `json:"in_spam"`
	InHam            int      `json:"in_ham"`
	Sources          []Source `json:"sources"`
	Category         Category `json:"category"`
}

// ReputationResult is the outcome of a sender lookup. When Found is false every
// field is reported as "Not Found".
type ReputationResult struct {
	Found      bool
	Reputation DomainReputation
}

// NotFoundReputation returns the sentinel for unknown or malformed senders
func NotFoundReputation() ReputationResult {
	return ReputationResult{}
}

// IsLegitimate reports whether the sender's domain is categorised legitimate
func (r ReputationResult) IsLegitimate() bool {
	return r.Found && r.Reputation.Category == CategoryLegitimate
}

// MarshalJSON renders a found row as-is and a missing one with "Not Found" in every field
func (r ReputationResult) MarshalJSON() ([]byte, error) {
	if !r.Found {
		return json.Marshal(map[string]string{
			"domain":            NotFound,
			"legitimacy_score":  NotFound,
			"total_occurrences": NotFound,
			"in_spam":           NotFound,
			"in_ham":            NotFound,
			"sources":           NotFound,
			"category":          NotFound,
		})
	}
	return json.Marshal(r.Reputation)
}

// UnmarshalJSON accepts both renderings produced by MarshalJSON
func (r *ReputationResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Category == NotFound {
		*r = NotFoundReputation()
		return nil
	}
	var rep DomainReputation
	if err := json.Unmarshal(data, &rep); err != nil {
		return err
	}
	*r = ReputationResult{Found: true, Reputation: rep}
	return nil
}

// KeywordAnalysis carries the per-request keyword state: the score, the matched
// terms and the highlighted texts.
type KeywordAnalysis struct {
	Score              int      `json:"score"`
	Label              string   `json:"label"`
	Keywords           []string `json:"keywords"`
	SubjectHighlighted string   `json:"subject_highlighted"`
	BodyHighlighted    string   `json:"body_highlighted"`
}

// LookalikeMatch is the nearest trusted domain to a candidate. Domain is empty when
// the trust store holds no domains.
type LookalikeMatch struct {
	Distance int
	Domain   string
}

// MarshalJSON encodes the match as [distance, domain]
func (m LookalikeMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{m.Distance, m.Domain})
}

// UnmarshalJSON decodes a [distance, domain] pair
func (m *LookalikeMatch) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.New("lookalike match must be a [distance, domain] pair")
	}
	if err := json.Unmarshal(pair[0], &m.Distance); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &m.Domain)
}

// CheckResult is one fused vote
type CheckResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Fired       bool   `json:"fired"`
}

// AnalysisResult is the full verdict with every intermediate artifact. URLs,
// URLCheck and EditCheck are aligned by index.
type AnalysisResult struct {
	ProcessingID       string           `json:"processing_id"`
	FinalLabel         string           `json:"final_label"`
	OverallScore       float64          `json:"overall_score"`
	SpamVotes          int              `json:"spam_votes"`
	KeywordScore       int              `json:"keyword_score"`
	KeywordLabel       string           `json:"keyword_label"`
	Keywords           []string         `json:"keywords"`
	SubjectHighlighted string           `json:"subject_highlighted"`
	BodyHighlighted    string           `json:"body_highlighted"`
	URLs               []string         `json:"urls"`
	URLCheck           []bool           `json:"urlCheck"`
	EditCheck          []LookalikeMatch `json:"editCheck"`
	Reputation         ReputationResult `json:"reputation"`
	Checks             []CheckResult    `json:"checks"`
	Source             string           `json:"source"`
	AnalyzedAt         time.Time        `json:"analyzed_at"`
	Error              string           `json:"error,omitempty"`
}

// IsSpam reports whether the final label is Spam
func (r *AnalysisResult) IsSpam() bool {
	return r.FinalLabel == LabelSpam
}

// NewErrorResult builds the well-formed response returned when analysis faults
func NewErrorResult(processingID string, err error) *AnalysisResult {
	res := &AnalysisResult{
		ProcessingID: processingID,
		FinalLabel:   LabelError,
		KeywordLabel: LabelError,
		Keywords:     []string{},
		URLs:         []string{},
		URLCheck:     []bool{},
		EditCheck:    []LookalikeMatch{},
		Reputation:   NotFoundReputation(),
		Checks:       []CheckResult{},
		Source:       "error",
		AnalyzedAt:   time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// CacheEntry is a cached verdict keyed by the record fingerprint
type CacheEntry struct {
	Key       string
	Result    *AnalysisResult
	CreatedAt time.Time
	ExpiresAt time.Time
}
