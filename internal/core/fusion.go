package core

import (
	"math"
)

// Check names one binary vote of the ensemble
type Check struct {
	Name        string // unique identifier
	Description string // human-readable summary
}

// AllChecks is the ordered list of votes the ensemble can cast
var AllChecks = []Check{
	{
		Name:        "KeywordLabel",
		Description: "Keyword scorer labelled the email Spam",
	},
	{
		Name:        "HighRiskKeywords",
		Description: "Keyword score reached the high-risk threshold",
	},
	{
		Name:        "UntrustedDomain",
		Description: "At least one referenced domain failed trust validation",
	},
	{
		Name:        "LookalikeDomain",
		Description: "At least one referenced domain is within edit distance of a trusted domain",
	},
	{
		Name:        "SenderReputation",
		Description: "Sender domain is not categorised legitimate",
	},
}

// FusionOptions tune vote counting and the final label
type FusionOptions struct {
	// HighRiskThreshold is the keyword score of the high-risk vote
	HighRiskThreshold int
	// SpamVotes is how many votes make the final label Spam
	SpamVotes int
	// ScoreDenominator divides the vote count into the overall score
	ScoreDenominator int
	// ReputationVote enables the fifth vote when a sender is supplied
	ReputationVote bool
	// ReputationOverride labels Spam whenever a supplied sender is not legitimate
	ReputationOverride bool
}

// DefaultFusionOptions returns the historical settings
func DefaultFusionOptions() FusionOptions {
	return FusionOptions{
		HighRiskThreshold:  70,
		SpamVotes:          3,
		ScoreDenominator:   5,
		ReputationVote:     true,
		ReputationOverride: true,
	}
}

// Signals are the independent outputs fused into a verdict
type Signals struct {
	Keywords   KeywordAnalysis
	URLCheck   []bool
	Lookalike  []bool
	HasSender  bool
	Reputation ReputationResult
}

// Verdict is the fused outcome
type Verdict struct {
	Label  string
	Votes  int
	Score  float64
	Checks []CheckResult
}

// Fuse counts the votes of s and derives the label and overall score
func Fuse(s Signals, opts FusionOptions) Verdict {
	reputationActive := s.HasSender && opts.ReputationVote
	untrustedSender := s.HasSender && !s.Reputation.IsLegitimate()

	fired := []bool{
		s.Keywords.Label == LabelSpam,
		s.Keywords.Score >= opts.HighRiskThreshold,
		containsFalse(s.URLCheck),
		containsTrue(s.Lookalike),
		reputationActive && untrustedSender,
	}

	v := Verdict{Checks: make([]CheckResult, 0, len(AllChecks))}
	for i, check := range AllChecks {
		if i == len(AllChecks)-1 && !reputationActive {
			continue
		}
		v.Checks = append(v.Checks, CheckResult{
			Name:        check.Name,
			Description: check.Description,
			Fired:       fired[i],
		})
		if fired[i] {
			v.Votes++
		}
	}

	v.Label = LabelSafe
	if v.Votes >= opts.SpamVotes || (opts.ReputationOverride && untrustedSender) {
		v.Label = LabelSpam
	}

	denominator := opts.ScoreDenominator
	if denominator <= 0 {
		denominator = len(AllChecks)
	}
	v.Score = math.Round(float64(v.Votes)/float64(denominator)*100) / 100
	return v
}

func containsFalse(values []bool) bool {
	for _, v := range values {
		if !v {
			return true
		}
	}
	return false
}

func containsTrue(values []bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
