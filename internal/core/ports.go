package core

import (
	"context"
)

// KeywordScorer scores subject and body against the phishing keyword set
type KeywordScorer interface {
	// Analyze returns the score, label, matched keywords and highlighted texts
	Analyze(subject, body string) KeywordAnalysis
}

// URLValidator checks a domain or URL against the trust store
type URLValidator interface {
	Validate(domainOrURL string) bool
}

// LookalikeDetector finds the trusted domain nearest to a candidate
type LookalikeDetector interface {
	Nearest(candidate string) LookalikeMatch

	// IsLookalike applies the configured distance threshold to a match
	IsLookalike(match LookalikeMatch) bool
}

// ReputationLookup resolves the reputation row of a sender address
type ReputationLookup interface {
	Lookup(ctx context.Context, senderEmail string) ReputationResult
}

// ReputationRepository reads rows of the reputation table
type ReputationRepository interface {
	// FindByDomain returns ErrReputationNotFound when the domain has no row
	FindByDomain(ctx context.Context, domain string) (*DomainReputation, error)
}

// ReputationStore is a reputation repository that can also be (re)populated
// by the offline analysis job
type ReputationStore interface {
	ReputationRepository

	// ReplaceAll swaps the whole table for rows
	ReplaceAll(ctx context.Context, rows []DomainReputation) error

	// All returns every row ordered by legitimacy score descending
	All(ctx context.Context) ([]DomainReputation, error)

	Close() error
}

// CacheRepository defines the interface for caching analysis verdicts
type CacheRepository interface {
	// Get retrieves a cached verdict by record fingerprint
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TextProcessor cleans request text before analysis
type TextProcessor interface {
	// ProcessText truncates text to maxSize bytes (0 means unlimited) and repairs encoding
	ProcessText(text string, maxSize int) string
}
