package reputation

import (
	"context"
	"errors"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/domains"
	"go.uber.org/zap"
)

// Lookup resolves sender addresses against a reputation repository. A nil
// repository means the table is unavailable and every lookup is NotFound.
type Lookup struct {
	repo   core.ReputationRepository
	logger *zap.Logger
}

// NewLookup creates a lookup over repo
func NewLookup(repo core.ReputationRepository, logger *zap.Logger) *Lookup {
	return &Lookup{repo: repo, logger: logger}
}

// Lookup returns the row of the sender's domain. The exact domain after "@" is
// tried first, then its registrable domain. Malformed addresses, a missing table,
// unknown domains and repository failures all yield the NotFound result.
func (l *Lookup) Lookup(ctx context.Context, senderEmail string) core.ReputationResult {
	domain, ok := domains.EmailDomain(senderEmail)
	if !ok {
		l.logger.Debug("Sender is not an email address", zap.String("sender", senderEmail))
		return core.NotFoundReputation()
	}
	if l.repo == nil {
		return core.NotFoundReputation()
	}

	candidates := []string{domain}
	if registrable := domains.Normalize(domain); registrable != domain {
		candidates = append(candidates, registrable)
	}

	for _, d := range candidates {
		row, err := l.repo.FindByDomain(ctx, d)
		if err == nil {
			return core.ReputationResult{Found: true, Reputation: *row}
		}
		if !errors.Is(err, core.ErrReputationNotFound) {
			l.logger.Warn("Reputation lookup failed",
				zap.String("domain", d),
				zap.Error(err))
			return core.NotFoundReputation()
		}
	}
	return core.NotFoundReputation()
}
