package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

// sqlRepository keeps the reputation table in a domain_reputation table reachable
// through database/sql. SQLite and MySQL share it; only the schema differs.
type sqlRepository struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

// FindByDomain implements core.ReputationRepository
func (r *sqlRepository) FindByDomain(ctx context.Context, domain string) (*core.DomainReputation, error) {
	var row core.DomainReputation
	var sources, category string

	err := r.db.QueryRowContext(ctx, `
		SELECT domain, legitimacy_score, total_occurrences, in_spam, in_ham, sources, category
		FROM domain_reputation
		WHERE domain = ?
	`, strings.ToLower(strings.TrimSpace(domain))).Scan(
		&row.Domain, &row.LegitimacyScore, &row.TotalOccurrences, &row.InSpam, &row.InHam, &sources, &category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrReputationNotFound
		}
		return nil, fmt.Errorf("failed to query %s reputation: %w", r.name, err)
	}

	row.Sources = reputation.SplitSources(sources)
	row.Category = core.Category(category)
	return &row, nil
}

// ReplaceAll swaps the table contents inside one transaction
func (r *sqlRepository) ReplaceAll(ctx context.Context, rows []core.DomainReputation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM domain_reputation`); err != nil {
		return fmt.Errorf("failed to clear reputation table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO domain_reputation (domain, legitimacy_score, total_occurrences, in_spam, in_ham, sources, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx, strings.ToLower(row.Domain), row.LegitimacyScore, row.TotalOccurrences,
			row.InSpam, row.InHam, reputation.JoinSources(row.Sources), string(row.Category))
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", row.Domain, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reputation table: %w", err)
	}
	r.logger.Info("Reputation table replaced", zap.String("backend", r.name), zap.Int("domains", len(rows)))
	return nil
}

// All implements core.ReputationStore
func (r *sqlRepository) All(ctx context.Context) ([]core.DomainReputation, error) {
	rs, err := r.db.QueryContext(ctx, `
		SELECT domain, legitimacy_score, total_occurrences, in_spam, in_ham, sources, category
		FROM domain_reputation
		ORDER BY legitimacy_score DESC, domain ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s reputation: %w", r.name, err)
	}
	defer rs.Close()

	var rows []core.DomainReputation
	for rs.Next() {
		var row core.DomainReputation
		var sources, category string
		if err := rs.Scan(&row.Domain, &row.LegitimacyScore, &row.TotalOccurrences,
			&row.InSpam, &row.InHam, &sources, &category); err != nil {
			return nil, fmt.Errorf("failed to scan reputation row: %w", err)
		}
		row.Sources = reputation.SplitSources(sources)
		row.Category = core.Category(category)
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

// Close closes the database connection
func (r *sqlRepository) Close() error {
	return r.db.Close()
}
