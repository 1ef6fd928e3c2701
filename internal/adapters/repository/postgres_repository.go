package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

// PostgresRepository stores the reputation table in PostgreSQL
type PostgresRepository struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository connects to url and creates the table if needed
func NewPostgresRepository(ctx context.Context, url string, logger *zap.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain TEXT PRIMARY KEY,
			legitimacy_score INTEGER NOT NULL,
			total_occurrences INTEGER NOT NULL,
			in_spam INTEGER NOT NULL,
			in_ham INTEGER NOT NULL,
			sources TEXT[] NOT NULL DEFAULT '{}',
			category TEXT NOT NULL
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresRepository{Pool: pool, logger: logger}, nil
}

// FindByDomain implements core.ReputationRepository
func (r *PostgresRepository) FindByDomain(ctx context.Context, domain string) (*core.DomainReputation, error) {
	var row core.DomainReputation
	var sources []string
	var category string

	err := r.Pool.QueryRow(ctx, `
		SELECT domain, legitimacy_score, total_occurrences, in_spam, in_ham, sources, category
		FROM domain_reputation
		WHERE domain = $1
	`, strings.ToLower(strings.TrimSpace(domain))).Scan(
		&row.Domain, &row.LegitimacyScore, &row.TotalOccurrences, &row.InSpam, &row.InHam, &sources, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrReputationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query postgres reputation: %w", err)
	}

	row.Sources = toSources(sources)
	row.Category = core.Category(category)
	return &row, nil
}

// ReplaceAll truncates the table and bulk-copies rows in one transaction
func (r *PostgresRepository) ReplaceAll(ctx context.Context, rows []core.DomainReputation) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE domain_reputation`); err != nil {
		return fmt.Errorf("failed to clear reputation table: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"domain_reputation"},
		[]string{"domain", "legitimacy_score", "total_occurrences", "in_spam", "in_ham", "sources", "category"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{
				strings.ToLower(row.Domain), row.LegitimacyScore, row.TotalOccurrences,
				row.InSpam, row.InHam, fromSources(row.Sources), string(row.Category),
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy reputation rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reputation table: %w", err)
	}
	r.logger.Info("Reputation table replaced", zap.String("backend", "postgres"), zap.Int("domains", len(rows)))
	return nil
}

// All implements core.ReputationStore
func (r *PostgresRepository) All(ctx context.Context) ([]core.DomainReputation, error) {
	rs, err := r.Pool.Query(ctx, `
		SELECT domain, legitimacy_score, total_occurrences, in_spam, in_ham, sources, category
		FROM domain_reputation
		ORDER BY legitimacy_score DESC, domain ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list postgres reputation: %w", err)
	}
	defer rs.Close()

	var out []core.DomainReputation
	for rs.Next() {
		var row core.DomainReputation
		var sources []string
		var category string
		if err := rs.Scan(&row.Domain, &row.LegitimacyScore, &row.TotalOccurrences,
			&row.InSpam, &row.InHam, &sources, &category); err != nil {
			return nil, fmt.Errorf("failed to scan reputation row: %w", err)
		}
		row.Sources = toSources(sources)
		row.Category = core.Category(category)
		out = append(out, row)
	}
	return out, rs.Err()
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.Pool.Close()
	return nil
}

func toSources(values []string) []core.Source {
	return reputation.SplitSources(strings.Join(values, ","))
}

func fromSources(sources []core.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}
