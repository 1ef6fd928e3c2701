package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

// CSVRepository serves the reputation table from a CSV file held in memory
type CSVRepository struct {
	path   string
	rows   []core.DomainReputation
	index  map[string]int
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewCSVRepository loads the table at path. A missing file or one without the
// required columns is an error.
func NewCSVRepository(path string, logger *zap.Logger) (*CSVRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reputation table: %w", err)
	}
	defer f.Close()

	rows, err := reputation.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load reputation table %s: %w", path, err)
	}

	r := &CSVRepository{path: path, logger: logger}
	r.load(rows)
	logger.Info("Reputation table loaded", zap.String("path", path), zap.Int("domains", len(rows)))
	return r, nil
}

// NewEmptyCSVRepository creates a repository that writes to path on ReplaceAll
func NewEmptyCSVRepository(path string, logger *zap.Logger) *CSVRepository {
	r := &CSVRepository{path: path, logger: logger}
	r.load(nil)
	return r
}

func (r *CSVRepository) load(rows []core.DomainReputation) {
	r.rows = rows
	r.index = make(map[string]int, len(rows))
	for i, row := range rows {
		key := strings.ToLower(row.Domain)
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
	}
}

// FindByDomain implements core.ReputationRepository
func (r *CSVRepository) FindByDomain(_ context.Context, domain string) (*core.DomainReputation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[strings.ToLower(strings.TrimSpace(domain))]
	if !ok {
		return nil, core.ErrReputationNotFound
	}
	row := r.rows[i]
	return &row, nil
}

// ReplaceAll rewrites the file atomically and swaps the in-memory table
func (r *CSVRepository) ReplaceAll(_ context.Context, rows []core.DomainReputation) error {
	sorted := make([]core.DomainReputation, len(rows))
	copy(sorted, rows)
	reputation.SortRows(sorted)

	if r.path != "" {
		tmp, err := os.CreateTemp(filepath.Dir(r.path), ".reputation-*.csv")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		if err := reputation.WriteTable(tmp, sorted); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("failed to close temp file: %w", err)
		}
		if err := os.Rename(tmp.Name(), r.path); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("failed to replace reputation table: %w", err)
		}
	}

	r.mu.Lock()
	r.load(sorted)
	r.mu.Unlock()
	return nil
}

// All implements core.ReputationStore
func (r *CSVRepository) All(_ context.Context) ([]core.DomainReputation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.DomainReputation, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

// Close implements core.ReputationStore
func (r *CSVRepository) Close() error {
	return nil
}
