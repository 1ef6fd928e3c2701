package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteRepository stores the reputation table in SQLite
type SQLiteRepository struct {
	*sqlRepository
}

// NewSQLiteRepository opens (and if needed creates) the table at dbPath
func NewSQLiteRepository(dbPath string, logger *zap.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain TEXT PRIMARY KEY,
			legitimacy_score INTEGER NOT NULL,
			total_occurrences INTEGER NOT NULL,
			in_spam INTEGER NOT NULL,
			in_ham INTEGER NOT NULL,
			sources TEXT NOT NULL,
			category TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteRepository{sqlRepository: &sqlRepository{db: db, name: "sqlite", logger: logger}}, nil
}
