package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLRepository stores the reputation table in MySQL
type MySQLRepository struct {
	*sqlRepository
}

// NewMySQLRepository connects to dsn and creates the table if needed
func NewMySQLRepository(dsn string, logger *zap.Logger) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain VARCHAR(253) PRIMARY KEY,
			legitimacy_score INT NOT NULL,
			total_occurrences INT NOT NULL,
			in_spam INT NOT NULL,
			in_ham INT NOT NULL,
			sources VARCHAR(32) NOT NULL,
			category VARCHAR(16) NOT NULL,
			INDEX idx_legitimacy_score (legitimacy_score)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLRepository{sqlRepository: &sqlRepository{db: db, name: "mysql", logger: logger}}, nil
}
