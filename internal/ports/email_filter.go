package ports

import (
	"context"

	"github.com/mikey/phishing-filter/internal/core"
)

// EmailFilter is a request-handling boundary in front of the phishing service
type EmailFilter interface {
	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}

// RecordProcessor analyses a single record on demand
type RecordProcessor interface {
	EmailFilter

	// ProcessRecord analyses record and reports the verdict
	ProcessRecord(ctx context.Context, record core.EmailRecord) (*core.AnalysisResult, error)
}
