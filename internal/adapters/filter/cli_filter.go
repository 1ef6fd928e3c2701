package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// CliFilter analyses one record and prints the explanation
type CliFilter struct {
	service *core.PhishingService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
	asJSON  bool
}

// NewCliFilter creates a new CLI filter writing to stdout
func NewCliFilter(service *core.PhishingService, logger *zap.Logger, verbose, asJSON bool) *CliFilter {
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     os.Stdout,
		verbose: verbose,
		asJSON:  asJSON,
	}
}

// SetOutput redirects the printed report
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessRecord analyses record and prints the result
func (f *CliFilter) ProcessRecord(ctx context.Context, record core.EmailRecord) (*core.AnalysisResult, error) {
	f.logger.Debug("Processing record", zap.String("sender", record.SenderEmail))

	start := time.Now()
	result := f.service.Evaluate(ctx, record)
	duration := time.Since(start)

	if f.asJSON {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return result, enc.Encode(result)
	}

	f.printSummary(record)
	Render(f.out, result)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	return result, nil
}

func (f *CliFilter) printSummary(record core.EmailRecord) {
	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", record.SenderEmail)
	fmt.Fprintf(f.out, "Subject: %s\n", record.Subject)
	if record.URL != "" {
		fmt.Fprintf(f.out, "URL: %s\n", record.URL)
	}
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(record.Body))

	if f.verbose {
		preview := record.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}
}

// Render writes the human-readable explanation of result
func Render(w io.Writer, result *core.AnalysisResult) {
	fmt.Fprintf(w, "\n=== Results ===\n")
	fmt.Fprintf(w, "Final label: %s\n", result.FinalLabel)
	fmt.Fprintf(w, "Overall score: %.2f (%d votes)\n", result.OverallScore, result.SpamVotes)
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
		return
	}

	fmt.Fprintf(w, "\n=== Checks ===\n")
	for _, c := range result.Checks {
		mark := " "
		if c.Fired {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", mark, c.Name, c.Description)
	}

	fmt.Fprintf(w, "\n=== Keywords ===\n")
	fmt.Fprintf(w, "Score: %d (%s)\n", result.KeywordScore, result.KeywordLabel)
	if len(result.Keywords) > 0 {
		fmt.Fprintf(w, "Matched: %s\n", strings.Join(result.Keywords, ", "))
	}

	if len(result.URLs) > 0 {
		fmt.Fprintf(w, "\n=== Domains ===\n")
		for i, d := range result.URLs {
			trust := "untrusted"
			if result.URLCheck[i] {
				trust = "trusted"
			}
			match := result.EditCheck[i]
			if match.Domain == "" {
				fmt.Fprintf(w, "%s: %s, no trusted neighbour\n", d, trust)
				continue
			}
			fmt.Fprintf(w, "%s: %s, nearest %s (distance %d)\n", d, trust, match.Domain, match.Distance)
		}
	}

	fmt.Fprintf(w, "\n=== Sender reputation ===\n")
	if !result.Reputation.Found {
		fmt.Fprintf(w, "%s\n", core.NotFound)
		return
	}
	rep := result.Reputation.Reputation
	fmt.Fprintf(w, "%s: score %d, %s (spam %d, ham %d)\n",
		rep.Domain, rep.LegitimacyScore, rep.Category, rep.InSpam, rep.InHam)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
