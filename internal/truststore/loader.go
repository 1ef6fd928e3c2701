package truststore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// ErrNoDomainColumn is returned when a trusted-domains table has no domain column
var ErrNoDomainColumn = errors.New("trusted domains table has no domain column")

// LoadTrustedDomains reads a reputation table (or a plain single-column domain list
// with a "domain" header) and returns the domains whose legitimacy score is at least
// threshold. Rows are kept unfiltered when the table has no legitimacy_score column.
func LoadTrustedDomains(r io.Reader, threshold int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	domainCol, scoreCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "domain":
			domainCol = i
		case "legitimacy_score":
			scoreCol = i
		}
	}
	if domainCol < 0 {
		return nil, ErrNoDomainColumn
	}

	var domains []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if domainCol >= len(row) {
			continue
		}
		if scoreCol >= 0 {
			if scoreCol >= len(row) {
				continue
			}
			score, err := strconv.Atoi(strings.TrimSpace(row[scoreCol]))
			if err != nil || score < threshold {
				continue
			}
		}
		if d := strings.TrimSpace(row[domainCol]); d != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// LoadSafeHostnames reads the line-oriented safe-hostname artifact. Every line may
// hold several comma-separated URLs or hostnames; each is reduced to its hostname.
func LoadSafeHostnames(r io.Reader) ([]string, error) {
	var hosts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, entry := range strings.Split(scanner.Text(), ",") {
			if host := SafeHostname(entry); host != "" {
				hosts = append(hosts, host)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read safe hostnames: %w", err)
	}
	return hosts, nil
}

// SafeHostname normalises one safe-hostname entry: https:// is assumed when no scheme
// is given and only the lowercased hostname is kept. Empty and "nan" entries yield "".
func SafeHostname(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" || strings.EqualFold(entry, "nan") {
		return ""
	}
	if !strings.Contains(entry, "://") {
		entry = "https://" + entry
	}
	u, err := url.Parse(entry)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// FromReputation returns the rows at or above threshold, in table order
func FromReputation(rows []core.DomainReputation, threshold int) []string {
	var domains []string
	for _, row := range rows {
		if row.LegitimacyScore >= threshold {
			domains = append(domains, row.Domain)
		}
	}
	return domains
}

// LoadFiles builds a store from the artifact files. A missing or unreadable file
// leaves its set empty and is logged; the store is still usable.
func LoadFiles(domainsFile, safeHostsFile string, threshold int, extraSafe []string, logger *zap.Logger) *Store {
	var trusted []string

	if domainsFile != "" {
		if f, err := os.Open(domainsFile); err != nil {
			logger.Warn("Trusted domains file unavailable, continuing with empty set",
				zap.String("path", domainsFile), zap.Error(err))
		} else {
			trusted, err = LoadTrustedDomains(f, threshold)
			f.Close()
			if err != nil {
				logger.Warn("Failed to parse trusted domains file",
					zap.String("path", domainsFile), zap.Error(err))
				trusted = nil
			}
		}
	}

	return Build(trusted, safeHostsFile, extraSafe, logger)
}

// Build creates a store from an already resolved trusted set plus the safe
// hostnames file and any extra configured entries.
func Build(trusted []string, safeHostsFile string, extraSafe []string, logger *zap.Logger) *Store {
	var safe []string

	if safeHostsFile != "" {
		if f, err := os.Open(safeHostsFile); err != nil {
			logger.Warn("Safe hostnames file unavailable, continuing with empty set",
				zap.String("path", safeHostsFile), zap.Error(err))
		} else {
			safe, err = LoadSafeHostnames(f)
			f.Close()
			if err != nil {
				logger.Warn("Failed to parse safe hostnames file",
					zap.String("path", safeHostsFile), zap.Error(err))
				safe = nil
			}
		}
	}

	for _, entry := range extraSafe {
		if host := SafeHostname(entry); host != "" {
			safe = append(safe, host)
		}
	}

	store := NewStore(trusted, safe)
	logger.Info("Trust store loaded",
		zap.Int("trusted_domains", store.Len()),
		zap.Int("safe_hostnames", store.SafeHostnames()))
	return store
}
