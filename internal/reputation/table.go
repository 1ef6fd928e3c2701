package reputation

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
)

// Columns is the reputation table header, in file order
var Columns = []string{
	"domain", "legitimacy_score", "total_occurrences", "in_spam", "in_ham", "sources", "category",
}

var (
	// ErrMissingColumns is returned when a reputation table lacks a required column
	ErrMissingColumns = errors.New("reputation table is missing required columns")
	// ErrNoLabelColumn is returned when a corpus has no label column
	ErrNoLabelColumn = errors.New("corpus has no label column")
)

// WriteTable writes rows with the Columns header
func WriteTable(w io.Writer, rows []core.DomainReputation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Domain,
			strconv.Itoa(row.LegitimacyScore),
			strconv.Itoa(row.TotalOccurrences),
			strconv.Itoa(row.InSpam),
			strconv.Itoa(row.InHam),
			JoinSources(row.Sources),
			string(row.Category),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.Domain, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLegitimate writes the rows at or above threshold
func WriteLegitimate(w io.Writer, rows []core.DomainReputation, threshold int) error {
	var kept []core.DomainReputation
	for _, row := range rows {
		if row.LegitimacyScore >= threshold {
			kept = append(kept, row)
		}
	}
	return WriteTable(w, kept)
}

// ReadTable parses a reputation table. Every column of Columns must be present,
// in any order; ErrMissingColumns is returned otherwise.
func ReadTable(r io.Reader) ([]core.DomainReputation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := indexColumns(header)
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, col)
		}
	}

	var rows []core.DomainReputation
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		get := func(col string) string {
			if i := idx[col]; i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		row := core.DomainReputation{
			Domain:   strings.ToLower(get("domain")),
			Sources:  SplitSources(get("sources")),
			Category: core.Category(get("category")),
		}
		if row.Domain == "" {
			continue
		}
		for col, dst := range map[string]*int{
			"legitimacy_score":  &row.LegitimacyScore,
			"total_occurrences": &row.TotalOccurrences,
			"in_spam":           &row.InSpam,
			"in_ham":            &row.InHam,
		} {
			n, err := strconv.Atoi(get(col))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, col, err)
			}
			*dst = n
		}
		if row.Category == "" {
			row.Category = core.CategoryFor(row.LegitimacyScore)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCorpus parses a labeled corpus. The label column (1 = spam) is required;
// subject, body, from, to and urls are optional. "nan" cells are read as empty.
func ReadCorpus(r io.Reader) ([]CorpusRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := indexColumns(header)
	labelCol, ok := idx["label"]
	if !ok {
		return nil, ErrNoLabelColumn
	}

	var records []CorpusRecord
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			v := record[i]
			if strings.EqualFold(strings.TrimSpace(v), "nan") {
				return ""
			}
			return v
		}

		if labelCol >= len(record) {
			continue
		}
		records = append(records, CorpusRecord{
			Spam:    isSpamLabel(record[labelCol]),
			Subject: get("subject"),
			Body:    get("body"),
			From:    get("from"),
			To:      get("to"),
			URLs:    get("urls"),
		})
	}
	return records, nil
}

// WriteSafeURLs writes the urls field of every ham record, one record per line,
// in the layout read back by the safe-hostname loader. It returns the number of
// lines written.
func WriteSafeURLs(w io.Writer, records []CorpusRecord) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, rec := range records {
		urls := strings.Join(strings.Fields(rec.URLs), ",")
		if rec.Spam || urls == "" {
			continue
		}
		if _, err := bw.WriteString(urls + "\n"); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// JoinSources renders sources as "from, urls"
func JoinSources(sources []core.Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// SplitSources parses the output of JoinSources
func SplitSources(s string) []core.Source {
	var out []core.Source
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, core.Source(part))
		}
	}
	return out
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

func isSpamLabel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "1.0", "spam", "true":
		return true
	default:
		return false
	}
}
