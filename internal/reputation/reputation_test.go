package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

func TestLegitimacyScore(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		spam     int
		ham      int
		expected int
	}{
		{name: "Known legitimate org with ham", domain: "apache.org", ham: 3, expected: 100},
		{name: "Known legitimate com with ham", domain: "github.com", ham: 1, expected: 100},
		{name: "Single spam occurrence", domain: "cheap-pills.biz", spam: 1, expected: 5},
		{name: "Spam indicator only spam", domain: "freedeals.com", spam: 4, expected: 0},
		{name: "Tied counts com", domain: "example.com", spam: 2, ham: 2, expected: 55},
		{name: "Ham heavy net", domain: "example.net", spam: 1, ham: 3, expected: 80},
		{name: "Spam heavy org", domain: "example.org", spam: 3, ham: 1, expected: 40},
		{name: "Hotmail ham", domain: "hotmail.com", ham: 5, expected: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LegitimacyScore(tt.domain, tt.spam, tt.ham); got != tt.expected {
				t.Errorf("LegitimacyScore(%s, %d, %d) = %d, want %d", tt.domain, tt.spam, tt.ham, got, tt.expected)
			}
		})
	}
}

func TestCategoryMatchesScore(t *testing.T) {
	for score := 0; score <= 100; score++ {
		c := core.CategoryFor(score)
		switch {
		case score >= 70 && c != core.CategoryLegitimate,
			score < 40 && c != core.CategorySpam,
			score >= 40 && score < 70 && c != core.CategoryUncertain:
			t.Errorf("CategoryFor(%d) = %s", score, c)
		}
	}
}

func TestAnalyze(t *testing.T) {
	records := []CorpusRecord{
		{Spam: false, From: "dev@lists.apache.org", Body: "See https://www.apache.org/dist and https://apache.org/x"},
		{Spam: false, From: "ops@apache.org", URLs: "https://example.com/a https://apache.org/docs"},
		{Spam: true, From: "winner@promo-mail.biz", Body: "Claim at http://promo-mail.biz/claim"},
	}

	rows := NewAnalyzer(zap.NewNop()).Analyze(records)
	byDomain := make(map[string]core.DomainReputation)
	for _, r := range rows {
		byDomain[r.Domain] = r
	}

	apache, ok := byDomain["apache.org"]
	if !ok {
		t.Fatalf("apache.org missing from %v", rows)
	}
	if apache.TotalOccurrences != 2 || apache.InHam != 2 || apache.InSpam != 0 {
		t.Errorf("apache.org counts = %+v", apache)
	}
	if want := []core.Source{core.SourceFrom, core.SourceURLs}; !reflect.DeepEqual(apache.Sources, want) {
		t.Errorf("apache.org sources = %v, want %v", apache.Sources, want)
	}
	if apache.Category != core.CategoryLegitimate {
		t.Errorf("apache.org category = %s", apache.Category)
	}

	promo := byDomain["promo-mail.biz"]
	if promo.TotalOccurrences != 1 || promo.InSpam != 1 || promo.Category != core.CategorySpam {
		t.Errorf("promo-mail.biz = %+v", promo)
	}

	for i := 1; i < len(rows); i++ {
		if rows[i-1].LegitimacyScore < rows[i].LegitimacyScore {
			t.Fatalf("rows not sorted by score: %v", rows)
		}
	}
}

func TestAnalyzeSourcesFollowFields(t *testing.T) {
	records := []CorpusRecord{
		{Spam: true, Body: "Go to https://bodyonly.com now", From: "a@sender.com", To: "b@recipient.org"},
	}

	rows := NewAnalyzer(zap.NewNop()).Analyze(records)
	byDomain := make(map[string]core.DomainReputation)
	for _, r := range rows {
		byDomain[r.Domain] = r
	}

	tests := []struct {
		domain  string
		sources []core.Source
	}{
		{domain: "bodyonly.com", sources: nil},
		{domain: "recipient.org", sources: nil},
		{domain: "sender.com", sources: []core.Source{core.SourceFrom}},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			row, ok := byDomain[tt.domain]
			if !ok {
				t.Fatalf("%s missing from %v", tt.domain, rows)
			}
			if row.TotalOccurrences != 1 || row.InSpam != 1 {
				t.Errorf("%s counts = %+v", tt.domain, row)
			}
			if len(row.Sources) != len(tt.sources) || (len(tt.sources) > 0 && !reflect.DeepEqual(row.Sources, tt.sources)) {
				t.Errorf("%s sources = %v, want %v", tt.domain, row.Sources, tt.sources)
			}
		})
	}
}

func TestTableRoundTripPreservesLayout(t *testing.T) {
	rows := []core.DomainReputation{
		{Domain: "gnu.org", LegitimacyScore: 90, TotalOccurrences: 4, InHam: 4,
			Sources: []core.Source{core.SourceFrom, core.SourceURLs}, Category: core.CategoryLegitimate},
		{Domain: "spam.biz", LegitimacyScore: 5, TotalOccurrences: 1, InSpam: 1,
			Sources: []core.Source{core.SourceURLs}, Category: core.CategorySpam},
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, rows); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(Columns, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `gnu.org,90,4,0,4,"from, urls",legitimate` {
		t.Errorf("row = %q", lines[1])
	}

	got, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("ReadTable() = %+v, want %+v", got, rows)
	}
}

func TestWriteLegitimate(t *testing.T) {
	rows := []core.DomainReputation{
		{Domain: "a.org", LegitimacyScore: 70},
		{Domain: "b.com", LegitimacyScore: 69},
	}
	var buf bytes.Buffer
	if err := WriteLegitimate(&buf, rows, 70); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "b.com") || !strings.Contains(buf.String(), "a.org") {
		t.Errorf("unexpected legitimate table:\n%s", buf.String())
	}
}

func TestReadTableMissingColumns(t *testing.T) {
	_, err := ReadTable(strings.NewReader("domain,legitimacy_score\ngnu.org,90\n"))
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("expected ErrMissingColumns, got %v", err)
	}
}

func TestReadCorpus(t *testing.T) {
	input := "label,subject,body,urls\n1,Win,Click http://x.biz,nan\n0,Hi,Notes,https://gnu.org\n"
	records, err := ReadCorpus(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCorpus() error = %v", err)
	}
	want := []CorpusRecord{
		{Spam: true, Subject: "Win", Body: "Click http://x.biz"},
		{Spam: false, Subject: "Hi", Body: "Notes", URLs: "https://gnu.org"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadCorpus() = %+v, want %+v", records, want)
	}

	if _, err := ReadCorpus(strings.NewReader("subject,body\nx,y\n")); !errors.Is(err, ErrNoLabelColumn) {
		t.Errorf("expected ErrNoLabelColumn, got %v", err)
	}
}

type mapRepo struct {
	rows map[string]core.DomainReputation
	err  error
}

func (m *mapRepo) FindByDomain(_ context.Context, domain string) (*core.DomainReputation, error) {
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[domain]
	if !ok {
		return nil, core.ErrReputationNotFound
	}
	return &row, nil
}

func TestLookup(t *testing.T) {
	repo := &mapRepo{rows: map[string]core.DomainReputation{
		"gnu.org": {Domain: "gnu.org", LegitimacyScore: 90, Category: core.CategoryLegitimate},
	}}
	l := NewLookup(repo, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		sender string
		found  bool
	}{
		{name: "Exact domain", sender: "rms@GNU.org", found: true},
		{name: "Subdomain falls back to registrable", sender: "list@lists.gnu.org", found: true},
		{name: "Unknown domain", sender: "a@unknown.example", found: false},
		{name: "Malformed", sender: "not-an-email", found: false},
		{name: "Empty", sender: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Lookup(ctx, tt.sender); got.Found != tt.found {
				t.Errorf("Lookup(%q).Found = %v, want %v", tt.sender, got.Found, tt.found)
			}
		})
	}
}

func TestLookupDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	if NewLookup(nil, zap.NewNop()).Lookup(ctx, "a@gnu.org").Found {
		t.Error("nil repository should yield NotFound")
	}
	failing := NewLookup(&mapRepo{err: errors.New("connection refused")}, zap.NewNop())
	if failing.Lookup(ctx, "a@gnu.org").Found {
		t.Error("repository failure should yield NotFound")
	}
}

func TestNotFoundRendersEveryField(t *testing.T) {
	res := NewLookup(nil, zap.NewNop()).Lookup(context.Background(), "not-an-email")
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("NotFound should render as strings: %v", err)
	}
	for _, col := range Columns {
		if fields[col] != core.NotFound {
			t.Errorf("field %s = %q, want %q", col, fields[col], core.NotFound)
		}
	}
}

func TestWriteSafeURLs(t *testing.T) {
	records := []CorpusRecord{
		{Spam: false, URLs: "https://www.gnu.org/ http://lists.debian.org/x"},
		{Spam: true, URLs: "http://win-prize.biz"},
		{Spam: false, URLs: ""},
		{Spam: false, URLs: "kernel.org"},
	}

	var buf bytes.Buffer
	n, err := WriteSafeURLs(&buf, records)
	if err != nil {
		t.Fatalf("WriteSafeURLs() error = %v", err)
	}
	want := "https://www.gnu.org/,http://lists.debian.org/x\nkernel.org\n"
	if n != 2 || buf.String() != want {
		t.Errorf("WriteSafeURLs() = %d, %q; want 2, %q", n, buf.String(), want)
	}
}
