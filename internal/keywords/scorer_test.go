package keywords

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mikey/phishing-filter/internal/core"
)

func TestScoreSubjectOutweighsBodyTail(t *testing.T) {
	s := Default()

	subject := "URGENT: verify your account"
	found := s.FindKeywords(subject)
	if want := []string{"urgent", "verify your account"}; !reflect.DeepEqual(found, want) {
		t.Fatalf("FindKeywords() = %v, want %v", found, want)
	}

	subjectScore := s.Score(subject, "")
	if subjectScore < 3*len(found) {
		t.Errorf("subject score %d below %d", subjectScore, 3*len(found))
	}

	tail := strings.Repeat("x", 250) + " " + subject
	tailScore := s.Score("", tail)
	if tailScore >= subjectScore {
		t.Errorf("body tail score %d should be below subject score %d", tailScore, subjectScore)
	}
}

func TestScoreWeights(t *testing.T) {
	s := Default()
	padding := strings.Repeat("a", 300)

	tests := []struct {
		name     string
		subject  string
		body     string
		expected int
	}{
		{name: "Empty", subject: "", body: "", expected: 0},
		{name: "Subject only", subject: "Security alert", body: "", expected: 3},
		{name: "Body lead", subject: "", body: "Please click here", expected: 2},
		{name: "Body tail", subject: "", body: padding + " click here", expected: 1},
		{name: "Mixed", subject: "winner", body: "prize " + padding + " lottery", expected: 3 + 2 + 1},
		{name: "Whole words only", subject: "freedom passwords", body: "", expected: 0},
		{name: "Case insensitive", subject: "PASSWORD", body: "", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.subject, tt.body); got != tt.expected {
				t.Errorf("Score() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestLeadCountsRunes(t *testing.T) {
	s := Default()
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		// rune 199, byte 397
		{name: "Last lead rune", body: strings.Repeat("é", 198) + " urgent", expected: 2},
		{name: "First rune past lead", body: strings.Repeat("é", 199) + " urgent", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score("", tt.body); got != tt.expected {
				t.Errorf("Score() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	s := Default()
	if s.Label(49) != core.LabelSafe || s.Label(50) != core.LabelSpam {
		t.Error("label threshold should be 50")
	}
}

func TestHighlight(t *testing.T) {
	opts := DefaultOptions()
	opts.HighlightOpen, opts.HighlightClose = "[", "]"
	s, err := NewScorer(DefaultKeywords, opts)
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}

	tests := []struct {
		input    string
		expected string
	}{
		{input: "Please Verify Your Account now!", expected: "Please [Verify Your Account] now!"},
		{input: "Nothing here.", expected: "Nothing here."},
		{input: "URGENT: <b>click here</b>", expected: "[URGENT]: <b>[click here]</b>"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := s.Highlight(tt.input); got != tt.expected {
				t.Errorf("Highlight() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHighlightCoversEveryCountedMatch(t *testing.T) {
	s := Default()
	text := "Urgent! Your PASSWORD expires. Click   here to verify."
	highlighted := s.Highlight(text)
	if got, want := strings.Count(highlighted, DefaultOptions().HighlightOpen), s.Score(text, "")/3; got != want {
		t.Errorf("highlighted %d matches, scored %d", got, want)
	}
}

func TestAnalyze(t *testing.T) {
	s := Default()
	res := s.Analyze("Action required", "Your account suspended. Click here.")

	if res.Score != 3+2+2 {
		t.Errorf("Score = %d, want 7", res.Score)
	}
	if res.Label != core.LabelSafe {
		t.Errorf("Label = %s, want Safe", res.Label)
	}
	want := []string{"account suspended", "action required", "click here"}
	if !reflect.DeepEqual(res.Keywords, want) {
		t.Errorf("Keywords = %v, want %v", res.Keywords, want)
	}
}

func TestAnalyzeIsolatedBetweenCalls(t *testing.T) {
	s := Default()
	s.Analyze("winner prize lottery", "")
	res := s.Analyze("", "")
	if res.Score != 0 || len(res.Keywords) != 0 {
		t.Errorf("expected clean result, got %+v", res)
	}
}

func TestLoadKeywords(t *testing.T) {
	terms, err := LoadKeywords(strings.NewReader("# custom\nwire funds\n\n  Tax Refund \n"))
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if want := []string{"wire funds", "Tax Refund"}; !reflect.DeepEqual(terms, want) {
		t.Errorf("LoadKeywords() = %v, want %v", terms, want)
	}

	s, err := NewScorer(terms, DefaultOptions())
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}
	if got := s.FindKeywords("Claim your TAX  refund"); !reflect.DeepEqual(got, []string{"tax refund"}) {
		t.Errorf("FindKeywords() = %v", got)
	}
}

func TestNewScorerRejectsEmpty(t *testing.T) {
	if _, err := NewScorer([]string{" ", ""}, DefaultOptions()); err == nil {
		t.Error("expected error for empty keyword set")
	}
}
