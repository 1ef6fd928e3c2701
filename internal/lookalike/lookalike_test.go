package lookalike

import (
	"reflect"
	"testing"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

var trusted = []string{
	"paypal.com",
	"google.com",
	"github.com",
	"microsoft.com",
	"apache.org",
	"gnu.org",
	"kernel.org",
	"linux.ie",
}

func TestDistanceProperties(t *testing.T) {
	if got := Distance("paypa1.com", "paypal.com"); got != 1 {
		t.Errorf("Distance(paypa1.com, paypal.com) = %d, want 1", got)
	}
	if got := Distance("PayPal.com", "paypal.com"); got != 0 {
		t.Errorf("expected case-insensitive distance, got %d", got)
	}

	words := []string{"abcd", "abdc", "bacd", "gnu.org", "gnv.org", "kernel.org"}
	for _, a := range words {
		for _, b := range words {
			if Distance(a, b) != Distance(b, a) {
				t.Errorf("distance not symmetric for %q, %q", a, b)
			}
			for _, c := range words {
				if Distance(a, c) > Distance(a, b)+Distance(b, c) {
					t.Errorf("triangle inequality violated for %q, %q, %q", a, b, c)
				}
			}
		}
	}
}

func TestIndexesAgree(t *testing.T) {
	linear := NewLinearIndex(trusted)
	tree := NewBKTree(trusted)

	queries := []string{
		"paypa1.com", "goog1e.com", "github.com", "gnu.org", "gnv.org",
		"micros0ft.com", "example.com", "a.io", "linux.ie", "kernal.org",
	}
	for _, q := range queries {
		ld, ldist, _ := linear.Nearest(q)
		td, tdist, _ := tree.Nearest(q)
		if ld != td || ldist != tdist {
			t.Errorf("Nearest(%q): linear=(%s,%d) bktree=(%s,%d)", q, ld, ldist, td, tdist)
		}
	}
	if tree.Len() != len(trusted) || linear.Len() != len(trusted) {
		t.Errorf("unexpected index sizes %d, %d", tree.Len(), linear.Len())
	}
}

func TestTieBreakFirstInserted(t *testing.T) {
	domains := []string{"abc.com", "abd.com", "abe.com"}
	for _, idx := range []Index{NewLinearIndex(domains), NewBKTree(domains)} {
		d, dist, ok := idx.Nearest("abz.com")
		if !ok || d != "abc.com" || dist != 1 {
			t.Errorf("%T.Nearest() = (%s, %d, %v), want (abc.com, 1, true)", idx, d, dist, ok)
		}
	}
}

func TestEmptyIndex(t *testing.T) {
	for _, idx := range []Index{NewLinearIndex(nil), NewBKTree(nil)} {
		if _, _, ok := idx.Nearest("example.com"); ok {
			t.Errorf("%T: expected no match from empty index", idx)
		}
	}

	det := NewDetector(NewLinearIndex(nil), DefaultOptions(), zap.NewNop())
	match := det.Nearest("example.com")
	if match.Domain != "" || det.IsLookalike(match) {
		t.Errorf("empty store should never produce a lookalike, got %+v", match)
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		domain   string
		expected []string
	}{
		{domain: "paypa1-secure.com", expected: []string{"paypa1.com", "secure.com"}},
		{domain: "login-paypal-verify.co.uk", expected: []string{"login.co.uk", "paypal.co.uk", "verify.co.uk"}},
		{domain: "paypal.com", expected: nil},
		{domain: "com", expected: nil},
		{domain: "a--b.com", expected: []string{"a.com", "b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := Variants(tt.domain); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Variants(%q) = %v, want %v", tt.domain, got, tt.expected)
			}
		})
	}
}

func TestDetector(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		candidate string
		expected  core.LookalikeMatch
		lookalike bool
	}{
		{
			name:      "Single substitution",
			opts:      DefaultOptions(),
			candidate: "paypa1.com",
			expected:  core.LookalikeMatch{Distance: 1, Domain: "paypal.com"},
			lookalike: true,
		},
		{
			name:      "Combosquat variant",
			opts:      DefaultOptions(),
			candidate: "paypa1-secure.com",
			expected:  core.LookalikeMatch{Distance: 1, Domain: "paypal.com"},
			lookalike: true,
		},
		{
			name:      "Combosquat disabled",
			opts:      Options{MaxDistance: 2, CountExact: true},
			candidate: "paypa1-secure.com",
			expected:  core.LookalikeMatch{Distance: 8, Domain: "paypal.com"},
			lookalike: false,
		},
		{
			name:      "Exact match counted",
			opts:      DefaultOptions(),
			candidate: "GitHub.com",
			expected:  core.LookalikeMatch{Distance: 0, Domain: "github.com"},
			lookalike: true,
		},
		{
			name:      "Exact match excluded",
			opts:      Options{MaxDistance: 2, CountExact: false, Combosquat: true},
			candidate: "github.com",
			expected:  core.LookalikeMatch{Distance: 0, Domain: "github.com"},
			lookalike: false,
		},
		{
			name:      "Far away",
			opts:      DefaultOptions(),
			candidate: "totally-unrelated-site.info",
			lookalike: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := NewDetector(NewBKTree(trusted), tt.opts, zap.NewNop())
			got := det.Nearest(tt.candidate)
			if tt.expected.Domain != "" && got != tt.expected {
				t.Errorf("Nearest(%q) = %+v, want %+v", tt.candidate, got, tt.expected)
			}
			if det.IsLookalike(got) != tt.lookalike {
				t.Errorf("IsLookalike(%+v) = %v, want %v", got, !tt.lookalike, tt.lookalike)
			}
		})
	}
}
