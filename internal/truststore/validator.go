package truststore

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mikey/phishing-filter/internal/domains"
)

// Verdict is the outcome of validating a domain or URL
type Verdict int

const (
	// Invalid means the input has a disallowed scheme or a malformed host
	Invalid Verdict = iota
	// Untrusted means the host is well formed but not in the store
	Untrusted
	// Trusted means the host or its registrable domain is in the store
	Trusted
)

func (v Verdict) String() string {
	switch v {
	case Trusted:
		return "trusted"
	case Untrusted:
		return "untrusted"
	default:
		return "invalid"
	}
}

var (
	labelPattern    = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	finalLabelShape = regexp.MustCompile(`^[a-z]{2,}$`)
)

// Validator checks domains and URLs against a Store
type Validator struct {
	store *Store
}

// NewValidator creates a validator backed by store
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// Check classifies raw. Inputs without a scheme are treated as https.
func (v *Validator) Check(raw string) Verdict {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Invalid
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Invalid
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Invalid
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if !ValidHostname(host) {
		return Invalid
	}

	if v.store.IsTrusted(domains.Normalize(host)) ||
		v.store.IsSafeHost(domains.Normalize(host)) ||
		v.store.IsSafeHost(host) {
		return Trusted
	}
	return Untrusted
}

// Validate reports whether raw is trusted
func (v *Validator) Validate(raw string) bool {
	return v.Check(raw) == Trusted
}

// ValidHostname reports whether host is a dotted name of letter/digit/hyphen labels
// with an alphabetic final label of at least two characters.
func ValidHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || !labelPattern.MatchString(label) {
			return false
		}
	}
	return finalLabelShape.MatchString(labels[len(labels)-1])
}
