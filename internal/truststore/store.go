package truststore

import (
	"strings"
)

// Store holds the corpus-derived trusted registrable domains and the curated safe
// hostnames. It is built once and only read afterwards, so it can be shared between
// concurrent requests without locking.
type Store struct {
	trusted      []string
	trustedIndex map[string]struct{}
	safe         map[string]struct{}
}

// NewStore creates a store from trusted domains and safe hostnames. Entries are
// lowercased and deduplicated; trusted order is kept for deterministic iteration.
// A safe hostname that is already trusted is kept only in the trusted set.
func NewStore(trusted, safe []string) *Store {
	s := &Store{
		trustedIndex: make(map[string]struct{}, len(trusted)),
		safe:         make(map[string]struct{}, len(safe)),
	}

	for _, d := range trusted {
		d = clean(d)
		if d == "" {
			continue
		}
		if _, ok := s.trustedIndex[d]; ok {
			continue
		}
		s.trustedIndex[d] = struct{}{}
		s.trusted = append(s.trusted, d)
	}

	for _, h := range safe {
		h = clean(h)
		if h == "" {
			continue
		}
		if _, ok := s.trustedIndex[h]; ok {
			continue
		}
		s.safe[h] = struct{}{}
	}

	return s
}

// IsTrusted reports whether domain is one of the trusted registrable domains
func (s *Store) IsTrusted(domain string) bool {
	if s == nil {
		return false
	}
	_, ok := s.trustedIndex[clean(domain)]
	return ok
}

// IsSafeHost reports whether host is one of the curated safe hostnames
func (s *Store) IsSafeHost(host string) bool {
	if s == nil {
		return false
	}
	_, ok := s.safe[clean(host)]
	return ok
}

// Domains returns the trusted domains in load order. The returned slice is a copy.
func (s *Store) Domains() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.trusted))
	copy(out, s.trusted)
	return out
}

// SafeHostnames returns the number of safe hostnames
func (s *Store) SafeHostnames() int {
	if s == nil {
		return 0
	}
	return len(s.safe)
}

// Len returns the number of trusted domains
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.trusted)
}

func clean(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
