package lookalike

import (
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// Options tune the lookalike decision
type Options struct {
	// MaxDistance is the largest edit distance still flagged as a lookalike
	MaxDistance int
	// CountExact flags exact trusted matches (distance 0) as lookalikes
	CountExact bool
	// Combosquat also compares each hyphen-separated token of the candidate's
	// registrable label, re-joined with its suffix
	Combosquat bool
}

// DefaultOptions returns the historical settings
func DefaultOptions() Options {
	return Options{MaxDistance: 2, CountExact: true, Combosquat: true}
}

// Detector implements core.LookalikeDetector on top of an Index
type Detector struct {
	index  Index
	opts   Options
	logger *zap.Logger
}

// NewDetector creates a detector over index
func NewDetector(index Index, opts Options, logger *zap.Logger) *Detector {
	return &Detector{index: index, opts: opts, logger: logger}
}

// Nearest returns the trusted domain closest to candidate. With combosquatting
// enabled the smallest distance over the candidate and its variants wins, and the
// whole candidate wins ties.
func (d *Detector) Nearest(candidate string) core.LookalikeMatch {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	domain, dist, ok := d.index.Nearest(candidate)
	if !ok {
		return core.LookalikeMatch{}
	}
	match := core.LookalikeMatch{Distance: dist, Domain: domain}

	if !d.opts.Combosquat {
		return match
	}
	for _, variant := range Variants(candidate) {
		vd, vdist, _ := d.index.Nearest(variant)
		if vdist < match.Distance {
			d.logger.Debug("Combosquat variant is closer",
				zap.String("candidate", candidate),
				zap.String("variant", variant),
				zap.String("nearest", vd),
				zap.Int("distance", vdist))
			match = core.LookalikeMatch{Distance: vdist, Domain: vd}
		}
	}
	return match
}

// IsLookalike applies the distance threshold
func (d *Detector) IsLookalike(match core.LookalikeMatch) bool {
	if match.Domain == "" {
		return false
	}
	if match.Distance == 0 && !d.opts.CountExact {
		return false
	}
	return match.Distance <= d.opts.MaxDistance
}

// Variants splits the registrable label of domain on hyphens and re-joins every
// token with the public suffix: paypa1-secure.com gives paypa1.com and secure.com.
// Domains without a hyphenated label have no variants.
func Variants(domain string) []string {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == "" || suffix == domain {
		return nil
	}
	rest := strings.TrimSuffix(domain, "."+suffix)
	if i := strings.LastIndex(rest, "."); i >= 0 {
		rest = rest[i+1:]
	}
	tokens := strings.Split(rest, "-")
	if len(tokens) < 2 {
		return nil
	}

	var out []string
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok+"."+suffix)
		}
	}
	return out
}
