package domains

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var (
	// urlPattern matches http(s) links and bare www. hosts. Brackets, commas and
	// closing angle brackets terminate a candidate so enclosing markup is never absorbed.
	urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s,()\[\]<>"']+`)

	// emailPattern captures the host part of local@host addresses
	emailPattern = regexp.MustCompile(`[\w.+-]+@([\w-]+(?:\.[\w-]+)+)`)
)

// trailingPunctuation is stripped from the end of a URL candidate
const trailingPunctuation = ".,;:!?'\""

// compoundSecondLevel and compoundCountryCodes drive the base-domain exception
// for suffixes such as co.uk or com.au.
var (
	compoundSecondLevel  = map[string]bool{"co": true, "com": true, "org": true, "net": true, "gov": true, "edu": true}
	compoundCountryCodes = map[string]bool{"uk": true, "au": true, "nz": true, "jp": true, "in": true}
)

// Normalize reduces a hostname to its registrable domain (domain + public suffix),
// lowercased. Only ICANN suffixes count. Hosts that cannot be decomposed, such as
// IP literals, bare suffixes, single labels or unlisted TLDs, are returned
// lowercased as-is.
func Normalize(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return host
	}

	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}

	suffix, ok := icannSuffix(ascii)
	if !ok || len(ascii) <= len(suffix)+1 || !strings.HasSuffix(ascii, "."+suffix) {
		return host
	}
	rest := ascii[:len(ascii)-len(suffix)-1]
	if i := strings.LastIndex(rest, "."); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return host
	}
	return strings.ToLower(rest + "." + suffix)
}

// icannSuffix returns the ICANN-managed public suffix of host. Private list
// entries such as blogspot.com are skipped in favour of the ICANN suffix
// beneath them. Hosts ending in an unlisted TLD report false.
func icannSuffix(host string) (string, bool) {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		i := strings.Index(suffix, ".")
		if i < 0 {
			return "", false
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	return suffix, true
}

// ExtractURLDomains returns the registrable domains of every link found in text,
// deduplicated in order of first appearance. It returns nil when nothing was found.
func ExtractURLDomains(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		host := hostFromCandidate(candidate)
		if host == "" {
			continue
		}
		out = appendUnique(out, seen, Normalize(host))
	}
	return out
}

// ExtractEmailDomains returns the registrable domains of every email address in text.
func ExtractEmailDomains(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, m := range emailPattern.FindAllStringSubmatch(text, -1) {
		out = appendUnique(out, seen, Normalize(m[1]))
	}
	return out
}

// ExtractDomains returns URL domains followed by email-address domains found in text,
// deduplicated and order-preserving.
func ExtractDomains(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range ExtractURLDomains(text) {
		out = appendUnique(out, seen, d)
	}
	for _, d := range ExtractEmailDomains(text) {
		out = appendUnique(out, seen, d)
	}
	return out
}

// hostFromCandidate parses a raw URL candidate and returns its hostname, or ""
// when the candidate has none. Candidates without a scheme are parsed as http.
func hostFromCandidate(candidate string) string {
	candidate = strings.TrimRight(candidate, trailingPunctuation)
	if candidate == "" {
		return ""
	}
	if !hasScheme(candidate) {
		candidate = "http://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// BaseDomain strips scheme, credentials, port, path, query and fragment from raw and
// keeps the last two labels of the host, or the last three for compound
// country-code suffixes like co.uk.
func BaseDomain(raw string) string {
	host := strings.TrimSpace(raw)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	n := len(labels)
	if n <= 2 {
		return host
	}
	if compoundSecondLevel[labels[n-2]] && compoundCountryCodes[labels[n-1]] {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

// EmailDomain returns the lowercased host part of an address such as
// "user@example.com" or "Name <user@example.com>".
func EmailDomain(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}

	at := strings.LastIndex(address, "@")
	if at < 0 {
		return "", false
	}
	domain := strings.Trim(strings.ToLower(strings.TrimSpace(address[at+1:])), ">.")
	if domain == "" {
		return "", false
	}
	return domain, true
}

func hasScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func appendUnique(out []string, seen map[string]struct{}, domain string) []string {
	if domain == "" {
		return out
	}
	if _, ok := seen[domain]; ok {
		return out
	}
	seen[domain] = struct{}{}
	return append(out, domain)
}
