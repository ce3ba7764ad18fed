package dedup

import (
	"net/url"
	"sort"
	"strings"

	"github.com/FranksOps/pilotjobs/internal/jobs"
)

// KeyFunc derives the identity of a record for deduplication.
type KeyFunc func(jobs.Record) string

// ExactURL uses the URL string verbatim. Two URLs that differ only in case or
// a trailing slash are distinct.
func ExactURL(r jobs.Record) string {
	return r.URL
}

// CanonicalURL keys records by Canonical(r.URL).
func CanonicalURL(r jobs.Record) string {
	return Canonical(r.URL)
}

// Dedupe returns the first record for each distinct URL, in input order.
// Later duplicates are dropped as-is; titles and snippets are never merged.
func Dedupe(records []jobs.Record) []jobs.Record {
	return DedupeFunc(records, ExactURL)
}

// DedupeFunc is Dedupe with a caller-supplied identity.
func DedupeFunc(records []jobs.Record, key KeyFunc) []jobs.Record {
	if key == nil {
		key = ExactURL
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]jobs.Record, 0, len(records))
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Canonical normalizes a URL so that trivially different spellings of the
// same address compare equal: scheme and host are lower-cased, default ports
// and fragments are dropped, a trailing slash on the path is removed and
// query parameters are sorted. Unparseable input is returned trimmed but
// otherwise unchanged.
func Canonical(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, vals := range q {
			sort.Strings(vals)
		}
		// Encode sorts by key.
		u.RawQuery = q.Encode()
	}

	return u.String()
}
