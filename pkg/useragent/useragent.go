// Package useragent supplies browser User-Agent strings that agree with the
// TLS fingerprint presented by the HTTP client.
package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// Configuration values that replace a fixed User-Agent with a browser one.
const (
	Rotate = "rotate" // round robin
	Random = "random" // uniform pick per request
)

var browsers = map[string][]string{
	"chrome": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	},
	"firefox": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	},
	"safari": {
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	},
}

// browserOrder keeps All deterministic.
var browserOrder = []string{"chrome", "firefox", "safari"}

// All returns every known browser User-Agent.
func All() []string {
	var out []string
	for _, b := range browserOrder {
		out = append(out, browsers[b]...)
	}
	return out
}

// Rotator hands out User-Agents round robin. It is safe for concurrent use.
type Rotator struct {
	uas     []string
	counter atomic.Uint64
}

// NewRotator copies uas. An empty list falls back to All.
func NewRotator(uas []string) *Rotator {
	if len(uas) == 0 {
		uas = All()
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Rotator{uas: copied}
}

// ForBrowser returns a rotator over the named browser family (chrome,
// firefox, safari). Any other name, including the Go TLS profile, rotates
// across every family.
func ForBrowser(name string) *Rotator {
	return NewRotator(browsers[strings.ToLower(strings.TrimSpace(name))])
}

// Next returns the next User-Agent in round-robin order.
func (r *Rotator) Next() string {
	if r == nil || len(r.uas) == 0 {
		return ""
	}
	idx := r.counter.Add(1) - 1
	return r.uas[idx%uint64(len(r.uas))]
}

// Random returns a random User-Agent using crypto/rand.
func (r *Rotator) Random() string {
	if r == nil || len(r.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(r.uas))))
	if err != nil {
		return r.Next()
	}
	return r.uas[n.Int64()]
}

// Len returns the number of User-Agents in rotation.
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.uas)
}
