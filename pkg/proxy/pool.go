package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when marking a proxy the pool does not hold.
var ErrUnknownProxy = errors.New("proxy: not found in pool")

type contextKey struct{}

// endpoint is one outbound proxy with health tracking.
type endpoint struct {
	url           *url.URL
	failures      int
	disabledUntil time.Time
}

func (e *endpoint) disabled(now time.Time) bool {
	return now.Before(e.disabledUntil)
}

// Pool rotates search traffic across a set of outbound proxies, benching a
// proxy for a cooldown after repeated transport failures.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	byURL       map[string]*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures before benching a proxy.
	MaxFailures int
	// Cooldown is how long a benched proxy is skipped.
	Cooldown time.Duration
}

// NewPool creates an empty pool. Zero config values fall back to 3 failures
// and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		byURL:       make(map[string]*endpoint),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// LoadFile adds proxies from a file with one URL per line. Blank lines and
// lines starting with '#' are ignored.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}

	return p.Add(lines...)
}

// Add parses raw proxy URLs and appends them to the rotation. A missing
// scheme defaults to http. Duplicates are ignored.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		key := u.String()
		if _, ok := p.byURL[key]; ok {
			continue
		}
		e := &endpoint{url: u}
		p.endpoints = append(p.endpoints, e)
		p.byURL[key] = e
	}
	return nil
}

// Len returns the number of proxies in the pool, healthy or not.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next healthy proxy in round-robin order, or nil when the
// pool is empty or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	now := time.Now()
	for i := 0; i < n; i++ {
		e := p.endpoints[p.next]
		p.next = (p.next + 1) % n
		if e.disabled(now) {
			continue
		}
		if !e.disabledUntil.IsZero() {
			// Cooldown elapsed; give it a clean slate.
			e.disabledUntil = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// MarkSuccess decays the failure count of proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	e, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.failures > 0 {
		e.failures--
	}
	return nil
}

// MarkFailure records a failure for proxyURL and benches it once the
// configured maximum is reached.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	e, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.failures++
	if e.failures >= p.maxFailures {
		e.disabledUntil = time.Now().Add(p.cooldown)
	}
	return nil
}

func (p *Pool) lookup(proxyURL *url.URL) (*endpoint, error) {
	if proxyURL == nil {
		return nil, errors.New("proxy: nil url")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byURL[proxyURL.String()]
	if !ok {
		return nil, ErrUnknownProxy
	}
	return e, nil
}

// WithProxy attaches proxyURL to ctx so that ProxyFunc routes the request
// through it.
func WithProxy(ctx context.Context, proxyURL *url.URL) context.Context {
	return context.WithValue(ctx, contextKey{}, proxyURL)
}

// FromContext returns the proxy attached by WithProxy, if any.
func FromContext(ctx context.Context) *url.URL {
	u, _ := ctx.Value(contextKey{}).(*url.URL)
	return u
}

// ProxyFunc is an http.Transport.Proxy implementation that honours a proxy
// chosen per request via WithProxy and otherwise falls back to the
// environment.
func ProxyFunc(req *http.Request) (*url.URL, error) {
	if u := FromContext(req.Context()); u != nil {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}
