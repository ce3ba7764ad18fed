package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/pilotjobs/internal/fingerprint"
	"github.com/FranksOps/pilotjobs/pkg/proxy"
	"github.com/FranksOps/pilotjobs/pkg/useragent"
)

// DefaultUserAgent identifies pilotjobs to search APIs.
const DefaultUserAgent = "pilotjobs/1.0 (+https://github.com/FranksOps/pilotjobs)"

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero means 10; negative disables
	// following entirely.
	MaxRedirects int
	// UserAgent is sent when a request does not set one. useragent.Rotate
	// cycles browser User-Agents matching Fingerprint; useragent.Random picks
	// one of them per request.
	UserAgent string
	// Fingerprint selects the TLS ClientHello. Ignored when Transport is set.
	Fingerprint fingerprint.Profile
	// Proxies, when non-empty, rotates requests across outbound proxies.
	Proxies *proxy.Pool
	// OnProxyFailure is called after a transport error through a proxy.
	OnProxyFailure func(proxyURL *url.URL)
	// Transport overrides the fingerprinted transport, e.g. in tests.
	Transport http.RoundTripper
}

// Client wraps a standard http.Client with a redirect policy, a default
// User-Agent and optional proxy rotation.
type Client struct {
	*http.Client
	userAgent      string
	pickUserAgent  func() string
	proxies        *proxy.Pool
	onProxyFailure func(*url.URL)
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &http.Client{Timeout: cfg.Timeout}

	if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("httpclient: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	transport := cfg.Transport
	if transport == nil {
		var proxyFunc func(*http.Request) (*url.URL, error)
		if cfg.Proxies.Len() > 0 {
			proxyFunc = proxy.ProxyFunc
		}
		t, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
		if err != nil {
			return nil, fmt.Errorf("httpclient: %w", err)
		}
		transport = t
	}
	c.Transport = transport

	var pick func() string
	switch cfg.UserAgent {
	case useragent.Rotate:
		pick = useragent.ForBrowser(string(cfg.Fingerprint)).Next
	case useragent.Random:
		pick = useragent.ForBrowser(string(cfg.Fingerprint)).Random
	}

	return &Client{
		Client:         c,
		userAgent:      cfg.UserAgent,
		pickUserAgent:  pick,
		proxies:        cfg.Proxies,
		onProxyFailure: cfg.OnProxyFailure,
	}, nil
}

// Do executes req under ctx, which controls cancellation independently of
// the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	var active *url.URL
	if c.proxies.Len() > 0 {
		if active = c.proxies.Next(); active != nil {
			ctx = proxy.WithProxy(ctx, active)
		}
	}

	r := req.Clone(ctx)
	if r.Header.Get("User-Agent") == "" {
		if c.pickUserAgent != nil {
			r.Header.Set("User-Agent", c.pickUserAgent())
		} else {
			r.Header.Set("User-Agent", c.userAgent)
		}
	}

	resp, err := c.Client.Do(r)
	if err != nil {
		if active != nil {
			_ = c.proxies.MarkFailure(active)
			if c.onProxyFailure != nil {
				c.onProxyFailure(active)
			}
		}
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	if active != nil {
		_ = c.proxies.MarkSuccess(active)
	}
	return resp, nil
}

// Get issues a GET for rawURL with the given headers.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req)
}
