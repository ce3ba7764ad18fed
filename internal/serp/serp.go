// Package serp queries web search APIs for job postings and normalizes their
// heterogeneous responses into jobs.Record values.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/pilotjobs/internal/blockdetect"
	"github.com/FranksOps/pilotjobs/pkg/httpclient"
)

// DefaultQuerySuffix is appended to every keyword.
const DefaultQuerySuffix = "pilot job"

// Provider is one search API. Search issues exactly one request for keyword
// and returns the decoded provider payload, or a *SearchFailure.
type Provider interface {
	Name() string
	Search(ctx context.Context, keyword string) (Raw, error)
}

// Raw is a decoded provider response awaiting normalization. The concrete
// types are *GoogleResponse, *BingResponse and *SerpAPIResponse.
type Raw interface {
	providerName() string
}

// Options configures a provider adapter.
type Options struct {
	// APIKey authenticates against the provider.
	APIKey string
	// EngineID scopes the search (Google's cx). Unused by other providers.
	EngineID string
	// ResultCount is the page size requested per keyword.
	ResultCount int
	// Freshness limits results to roughly this recent a window. Zero
	// disables server-side recency filtering.
	Freshness time.Duration
	// QuerySuffix is appended to the keyword. Empty means DefaultQuerySuffix.
	QuerySuffix string
	// Endpoint overrides the provider's base URL.
	Endpoint string
}

func (o Options) query(keyword string) string {
	return Query(keyword, o.QuerySuffix)
}

// Query builds the free-text query for a keyword.
func Query(keyword, suffix string) string {
	if suffix == "" {
		suffix = DefaultQuerySuffix
	}
	return strings.TrimSpace(strings.TrimSpace(keyword) + " " + suffix)
}

// freshnessDays rounds a window up to whole days.
func freshnessDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// SearchFailure reports that one keyword could not be searched on one
// provider. It is never fatal to a run.
type SearchFailure struct {
	Keyword  string
	Provider string
	// StatusCode is the HTTP status when the provider answered; zero for
	// transport and decoding failures.
	StatusCode int
	Err        error
}

func (e *SearchFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s search for %q: status %d: %v", e.Provider, e.Keyword, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s search for %q: %v", e.Provider, e.Keyword, e.Err)
}

func (e *SearchFailure) Unwrap() error {
	return e.Err
}

// AsSearchFailure extracts a *SearchFailure from err's chain.
func AsSearchFailure(err error) (*SearchFailure, bool) {
	var sf *SearchFailure
	if errors.As(err, &sf) {
		return sf, true
	}
	return nil, false
}

// ErrBlocked marks a failure caused by a bot-protection page instead of an
// API response.
var ErrBlocked = errors.New("blocked by bot protection")

const (
	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
	// maxInspectBody bounds how much of a failed response is scanned for
	// bot-protection signatures.
	maxInspectBody = 64 << 10
)

// getJSON performs the GET shared by the HTTP adapters and decodes a 2xx
// body into out. It returns the HTTP status alongside any error.
func getJSON(ctx context.Context, client *httpclient.Client, endpoint string, params url.Values, header http.Header, out any) (int, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.RawQuery = params.Encode()

	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")

	resp, err := client.Get(ctx, u.String(), header)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxInspectBody))
		if source, ok := blockdetect.Detect(blockdetect.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}); ok {
			return resp.StatusCode, fmt.Errorf("%w: %s", ErrBlocked, source)
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, errors.New(msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// failure wraps err as a SearchFailure unless status reports success.
func failure(provider, keyword string, status int, err error) *SearchFailure {
	sf := &SearchFailure{Keyword: keyword, Provider: provider, Err: err}
	if status < 200 || status >= 300 {
		sf.StatusCode = status
	}
	return sf
}
