package serp

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/pilotjobs/pkg/httpclient"
)

// BingEndpoint is the Bing Web Search v7 API.
const BingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// BingResponse is the subset of a Bing Web Search response we read.
type BingResponse struct {
	Keyword  string `json:"-"`
	WebPages *struct {
		Value []BingPage `json:"value"`
	} `json:"webPages"`
}

// BingPage is one entry of BingResponse.WebPages.Value.
type BingPage struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (r *BingResponse) providerName() string { return "bing" }

// BingProvider searches via Bing Web Search.
type BingProvider struct {
	opts   Options
	client *httpclient.Client
	now    func() time.Time
}

// NewBingProvider creates a Bing adapter. ResultCount is clamped to the
// API's 1..50 range.
func NewBingProvider(opts Options, client *httpclient.Client) *BingProvider {
	if opts.Endpoint == "" {
		opts.Endpoint = BingEndpoint
	}
	opts.ResultCount = clamp(opts.ResultCount, 1, 50)
	return &BingProvider{opts: opts, client: client, now: time.Now}
}

func (p *BingProvider) Name() string { return "bing" }

func (p *BingProvider) Search(ctx context.Context, keyword string) (Raw, error) {
	params := url.Values{}
	params.Set("q", p.opts.query(keyword))
	params.Set("count", strconv.Itoa(p.opts.ResultCount))
	if f := bingFreshness(p.opts.Freshness, p.now()); f != "" {
		params.Set("freshness", f)
	}

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", p.opts.APIKey)

	payload := &BingResponse{Keyword: keyword}
	status, err := getJSON(ctx, p.client, p.opts.Endpoint, params, header, payload)
	if err != nil {
		return nil, failure(p.Name(), keyword, status, err)
	}
	return payload, nil
}

// bingFreshness maps a window onto the smallest of Bing's named buckets that
// covers it. Windows longer than a month become an explicit date range.
func bingFreshness(window time.Duration, now time.Time) string {
	days := freshnessDays(window)
	switch {
	case days == 0:
		return ""
	case days <= 1:
		return "Day"
	case days <= 7:
		return "Week"
	case days <= 31:
		return "Month"
	}
	now = now.UTC()
	from := now.AddDate(0, 0, -days)
	return from.Format("2006-01-02") + ".." + now.Format("2006-01-02")
}
