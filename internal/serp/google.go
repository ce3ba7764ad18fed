package serp

import (
	"context"
	"net/url"
	"strconv"

	"github.com/FranksOps/pilotjobs/pkg/httpclient"
)

// GoogleEndpoint is the Custom Search JSON API.
const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleResponse is the subset of a Custom Search response we read.
type GoogleResponse struct {
	Keyword string       `json:"-"`
	Items   []GoogleItem `json:"items"`
}

// GoogleItem is one entry of GoogleResponse.Items.
type GoogleItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (r *GoogleResponse) providerName() string { return "google" }

// GoogleProvider searches via Google Custom Search.
type GoogleProvider struct {
	opts   Options
	client *httpclient.Client
}

// NewGoogleProvider creates a Custom Search adapter. The API returns at most
// ten results per request, so ResultCount is clamped to 1..10.
func NewGoogleProvider(opts Options, client *httpclient.Client) *GoogleProvider {
	if opts.Endpoint == "" {
		opts.Endpoint = GoogleEndpoint
	}
	opts.ResultCount = clamp(opts.ResultCount, 1, 10)
	return &GoogleProvider{opts: opts, client: client}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Search(ctx context.Context, keyword string) (Raw, error) {
	params := url.Values{}
	params.Set("key", p.opts.APIKey)
	params.Set("cx", p.opts.EngineID)
	params.Set("q", p.opts.query(keyword))
	params.Set("num", strconv.Itoa(p.opts.ResultCount))
	if days := freshnessDays(p.opts.Freshness); days > 0 {
		params.Set("dateRestrict", "d"+strconv.Itoa(days))
	}

	payload := &GoogleResponse{Keyword: keyword}
	status, err := getJSON(ctx, p.client, p.opts.Endpoint, params, nil, payload)
	if err != nil {
		return nil, failure(p.Name(), keyword, status, err)
	}
	return payload, nil
}
