package serp

import (
	"context"
	"errors"
	"strconv"

	serpapi "github.com/serpapi/google-search-results-golang"
)

// SerpAPIResponse wraps the untyped JSON document returned by SerpApi.
type SerpAPIResponse struct {
	Keyword string
	Data    map[string]interface{}
}

func (r *SerpAPIResponse) providerName() string { return "serpapi" }

// serpSearchFunc performs one SerpApi request. It is a seam for tests since
// the client library does not expose its endpoint.
type serpSearchFunc func(params map[string]string, apiKey string) (map[string]interface{}, error)

func librarySearch(params map[string]string, apiKey string) (map[string]interface{}, error) {
	search := serpapi.NewGoogleSearch(params, apiKey)
	data, err := search.GetJSON()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}(data), nil
}

// SerpAPIProvider searches Google results through SerpApi.
type SerpAPIProvider struct {
	opts   Options
	search serpSearchFunc
}

// NewSerpAPIProvider creates a SerpApi adapter. ResultCount is clamped to
// 1..100.
func NewSerpAPIProvider(opts Options) *SerpAPIProvider {
	opts.ResultCount = clamp(opts.ResultCount, 1, 100)
	return &SerpAPIProvider{opts: opts, search: librarySearch}
}

func (p *SerpAPIProvider) Name() string { return "serpapi" }

func (p *SerpAPIProvider) Search(ctx context.Context, keyword string) (Raw, error) {
	if p.opts.APIKey == "" {
		return nil, failure(p.Name(), keyword, 0, errors.New("api key is not set"))
	}
	if err := ctx.Err(); err != nil {
		return nil, failure(p.Name(), keyword, 0, err)
	}

	params := map[string]string{
		"engine": "google",
		"q":      p.opts.query(keyword),
		"num":    strconv.Itoa(p.opts.ResultCount),
		"hl":     "en",
	}
	if days := freshnessDays(p.opts.Freshness); days > 0 {
		params["tbs"] = "qdr:d" + strconv.Itoa(days)
	}

	type result struct {
		data map[string]interface{}
		err  error
	}
	// The library call is not cancellable, so wait on it alongside ctx.
	done := make(chan result, 1)
	go func() {
		data, err := p.search(params, p.opts.APIKey)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, failure(p.Name(), keyword, 0, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, failure(p.Name(), keyword, 0, r.err)
		}
		return &SerpAPIResponse{Keyword: keyword, Data: r.data}, nil
	}
}
