package serp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBingProvider_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "bing-key" {
			t.Errorf("expected subscription key header, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "PC-12 pilot job" || q.Get("count") != "20" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("freshness") != "Month" {
			t.Errorf("expected Month freshness, got %q", q.Get("freshness"))
		}
		fmt.Fprint(w, `{"webPages":{"value":[
			{"name":"PC-12 Captain &amp; Check Airman","url":"https://b.example/pc12","snippet":"Based in <b>Denver</b>"},
			{"name":"No URL","url":""},
			{"name":"PC-12 FO","url":"https://b.example/pc12-fo"}
		]}}`)
	}))
	defer ts.Close()

	p := NewBingProvider(Options{
		APIKey:      "bing-key",
		ResultCount: 20,
		Freshness:   30 * 24 * time.Hour,
		Endpoint:    ts.URL,
	}, newTestClient(t))

	raw, err := p.Search(context.Background(), "PC-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := Normalize(raw)
	if len(records) != 2 {
		t.Fatalf("expected 2 records (empty url skipped), got %d", len(records))
	}
	if records[0].Title != "PC-12 Captain & Check Airman" {
		t.Errorf("expected entities decoded, got %q", records[0].Title)
	}
	if records[0].Snippet != "Based in Denver" {
		t.Errorf("expected markup stripped, got %q", records[0].Snippet)
	}
	if records[1].Snippet != "" {
		t.Errorf("expected empty snippet, got %q", records[1].Snippet)
	}
}

func TestBingProvider_NoWebPages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"_type":"SearchResponse"}`)
	}))
	defer ts.Close()

	p := NewBingProvider(Options{Endpoint: ts.URL}, newTestClient(t))
	raw, err := p.Search(context.Background(), "Navajo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Normalize(raw); len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestBingProvider_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	p := NewBingProvider(Options{Endpoint: ts.URL}, newTestClient(t))
	_, err := p.Search(context.Background(), "Caravan")
	sf, ok := AsSearchFailure(err)
	if !ok {
		t.Fatalf("expected SearchFailure, got %v", err)
	}
	if sf.StatusCode != http.StatusUnauthorized || sf.Provider != "bing" {
		t.Errorf("unexpected failure: %+v", sf)
	}
}

func TestBingFreshness(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		window time.Duration
		want   string
	}{
		{0, ""},
		{12 * time.Hour, "Day"},
		{24 * time.Hour, "Day"},
		{25 * time.Hour, "Week"},
		{3 * 24 * time.Hour, "Week"},
		{7 * 24 * time.Hour, "Week"},
		{14 * 24 * time.Hour, "Month"},
		{30 * 24 * time.Hour, "Month"},
		{31 * 24 * time.Hour, "Month"},
		{32 * 24 * time.Hour, "2026-09-16..2026-10-18"},
		{90 * 24 * time.Hour, "2026-07-20..2026-10-18"},
	}
	for _, tt := range tests {
		if got := bingFreshness(tt.window, now); got != tt.want {
			t.Errorf("bingFreshness(%v) = %q, want %q", tt.window, got, tt.want)
		}
	}
}
