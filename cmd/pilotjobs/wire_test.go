package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/pilotjobs/internal/config"
)

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind    string
		dsn     string
		wantNil bool
		wantErr bool
	}{
		{kind: config.StorageNone, wantNil: true},
		{kind: config.StorageJSON, dsn: filepath.Join(dir, "a.ndjson")},
		{kind: config.StorageCSV, dsn: filepath.Join(dir, "a.csv")},
		{kind: config.StorageSQLite, dsn: filepath.Join(dir, "a.db")},
		{kind: config.StorageJSON, dsn: filepath.Join(dir, "missing", "a.ndjson"), wantErr: true},
		{kind: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, err := openStorage(context.Background(), config.StorageConfig{Kind: tt.kind, DSN: tt.dsn})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (b == nil) != tt.wantNil {
				t.Fatalf("unexpected backend %v", b)
			}
			if b != nil {
				b.Close()
			}
		})
	}
}

func TestBuildProviders(t *testing.T) {
	client, err := newHTTPClient(config.HTTPConfig{Timeout: time.Second, Proxies: []string{"proxy.example:3128"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := &config.Config{Providers: []string{"bing", "serpapi", "google"}}
	providers := buildProviders(cfg, client)
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
	for i, want := range []string{"bing", "serpapi", "google"} {
		if providers[i].Name() != want {
			t.Errorf("provider %d: got %s, want %s", i, providers[i].Name(), want)
		}
	}
}

func TestNewHTTPClient_BadProfile(t *testing.T) {
	if _, err := newHTTPClient(config.HTTPConfig{TLSProfile: "netscape"}); err == nil {
		t.Fatal("expected error for unknown TLS profile")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger(config.LogConfig{Level: "debug", Format: "json"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := newLogger(config.LogConfig{Level: "chatty"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
