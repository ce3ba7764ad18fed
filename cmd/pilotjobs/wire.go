package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/FranksOps/pilotjobs/internal/config"
	"github.com/FranksOps/pilotjobs/internal/fingerprint"
	"github.com/FranksOps/pilotjobs/internal/metrics"
	"github.com/FranksOps/pilotjobs/internal/serp"
	"github.com/FranksOps/pilotjobs/internal/storage"
	"github.com/FranksOps/pilotjobs/internal/storage/csvbackend"
	"github.com/FranksOps/pilotjobs/internal/storage/jsonbackend"
	"github.com/FranksOps/pilotjobs/internal/storage/postgres"
	"github.com/FranksOps/pilotjobs/internal/storage/sqlite"
	"github.com/FranksOps/pilotjobs/pkg/httpclient"
	"github.com/FranksOps/pilotjobs/pkg/proxy"
)

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openStorage returns nil when no archive is configured.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	var (
		b   storage.Backend
		err error
	)
	switch cfg.Kind {
	case config.StorageNone, "":
		return nil, nil
	case config.StorageJSON:
		b, err = jsonbackend.New(cfg.DSN)
	case config.StorageCSV:
		b, err = csvbackend.New(cfg.DSN)
	case config.StorageSQLite:
		b, err = sqlite.New(cfg.DSN)
	case config.StoragePostgres:
		b, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Kind, err)
	}
	return b, nil
}

func newHTTPClient(cfg config.HTTPConfig) (*httpclient.Client, error) {
	profile, err := fingerprint.ParseProfile(cfg.TLSProfile)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if len(cfg.Proxies) > 0 || cfg.ProxyFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.Add(cfg.Proxies...); err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, fmt.Errorf("failed to load proxies: %w", err)
			}
		}
	}

	return httpclient.New(httpclient.Config{
		Timeout:     cfg.Timeout,
		UserAgent:   cfg.UserAgent,
		Fingerprint: profile,
		Proxies:     pool,
		OnProxyFailure: func(u *url.URL) {
			metrics.ProxyFailures.WithLabelValues(u.Redacted()).Inc()
		},
	})
}

// buildProviders creates one adapter per configured provider, in order.
func buildProviders(cfg *config.Config, client *httpclient.Client) []serp.Provider {
	providers := make([]serp.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch name {
		case config.ProviderGoogle:
			providers = append(providers, serp.NewGoogleProvider(serp.Options{
				APIKey:      cfg.Google.APIKey,
				EngineID:    cfg.Google.CX,
				ResultCount: cfg.Google.ResultCount,
				Freshness:   cfg.Google.Freshness,
				QuerySuffix: cfg.QuerySuffix,
				Endpoint:    cfg.Google.Endpoint,
			}, client))
		case config.ProviderBing:
			providers = append(providers, serp.NewBingProvider(serp.Options{
				APIKey:      cfg.Bing.APIKey,
				ResultCount: cfg.Bing.ResultCount,
				Freshness:   cfg.Bing.Freshness,
				QuerySuffix: cfg.QuerySuffix,
				Endpoint:    cfg.Bing.Endpoint,
			}, client))
		case config.ProviderSerpAPI:
			providers = append(providers, serp.NewSerpAPIProvider(serp.Options{
				APIKey:      cfg.SerpAPI.APIKey,
				ResultCount: cfg.SerpAPI.ResultCount,
				Freshness:   cfg.SerpAPI.Freshness,
				QuerySuffix: cfg.QuerySuffix,
			}))
		}
	}
	return providers
}
