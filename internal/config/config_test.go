package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GOOGLE_API_KEY", "GOOGLE_CX_ID", "BING_API_KEY", "SERPAPI_API_KEY"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(cfg.Keywords, ",") != "Caravan,PC-12,Navajo,Comanche" {
		t.Errorf("unexpected keywords %v", cfg.Keywords)
	}
	if strings.Join(cfg.Providers, ",") != "google,bing" {
		t.Errorf("unexpected providers %v", cfg.Providers)
	}
	if cfg.QuerySuffix != "pilot job" {
		t.Errorf("unexpected suffix %q", cfg.QuerySuffix)
	}
	if cfg.Google.ResultCount != 10 || cfg.Bing.ResultCount != 20 {
		t.Errorf("unexpected result counts %d/%d", cfg.Google.ResultCount, cfg.Bing.ResultCount)
	}
	if cfg.Google.Freshness != 720*time.Hour || cfg.Bing.Freshness != 720*time.Hour {
		t.Errorf("unexpected freshness %v/%v", cfg.Google.Freshness, cfg.Bing.Freshness)
	}
	if cfg.Output.Path != "index.html" {
		t.Errorf("unexpected output path %q", cfg.Output.Path)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", cfg.HTTP.Timeout)
	}
	if cfg.Search.Concurrency != 1 || cfg.Storage.Kind != StorageNone || cfg.Dedup.Canonicalize {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_EnvCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("GOOGLE_CX_ID", "engine-id")
	t.Setenv("BING_API_KEY", "bing-key")
	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("PILOTJOBS_BING_API_KEY", "prefixed-bing-key")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Google.APIKey != "google-key" || cfg.Google.CX != "engine-id" {
		t.Errorf("unexpected google credentials %+v", cfg.Google)
	}
	if cfg.Bing.APIKey != "prefixed-bing-key" {
		t.Errorf("expected prefixed variable to win, got %q", cfg.Bing.APIKey)
	}
	if cfg.SerpAPI.APIKey != "serp-key" {
		t.Errorf("unexpected serpapi key %q", cfg.SerpAPI.APIKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PILOTJOBS_KEYWORDS", "King Air, Citation")
	t.Setenv("PILOTJOBS_OUTPUT_PATH", "jobs.html")
	t.Setenv("PILOTJOBS_SEARCH_CONCURRENCY", "4")
	t.Setenv("PILOTJOBS_GOOGLE_FRESHNESS", "168h")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(cfg.Keywords, "|") != "King Air|Citation" {
		t.Errorf("unexpected keywords %q", cfg.Keywords)
	}
	if cfg.Output.Path != "jobs.html" || cfg.Search.Concurrency != 4 {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.Google.Freshness != 7*24*time.Hour {
		t.Errorf("unexpected freshness %v", cfg.Google.Freshness)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pilotjobs.yaml")
	content := `
keywords: [Caravan]
providers: [Bing, serpapi]
bing:
  result_count: 50
  endpoint: http://localhost:9999/search
output:
  path: out/index.html
dedup:
  canonicalize: true
storage:
  kind: SQLite
  dsn: archive.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(cfg.Providers, ",") != "bing,serpapi" {
		t.Errorf("expected lower-cased providers, got %v", cfg.Providers)
	}
	if cfg.Bing.ResultCount != 50 || cfg.Bing.Endpoint != "http://localhost:9999/search" {
		t.Errorf("unexpected bing config %+v", cfg.Bing)
	}
	if !cfg.Dedup.Canonicalize || cfg.Storage.Kind != StorageSQLite || cfg.Output.Path != "out/index.html" {
		t.Errorf("unexpected config %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Google.ResultCount != 10 {
		t.Errorf("expected default google result count, got %d", cfg.Google.ResultCount)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GOOGLE_API_KEY=from-dotenv\nBING_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BING_API_KEY", "from-env")
	t.Cleanup(func() { os.Unsetenv("GOOGLE_API_KEY") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Google.APIKey != "from-dotenv" {
		t.Errorf("expected key from .env, got %q", cfg.Google.APIKey)
	}
	if cfg.Bing.APIKey != "from-env" {
		t.Errorf("expected existing env to win over .env, got %q", cfg.Bing.APIKey)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	clearEnv(t)
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no keywords", func(c *Config) { c.Keywords = nil }, "keywords"},
		{"no providers", func(c *Config) { c.Providers = nil }, "providers"},
		{"unknown provider", func(c *Config) { c.Providers = []string{"yahoo"} }, "unknown provider"},
		{"duplicate provider", func(c *Config) { c.Providers = []string{"google", "google"} }, "listed twice"},
		{"zero google count", func(c *Config) { c.Google.ResultCount = 0 }, "google.result_count"},
		{"negative freshness", func(c *Config) { c.Bing.Freshness = -time.Hour }, "freshness"},
		{"empty output", func(c *Config) { c.Output.Path = " " }, "output.path"},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"bad tls profile", func(c *Config) { c.HTTP.TLSProfile = "netscape" }, "tls_profile"},
		{"zero concurrency", func(c *Config) { c.Search.Concurrency = 0 }, "concurrency"},
		{"jitter too large", func(c *Config) { c.Search.Jitter = 2 }, "jitter"},
		{"unknown storage", func(c *Config) { c.Storage.Kind = "redis" }, "storage kind"},
		{"storage without dsn", func(c *Config) { c.Storage.Kind = StorageJSON }, "storage.dsn"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	t.Run("missing credentials are allowed", func(t *testing.T) {
		cfg := validConfig(t)
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := validConfig(t)
	cfg.Google.APIKey = "AIzaSyVerySecretKey"
	cfg.Bing.APIKey = "short"
	cfg.Storage = StorageConfig{Kind: StoragePostgres, DSN: "postgres://user:hunter2@db:5432/jobs"}

	out := cfg.String()
	for _, secret := range []string{"AIzaSyVerySecretKey", "short", "hunter2"} {
		if strings.Contains(out, secret) {
			t.Errorf("expected %q to be redacted in:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "AIza...") || !strings.Contains(out, "postgres://***@db:5432/jobs") {
		t.Errorf("expected redacted forms in:\n%s", out)
	}
	if !strings.Contains(out, "(not configured)") {
		t.Errorf("expected unset serpapi key to be reported")
	}
}

func TestSlogLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "warning", "error"} {
		if _, err := (LogConfig{Level: level}).SlogLevel(); err != nil {
			t.Errorf("level %q: unexpected error %v", level, err)
		}
	}
}
