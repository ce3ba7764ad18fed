// Package config loads pilotjobs settings from defaults, an optional YAML
// file, a .env file, the environment and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FranksOps/pilotjobs/internal/fingerprint"
)

// EnvPrefix prefixes every environment override, e.g. PILOTJOBS_OUTPUT_PATH.
const EnvPrefix = "PILOTJOBS"

// DefaultKeywords are the aircraft searched when none are configured.
var DefaultKeywords = []string{"Caravan", "PC-12", "Navajo", "Comanche"}

// Known provider names.
const (
	ProviderGoogle  = "google"
	ProviderBing    = "bing"
	ProviderSerpAPI = "serpapi"
)

// Storage kinds.
const (
	StorageNone     = "none"
	StorageJSON     = "json"
	StorageCSV      = "csv"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	Keywords    []string      `mapstructure:"keywords"`
	QuerySuffix string        `mapstructure:"query_suffix"`
	Providers   []string      `mapstructure:"providers"`
	Google      GoogleConfig  `mapstructure:"google"`
	Bing        BingConfig    `mapstructure:"bing"`
	SerpAPI     SerpAPIConfig `mapstructure:"serpapi"`
	Output      OutputConfig  `mapstructure:"output"`
	Dedup       DedupConfig   `mapstructure:"dedup"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Search      SearchConfig  `mapstructure:"search"`
	Storage     StorageConfig `mapstructure:"storage"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Log         LogConfig     `mapstructure:"log"`
}

// GoogleConfig configures Google Custom Search.
type GoogleConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	CX          string        `mapstructure:"cx"`
	ResultCount int           `mapstructure:"result_count"`
	Freshness   time.Duration `mapstructure:"freshness"`
	Endpoint    string        `mapstructure:"endpoint"`
}

// BingConfig configures Bing Web Search.
type BingConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	ResultCount int           `mapstructure:"result_count"`
	Freshness   time.Duration `mapstructure:"freshness"`
	Endpoint    string        `mapstructure:"endpoint"`
}

// SerpAPIConfig configures the SerpApi Google engine.
type SerpAPIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	ResultCount int           `mapstructure:"result_count"`
	Freshness   time.Duration `mapstructure:"freshness"`
}

// OutputConfig controls the generated page.
type OutputConfig struct {
	Path    string `mapstructure:"path"`
	Title   string `mapstructure:"title"`
	Heading string `mapstructure:"heading"`
}

// DedupConfig controls URL identity.
type DedupConfig struct {
	Canonicalize bool `mapstructure:"canonicalize"`
}

// HTTPConfig configures the shared outbound client.
type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	TLSProfile string        `mapstructure:"tls_profile"`
	Proxies    []string      `mapstructure:"proxies"`
	ProxyFile  string        `mapstructure:"proxy_file"`
}

// SearchConfig paces the keyword/provider fan-out.
type SearchConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	RPS         float64 `mapstructure:"rps"`
	Jitter      float64 `mapstructure:"jitter"`
}

// StorageConfig selects the posting archive.
type StorageConfig struct {
	Kind string `mapstructure:"kind"`
	DSN  string `mapstructure:"dsn"`
}

// MetricsConfig enables the Prometheus endpoint when Port > 0.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so environment overrides
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("keywords", DefaultKeywords)
	v.SetDefault("query_suffix", "pilot job")
	v.SetDefault("providers", []string{ProviderGoogle, ProviderBing})

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.cx", "")
	v.SetDefault("google.result_count", 10)
	v.SetDefault("google.freshness", 30*24*time.Hour)
	v.SetDefault("google.endpoint", "")

	v.SetDefault("bing.api_key", "")
	v.SetDefault("bing.result_count", 20)
	v.SetDefault("bing.freshness", 30*24*time.Hour)
	v.SetDefault("bing.endpoint", "")

	v.SetDefault("serpapi.api_key", "")
	v.SetDefault("serpapi.result_count", 10)
	v.SetDefault("serpapi.freshness", 30*24*time.Hour)

	v.SetDefault("output.path", "index.html")
	v.SetDefault("output.title", "Pilot Jobs")
	v.SetDefault("output.heading", "Aviation Pilot Jobs")

	v.SetDefault("dedup.canonicalize", false)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.tls_profile", string(fingerprint.ProfileGo))
	v.SetDefault("http.proxies", []string{})
	v.SetDefault("http.proxy_file", "")

	v.SetDefault("search.concurrency", 1)
	v.SetDefault("search.rps", 0.0)
	v.SetDefault("search.jitter", 0.0)

	v.SetDefault("storage.kind", StorageNone)
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.port", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// bindEnv maps keys to the unprefixed variable names used by the search APIs'
// own tooling. The prefixed form wins when both are set.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"google.api_key":  "GOOGLE_API_KEY",
		"google.cx":       "GOOGLE_CX_ID",
		"bing.api_key":    "BING_API_KEY",
		"serpapi.api_key": "SERPAPI_API_KEY",
	}
	for key, env := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	return nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration held by v. When path is empty an optional
// pilotjobs.yaml in the working directory is read; otherwise path must exist.
// Flags should already be bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pilotjobs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Keywords = cleanList(c.Keywords, false)
	c.Providers = cleanList(c.Providers, true)
	c.HTTP.Proxies = cleanList(c.HTTP.Proxies, false)
	c.Storage.Kind = strings.ToLower(strings.TrimSpace(c.Storage.Kind))
	if c.Storage.Kind == "" {
		c.Storage.Kind = StorageNone
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// cleanList trims entries, splits comma-joined values and drops blanks.
func cleanList(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if lower {
				part = strings.ToLower(part)
			}
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration. Credentials are not required: a provider
// without a key fails per keyword at search time and the run continues.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return fmt.Errorf("config error: keywords cannot be empty")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("config error: providers cannot be empty")
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		switch p {
		case ProviderGoogle, ProviderBing, ProviderSerpAPI:
		default:
			return fmt.Errorf("config error: unknown provider %q", p)
		}
		if seen[p] {
			return fmt.Errorf("config error: provider %q listed twice", p)
		}
		seen[p] = true
	}

	if c.Google.ResultCount <= 0 {
		return fmt.Errorf("config error: google.result_count must be greater than 0")
	}
	if c.Bing.ResultCount <= 0 {
		return fmt.Errorf("config error: bing.result_count must be greater than 0")
	}
	if c.SerpAPI.ResultCount <= 0 {
		return fmt.Errorf("config error: serpapi.result_count must be greater than 0")
	}
	if c.Google.Freshness < 0 || c.Bing.Freshness < 0 || c.SerpAPI.Freshness < 0 {
		return fmt.Errorf("config error: freshness cannot be negative")
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("config error: output.path cannot be empty")
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("config error: http.timeout must be greater than 0")
	}
	if _, err := fingerprint.ParseProfile(c.HTTP.TLSProfile); err != nil {
		return fmt.Errorf("config error: http.tls_profile: %w", err)
	}

	if c.Search.Concurrency < 1 {
		return fmt.Errorf("config error: search.concurrency must be at least 1")
	}
	if c.Search.RPS < 0 {
		return fmt.Errorf("config error: search.rps cannot be negative")
	}
	if c.Search.Jitter < 0 || c.Search.Jitter > 1 {
		return fmt.Errorf("config error: search.jitter must be between 0 and 1")
	}

	switch c.Storage.Kind {
	case StorageNone:
	case StorageJSON, StorageCSV, StorageSQLite, StoragePostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config error: storage.dsn cannot be empty for %s storage", c.Storage.Kind)
		}
	default:
		return fmt.Errorf("config error: unknown storage kind %q", c.Storage.Kind)
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("config error: metrics.port out of range")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config error: unknown log format %q", c.Log.Format)
	}

	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config error: unknown log level %q", l.Level)
}

func redactAPIKey(key string) string {
	if key == "" {
		return "(not configured)"
	}
	if len(key) > 8 {
		return key[:4] + "..."
	}
	return "***"
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "@"); i > 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

// String returns a readable view of the configuration with secrets hidden.
func (c *Config) String() string {
	return fmt.Sprintf(`pilotjobs configuration:
  Keywords: %s
  Query Suffix: %s
  Providers: %s
  Google:
    API Key: %s
    CX: %s
    Result Count: %d
    Freshness: %s
  Bing:
    API Key: %s
    Result Count: %d
    Freshness: %s
  SerpApi:
    API Key: %s
    Result Count: %d
    Freshness: %s
  Output: %s
  Canonicalize URLs: %v
  HTTP:
    Timeout: %s
    TLS Profile: %s
    Proxies: %d
  Search:
    Concurrency: %d
    RPS: %g
  Storage: %s %s
  Metrics Port: %d
  Log: %s/%s`,
		strings.Join(c.Keywords, ", "),
		c.QuerySuffix,
		strings.Join(c.Providers, ", "),
		redactAPIKey(c.Google.APIKey),
		c.Google.CX,
		c.Google.ResultCount,
		c.Google.Freshness,
		redactAPIKey(c.Bing.APIKey),
		c.Bing.ResultCount,
		c.Bing.Freshness,
		redactAPIKey(c.SerpAPI.APIKey),
		c.SerpAPI.ResultCount,
		c.SerpAPI.Freshness,
		c.Output.Path,
		c.Dedup.Canonicalize,
		c.HTTP.Timeout,
		c.HTTP.TLSProfile,
		len(c.HTTP.Proxies),
		c.Search.Concurrency,
		c.Search.RPS,
		c.Storage.Kind,
		redactDSN(c.Storage.DSN),
		c.Metrics.Port,
		c.Log.Level,
		c.Log.Format,
	)
}
