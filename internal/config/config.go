// Package config loads linkscout settings from a YAML file and LINKSCOUT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/linkscout/internal/fingerprint"
	"github.com/FranksOps/linkscout/pkg/useragent"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// LINKSCOUT_DISCOVERY_MAX_LINKS.
const EnvPrefix = "LINKSCOUT"

// Config holds all linkscout configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text or json

	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
}

// SearchConfig selects and tunes the search providers.
type SearchConfig struct {
	// Providers are tried in order until one answers.
	Providers     []string      `mapstructure:"providers"`
	DuckDuckGoURL string        `mapstructure:"duckduckgo_url"`
	SearXNGURL    string        `mapstructure:"searxng_url"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	Width         int           `mapstructure:"width"`
	RPS           float64       `mapstructure:"rps"`
	Jitter        float64       `mapstructure:"jitter"`
}

// FetchConfig tunes outbound HTTP for both search and page fetches.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Fingerprint  string        `mapstructure:"fingerprint"`
	UserAgents   []string      `mapstructure:"user_agents"`
	UAStrategy   string        `mapstructure:"ua_strategy"`
	Proxies      []string      `mapstructure:"proxies"`
	ProxyFile    string        `mapstructure:"proxy_file"`
	HostRPS      float64       `mapstructure:"host_rps"`
	Jitter       float64       `mapstructure:"jitter"`
}

// RerankConfig tunes the light-scrape reranker.
type RerankConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	TopN          int           `mapstructure:"top_n"`
	Width         int           `mapstructure:"width"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	RobotsAgent   string        `mapstructure:"robots_agent"`
}

// DiscoveryConfig holds request defaults and table extensions.
type DiscoveryConfig struct {
	MaxLinks           int           `mapstructure:"max_links"`
	MaxResultsPerQuery int           `mapstructure:"max_results_per_query"`
	PerHostCap         int           `mapstructure:"per_host_cap"`
	AllowPaywall       bool          `mapstructure:"allow_paywall"`
	Deadline           time.Duration `mapstructure:"deadline"`
	ExtraBlocked       []string      `mapstructure:"extra_blocked"`
	ExtraPaywall       []string      `mapstructure:"extra_paywall"`
}

// StorageConfig selects where run records go.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // none, sqlite, postgres, json or csv
	DSN     string `mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("search.providers", []string{"duckduckgo"})
	v.SetDefault("search.duckduckgo_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.searxng_url", "")
	v.SetDefault("search.query_timeout", 20*time.Second)
	v.SetDefault("search.width", 4)
	v.SetDefault("search.rps", 1.0)
	v.SetDefault("search.jitter", 0.3)

	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.retries", 1)
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.max_body_bytes", 4<<20)
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.ua_strategy", string(useragent.Sequential))
	v.SetDefault("fetch.proxies", []string{})
	v.SetDefault("fetch.proxy_file", "")
	v.SetDefault("fetch.host_rps", 2.0)
	v.SetDefault("fetch.jitter", 0.2)

	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.top_n", 10)
	v.SetDefault("rerank.width", 6)
	v.SetDefault("rerank.timeout", 10*time.Second)
	v.SetDefault("rerank.respect_robots", true)
	v.SetDefault("rerank.robots_agent", "linkscout")

	v.SetDefault("discovery.max_links", 5)
	v.SetDefault("discovery.max_results_per_query", 12)
	v.SetDefault("discovery.per_host_cap", 1)
	v.SetDefault("discovery.allow_paywall", false)
	v.SetDefault("discovery.deadline", 60*time.Second)
	v.SetDefault("discovery.extra_blocked", []string{})
	v.SetDefault("discovery.extra_paywall", []string{})

	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("server.addr", ":8080")
}

// Load reads configuration. An explicit path must exist; with an empty path
// linkscout.yaml is looked up in the working directory and skipped when
// absent. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linkscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("context: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("context: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("context: unknown log_format %q", c.LogFormat)
	}

	if len(c.Search.Providers) == 0 {
		return fmt.Errorf("context: search.providers is empty")
	}
	for _, p := range c.Search.Providers {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "duckduckgo":
		case "searxng":
			if c.Search.SearXNGURL == "" {
				return fmt.Errorf("context: searxng provider needs search.searxng_url")
			}
		default:
			return fmt.Errorf("context: unknown search provider %q", p)
		}
	}

	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		return err
	}
	if _, err := useragent.ParseStrategy(c.Fetch.UAStrategy); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case "", "none":
	case "sqlite", "postgres", "json", "csv":
		if c.Storage.DSN == "" {
			return fmt.Errorf("context: storage backend %q needs storage.dsn", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("context: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("context: log_level: %w", err)
	}
	return lvl, nil
}
