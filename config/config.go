// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"serprank/estimate"
	"serprank/serp"
)

// Config is the root configuration document.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Redis      RedisConfig     `yaml:"redis"`
	Browser    BrowserConfig   `yaml:"browser"`
	Fetch      FetchConfig     `yaml:"fetch"`
	Throttle   ThrottleConfig  `yaml:"throttle"`
	Thresholds serp.Thresholds `yaml:"thresholds"`
	Segmenter  serp.Containers `yaml:"containers"`
	Estimate   estimate.Config `yaml:"estimate"`
	SearchAPI  SearchAPIConfig `yaml:"search_api"`
	History    HistoryConfig   `yaml:"history"`
	Log        LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// RedisConfig configures the result cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type BrowserConfig struct {
	MinSize int `yaml:"min_size"`
	MaxSize int `yaml:"max_size"`
	// Timeout bounds one snapshot capture.
	Timeout   time.Duration `yaml:"timeout"`
	Settle    time.Duration `yaml:"settle"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	UserAgent string        `yaml:"user_agent"`
	// MobileUserAgent is sent when capturing mobile result pages.
	MobileUserAgent string `yaml:"mobile_user_agent"`
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// ThrottleConfig is the pacing policy of sequential batches.
type ThrottleConfig struct {
	SameKeywordDelay time.Duration `yaml:"same_keyword_delay"`
	KeywordJitterMin time.Duration `yaml:"keyword_jitter_min"`
	KeywordJitterMax time.Duration `yaml:"keyword_jitter_max"`
	// RequestsPerMinute caps snapshot captures across all callers; 0 disables.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type SearchAPIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Display      int           `yaml:"display"`
	Timeout      time.Duration `yaml:"timeout"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, errors.New("configuration filename cannot be empty")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML, expanding ${VAR} references from the environment.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, errors.New("configuration data cannot be empty")
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":" + envOr("PORT", "8000")
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 30 * time.Minute
	}

	if cfg.Browser.MinSize == 0 {
		cfg.Browser.MinSize = 2
	}
	if cfg.Browser.MaxSize == 0 {
		cfg.Browser.MaxSize = 6
	}
	if cfg.Browser.Timeout == 0 {
		cfg.Browser.Timeout = 45 * time.Second
	}
	if cfg.Browser.Settle == 0 {
		cfg.Browser.Settle = time.Second
	}
	if cfg.Browser.Width == 0 {
		cfg.Browser.Width = 1280
	}
	if cfg.Browser.Height == 0 {
		cfg.Browser.Height = 2400
	}
	if cfg.Browser.UserAgent == "" {
		cfg.Browser.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	}
	if cfg.Browser.MobileUserAgent == "" {
		cfg.Browser.MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:134.0) Gecko/20100101 Firefox/134.0"
	}

	if cfg.Throttle.SameKeywordDelay == 0 {
		cfg.Throttle.SameKeywordDelay = 800 * time.Millisecond
	}
	if cfg.Throttle.KeywordJitterMin == 0 {
		cfg.Throttle.KeywordJitterMin = 2 * time.Second
	}
	if cfg.Throttle.KeywordJitterMax == 0 {
		cfg.Throttle.KeywordJitterMax = 4 * time.Second
	}

	cfg.Thresholds = cfg.Thresholds.WithDefaults()
	if cfg.Segmenter.Main == "" {
		cfg.Segmenter.Main = serp.DefaultContainers.Main
	}
	if cfg.Segmenter.Side == "" {
		cfg.Segmenter.Side = serp.DefaultContainers.Side
	}
	cfg.Estimate = cfg.Estimate.WithDefaults()

	if cfg.SearchAPI.BaseURL == "" {
		cfg.SearchAPI.BaseURL = "https://openapi.naver.com/v1/search"
	}
	if cfg.SearchAPI.Display == 0 {
		cfg.SearchAPI.Display = 100
	}
	if cfg.SearchAPI.Timeout == 0 {
		cfg.SearchAPI.Timeout = 10 * time.Second
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "serprank.db"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Browser.MinSize < 0 || c.Browser.MaxSize < 1 || c.Browser.MinSize > c.Browser.MaxSize {
		problems = append(problems, fmt.Sprintf("browser: pool sizes min=%d max=%d", c.Browser.MinSize, c.Browser.MaxSize))
	}
	if c.Browser.Timeout < 0 {
		problems = append(problems, "browser: timeout must be positive")
	}
	if c.Throttle.KeywordJitterMin > c.Throttle.KeywordJitterMax {
		problems = append(problems, fmt.Sprintf("throttle: keyword_jitter_min %s exceeds keyword_jitter_max %s",
			c.Throttle.KeywordJitterMin, c.Throttle.KeywordJitterMax))
	}
	if c.Throttle.RequestsPerMinute < 0 {
		problems = append(problems, "throttle: requests_per_minute cannot be negative")
	}
	if c.Thresholds.TitleFontMin > c.Thresholds.TitleFontMax {
		problems = append(problems, "thresholds: title font band is inverted")
	}
	if c.Thresholds.DateFontMin > c.Thresholds.DateFontMax {
		problems = append(problems, "thresholds: date font band is inverted")
	}
	if c.SearchAPI.Display < 1 || c.SearchAPI.Display > 100 {
		problems = append(problems, fmt.Sprintf("search_api: display %d out of range 1..100", c.SearchAPI.Display))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log: unknown format %q", c.Log.Format))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
