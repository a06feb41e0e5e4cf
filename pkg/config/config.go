package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the hashtag scraper
type Config struct {
	// Instagram endpoint and identity settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Rate limiting and adaptive backoff configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Scrape settings for one batch run
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Proxy pool configuration
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds endpoint and request-identity configuration
type InstagramConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	SessionID    string        `yaml:"session_id" json:"session_id"`
	CSRFToken    string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// RateLimitConfig holds the governor's pacing parameters
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	InitialDelay      time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MinDelay          time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	DecayFactor       float64       `yaml:"decay_factor" json:"decay_factor"`
}

// ScrapeConfig holds per-run scraping limits
type ScrapeConfig struct {
	Concurrency  int `yaml:"concurrency" json:"concurrency"`
	SampleSize   int `yaml:"sample_size" json:"sample_size"`
	RelatedDepth int `yaml:"related_depth" json:"related_depth"`
	MaxAttempts  int `yaml:"max_attempts" json:"max_attempts"`
	MaxPages     int `yaml:"max_pages" json:"max_pages"`
}

// ProxyConfig holds the outbound proxy pool
type ProxyConfig struct {
	URLs []string `yaml:"urls" json:"urls"`
}

// OutputConfig holds export settings
type OutputConfig struct {
	Directory string   `yaml:"directory" json:"directory"`
	Formats   []string `yaml:"formats" json:"formats"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:      "https://www.instagram.com",
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			FetchTimeout: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			InitialDelay:      time.Second,
			MinDelay:          500 * time.Millisecond,
			MaxDelay:          2 * time.Minute,
			BackoffMultiplier: 2.0,
			DecayFactor:       0.9,
		},
		Scrape: ScrapeConfig{
			Concurrency:  3,
			SampleSize:   12,
			RelatedDepth: 20,
			MaxAttempts:  3,
			MaxPages:     10,
		},
		Output: OutputConfig{
			Directory: "./data",
			Formats:   []string{"json", "csv"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is honored when present.
func (c *Config) LoadFromEnv() error {
	_ = godotenv.Load()

	if v := os.Getenv("TAGSTATS_BASE_URL"); v != "" {
		c.Instagram.BaseURL = v
	}
	if v := os.Getenv("TAGSTATS_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("TAGSTATS_CSRF_TOKEN"); v != "" {
		c.Instagram.CSRFToken = v
	}
	if v := os.Getenv("TAGSTATS_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("TAGSTATS_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("TAGSTATS_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scrape.Concurrency = n
		}
	}
	if v := os.Getenv("TAGSTATS_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("TAGSTATS_PROXIES"); v != "" {
		c.Proxy.URLs = splitAndTrim(v)
	}
	if v := os.Getenv("TAGSTATS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// findConfigFile looks for a config file in standard locations
func (c *Config) findConfigFile() string {
	candidates := []string{
		"tagstats.yaml",
		"tagstats.yml",
		".tagstats.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".tagstats.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Instagram.BaseURL == "" {
		return fmt.Errorf("instagram base_url must not be empty")
	}
	if _, err := url.Parse(c.Instagram.BaseURL); err != nil {
		return fmt.Errorf("instagram base_url is not a valid URL: %w", err)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive")
	}
	if c.RateLimit.BackoffMultiplier < 1.0 {
		return fmt.Errorf("rate_limit.backoff_multiplier must be at least 1.0")
	}
	if c.RateLimit.DecayFactor <= 0 || c.RateLimit.DecayFactor > 1.0 {
		return fmt.Errorf("rate_limit.decay_factor must be in (0, 1]")
	}
	if c.RateLimit.MinDelay > c.RateLimit.MaxDelay {
		return fmt.Errorf("rate_limit.min_delay must not exceed max_delay")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be positive")
	}
	if c.Scrape.SampleSize < 0 {
		return fmt.Errorf("scrape.sample_size must not be negative")
	}
	if c.Scrape.MaxAttempts <= 0 {
		return fmt.Errorf("scrape.max_attempts must be positive")
	}
	if c.Scrape.MaxPages <= 0 {
		return fmt.Errorf("scrape.max_pages must be positive")
	}
	for _, raw := range c.Proxy.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy url %q is not valid", raw)
		}
	}
	for _, format := range c.Output.Formats {
		switch strings.ToLower(format) {
		case "json", "csv", "html":
		default:
			return fmt.Errorf("unsupported output format %q", format)
		}
	}
	return nil
}

// MergeCommandLineFlags applies command-line overrides on top of the config
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "concurrency":
			if v, ok := value.(int); ok && v > 0 {
				c.Scrape.Concurrency = v
			}
		case "requests-per-minute":
			if v, ok := value.(int); ok && v > 0 {
				c.RateLimit.RequestsPerMinute = v
			}
		case "sample-size":
			if v, ok := value.(int); ok && v >= 0 {
				c.Scrape.SampleSize = v
			}
		case "related-depth":
			if v, ok := value.(int); ok && v >= 0 {
				c.Scrape.RelatedDepth = v
			}
		case "max-attempts":
			if v, ok := value.(int); ok && v > 0 {
				c.Scrape.MaxAttempts = v
			}
		case "max-pages":
			if v, ok := value.(int); ok && v > 0 {
				c.Scrape.MaxPages = v
			}
		case "output-dir":
			if v, ok := value.(string); ok && v != "" {
				c.Output.Directory = v
			}
		case "formats":
			if v, ok := value.([]string); ok && len(v) > 0 {
				c.Output.Formats = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		}
	}
}

// Load builds the effective configuration: defaults, then config file, then
// environment variables, then command-line flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		configPath = cfg.findConfigFile()
	}
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
