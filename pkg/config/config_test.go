package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.instagram.com", cfg.Instagram.BaseURL)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Scrape.Concurrency)
	assert.Equal(t, 3, cfg.Scrape.MaxAttempts)
	assert.Equal(t, 10, cfg.Scrape.MaxPages)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tagstats.yaml")
	content := `
instagram:
  base_url: https://ig.example.test
  fetch_timeout: 5s
rate_limit:
  requests_per_minute: 10
  backoff_multiplier: 3.0
scrape:
  concurrency: 7
  sample_size: 50
proxy:
  urls:
    - http://proxy1.example.test:8080
    - http://proxy2.example.test:8080
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://ig.example.test", cfg.Instagram.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Instagram.FetchTimeout)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3.0, cfg.RateLimit.BackoffMultiplier)
	assert.Equal(t, 7, cfg.Scrape.Concurrency)
	assert.Equal(t, 50, cfg.Scrape.SampleSize)
	assert.Len(t, cfg.Proxy.URLs, 2)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TAGSTATS_REQUESTS_PER_MINUTE", "12")
	t.Setenv("TAGSTATS_CONCURRENCY", "5")
	t.Setenv("TAGSTATS_PROXIES", "http://a.example.test:1080, http://b.example.test:1080")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 12, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Scrape.Concurrency)
	assert.Equal(t, []string{"http://a.example.test:1080", "http://b.example.test:1080"}, cfg.Proxy.URLs)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Instagram.BaseURL = "" }},
		{"zero requests per minute", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }},
		{"backoff below one", func(c *Config) { c.RateLimit.BackoffMultiplier = 0.5 }},
		{"decay above one", func(c *Config) { c.RateLimit.DecayFactor = 1.5 }},
		{"min delay above max", func(c *Config) {
			c.RateLimit.MinDelay = time.Minute
			c.RateLimit.MaxDelay = time.Second
		}},
		{"zero concurrency", func(c *Config) { c.Scrape.Concurrency = 0 }},
		{"zero max pages", func(c *Config) { c.Scrape.MaxPages = 0 }},
		{"bad proxy url", func(c *Config) { c.Proxy.URLs = []string{"not a url"} }},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"xml"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"concurrency":   8,
		"sample-size":   100,
		"output-dir":    "/tmp/out",
		"formats":       []string{"json", "html"},
		"max-pages":     4,
		"related-depth": 5,
	})

	assert.Equal(t, 8, cfg.Scrape.Concurrency)
	assert.Equal(t, 100, cfg.Scrape.SampleSize)
	assert.Equal(t, "/tmp/out", cfg.Output.Directory)
	assert.Equal(t, []string{"json", "html"}, cfg.Output.Formats)
	assert.Equal(t, 4, cfg.Scrape.MaxPages)
	assert.Equal(t, 5, cfg.Scrape.RelatedDepth)
}
