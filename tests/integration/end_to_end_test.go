package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagstats/pkg/config"
	"tagstats/pkg/export"
	"tagstats/pkg/logger"
	"tagstats/pkg/scraper"
)

// testConfig builds a configuration pointed at the mock server with rate
// limiting effectively disabled so the suite runs fast.
func testConfig(serverURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Instagram.BaseURL = serverURL
	cfg.Instagram.FetchTimeout = 5 * time.Second
	cfg.RateLimit.RequestsPerMinute = 60000
	cfg.RateLimit.InitialDelay = time.Millisecond
	cfg.RateLimit.MinDelay = time.Millisecond
	cfg.RateLimit.MaxDelay = 50 * time.Millisecond
	cfg.Scrape.Concurrency = 2
	cfg.Scrape.SampleSize = 5
	cfg.Scrape.RelatedDepth = 20
	cfg.Scrape.MaxAttempts = 3
	cfg.Scrape.MaxPages = 5
	return cfg
}

func makePosts(prefix string, n int) []mockPost {
	posts := make([]mockPost, n)
	for i := range posts {
		posts[i] = mockPost{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Shortcode: fmt.Sprintf("SC%s%d", prefix, i),
			Caption:   fmt.Sprintf("post %d #%s #sunset @someone", i, prefix),
			IsVideo:   i%3 == 1,
		}
	}
	return posts
}

func TestEndToEndScrapeRun(t *testing.T) {
	mock := NewMockInstagramServer()
	defer mock.Close()

	mock.AddTag("love", 2_150_000_000, map[string]int64{
		"instagood": 1_960_000_000,
		"lovely":    20_000_000,
		"selflove":  5_000_000,
		"obscure":   12_000,
	}, makePosts("love", 9), 3)
	mock.AddTag("travel", 500_000_000, map[string]int64{
		"travelgram": 150_000_000,
	}, makePosts("travel", 5), 5)

	cfg := testConfig(mock.URL())
	s, err := scraper.New(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	outcomes := s.Run(context.Background(), []string{"#Love", "nosuchtag", "travel"})
	require.Len(t, outcomes, 3)

	// Input order survives regardless of which job finishes first
	assert.Equal(t, "love", outcomes[0].Job.Tag)
	assert.Equal(t, "nosuchtag", outcomes[1].Job.Tag)
	assert.Equal(t, "travel", outcomes[2].Job.Tag)

	love := outcomes[0]
	require.Equal(t, scraper.OutcomeSuccess, love.Kind)
	require.NotNil(t, love.Record)
	assert.Equal(t, "love", love.Record.Name)
	require.NotNil(t, love.Record.PostsCount)
	assert.Equal(t, int64(2_150_000_000), *love.Record.PostsCount)
	assert.Equal(t, "2.15 G", love.Record.Posts)
	require.NotNil(t, love.Record.PostsPerDay)
	assert.InDelta(t, 1178082.19, *love.Record.PostsPerDay, 0.01)
	assert.Equal(t, mock.URL()+"/explore/tags/love/", love.Record.URL)

	// Sample spans the landing page plus one pagination fetch
	assert.Len(t, love.Record.LatestPosts, 5)
	assert.NotEmpty(t, love.Record.TopPosts)
	assert.Contains(t, love.Record.LatestPosts[0].Hashtags, "love")
	assert.Contains(t, love.Record.LatestPosts[0].Mentions, "someone")

	// Related tags bucketed by magnitude, semantic subset separated
	assert.Len(t, love.Record.Frequent, 2) // instagood + lovely
	assert.Len(t, love.Record.Average, 1)  // selflove
	assert.Len(t, love.Record.Rare, 1)     // obscure
	require.Len(t, love.Record.RelatedFrequent, 1)
	assert.Equal(t, "#lovely", love.Record.RelatedFrequent[0].Hash)
	require.Len(t, love.Record.RelatedAverage, 1)
	assert.Equal(t, "#selflove", love.Record.RelatedAverage[0].Hash)

	missing := outcomes[1]
	assert.Equal(t, scraper.OutcomeFailure, missing.Kind)
	assert.Error(t, missing.Err)

	travel := outcomes[2]
	require.Equal(t, scraper.OutcomeSuccess, travel.Kind)
	require.NotNil(t, travel.Record)
	assert.Equal(t, "500 M", travel.Record.Posts)
	assert.Len(t, travel.Record.LatestPosts, 5)
}

func TestEndToEndRecoversFromRateLimiting(t *testing.T) {
	mock := NewMockInstagramServer()
	defer mock.Close()

	mock.AddTag("coffee", 120_000_000, map[string]int64{
		"coffeetime": 30_000_000,
	}, makePosts("coffee", 6), 3)
	mock.FailNext(http.StatusTooManyRequests, http.StatusTooManyRequests)

	cfg := testConfig(mock.URL())
	log := logger.NewTestLogger()
	s, err := scraper.New(cfg, log)
	require.NoError(t, err)

	outcomes := s.Run(context.Background(), []string{"coffee"})
	require.Len(t, outcomes, 1)

	assert.Equal(t, scraper.OutcomeSuccess, outcomes[0].Kind)
	require.NotNil(t, outcomes[0].Record)
	assert.Equal(t, "120 M", outcomes[0].Record.Posts)

	// Two throttled attempts plus the successful one
	assert.GreaterOrEqual(t, mock.RequestCount(), 3)
}

func TestEndToEndGivesUpAfterRepeatedServerErrors(t *testing.T) {
	mock := NewMockInstagramServer()
	defer mock.Close()

	mock.AddTag("broken", 1_000, nil, makePosts("broken", 1), 1)
	mock.FailNext(
		http.StatusInternalServerError,
		http.StatusInternalServerError,
		http.StatusInternalServerError,
	)

	cfg := testConfig(mock.URL())
	s, err := scraper.New(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	outcomes := s.Run(context.Background(), []string{"broken"})
	require.Len(t, outcomes, 1)
	assert.Equal(t, scraper.OutcomeFailure, outcomes[0].Kind)
	require.Error(t, outcomes[0].Err)
	assert.Contains(t, outcomes[0].Err.Error(), "max fetch attempts")
}

func TestEndToEndCancellation(t *testing.T) {
	mock := NewMockInstagramServer()
	defer mock.Close()

	mock.AddTag("slow", 1_000_000, nil, makePosts("slow", 2), 2)

	cfg := testConfig(mock.URL())
	s, err := scraper.New(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := s.Run(ctx, []string{"slow", "slower"})
	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.Equal(t, scraper.OutcomeFailure, outcome.Kind)
	}
}

func TestEndToEndScrapeAndExport(t *testing.T) {
	mock := NewMockInstagramServer()
	defer mock.Close()

	mock.AddTag("sunset", 300_000_000, map[string]int64{
		"sunsets":    80_000_000,
		"sunsetlove": 2_000_000,
	}, makePosts("sunset", 5), 5)

	cfg := testConfig(mock.URL())
	log := logger.NewTestLogger()
	s, err := scraper.New(cfg, log)
	require.NoError(t, err)

	outcomes := s.Run(context.Background(), []string{"sunset", "ghosttag"})

	dir := t.TempDir()
	exporter, err := export.New(dir, log)
	require.NoError(t, err)
	require.NoError(t, exporter.Export(outcomes, []string{"json", "csv", "html"}))

	data, err := os.ReadFile(filepath.Join(dir, "hashtags.json"))
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1) // failed job contributes no record
	assert.Equal(t, "sunset", records[0]["name"])
	assert.Equal(t, "300 M", records[0]["posts"])

	for _, name := range []string{"hashtags.csv", "hashtags.html"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
