package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tagstats/pkg/config"
	errs "tagstats/pkg/errors"
	"tagstats/pkg/logger"
	"tagstats/pkg/proxy"
	"tagstats/pkg/ratelimit"
	"tagstats/pkg/retry"
)

// Client fetches hashtag pages. Every attempt goes through the shared
// governor's gate, selects the next proxy from the pool, and reports its
// outcome back. Retryable failures are absorbed up to the attempt budget;
// what escapes is a terminal, classified error.
type Client struct {
	baseURL     string
	headers     map[string]string
	timeout     time.Duration
	maxAttempts int
	governor    *ratelimit.Governor
	proxies     *proxy.Pool
	logger      logger.Logger

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewClient creates a page fetcher from configuration
func NewClient(cfg *config.Config, governor *ratelimit.Governor, proxies *proxy.Pool, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"User-Agent":      cfg.Instagram.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}

	var cookies []string
	if cfg.Instagram.SessionID != "" {
		cookies = append(cookies, fmt.Sprintf("sessionid=%s", cfg.Instagram.SessionID))
	}
	if cfg.Instagram.CSRFToken != "" {
		cookies = append(cookies, fmt.Sprintf("csrftoken=%s", cfg.Instagram.CSRFToken))
		headers["x-csrftoken"] = cfg.Instagram.CSRFToken
	}
	if len(cookies) > 0 {
		headers["Cookie"] = strings.Join(cookies, "; ")
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.Instagram.BaseURL, "/"),
		headers:     headers,
		timeout:     cfg.Instagram.FetchTimeout,
		maxAttempts: cfg.Scrape.MaxAttempts,
		governor:    governor,
		proxies:     proxies,
		logger:      log,
		clients:     make(map[string]*http.Client),
	}
}

// BaseURL returns the base URL the client fetches against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchTagPage fetches and decodes a hashtag's landing page
func (c *Client) FetchTagPage(ctx context.Context, tag string) (*TagPage, error) {
	data, err := c.fetch(ctx, GetTagPageURL(c.baseURL, tag))
	if err != nil {
		return nil, err
	}
	return DecodeTagPage(c.baseURL, data)
}

// FetchMorePosts fetches and decodes the next page of a hashtag's latest
// posts using the pagination cursor
func (c *Client) FetchMorePosts(ctx context.Context, tag, cursor string) (*TagPage, error) {
	data, err := c.fetch(ctx, GetTagMediaURL(c.baseURL, tag, cursor, DefaultPageSize))
	if err != nil {
		return nil, err
	}
	return DecodeTagPage(c.baseURL, data)
}

// fetch performs one logical fetch: up to maxAttempts network attempts with
// exponential backoff seeded from the governor's current delay.
func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Newf(errs.KindCancelled, "fetch abandoned: %v", err)
		}
		if err := c.governor.Acquire(ctx); err != nil {
			return nil, errs.Newf(errs.KindCancelled, "fetch abandoned: %v", err)
		}

		data, err := c.doAttempt(ctx, target)
		c.governor.ReportOutcome(outcomeFor(err))

		if err == nil {
			if attempt > 1 {
				c.logger.DebugWithFields("fetch succeeded after retry", map[string]interface{}{
					"url":     target,
					"attempt": attempt,
				})
			}
			return data, nil
		}

		lastErr = err
		kind := errs.KindOf(err)
		if !errs.IsRetryable(kind) {
			c.logger.DebugWithFields("fetch failed terminally", map[string]interface{}{
				"url":  target,
				"kind": string(kind),
			})
			return nil, err
		}

		if attempt < c.maxAttempts {
			backoff := &retry.ExponentialBackoff{
				BaseDelay:    c.governor.CurrentDelay(),
				MaxDelay:     5 * time.Minute,
				Multiplier:   2.0,
				JitterFactor: 0.1,
			}
			delay := backoff.NextDelay(attempt)
			c.logger.WarnWithFields("retrying fetch", map[string]interface{}{
				"url":      target,
				"attempt":  attempt,
				"kind":     string(kind),
				"delay_ms": delay.Milliseconds(),
			})
			if err := retry.Wait(ctx, delay); err != nil {
				return nil, errs.Newf(errs.KindCancelled, "fetch abandoned: %v", err)
			}
		}
	}

	return nil, fmt.Errorf("max fetch attempts (%d) exceeded: %w", c.maxAttempts, lastErr)
}

// doAttempt performs a single HTTP request and classifies its outcome
func (c *Client) doAttempt(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Newf(errs.KindUnknown, "failed to build request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.clientFor(c.proxies.Next()).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Newf(errs.KindCancelled, "request cancelled: %v", ctx.Err())
		}
		return nil, errs.Newf(errs.KindTransient, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("fetch attempt completed", map[string]interface{}{
		"url":      target,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if strings.Contains(location, "/challenge/") || strings.Contains(location, "/accounts/login") {
			return nil, errs.NewHTTP(errs.KindBlocked, resp.StatusCode,
				fmt.Sprintf("challenge redirect to %s", location))
		}
		return nil, errs.NewHTTP(errs.KindTransient, resp.StatusCode,
			fmt.Sprintf("unexpected redirect to %s", location))
	}

	if kind := errs.KindFromStatusCode(resp.StatusCode); kind != "" {
		return nil, errs.NewHTTP(kind, resp.StatusCode,
			fmt.Sprintf("server returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.KindTransient, "failed to read response body: %v", err)
	}
	return data, nil
}

// outcomeFor maps an attempt's error onto the governor feedback signal.
// Transient failures count as throttling so the whole run slows down under
// network pressure too.
func outcomeFor(err error) ratelimit.Outcome {
	switch errs.KindOf(err) {
	case errs.KindRateLimited, errs.KindTransient:
		return ratelimit.Throttled
	case errs.KindBlocked:
		return ratelimit.Blocked
	default:
		return ratelimit.Success
	}
}

// clientFor returns an HTTP client routed through the given proxy, reusing
// transports across attempts. Redirects are not followed; they are classified
// by the caller.
func (c *Client) clientFor(proxyURL *url.URL) *http.Client {
	key := ""
	if proxyURL != nil {
		key = proxyURL.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client
	}

	transport := &http.Transport{}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	client := &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c.clients[key] = client
	return client
}
