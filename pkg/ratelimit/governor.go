package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tagstats/pkg/config"
)

// Outcome is the result of one outbound request, fed back into the governor.
type Outcome int

const (
	// Success means the request completed without the remote pushing back.
	Success Outcome = iota
	// Throttled means the remote signalled rate limiting (429) or the request
	// failed in a way we treat as pressure (5xx, network errors).
	Throttled
	// Blocked means the remote refused the request outright (403, challenge).
	Blocked
)

// Governor enforces global request pacing for one scrape run. It combines a
// hard requests-per-minute ceiling with an adaptive inter-request delay:
// Throttled and Blocked outcomes multiply the delay up to a cap, sustained
// Success decays it back toward a floor. One instance is shared by every
// worker in a run; all state updates are serialized.
type Governor struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	delay    time.Duration
	initial  time.Duration
	floor    time.Duration
	ceiling  time.Duration
	backoff  float64
	decay    float64
	lastSent time.Time
}

// NewGovernor creates a governor from rate-limit configuration.
func NewGovernor(cfg *config.RateLimitConfig) *Governor {
	return &Governor{
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		delay:   cfg.InitialDelay,
		initial: cfg.InitialDelay,
		floor:   cfg.MinDelay,
		ceiling: cfg.MaxDelay,
		backoff: cfg.BackoffMultiplier,
		decay:   cfg.DecayFactor,
	}
}

// Acquire blocks until it is safe to issue one more outbound request. It
// honors both the requests-per-minute ceiling and the current adaptive delay
// since the previous request. Returns the context's error on cancellation.
func (g *Governor) Acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	for {
		g.mu.Lock()
		wait := g.delay - time.Since(g.lastSent)
		if wait <= 0 {
			g.lastSent = time.Now()
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// ReportOutcome feeds one request outcome back into the adaptive delay.
func (g *Governor) ReportOutcome(o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch o {
	case Throttled, Blocked:
		next := time.Duration(float64(g.delay) * g.backoff)
		if next > g.ceiling {
			next = g.ceiling
		}
		if next < g.floor {
			next = g.floor
		}
		g.delay = next
	case Success:
		next := time.Duration(float64(g.delay) * g.decay)
		if next < g.floor {
			next = g.floor
		}
		g.delay = next
	}
}

// CurrentDelay returns the current adaptive inter-request delay. The page
// fetcher seeds its retry backoff from this value.
func (g *Governor) CurrentDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delay
}

// Reset restores the governor to its initial state. Called between runs.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = g.initial
	g.lastSent = time.Time{}
}
