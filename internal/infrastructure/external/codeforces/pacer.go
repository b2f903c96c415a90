// Package codeforces implements the Codeforces public API client.
package codeforces

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PACER - minimum interval between outbound requests
// ══════════════════════════════════════════════════════════════════════════════

// Pacer delays the caller before each outbound API request. The client calls
// Wait before every single HTTP call, so an implementation fully controls the
// request cadence. Swappable so tests can run without real sleeps.
type Pacer interface {
	// Wait blocks until the next request is allowed or the context is done.
	Wait(ctx context.Context) error
}

// IntervalPacer enforces a minimum interval between consecutive requests.
// This is essential for protecting against blocking by the Codeforces API,
// which throttles clients that issue requests back to back.
type IntervalPacer struct {
	mu sync.Mutex

	minInterval time.Duration // Minimum time between requests
	lastRequest time.Time     // Time of the last allowed request
}

// NewIntervalPacer creates a pacer with the given minimum interval.
func NewIntervalPacer(minInterval time.Duration) *IntervalPacer {
	return &IntervalPacer{
		minInterval: minInterval,
		// Allow immediate first request
		lastRequest: time.Now().Add(-minInterval),
	}
}

// Wait blocks until minInterval has elapsed since the previous request.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	wait := p.minInterval - now.Sub(p.lastRequest)
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before sleeping so concurrent callers queue up.
	p.lastRequest = now.Add(wait)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer never delays. Used in tests.
type NopPacer struct{}

// Wait returns immediately unless the context is already done.
func (NopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
