// Package sync implements the roster synchronization pipeline: fetching
// fresh Codeforces snapshots for tracked profiles and persisting them.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileFetcher fetches a complete profile snapshot from Codeforces.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, handle profile.Handle) (*profile.Snapshot, error)
}

// Sleeper paces the gap between consecutive profile syncs.
// Swappable so tests can run without real sleeps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on the wall clock.
type ClockSleeper struct{}

// Sleep blocks for d or until the context is done.
func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder receives sync metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveSyncRun(d time.Duration)
	IncProfileSynced()
	IncProfileFailed()
}

// nopRecorder discards all metrics.
type nopRecorder struct{}

func (nopRecorder) ObserveSyncRun(time.Duration) {}
func (nopRecorder) IncProfileSynced()            {}
func (nopRecorder) IncProfileFailed()            {}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains orchestrator settings.
type Config struct {
	// InterProfileDelay is the pause between consecutive profiles during
	// a full sync. Kept at twice the per-call pace so a roster sweep never
	// hammers the API even when a profile needs only cached calls.
	InterProfileDelay time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		InterProfileDelay: 2 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ORCHESTRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Stats summarizes one full sync run.
type Stats struct {
	Total     int
	Synced    int
	Failed    int
	Duration  time.Duration
	StartedAt time.Time
	// Errors maps failed handles to their error messages.
	Errors map[string]string
}

// Orchestrator coordinates roster synchronization. A profile failure never
// aborts the rest of the roster, and a failed fetch leaves the stored
// profile untouched.
type Orchestrator struct {
	repo     profile.Repository
	settings profile.SettingsRepository
	fetcher  ProfileFetcher
	cache    profile.Cache // optional, may be nil
	sleeper  Sleeper
	metrics  Recorder
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(
	repo profile.Repository,
	settings profile.SettingsRepository,
	fetcher ProfileFetcher,
	cache profile.Cache,
	config Config,
) *Orchestrator {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.InterProfileDelay <= 0 {
		config.InterProfileDelay = DefaultConfig().InterProfileDelay
	}

	return &Orchestrator{
		repo:     repo,
		settings: settings,
		fetcher:  fetcher,
		cache:    cache,
		sleeper:  ClockSleeper{},
		metrics:  nopRecorder{},
		config:   config,
		logger:   config.Logger,
		now:      time.Now,
	}
}

// WithSleeper replaces the inter-profile pacing policy.
func (o *Orchestrator) WithSleeper(s Sleeper) *Orchestrator {
	o.sleeper = s
	return o
}

// WithRecorder attaches a metrics recorder.
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.metrics = r
	return o
}

// WithClock replaces the time source. Used in tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// SyncOne synchronizes a single profile by handle. Returns the updated
// profile. The stored profile is not modified when the fetch fails.
func (o *Orchestrator) SyncOne(ctx context.Context, handle profile.Handle) (*profile.TrackedProfile, error) {
	p, err := o.repo.GetByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", handle, err)
	}

	if err := o.syncProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SyncAll synchronizes the whole roster sequentially, pausing between
// consecutive profiles. Individual failures are collected in the stats;
// the run itself only fails when the roster cannot be listed at all.
func (o *Orchestrator) SyncAll(ctx context.Context) (*Stats, error) {
	start := o.now()
	stats := &Stats{
		StartedAt: start,
		Errors:    make(map[string]string),
	}

	profiles, err := o.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync all: list profiles: %w", err)
	}
	stats.Total = len(profiles)

	o.logger.Info("full sync starting", "profiles", stats.Total)

	for i, p := range profiles {
		if i > 0 {
			if err := o.sleeper.Sleep(ctx, o.config.InterProfileDelay); err != nil {
				stats.Duration = o.now().Sub(start)
				return stats, fmt.Errorf("sync all: interrupted: %w", err)
			}
		}

		if err := o.syncProfile(ctx, p); err != nil {
			stats.Failed++
			stats.Errors[p.Handle.String()] = err.Error()
			o.metrics.IncProfileFailed()
			o.logger.Error("profile sync failed",
				"handle", p.Handle,
				"external", shared.IsExternalService(err),
				"transport", shared.IsTransport(err),
				"error", err,
			)
			continue
		}

		stats.Synced++
		o.metrics.IncProfileSynced()
	}

	stats.Duration = o.now().Sub(start)
	o.metrics.ObserveSyncRun(stats.Duration)

	// LastSyncTime records that a sweep finished, partial or not.
	if err := o.settings.SetLastSyncTime(ctx, o.now()); err != nil {
		o.logger.Error("record last sync time", "error", err)
	}

	o.logger.Info("full sync finished",
		"total", stats.Total,
		"synced", stats.Synced,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// syncProfile fetches and stores a fresh snapshot for one loaded profile.
func (o *Orchestrator) syncProfile(ctx context.Context, p *profile.TrackedProfile) error {
	snap, err := o.fetcher.FetchProfile(ctx, p.Handle)
	if err != nil {
		return err
	}

	p.ApplySnapshot(*snap, o.now())

	if err := o.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("store snapshot for %s: %w", p.Handle, err)
	}

	// Write-through: the cache gets the fresh profile right after the
	// database does. A failed write falls back to invalidation so the
	// cache never serves the previous snapshot.
	if o.cache != nil {
		if err := o.cache.SetProfile(ctx, p); err != nil {
			o.logger.Warn("cache write failed", "handle", p.Handle, "error", err)
			if err := o.cache.InvalidateProfile(ctx, p.Handle); err != nil {
				o.logger.Warn("cache invalidation failed", "handle", p.Handle, "error", err)
			}
		}
	}

	return nil
}
