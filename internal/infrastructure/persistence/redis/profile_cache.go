package redis

import (
	"context"
	"errors"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache implements profile.Cache on Redis, keyed by handle.
// Entries are invalidated after every successful sync so readers see
// fresh snapshots at the cost of one cache miss per profile per run.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a profile cache on top of a Cache connection.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// GetProfile returns a cached profile. A miss surfaces as ErrNotFound so
// callers fall through to PostgreSQL without special-casing the cache.
func (c *ProfileCache) GetProfile(ctx context.Context, handle profile.Handle) (*profile.TrackedProfile, error) {
	var p profile.TrackedProfile
	err := c.cache.Get(ctx, ProfileKey(handle.String()), &p)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetProfile caches a profile snapshot with the standard TTL.
func (c *ProfileCache) SetProfile(ctx context.Context, p *profile.TrackedProfile) error {
	return c.cache.Set(ctx, ProfileKey(p.Handle.String()), p, TTLProfileCache)
}

// InvalidateProfile drops a cached snapshot.
func (c *ProfileCache) InvalidateProfile(ctx context.Context, handle profile.Handle) error {
	return c.cache.Delete(ctx, ProfileKey(handle.String()))
}
