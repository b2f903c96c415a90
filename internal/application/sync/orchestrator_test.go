package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type memRepo struct {
	profiles map[profile.Handle]*profile.TrackedProfile
	order    []profile.Handle
	updates  int
}

func newMemRepo(profiles ...*profile.TrackedProfile) *memRepo {
	r := &memRepo{profiles: make(map[profile.Handle]*profile.TrackedProfile)}
	for _, p := range profiles {
		r.profiles[p.Handle] = p
		r.order = append(r.order, p.Handle)
	}
	return r
}

func (r *memRepo) Create(ctx context.Context, p *profile.TrackedProfile) error {
	r.profiles[p.Handle] = p
	r.order = append(r.order, p.Handle)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*profile.TrackedProfile, error) {
	for _, p := range r.profiles {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *memRepo) GetByHandle(ctx context.Context, handle profile.Handle) (*profile.TrackedProfile, error) {
	p, ok := r.profiles[handle]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r *memRepo) GetByEmail(ctx context.Context, email profile.Email) (*profile.TrackedProfile, error) {
	for _, p := range r.profiles {
		if p.Email == email {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *memRepo) Update(ctx context.Context, p *profile.TrackedProfile) error {
	if _, ok := r.profiles[p.Handle]; !ok {
		return shared.ErrProfileNotFound
	}
	r.profiles[p.Handle] = p.Clone()
	r.updates++
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error { return nil }

func (r *memRepo) GetAll(ctx context.Context, opts profile.ListOptions) ([]*profile.TrackedProfile, error) {
	out := make([]*profile.TrackedProfile, 0, len(r.order))
	for _, h := range r.order {
		out = append(out, r.profiles[h].Clone())
	}
	return out, nil
}

func (r *memRepo) GetActive(ctx context.Context) ([]*profile.TrackedProfile, error) {
	var out []*profile.TrackedProfile
	for _, h := range r.order {
		if p := r.profiles[h]; p.Active {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *memRepo) Count(ctx context.Context) (int, error) { return len(r.profiles), nil }

type memSettings struct {
	settings *profile.SyncSettings
	lastSync *time.Time
}

func newMemSettings() *memSettings {
	return &memSettings{settings: profile.DefaultSyncSettings()}
}

func (s *memSettings) Get(ctx context.Context) (*profile.SyncSettings, error) {
	copy := *s.settings
	return &copy, nil
}

func (s *memSettings) Update(ctx context.Context, settings *profile.SyncSettings) error {
	copy := *settings
	s.settings = &copy
	return nil
}

func (s *memSettings) SetLastSyncTime(ctx context.Context, t time.Time) error {
	s.lastSync = &t
	return nil
}

type fakeFetcher struct {
	snapshots map[profile.Handle]*profile.Snapshot
	failures  map[profile.Handle]error
	calls     []profile.Handle
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, handle profile.Handle) (*profile.Snapshot, error) {
	f.calls = append(f.calls, handle)
	if err, ok := f.failures[handle]; ok {
		return nil, err
	}
	snap, ok := f.snapshots[handle]
	if !ok {
		return nil, shared.NewDomainError("codeforces", "GetUserInfo", shared.ErrExternalService, "unknown handle")
	}
	return snap, nil
}

type memCache struct {
	entries     map[profile.Handle]*profile.TrackedProfile
	failSet     bool
	invalidated []profile.Handle
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[profile.Handle]*profile.TrackedProfile)}
}

func (c *memCache) GetProfile(ctx context.Context, handle profile.Handle) (*profile.TrackedProfile, error) {
	p, ok := c.entries[handle]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (c *memCache) SetProfile(ctx context.Context, p *profile.TrackedProfile) error {
	if c.failSet {
		return shared.ErrPersistence
	}
	c.entries[p.Handle] = p.Clone()
	return nil
}

func (c *memCache) InvalidateProfile(ctx context.Context, handle profile.Handle) error {
	delete(c.entries, handle)
	c.invalidated = append(c.invalidated, handle)
	return nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

func makeProfile(t *testing.T, name, email, handle string) *profile.TrackedProfile {
	t.Helper()
	p, err := profile.NewTrackedProfile(profile.NewProfileParams{
		ID:     "id-" + handle,
		Name:   name,
		Email:  profile.Email(email),
		Handle: profile.Handle(handle),
	})
	require.NoError(t, err)
	return p
}

func makeSnapshot(handle string, rating, maxRating int) *profile.Snapshot {
	return &profile.Snapshot{
		Handle:        profile.Handle(handle),
		CurrentRating: profile.Rating(rating),
		MaxRating:     profile.Rating(maxRating),
		Contests: []profile.ContestResult{
			{ContestID: 100, ContestName: "Round 100", Handle: handle, NewRating: profile.Rating(rating)},
		},
		Submissions: []profile.SubmissionRecord{
			{ID: 1, Author: handle, Verdict: "OK", CreatedAt: time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func newTestOrchestrator(repo *memRepo, settings *memSettings, fetcher *fakeFetcher) (*Orchestrator, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	o := NewOrchestrator(repo, settings, fetcher, nil, DefaultConfig()).WithSleeper(sleeper)
	return o, sleeper
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestSyncOne_AppliesSnapshot(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	repo := newMemRepo(alice)
	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1520, 1640),
	}}
	o, _ := newTestOrchestrator(repo, newMemSettings(), fetcher)

	updated, err := o.SyncOne(context.Background(), "alice_cf")
	require.NoError(t, err)

	assert.EqualValues(t, 1520, updated.CurrentRating)
	assert.EqualValues(t, 1640, updated.MaxRating)
	assert.NotNil(t, updated.LastUpdated)
	require.Len(t, updated.Submissions, 1)

	stored := repo.profiles["alice_cf"]
	assert.EqualValues(t, 1520, stored.CurrentRating)
}

func TestSyncOne_WritesThroughCache(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	repo := newMemRepo(alice)
	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1520, 1640),
	}}
	cache := newMemCache()
	o := NewOrchestrator(repo, newMemSettings(), fetcher, cache, DefaultConfig()).
		WithSleeper(&recordingSleeper{})

	_, err := o.SyncOne(context.Background(), "alice_cf")
	require.NoError(t, err)

	cached, err := cache.GetProfile(context.Background(), "alice_cf")
	require.NoError(t, err)
	assert.EqualValues(t, 1520, cached.CurrentRating)
	assert.EqualValues(t, 1640, cached.MaxRating)
}

func TestSyncOne_CacheWriteFailureInvalidatesEntry(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	repo := newMemRepo(alice)
	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1520, 1640),
	}}
	cache := newMemCache()
	cache.failSet = true
	o := NewOrchestrator(repo, newMemSettings(), fetcher, cache, DefaultConfig()).
		WithSleeper(&recordingSleeper{})

	// The sync itself still succeeds; the stale key is dropped instead.
	_, err := o.SyncOne(context.Background(), "alice_cf")
	require.NoError(t, err)

	assert.Equal(t, []profile.Handle{"alice_cf"}, cache.invalidated)
	assert.Equal(t, 1, repo.updates)
}

func TestSyncOne_UnknownHandle(t *testing.T) {
	o, _ := newTestOrchestrator(newMemRepo(), newMemSettings(), &fakeFetcher{})

	_, err := o.SyncOne(context.Background(), "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestSyncOne_FetchFailureLeavesProfileUntouched(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	alice.CurrentRating = 1400
	repo := newMemRepo(alice)

	fetcher := &fakeFetcher{failures: map[profile.Handle]error{
		"alice_cf": shared.NewDomainError("codeforces", "GetUserInfo", shared.ErrTransport, "connection refused"),
	}}
	o, _ := newTestOrchestrator(repo, newMemSettings(), fetcher)

	_, err := o.SyncOne(context.Background(), "alice_cf")
	require.Error(t, err)
	assert.True(t, shared.IsTransport(err))

	stored := repo.profiles["alice_cf"]
	assert.EqualValues(t, 1400, stored.CurrentRating)
	assert.Nil(t, stored.LastUpdated)
	assert.Equal(t, 0, repo.updates)
}

func TestSyncOne_Idempotent(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	repo := newMemRepo(alice)
	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1520, 1640),
	}}
	o, _ := newTestOrchestrator(repo, newMemSettings(), fetcher)

	fixed := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	o.WithClock(func() time.Time { return fixed })

	first, err := o.SyncOne(context.Background(), "alice_cf")
	require.NoError(t, err)
	second, err := o.SyncOne(context.Background(), "alice_cf")
	require.NoError(t, err)

	assert.Equal(t, first.CurrentRating, second.CurrentRating)
	assert.Equal(t, first.MaxRating, second.MaxRating)
	assert.Equal(t, first.Contests, second.Contests)
	assert.Equal(t, first.Submissions, second.Submissions)
	assert.Equal(t, *first.LastUpdated, *second.LastUpdated)
}

func TestSyncAll_FailureIsolation(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	bob := makeProfile(t, "Bob", "bob@example.com", "bob_cf")
	carol := makeProfile(t, "Carol", "carol@example.com", "carol_cf")
	repo := newMemRepo(alice, bob, carol)

	fetcher := &fakeFetcher{
		snapshots: map[profile.Handle]*profile.Snapshot{
			"alice_cf": makeSnapshot("alice_cf", 1520, 1640),
			"carol_cf": makeSnapshot("carol_cf", 1900, 1950),
		},
		failures: map[profile.Handle]error{
			"bob_cf": shared.NewDomainError("codeforces", "GetUserInfo", shared.ErrExternalService, "handle not found"),
		},
	}
	o, _ := newTestOrchestrator(repo, newMemSettings(), fetcher)

	stats, err := o.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Synced)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, stats.Errors, "bob_cf")

	// The two healthy profiles were updated, the failing one untouched.
	assert.NotNil(t, repo.profiles["alice_cf"].LastUpdated)
	assert.NotNil(t, repo.profiles["carol_cf"].LastUpdated)
	assert.Nil(t, repo.profiles["bob_cf"].LastUpdated)
}

func TestSyncAll_PausesBetweenProfiles(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	bob := makeProfile(t, "Bob", "bob@example.com", "bob_cf")
	carol := makeProfile(t, "Carol", "carol@example.com", "carol_cf")
	repo := newMemRepo(alice, bob, carol)

	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1500, 1500),
		"bob_cf":   makeSnapshot("bob_cf", 1600, 1600),
		"carol_cf": makeSnapshot("carol_cf", 1700, 1700),
	}}
	o, sleeper := newTestOrchestrator(repo, newMemSettings(), fetcher)

	_, err := o.SyncAll(context.Background())
	require.NoError(t, err)

	// One pause between each consecutive pair, none before the first.
	require.Len(t, sleeper.delays, 2)
	for _, d := range sleeper.delays {
		assert.Equal(t, 2*time.Second, d)
	}
}

func TestSyncAll_SkipsDeactivatedProfiles(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	bob := makeProfile(t, "Bob", "bob@example.com", "bob_cf")
	bob.Deactivate()
	repo := newMemRepo(alice, bob)

	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1500, 1500),
	}}
	o, _ := newTestOrchestrator(repo, newMemSettings(), fetcher)

	stats, err := o.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Synced)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, []profile.Handle{"alice_cf"}, fetcher.calls)
}

func TestSyncAll_RecordsLastSyncTime(t *testing.T) {
	alice := makeProfile(t, "Alice", "alice@example.com", "alice_cf")
	repo := newMemRepo(alice)
	settings := newMemSettings()
	fetcher := &fakeFetcher{snapshots: map[profile.Handle]*profile.Snapshot{
		"alice_cf": makeSnapshot("alice_cf", 1500, 1500),
	}}
	o, _ := newTestOrchestrator(repo, settings, fetcher)

	fixed := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	o.WithClock(func() time.Time { return fixed })

	_, err := o.SyncAll(context.Background())
	require.NoError(t, err)

	require.NotNil(t, settings.lastSync)
	assert.Equal(t, fixed, *settings.lastSync)
}

func TestSyncAll_RecordsLastSyncTimeOnPartialFailure(t *testing.T) {
	bob := makeProfile(t, "Bob", "bob@example.com", "bob_cf")
	repo := newMemRepo(bob)
	settings := newMemSettings()
	fetcher := &fakeFetcher{failures: map[profile.Handle]error{
		"bob_cf": errors.New("boom"),
	}}
	o, _ := newTestOrchestrator(repo, settings, fetcher)

	stats, err := o.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.NotNil(t, settings.lastSync)
}
