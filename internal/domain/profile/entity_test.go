package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewProfileParams {
	return NewProfileParams{
		ID:     "11111111-1111-1111-1111-111111111111",
		Name:   "Alice Johnson",
		Email:  "alice@example.com",
		Handle: "alice_cf",
	}
}

func TestNewTrackedProfile_Defaults(t *testing.T) {
	p, err := NewTrackedProfile(validParams())
	require.NoError(t, err)

	assert.True(t, p.Active)
	assert.True(t, p.NotificationsEnabled)
	assert.Equal(t, Rating(0), p.CurrentRating)
	assert.Equal(t, Rating(0), p.MaxRating)
	assert.Equal(t, 0, p.ReminderCount)
	assert.Nil(t, p.LastReminderAt)
	assert.Nil(t, p.LastUpdated)
	assert.Empty(t, p.Contests)
	assert.Empty(t, p.Submissions)
}

func TestNewTrackedProfile_GeneratesID(t *testing.T) {
	params := validParams()
	params.ID = ""

	p, err := NewTrackedProfile(params)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	q, err := NewTrackedProfile(params)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, q.ID)
}

func TestNewTrackedProfile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NewProfileParams)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(p *NewProfileParams) { p.Name = "   " },
			wantErr: ErrInvalidName,
		},
		{
			name:    "email without at",
			mutate:  func(p *NewProfileParams) { p.Email = "aliceexample.com" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "email ends with at",
			mutate:  func(p *NewProfileParams) { p.Email = "alice@" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "empty handle",
			mutate:  func(p *NewProfileParams) { p.Handle = "" },
			wantErr: ErrInvalidHandle,
		},
		{
			name:    "handle with space",
			mutate:  func(p *NewProfileParams) { p.Handle = "ali ce" },
			wantErr: ErrInvalidHandle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := NewTrackedProfile(params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplySnapshot_FullReplace(t *testing.T) {
	p, err := NewTrackedProfile(validParams())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p.Contests = []ContestResult{{ContestID: 1, ContestName: "stale"}}
	p.Submissions = []SubmissionRecord{{ID: 1}, {ID: 2}}

	snap := Snapshot{
		Handle:        p.Handle,
		CurrentRating: 1500,
		MaxRating:     1600,
		Contests:      []ContestResult{{ContestID: 42, ContestName: "Round 42", NewRating: 1500}},
		Submissions:   []SubmissionRecord{{ID: 99}},
	}
	p.ApplySnapshot(snap, now)

	assert.Equal(t, Rating(1500), p.CurrentRating)
	assert.Equal(t, Rating(1600), p.MaxRating)
	require.Len(t, p.Contests, 1)
	assert.Equal(t, 42, p.Contests[0].ContestID)
	require.Len(t, p.Submissions, 1)
	assert.Equal(t, int64(99), p.Submissions[0].ID)
	require.NotNil(t, p.LastUpdated)
	assert.Equal(t, now, *p.LastUpdated)
}

func TestApplySnapshot_NegativeRatingIsKept(t *testing.T) {
	p, err := NewTrackedProfile(validParams())
	require.NoError(t, err)

	snap := Snapshot{
		CurrentRating: -18,
		MaxRating:     412,
		Contests:      []ContestResult{{ContestID: 1, NewRating: -18}},
	}
	p.ApplySnapshot(snap, time.Now())

	assert.Equal(t, Rating(-18), p.CurrentRating)
	assert.Equal(t, Rating(412), p.MaxRating)
}

func TestApplySnapshot_MaxRatingFloorsAtHistoryMax(t *testing.T) {
	p, err := NewTrackedProfile(validParams())
	require.NoError(t, err)

	snap := Snapshot{
		CurrentRating: 1400,
		MaxRating:     1450,
		Contests: []ContestResult{
			{ContestID: 1, NewRating: 1700},
			{ContestID: 2, NewRating: 1400},
		},
	}
	p.ApplySnapshot(snap, time.Now())

	assert.Equal(t, Rating(1700), p.MaxRating)
}

func TestLastSubmissionTime(t *testing.T) {
	p := &TrackedProfile{}

	_, ok := p.LastSubmissionTime()
	assert.False(t, ok)

	older := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	p.Submissions = []SubmissionRecord{
		{ID: 1, CreatedAt: newer},
		{ID: 2, CreatedAt: older},
	}

	got, ok := p.LastSubmissionTime()
	require.True(t, ok)
	assert.Equal(t, newer, got)
}

func TestDaysSinceLastSubmission(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := &TrackedProfile{Submissions: []SubmissionRecord{
		{ID: 1, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}}
	days, ok := p.DaysSinceLastSubmission(now)
	require.True(t, ok)
	assert.Equal(t, 10, days)

	_, ok = (&TrackedProfile{}).DaysSinceLastSubmission(now)
	assert.False(t, ok)
}

func TestIsInactiveSince_BoundarySubmissionIsRecent(t *testing.T) {
	cutoff := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		subAt    *time.Time
		inactive bool
	}{
		{name: "no submissions", subAt: nil, inactive: true},
		{name: "submission exactly at cutoff", subAt: &cutoff, inactive: false},
		{name: "submission one second after cutoff", subAt: ptr(cutoff.Add(time.Second)), inactive: false},
		{name: "submission one second before cutoff", subAt: ptr(cutoff.Add(-time.Second)), inactive: true},
		{name: "submission well before cutoff", subAt: ptr(cutoff.Add(-72 * time.Hour)), inactive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &TrackedProfile{}
			if tt.subAt != nil {
				p.Submissions = []SubmissionRecord{{ID: 1, CreatedAt: *tt.subAt}}
			}
			assert.Equal(t, tt.inactive, p.IsInactiveSince(cutoff))
		})
	}
}

func TestInReminderCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cooldown := 24 * time.Hour

	p := &TrackedProfile{}
	assert.False(t, p.InReminderCooldown(now, cooldown))

	at23h := now.Add(-23 * time.Hour)
	p.LastReminderAt = &at23h
	assert.True(t, p.InReminderCooldown(now, cooldown))

	at25h := now.Add(-25 * time.Hour)
	p.LastReminderAt = &at25h
	assert.False(t, p.InReminderCooldown(now, cooldown))
}

func TestRecordReminder(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &TrackedProfile{}

	p.RecordReminder(now)
	p.RecordReminder(now.Add(25 * time.Hour))

	assert.Equal(t, 2, p.ReminderCount)
	require.NotNil(t, p.LastReminderAt)
	assert.Equal(t, now.Add(25*time.Hour), *p.LastReminderAt)
}

func TestClone_DeepCopy(t *testing.T) {
	p, err := NewTrackedProfile(validParams())
	require.NoError(t, err)

	p.Submissions = []SubmissionRecord{
		{ID: 1, Problem: Problem{Tags: []string{"dp", "graphs"}}},
	}
	p.Contests = []ContestResult{{ContestID: 7}}

	clone := p.Clone()
	clone.Submissions[0].Problem.Tags[0] = "greedy"
	clone.Contests[0].ContestID = 8

	assert.Equal(t, "dp", p.Submissions[0].Problem.Tags[0])
	assert.Equal(t, 7, p.Contests[0].ContestID)
}

func ptr(t time.Time) *time.Time { return &t }
