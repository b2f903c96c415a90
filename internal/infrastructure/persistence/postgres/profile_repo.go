package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository on PostgreSQL.
// Contest history and submissions live in JSONB columns and are replaced
// wholesale on every sync, matching the snapshot semantics of the domain.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `
	id, name, email, phone, handle, active, notifications_enabled,
	current_rating, max_rating, last_updated, reminder_count, last_reminder_at,
	created_at, updated_at, contests, submissions
`

// Create inserts a new tracked profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.TrackedProfile) error {
	contests, submissions, err := marshalSnapshots(p)
	if err != nil {
		return shared.WrapError("profile", "Create", shared.ErrPersistence, "encode snapshot", err)
	}

	query := `
		INSERT INTO tracked_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.conn.Exec(ctx, query,
		p.ID, p.Name, p.Email.String(), p.Phone, p.Handle.String(),
		p.Active, p.NotificationsEnabled,
		int(p.CurrentRating), int(p.MaxRating),
		p.LastUpdated, p.ReminderCount, p.LastReminderAt,
		p.CreatedAt, p.UpdatedAt, contests, submissions,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return shared.WrapError("profile", "Create", shared.ErrPersistence, "insert profile", err)
	}

	return nil
}

// GetByID returns a profile by internal ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.TrackedProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM tracked_profiles WHERE id = $1`
	return r.scanOne(ctx, "GetByID", query, id)
}

// GetByHandle returns a profile by Codeforces handle.
func (r *ProfileRepository) GetByHandle(ctx context.Context, handle profile.Handle) (*profile.TrackedProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM tracked_profiles WHERE handle = $1`
	return r.scanOne(ctx, "GetByHandle", query, handle.String())
}

// GetByEmail returns a profile by email address.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email profile.Email) (*profile.TrackedProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM tracked_profiles WHERE email = $1`
	return r.scanOne(ctx, "GetByEmail", query, email.String())
}

// Update rewrites a profile row, snapshot columns included.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.TrackedProfile) error {
	contests, submissions, err := marshalSnapshots(p)
	if err != nil {
		return shared.WrapError("profile", "Update", shared.ErrPersistence, "encode snapshot", err)
	}

	query := `
		UPDATE tracked_profiles SET
			name = $2, email = $3, phone = $4, handle = $5,
			active = $6, notifications_enabled = $7,
			current_rating = $8, max_rating = $9, last_updated = $10,
			reminder_count = $11, last_reminder_at = $12,
			updated_at = $13, contests = $14, submissions = $15
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		p.ID, p.Name, p.Email.String(), p.Phone, p.Handle.String(),
		p.Active, p.NotificationsEnabled,
		int(p.CurrentRating), int(p.MaxRating), p.LastUpdated,
		p.ReminderCount, p.LastReminderAt,
		p.UpdatedAt, contests, submissions,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return shared.WrapError("profile", "Update", shared.ErrPersistence, "update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}

	return nil
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM tracked_profiles WHERE id = $1`, id)
	if err != nil {
		return shared.WrapError("profile", "Delete", shared.ErrPersistence, "delete profile", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// GetAll returns all profiles with pagination.
func (r *ProfileRepository) GetAll(ctx context.Context, opts profile.ListOptions) ([]*profile.TrackedProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM tracked_profiles` + buildListSuffix(opts)
	return r.scanMany(ctx, "GetAll", query)
}

// GetActive returns profiles participating in sync and reminders.
func (r *ProfileRepository) GetActive(ctx context.Context) ([]*profile.TrackedProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM tracked_profiles WHERE active ORDER BY created_at`
	return r.scanMany(ctx, "GetActive", query)
}

// Count returns the total number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM tracked_profiles`).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("profile", "Count", shared.ErrPersistence, "count profiles", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCAN HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (r *ProfileRepository) scanOne(ctx context.Context, op, query string, args ...interface{}) (*profile.TrackedProfile, error) {
	p, err := scanProfile(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, shared.WrapError("profile", op, shared.ErrPersistence, "scan profile", err)
	}
	return p, nil
}

func (r *ProfileRepository) scanMany(ctx context.Context, op, query string, args ...interface{}) ([]*profile.TrackedProfile, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapError("profile", op, shared.ErrPersistence, "query profiles", err)
	}
	defer rows.Close()

	var profiles []*profile.TrackedProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, shared.WrapError("profile", op, shared.ErrPersistence, "scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("profile", op, shared.ErrPersistence, "iterate profiles", err)
	}

	return profiles, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for the shared scan path.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*profile.TrackedProfile, error) {
	var (
		p             profile.TrackedProfile
		email, handle string
		currentRating int
		maxRating     int
		contestsRaw   []byte
		subsRaw       []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &email, &p.Phone, &handle,
		&p.Active, &p.NotificationsEnabled,
		&currentRating, &maxRating, &p.LastUpdated,
		&p.ReminderCount, &p.LastReminderAt,
		&p.CreatedAt, &p.UpdatedAt, &contestsRaw, &subsRaw,
	)
	if err != nil {
		return nil, err
	}

	p.Email = profile.Email(email)
	p.Handle = profile.Handle(handle)
	p.CurrentRating = profile.Rating(currentRating)
	p.MaxRating = profile.Rating(maxRating)

	if err := unmarshalSnapshots(&p, contestsRaw, subsRaw); err != nil {
		return nil, err
	}

	return &p, nil
}

func buildListSuffix(opts profile.ListOptions) string {
	order := string(opts.OrderBy)
	if order == "" {
		order = string(profile.OrderByCreatedAt)
	}
	suffix := " ORDER BY " + order
	if opts.Desc {
		suffix += " DESC"
	}
	if opts.Limit > 0 {
		suffix += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		suffix += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}
	return suffix
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT JSON CODEC
// ══════════════════════════════════════════════════════════════════════════════

// Storage rows keep the upstream field names so the JSONB content stays
// queryable with the same vocabulary as the Codeforces API.

type contestRow struct {
	ContestID       int       `json:"contestId"`
	ContestName     string    `json:"contestName"`
	Handle          string    `json:"handle"`
	Rank            int       `json:"rank"`
	OldRating       int       `json:"oldRating"`
	NewRating       int       `json:"newRating"`
	RatingUpdatedAt time.Time `json:"ratingUpdatedAt"`
}

type problemRow struct {
	ContestID int      `json:"contestId,omitempty"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type submissionRow struct {
	ID                  int64      `json:"id"`
	ContestID           int        `json:"contestId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	RelativeTimeSeconds int64      `json:"relativeTimeSeconds"`
	Problem             problemRow `json:"problem"`
	Author              string     `json:"author"`
	Language            string     `json:"language"`
	Verdict             string     `json:"verdict,omitempty"`
	Testset             string     `json:"testset"`
	PassedTestCount     int        `json:"passedTestCount"`
	TimeConsumedMillis  int        `json:"timeConsumedMillis"`
	MemoryConsumedBytes int64      `json:"memoryConsumedBytes"`
}

func marshalSnapshots(p *profile.TrackedProfile) ([]byte, []byte, error) {
	contests := make([]contestRow, len(p.Contests))
	for i, c := range p.Contests {
		contests[i] = contestRow{
			ContestID:       c.ContestID,
			ContestName:     c.ContestName,
			Handle:          c.Handle,
			Rank:            c.Rank,
			OldRating:       int(c.OldRating),
			NewRating:       int(c.NewRating),
			RatingUpdatedAt: c.RatingUpdatedAt,
		}
	}

	submissions := make([]submissionRow, len(p.Submissions))
	for i, s := range p.Submissions {
		submissions[i] = submissionRow{
			ID:                  s.ID,
			ContestID:           s.ContestID,
			CreatedAt:           s.CreatedAt,
			RelativeTimeSeconds: s.RelativeTimeSeconds,
			Problem: problemRow{
				ContestID: s.Problem.ContestID,
				Index:     s.Problem.Index,
				Name:      s.Problem.Name,
				Type:      s.Problem.Type,
				Rating:    int(s.Problem.Rating),
				Tags:      s.Problem.Tags,
			},
			Author:              s.Author,
			Language:            s.Language,
			Verdict:             s.Verdict,
			Testset:             s.Testset,
			PassedTestCount:     s.PassedTestCount,
			TimeConsumedMillis:  s.TimeConsumedMillis,
			MemoryConsumedBytes: s.MemoryConsumedBytes,
		}
	}

	contestsJSON, err := json.Marshal(contests)
	if err != nil {
		return nil, nil, err
	}
	subsJSON, err := json.Marshal(submissions)
	if err != nil {
		return nil, nil, err
	}
	return contestsJSON, subsJSON, nil
}

func unmarshalSnapshots(p *profile.TrackedProfile, contestsRaw, subsRaw []byte) error {
	var contests []contestRow
	if len(contestsRaw) > 0 {
		if err := json.Unmarshal(contestsRaw, &contests); err != nil {
			return err
		}
	}
	var submissions []submissionRow
	if len(subsRaw) > 0 {
		if err := json.Unmarshal(subsRaw, &submissions); err != nil {
			return err
		}
	}

	if len(contests) > 0 {
		p.Contests = make([]profile.ContestResult, len(contests))
		for i, c := range contests {
			p.Contests[i] = profile.ContestResult{
				ContestID:       c.ContestID,
				ContestName:     c.ContestName,
				Handle:          c.Handle,
				Rank:            c.Rank,
				OldRating:       profile.Rating(c.OldRating),
				NewRating:       profile.Rating(c.NewRating),
				RatingUpdatedAt: c.RatingUpdatedAt,
			}
		}
	}

	if len(submissions) > 0 {
		p.Submissions = make([]profile.SubmissionRecord, len(submissions))
		for i, s := range submissions {
			p.Submissions[i] = profile.SubmissionRecord{
				ID:                  s.ID,
				ContestID:           s.ContestID,
				CreatedAt:           s.CreatedAt,
				RelativeTimeSeconds: s.RelativeTimeSeconds,
				Problem: profile.Problem{
					ContestID: s.Problem.ContestID,
					Index:     s.Problem.Index,
					Name:      s.Problem.Name,
					Type:      s.Problem.Type,
					Rating:    profile.Rating(s.Problem.Rating),
					Tags:      s.Problem.Tags,
				},
				Author:              s.Author,
				Language:            s.Language,
				Verdict:             s.Verdict,
				Testset:             s.Testset,
				PassedTestCount:     s.PassedTestCount,
				TimeConsumedMillis:  s.TimeConsumedMillis,
				MemoryConsumedBytes: s.MemoryConsumedBytes,
			}
		}
	}

	return nil
}
