package postgres

import (
	"context"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/domain/shared"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/scheduler"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC SETTINGS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements profile.SettingsRepository on PostgreSQL.
// The table holds a single row (id = 1); Get seeds it with defaults when
// the row does not exist yet. The SMTP password is sealed before it
// touches the database and opened on the way out.
type SettingsRepository struct {
	conn   *Connection
	sealer *Sealer
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(conn *Connection, sealer *Sealer) *SettingsRepository {
	return &SettingsRepository{conn: conn, sealer: sealer}
}

const settingsColumns = `
	cron_schedule, timezone, smtp_host, smtp_port, smtp_user,
	smtp_password_sealed, email_from, email_from_name,
	inactivity_threshold_days, last_sync_time, updated_at
`

// Get returns the current sync settings, seeding defaults when absent.
func (r *SettingsRepository) Get(ctx context.Context) (*profile.SyncSettings, error) {
	// Плоский INSERT с ON CONFLICT делает первый Get идемпотентным:
	// кто бы ни пришёл первым, строка появится ровно одна.
	seed := `INSERT INTO sync_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	if _, err := r.conn.Exec(ctx, seed); err != nil {
		return nil, shared.WrapError("settings", "Get", shared.ErrPersistence, "seed settings row", err)
	}

	query := `SELECT ` + settingsColumns + ` FROM sync_settings WHERE id = 1`

	var (
		s      profile.SyncSettings
		sealed string
	)
	err := r.conn.QueryRow(ctx, query).Scan(
		&s.CronSchedule, &s.Timezone, &s.SMTPHost, &s.SMTPPort, &s.SMTPUser,
		&sealed, &s.EmailFrom, &s.EmailFromName,
		&s.InactivityThresholdDays, &s.LastSyncTime, &s.UpdatedAt,
	)
	if err != nil {
		return nil, shared.WrapError("settings", "Get", shared.ErrPersistence, "scan settings", err)
	}

	password, err := r.sealer.Open(sealed)
	if err != nil {
		return nil, shared.WrapError("settings", "Get", shared.ErrPersistence, "open smtp password", err)
	}
	s.SMTPPassword = password

	return &s, nil
}

// Update persists changed settings. Beyond the domain-level checks the
// cron expression must actually parse, so a schedule the scheduler would
// reject never reaches the database.
func (r *SettingsRepository) Update(ctx context.Context, s *profile.SyncSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := scheduler.ParseCronExpression(s.CronSchedule); err != nil {
		return shared.WrapError("settings", "Update", shared.ErrInvalidInput, "parse cron schedule", err)
	}

	sealed, err := r.sealer.Seal(s.SMTPPassword)
	if err != nil {
		return shared.WrapError("settings", "Update", shared.ErrPersistence, "seal smtp password", err)
	}

	query := `
		UPDATE sync_settings SET
			cron_schedule = $1, timezone = $2, smtp_host = $3, smtp_port = $4,
			smtp_user = $5, smtp_password_sealed = $6, email_from = $7,
			email_from_name = $8, inactivity_threshold_days = $9,
			updated_at = NOW()
		WHERE id = 1
	`

	tag, err := r.conn.Exec(ctx, query,
		s.CronSchedule, s.Timezone, s.SMTPHost, s.SMTPPort,
		s.SMTPUser, sealed, s.EmailFrom,
		s.EmailFromName, s.InactivityThresholdDays,
	)
	if err != nil {
		return shared.WrapError("settings", "Update", shared.ErrPersistence, "update settings", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSettingsNotFound
	}

	return nil
}

// SetLastSyncTime records when the last full sync finished. Other fields
// stay untouched so a concurrent settings edit is never overwritten.
func (r *SettingsRepository) SetLastSyncTime(ctx context.Context, t time.Time) error {
	query := `UPDATE sync_settings SET last_sync_time = $1, updated_at = NOW() WHERE id = 1`
	tag, err := r.conn.Exec(ctx, query, t)
	if err != nil {
		return shared.WrapError("settings", "SetLastSyncTime", shared.ErrPersistence, "update last sync time", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSettingsNotFound
	}
	return nil
}
