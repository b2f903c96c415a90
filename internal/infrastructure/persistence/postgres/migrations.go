// Package postgres implements the PostgreSQL persistence layer for the
// student progress hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator applies embedded migrations in order, tracking them in
// schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migration versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}

			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_tracked_profiles",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_sync_settings",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: TRACKED PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create tracked_profiles table
-- Version: 001

CREATE TABLE IF NOT EXISTS tracked_profiles (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    phone VARCHAR(30) NOT NULL DEFAULT '',
    handle VARCHAR(50) NOT NULL UNIQUE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    current_rating INTEGER NOT NULL DEFAULT 0,
    max_rating INTEGER NOT NULL DEFAULT 0,
    last_updated TIMESTAMP WITH TIME ZONE,
    reminder_count INTEGER NOT NULL DEFAULT 0,
    last_reminder_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Full snapshot payloads, replaced wholesale on every sync
    contests JSONB NOT NULL DEFAULT '[]'::jsonb,
    submissions JSONB NOT NULL DEFAULT '[]'::jsonb,

    -- Codeforces ratings can drop below zero, so they carry no CHECK
    CONSTRAINT valid_reminder_count CHECK (reminder_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_tracked_profiles_handle ON tracked_profiles(handle);
CREATE INDEX IF NOT EXISTS idx_tracked_profiles_email ON tracked_profiles(email);
CREATE INDEX IF NOT EXISTS idx_tracked_profiles_rating ON tracked_profiles(current_rating DESC);
CREATE INDEX IF NOT EXISTS idx_tracked_profiles_active ON tracked_profiles(active) WHERE active;
`

const migration001Down = `
DROP TABLE IF EXISTS tracked_profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: SYNC SETTINGS SINGLETON
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create sync_settings singleton table
-- Version: 002

CREATE TABLE IF NOT EXISTS sync_settings (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    cron_schedule VARCHAR(100) NOT NULL DEFAULT '0 2 * * *',
    timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
    smtp_host VARCHAR(255) NOT NULL DEFAULT 'smtp.gmail.com',
    smtp_port INTEGER NOT NULL DEFAULT 587,
    smtp_user VARCHAR(255) NOT NULL DEFAULT '',
    smtp_password_sealed TEXT NOT NULL DEFAULT '',
    email_from VARCHAR(255) NOT NULL DEFAULT '',
    email_from_name VARCHAR(100) NOT NULL DEFAULT 'SPMS',
    inactivity_threshold_days INTEGER NOT NULL DEFAULT 7,
    last_sync_time TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Exactly one settings row
    CONSTRAINT sync_settings_singleton CHECK (id = 1),
    CONSTRAINT valid_smtp_port CHECK (smtp_port BETWEEN 1 AND 65535),
    CONSTRAINT valid_threshold CHECK (inactivity_threshold_days >= 1)
);
`

const migration002Down = `
DROP TABLE IF EXISTS sync_settings;
`
