package inactivity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
)

// ReminderCooldown is the minimum gap between reminders to one profile.
const ReminderCooldown = 24 * time.Hour

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Notifier delivers a reminder email. The sent flag is false when delivery
// was skipped without an error, e.g. when SMTP credentials are missing.
type Notifier interface {
	SendInactivityReminder(ctx context.Context, p *profile.TrackedProfile, settings *profile.SyncSettings) (sent bool, err error)
}

// Recorder receives reminder metrics.
type Recorder interface {
	IncReminderSent()
	IncReminderFailed()
}

type nopRecorder struct{}

func (nopRecorder) IncReminderSent()   {}
func (nopRecorder) IncReminderFailed() {}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Stats summarizes one reminder sweep.
type Stats struct {
	Evaluated int // candidates matching the inactivity policy
	Reminded  int // reminders confirmed sent
	Cooldown  int // skipped, reminded less than ReminderCooldown ago
	Skipped   int // delivery skipped without error (no credentials)
	Failed    int // delivery attempted and failed
}

// Service runs the reminder sweep: evaluate the policy against current
// settings, then email each candidate. Reminder bookkeeping on the profile
// changes only after a confirmed send.
type Service struct {
	evaluator *Evaluator
	profiles  profile.Repository
	settings  profile.SettingsRepository
	notifier  Notifier
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the reminder service.
func NewService(
	profiles profile.Repository,
	settings profile.SettingsRepository,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		evaluator: NewEvaluator(profiles),
		profiles:  profiles,
		settings:  settings,
		notifier:  notifier,
		metrics:   nopRecorder{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.metrics = r
	return s
}

// WithClock replaces the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run performs one reminder sweep. Settings are re-read on every run so a
// threshold change takes effect at the next tick without a restart.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminder sweep: load settings: %w", err)
	}

	now := s.now()
	candidates, err := s.evaluator.FindInactive(ctx, now, settings.InactivityThresholdDays)
	if err != nil {
		return nil, fmt.Errorf("reminder sweep: %w", err)
	}

	stats := &Stats{Evaluated: len(candidates)}
	s.logger.Info("reminder sweep starting",
		"candidates", len(candidates),
		"threshold_days", settings.InactivityThresholdDays,
	)

	for _, p := range candidates {
		if p.InReminderCooldown(now, ReminderCooldown) {
			stats.Cooldown++
			continue
		}

		sent, err := s.notifier.SendInactivityReminder(ctx, p, settings)
		if err != nil {
			stats.Failed++
			s.metrics.IncReminderFailed()
			s.logger.Error("reminder delivery failed", "handle", p.Handle, "error", err)
			continue
		}
		if !sent {
			stats.Skipped++
			continue
		}

		p.RecordReminder(now)
		if err := s.profiles.Update(ctx, p); err != nil {
			// The email went out; losing the bookkeeping means an extra
			// reminder after the cooldown, nothing worse.
			s.logger.Error("record reminder", "handle", p.Handle, "error", err)
		}

		stats.Reminded++
		s.metrics.IncReminderSent()
	}

	s.logger.Info("reminder sweep finished",
		"evaluated", stats.Evaluated,
		"reminded", stats.Reminded,
		"cooldown", stats.Cooldown,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)

	return stats, nil
}
