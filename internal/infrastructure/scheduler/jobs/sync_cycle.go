// Package jobs содержит фоновые задачи, запускаемые планировщиком.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spms-hub/student-progress-hub/internal/application/inactivity"
	syncapp "github.com/spms-hub/student-progress-hub/internal/application/sync"
	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/scheduler"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC CYCLE JOB
// ══════════════════════════════════════════════════════════════════════════════

// Rescheduler пересматривает расписание планировщика на лету.
type Rescheduler interface {
	Reschedule(expr *scheduler.CronExpression, location *time.Location)
}

// RosterCounter сообщает текущий размер ростера в метрики.
type RosterCounter interface {
	SetTrackedProfiles(count int)
}

// SyncCycleJob - один полный цикл работы: перечитать настройки, при
// необходимости перестроить расписание, синхронизировать все профили и
// разослать напоминания о неактивности. Настройки читаются из базы на
// каждом запуске и нигде не кэшируются.
type SyncCycleJob struct {
	settings     profile.SettingsRepository
	orchestrator *syncapp.Orchestrator
	reminders    *inactivity.Service
	rescheduler  Rescheduler
	counter      RosterCounter
	timeout      time.Duration
	logger       *slog.Logger
}

// SyncCycleConfig задаёт зависимости задачи.
type SyncCycleConfig struct {
	Settings     profile.SettingsRepository
	Orchestrator *syncapp.Orchestrator
	Reminders    *inactivity.Service

	// Rescheduler - опционально; nil отключает перестройку расписания.
	Rescheduler Rescheduler

	// Counter - опционально; nil отключает метрику размера ростера.
	Counter RosterCounter

	// Timeout ограничивает длительность одного цикла. 0 - без лимита.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewSyncCycleJob создаёт задачу полного цикла синхронизации.
func NewSyncCycleJob(cfg SyncCycleConfig) *SyncCycleJob {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncCycleJob{
		settings:     cfg.Settings,
		orchestrator: cfg.Orchestrator,
		reminders:    cfg.Reminders,
		rescheduler:  cfg.Rescheduler,
		counter:      cfg.Counter,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Name возвращает имя задачи для логов планировщика.
func (j *SyncCycleJob) Name() string {
	return "sync-cycle"
}

// Run выполняет один цикл. Ошибка синхронизации не останавливает
// рассылку напоминаний: обе фазы отрабатывают независимо.
func (j *SyncCycleJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	// ───── Фаза 1: актуализировать расписание ─────
	settings, err := j.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("sync cycle: load settings: %w", err)
	}
	j.applySchedule(settings)

	// ───── Фаза 2: синхронизация профилей ─────
	syncStats, syncErr := j.orchestrator.SyncAll(ctx)
	if syncErr != nil {
		j.logger.Error("sync phase failed", "error", syncErr)
	} else {
		j.logger.Info("sync phase done",
			"total", syncStats.Total,
			"synced", syncStats.Synced,
			"failed", syncStats.Failed,
			"duration", syncStats.Duration)
		if j.counter != nil {
			j.counter.SetTrackedProfiles(syncStats.Total)
		}
	}

	// ───── Фаза 3: напоминания о неактивности ─────
	reminderStats, reminderErr := j.reminders.Run(ctx)
	if reminderErr != nil {
		j.logger.Error("reminder phase failed", "error", reminderErr)
	} else {
		j.logger.Info("reminder phase done",
			"evaluated", reminderStats.Evaluated,
			"reminded", reminderStats.Reminded,
			"cooldown", reminderStats.Cooldown,
			"failed", reminderStats.Failed)
	}

	if syncErr != nil {
		return fmt.Errorf("sync cycle: %w", syncErr)
	}
	return reminderErr
}

// applySchedule перестраивает расписание, если настройки изменились.
// Невалидное выражение из базы не роняет цикл: остаётся старое расписание.
func (j *SyncCycleJob) applySchedule(settings *profile.SyncSettings) {
	if j.rescheduler == nil {
		return
	}

	expr, err := scheduler.ParseCronExpression(settings.CronSchedule)
	if err != nil {
		j.logger.Warn("invalid cron schedule in settings, keeping current",
			"schedule", settings.CronSchedule, "error", err)
		return
	}

	loc, err := settings.Location()
	if err != nil {
		j.logger.Warn("invalid timezone in settings, keeping current",
			"timezone", settings.Timezone, "error", err)
		return
	}

	j.rescheduler.Reschedule(expr, loc)
}
