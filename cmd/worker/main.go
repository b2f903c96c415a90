// Package main - точка входа фонового воркера Student Progress Hub.
//
// Worker отвечает за периодические задачи:
// - Синхронизация профилей студентов с Codeforces API
// - Детектирование неактивных студентов по истории посылок
// - Рассылка email-напоминаний о возвращении к решению задач
//
// Расписание и SMTP-настройки живут в базе данных и перечитываются на
// каждом цикле: их можно менять без перезапуска процесса.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/spms-hub/student-progress-hub/config"
	"github.com/spms-hub/student-progress-hub/internal/application/inactivity"
	syncapp "github.com/spms-hub/student-progress-hub/internal/application/sync"
	"github.com/spms-hub/student-progress-hub/internal/domain/profile"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/email"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/external/codeforces"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/persistence/redis"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/scheduler"
	"github.com/spms-hub/student-progress-hub/internal/infrastructure/scheduler/jobs"
	"github.com/spms-hub/student-progress-hub/pkg/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env удобен в разработке; в production переменные приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Student Progress Hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	key, err := cfg.SettingsKey()
	if err != nil {
		return fmt.Errorf("security.settings_key: %w", err)
	}
	sealer, err := postgres.NewSealer(key)
	if err != nil {
		return fmt.Errorf("security.settings_key: %w", err)
	}

	profileRepo := postgres.NewProfileRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn, sealer)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var profileCache profile.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			// Кэш ускоряет чтение, но не является обязательным.
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer cache.Close()
			profileCache = redis.NewProfileCache(cache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	meter := metrics.NewManager()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ВНЕШНИЕ КЛИЕНТЫ И СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	cfClientCfg := codeforces.DefaultClientConfig()
	cfClientCfg.BaseURL = cfg.Codeforces.BaseURL
	cfClientCfg.Timeout = cfg.Codeforces.RequestTimeout
	cfClientCfg.UserAgent = cfg.Codeforces.UserAgent
	cfClientCfg.PaceInterval = cfg.Codeforces.PaceInterval
	cfClientCfg.MaxSubmissions = cfg.Codeforces.MaxSubmissions
	cfClientCfg.Logger = log
	cfClient := codeforces.NewClient(cfClientCfg)

	orchestrator := syncapp.NewOrchestrator(
		profileRepo, settingsRepo, cfClient, profileCache,
		syncapp.Config{
			InterProfileDelay: cfg.Scheduler.InterProfileDelay,
			Logger:            log,
		},
	).WithRecorder(meter)

	mailer := email.NewMailer(log)
	reminders := inactivity.NewService(profileRepo, settingsRepo, mailer, log).
		WithRecorder(meter)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	settings, err := settingsRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}

	expr, loc := initialSchedule(settings, log)
	log.Info("sync schedule", "cron", expr.String(), "timezone", loc.String())

	sched := scheduler.NewCronScheduler(expr, loc, nil, scheduler.WithLogger(log))
	job := jobs.NewSyncCycleJob(jobs.SyncCycleConfig{
		Settings:     settingsRepo,
		Orchestrator: orchestrator,
		Reminders:    reminders,
		Rescheduler:  sched,
		Counter:      meter,
		Timeout:      cfg.Scheduler.JobTimeout,
		Logger:       log,
	})
	sched.SetJob(job)

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
		log.Info("scheduler started", "next_run", sched.NextRun())
	} else {
		log.Warn("scheduler disabled by configuration")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP-ЭНДПОИНТ МЕТРИК
	// ─────────────────────────────────────────────────────────────────────────
	var metricsSrv *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", meter.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics endpoint listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Student Progress Hub worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// initialSchedule строит стартовое расписание из настроек в базе.
// Невалидные значения не мешают запуску: берутся значения по умолчанию,
// а исправленные настройки подхватятся на первом же цикле.
func initialSchedule(settings *profile.SyncSettings, log *slog.Logger) (*scheduler.CronExpression, *time.Location) {
	expr, err := scheduler.ParseCronExpression(settings.CronSchedule)
	if err != nil {
		log.Warn("invalid cron schedule in settings, using default",
			"schedule", settings.CronSchedule, "error", err)
		expr = scheduler.MustParseCronExpression(profile.DefaultCronSchedule)
	}

	loc, err := settings.Location()
	if err != nil {
		log.Warn("invalid timezone in settings, using UTC",
			"timezone", settings.Timezone, "error", err)
		loc = time.UTC
	}

	return expr, loc
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
