// Package main - точка входа для фоновых процессов (Worker) SnapClash Hub.
//
// Worker отвечает за периодические задачи:
// - Создание ежедневного челленджа из случайного активного шаблона
// - Прогрев кеша публичных лидербордов и топа челленджеров
//
// Несколько экземпляров Worker могут работать одновременно: задачи
// защищены распределённой блокировкой в Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapclash/snapclash-hub/config"
	"github.com/snapclash/snapclash-hub/internal/bootstrap"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/persistence/redis"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/scheduler"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/scheduler/jobs"
)

const serviceName = "snapclash-worker"

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := bootstrap.NewSlogLogger(cfg, serviceName)
	appLog := bootstrap.NewAppLogger(cfg, serviceName)
	slog.SetDefault(log)

	log.Info("starting SnapClash Worker",
		"env", cfg.App.Environment,
		"daily_cron", cfg.Scheduler.DailyChallengeCron,
		"warm_interval", cfg.Scheduler.WarmLeaderboardsInterval.String(),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, nothing to do")
		return nil
	}

	// Расписание проверяем до подключения к хранилищам
	dailySchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.DailyChallengeCron)
	if err != nil {
		return fmt.Errorf("invalid daily challenge cron: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К POSTGRESQL И REDIS
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := bootstrap.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing storage connections...")
		infra.Close()
	}()

	h, err := bootstrap.NewHandlers(cfg, infra, appLog)
	if err != nil {
		return err
	}

	// Без Redis задачи выполняются без блокировки.
	// Блокировка живёт не меньше таймаута задачи.
	var locker jobs.Locker
	if infra.Cache != nil {
		locker = redis.NewLocker(infra.Cache, max(cfg.Scheduler.JobTimeout, redis.TTLDistributedLock))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕГИСТРАЦИЯ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: time.UTC,
		Observer: infra.Metrics,
	})

	dailyConfig := jobs.DefaultCreateDailyChallengeConfig()
	dailyConfig.Timeout = cfg.Scheduler.JobTimeout
	dailyJob := jobs.NewCreateDailyChallengeJob(h.CreateDaily, locker, nil, log, dailyConfig)

	warmConfig := jobs.DefaultWarmLeaderboardsConfig()
	warmConfig.Timeout = cfg.Scheduler.JobTimeout
	warmJob := jobs.NewWarmLeaderboardsJob(h.PublicLeaderboards, h.TopChallengers, log, warmConfig)

	if err := sched.Register(dailyJob, dailySchedule); err != nil {
		return fmt.Errorf("register %s: %w", dailyJob.Name(), err)
	}
	if err := sched.Register(warmJob, scheduler.NewIntervalSchedule(cfg.Scheduler.WarmLeaderboardsInterval)); err != nil {
		return fmt.Errorf("register %s: %w", warmJob.Name(), err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.RunOnStart {
		// Сначала челлендж дня, затем прогрев, чтобы он видел свежие данные
		for _, name := range []string{dailyJob.Name(), warmJob.Name()} {
			if _, err := sched.RunNow(ctx, name); err != nil {
				log.Warn("initial job run failed", "job", name, "error", err)
			}
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	var metricsServer *http.Server
	errCh := make(chan error, 1)
	if cfg.Observability.MetricsEnabled && cfg.Observability.MetricsPort > 0 {
		metricsServer = newMetricsServer(infra, cfg.Observability.MetricsPort)
		go func() {
			log.Info("serving worker metrics", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	log.Info("SnapClash Worker is running", "jobs", len(sched.ListJobs()))

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		log.Error("service error", "error", err)
		_ = sched.Stop()
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// 1. Останавливаем планировщик и ждём текущие задачи
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", "error", err)
		shutdownErr = err
	}

	// 2. Останавливаем сервер метрик
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop metrics server", "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
		return shutdownErr
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// newMetricsServer отдаёт /metrics и /health воркера.
func newMetricsServer(infra *bootstrap.Infra, port int) *http.Server {
	health := infra.HealthChecker("")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(infra.Metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := health.Check(r.Context())
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(status.Message))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
