// Package main - точка входа HTTP API SnapClash Hub.
//
// Сервер отдаёт лидерборды, итоги челленджей, статистику пользователей
// и ежедневный челлендж. Все расчёты выполняются по запросу поверх
// PostgreSQL, готовые представления кешируются в Redis.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapclash/snapclash-hub/config"
	"github.com/snapclash/snapclash-hub/internal/bootstrap"
	httpserver "github.com/snapclash/snapclash-hub/internal/interface/http"
)

const serviceName = "snapclash-api"

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется по SIGINT/SIGTERM
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

	log.Info("starting SnapClash API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ QUERY/COMMAND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	h, err := bootstrap.NewHandlers(cfg, infra, appLog)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	if cfg.HTTP.IdleTimeout > 0 {
		httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	}
	if cfg.HTTP.RequestTimeout > 0 {
		httpConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	}
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	httpConfig.RateLimitBurst = cfg.HTTP.RateLimitBurst
	httpConfig.AdminKeyHeader = cfg.Admin.Header
	httpConfig.AdminKeyHash = cfg.Admin.KeyHash
	httpConfig.Version = cfg.App.Version

	deps := httpserver.Dependencies{
		FriendLeaderboards: h.FriendLeaderboards,
		PublicLeaderboards: h.PublicLeaderboards,
		TopChallengers:     h.TopChallengers,
		ChallengeResults:   h.ChallengeResults,
		UserStats:          h.UserStats,
		DailyChallenges:    h.DailyChallenges,
		DailyCreator:       h.CreateDaily,
		Logger:             appLog,
		HealthChecker:      infra.HealthChecker(cfg.App.Version),
	}
	if cfg.Observability.MetricsEnabled {
		deps.Metrics = infra.Metrics
	}

	server := httpserver.NewServer(httpConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	log.Info("SnapClash API is running",
		"http_address", httpConfig.Address(),
		"admin_enabled", cfg.Admin.KeyHash != "",
		"cache_enabled", infra.Cache != nil,
	)

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", "error", err)
			return err
		}
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
