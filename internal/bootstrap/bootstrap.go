// Package bootstrap wires configuration, storage and application handlers
// shared by the server and worker binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/snapclash/snapclash-hub/config"
	"github.com/snapclash/snapclash-hub/internal/application/command"
	"github.com/snapclash/snapclash-hub/internal/application/query"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/metrics"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/persistence/postgres"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/persistence/redis"
	"github.com/snapclash/snapclash-hub/internal/interface/http/handlers"
	"github.com/snapclash/snapclash-hub/pkg/circuitbreaker"
	"github.com/snapclash/snapclash-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// NewSlogLogger builds the slog logger used by infrastructure code:
// JSON in production or when requested, text otherwise.
func NewSlogLogger(cfg *config.Config, service string) *slog.Logger {
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
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.App.Debug,
	}

	var handler slog.Handler
	if cfg.IsProduction() || cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", string(cfg.App.Environment)),
	)
}

// NewAppLogger builds the structured logger used by application and HTTP code.
func NewAppLogger(cfg *config.Config, service string) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		AddCaller: cfg.App.Debug,
		Service:   service,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// Infra holds the storage clients and metrics of a process.
type Infra struct {
	DB      *postgres.Connection
	Cache   *redis.Cache // nil when Redis is disabled
	Metrics *metrics.Metrics

	log *slog.Logger
}

// Connect opens PostgreSQL (and Redis unless disabled), applying
// migrations when AutoMigrate is set.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Infra, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	infra := &Infra{
		Metrics: metrics.New(reg),
		log:     log,
	}

	db, err := postgres.Connect(ctx, PostgresConfig(cfg.Database), log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	infra.DB = db
	log.Info("connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(db).Migrate(ctx)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", slog.Int("count", applied))
	}

	if cfg.Redis.Disabled {
		log.Warn("redis disabled: leaderboards are not cached and jobs run without locks")
		return infra, nil
	}

	cache, err := redis.Connect(ctx, RedisConfig(cfg.Redis), log)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	infra.Cache = cache
	log.Info("connected to Redis")

	return infra, nil
}

// Close releases every open client.
func (i *Infra) Close() {
	if i.Cache != nil {
		if err := i.Cache.Close(); err != nil {
			i.log.Error("failed to close redis", slog.String("error", err.Error()))
		}
	}
	if i.DB != nil {
		i.DB.Close()
	}
}

// LeaderboardCache returns the view cache behind a circuit breaker,
// or nil without Redis.
func (i *Infra) LeaderboardCache(cfg config.LeaderboardConfig) leaderboard.ViewCache {
	if i.Cache == nil {
		return nil
	}
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		i.log.Warn("circuit breaker state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}, redis.IsCacheFailure)

	return redis.NewLeaderboardCache(redis.NewGuardedStore(i.Cache, breaker), redis.LeaderboardTTLs{
		Friends: cfg.FriendsTTL,
		Public:  cfg.PublicTTL,
		Top:     cfg.TopTTL,
	})
}

// HealthChecker reports database and cache reachability.
func (i *Infra) HealthChecker(version string) *handlers.CompositeHealthChecker {
	hc := handlers.NewCompositeHealthChecker(version)
	hc.AddCheck("database", handlers.NewDatabaseCheck(i.DB))
	if i.Cache != nil {
		hc.AddCheck("cache", handlers.NewCacheCheck(i.Cache))
	}
	return hc
}

// PostgresConfig maps the database section onto the pool configuration.
func PostgresConfig(c config.DatabaseConfig) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.URL = c.URL
	if c.Host != "" {
		pc.Host = c.Host
	}
	if c.Port != 0 {
		pc.Port = c.Port
	}
	if c.Name != "" {
		pc.Database = c.Name
	}
	if c.User != "" {
		pc.User = c.User
	}
	pc.Password = c.Password
	if c.SSLMode != "" {
		pc.SSLMode = c.SSLMode
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pc.MinConns = c.MinConns
	if c.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = c.ConnMaxIdleTime
	}
	if c.ConnectTimeout > 0 {
		pc.ConnectTimeout = c.ConnectTimeout
	}
	return pc
}

// RedisConfig maps the redis section onto the client configuration.
func RedisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	if c.Host != "" {
		rc.Host = c.Host
	}
	if c.Port != 0 {
		rc.Port = c.Port
	}
	rc.Password = c.Password
	rc.DB = c.DB
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	rc.MinIdleConns = c.MinIdleConns
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// Handlers groups the query and command handlers.
type Handlers struct {
	FriendLeaderboards *query.GetFriendLeaderboardHandler
	PublicLeaderboards *query.GetPublicLeaderboardHandler
	TopChallengers     *query.GetTopChallengersHandler
	ChallengeResults   *query.GetChallengeResultsHandler
	UserStats          *query.GetUserStatsHandler
	DailyChallenges    *query.GetDailyChallengeHandler
	CreateDaily        *command.CreateDailyChallengeHandler
}

// NewHandlers builds the application layer over the PostgreSQL repositories.
func NewHandlers(cfg *config.Config, infra *Infra, log *logger.Logger) (*Handlers, error) {
	if infra == nil || infra.DB == nil {
		return nil, errors.New("bootstrap: database connection is required")
	}

	challenges := postgres.NewChallengeRepository(infra.DB)
	friends := postgres.NewSocialRepository(infra.DB)
	profiles := postgres.NewProfileRepository(infra.DB)
	cache := infra.LeaderboardCache(cfg.Leaderboard)
	recorder := infra.Metrics

	limits := leaderboard.Limits{
		Top:                 cfg.Leaderboard.TopLimit,
		MinRatedSubmissions: cfg.Leaderboard.MinRatedSubmissions,
	}

	return &Handlers{
		FriendLeaderboards: query.NewGetFriendLeaderboardHandler(
			challenges, friends, profiles, cache, nil, recorder),
		PublicLeaderboards: query.NewGetPublicLeaderboardHandler(challenges, cache, nil, recorder, limits.Top),
		TopChallengers:     query.NewGetTopChallengersHandler(challenges, profiles, cache, nil, recorder, limits),
		ChallengeResults:   query.NewGetChallengeResultsHandler(challenges, profiles, recorder),
		UserStats:          query.NewGetUserStatsHandler(challenges, nil, recorder),
		DailyChallenges:    query.NewGetDailyChallengeHandler(challenges, nil, recorder),
		CreateDaily:        command.NewCreateDailyChallengeHandler(challenges, challenges, nil, log),
	}, nil
}
