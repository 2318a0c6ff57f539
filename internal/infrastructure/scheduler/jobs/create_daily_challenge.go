// Package jobs contains the scheduled jobs run by the worker.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/snapclash/snapclash-hub/internal/application/command"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/persistence/redis"
	"github.com/snapclash/snapclash-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE DAILY CHALLENGE JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyCreator creates the daily challenge for a date.
type DailyCreator interface {
	Handle(ctx context.Context, cmd command.CreateDailyChallengeCommand) (*command.CreateDailyChallengeResult, error)
}

// Locker serialises a job across worker instances.
type Locker interface {
	WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error
}

// CreateDailyChallengeJob makes sure today's daily challenge exists.
// It runs shortly after midnight UTC and once on worker startup.
type CreateDailyChallengeJob struct {
	creator DailyCreator
	locker  Locker
	retrier *retry.Retrier
	logger  *slog.Logger
	config  CreateDailyChallengeConfig
}

// CreateDailyChallengeConfig contains configuration for the job.
type CreateDailyChallengeConfig struct {
	// Timeout is the maximum duration of one run, retries included.
	Timeout time.Duration

	// LockResource is the name of the distributed lock.
	LockResource string
}

// DefaultCreateDailyChallengeConfig returns sensible defaults.
func DefaultCreateDailyChallengeConfig() CreateDailyChallengeConfig {
	return CreateDailyChallengeConfig{
		Timeout:      time.Minute,
		LockResource: "job:create_daily_challenge",
	}
}

// NewCreateDailyChallengeJob creates the job. locker and retrier may be nil:
// without a locker the job runs unguarded, without a retrier it uses
// retry.JobRetrier for retryable errors.
func NewCreateDailyChallengeJob(
	creator DailyCreator,
	locker Locker,
	retrier *retry.Retrier,
	logger *slog.Logger,
	config CreateDailyChallengeConfig,
) *CreateDailyChallengeJob {
	if logger == nil {
		logger = slog.Default()
	}
	if retrier == nil {
		retrier = retry.JobRetrier(shared.IsRetryable)
	}
	defaults := DefaultCreateDailyChallengeConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.LockResource == "" {
		config.LockResource = defaults.LockResource
	}

	return &CreateDailyChallengeJob{
		creator: creator,
		locker:  locker,
		retrier: retrier,
		logger:  logger.With("job", "create_daily_challenge"),
		config:  config,
	}
}

// Name returns the job name.
func (j *CreateDailyChallengeJob) Name() string {
	return "create_daily_challenge"
}

// Description returns a human-readable description.
func (j *CreateDailyChallengeJob) Description() string {
	return "Creates today's public daily challenge from a random active template"
}

// Run executes the job.
func (j *CreateDailyChallengeJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.locker == nil {
		return j.create(ctx)
	}

	err := j.locker.WithLock(ctx, j.config.LockResource, j.create)
	if errors.Is(err, redis.ErrLockHeld) {
		j.logger.Info("another worker is creating the daily challenge, skipping")
		return nil
	}
	return err
}

func (j *CreateDailyChallengeJob) create(ctx context.Context) error {
	var result *command.CreateDailyChallengeResult
	err := j.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = j.creator.Handle(ctx, command.CreateDailyChallengeCommand{})
		return err
	})
	if err != nil {
		return err
	}

	if result.Created {
		j.logger.Info("daily challenge created",
			"challenge_id", result.Challenge.ID,
			"daily_date", result.Challenge.DailyDate,
		)
	} else {
		j.logger.Debug("daily challenge already exists",
			"challenge_id", result.Challenge.ID,
			"daily_date", result.Challenge.DailyDate,
		)
	}
	return nil
}
