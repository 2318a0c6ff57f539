package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapclash/snapclash-hub/internal/application/query"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PublicLeaderboards builds the public popularity leaderboard.
type PublicLeaderboards interface {
	Handle(ctx context.Context, q query.GetPublicLeaderboardQuery) (*leaderboard.PublicView, error)
}

// TopChallengers builds the top challengers leaderboard.
type TopChallengers interface {
	Handle(ctx context.Context, q query.GetTopChallengersQuery) (*leaderboard.TopView, error)
}

// WarmLeaderboardsJob rebuilds the shared leaderboard views and stores
// them in the cache, so API requests rarely pay for a full rebuild.
// Friend leaderboards are per user and are left to expire on their own.
type WarmLeaderboardsJob struct {
	public PublicLeaderboards
	top    TopChallengers
	logger *slog.Logger
	config WarmLeaderboardsConfig
}

// WarmLeaderboardsConfig contains configuration for the job.
type WarmLeaderboardsConfig struct {
	// Ranges are the public leaderboard windows to warm (empty = all).
	Ranges []leaderboard.Range

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultWarmLeaderboardsConfig returns sensible defaults.
func DefaultWarmLeaderboardsConfig() WarmLeaderboardsConfig {
	return WarmLeaderboardsConfig{
		Ranges:  leaderboard.Ranges(),
		Timeout: 2 * time.Minute,
	}
}

// NewWarmLeaderboardsJob creates the job.
func NewWarmLeaderboardsJob(
	public PublicLeaderboards,
	top TopChallengers,
	logger *slog.Logger,
	config WarmLeaderboardsConfig,
) *WarmLeaderboardsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Ranges) == 0 {
		config.Ranges = leaderboard.Ranges()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultWarmLeaderboardsConfig().Timeout
	}

	return &WarmLeaderboardsJob{
		public: public,
		top:    top,
		logger: logger.With("job", "warm_leaderboards"),
		config: config,
	}
}

// Name returns the job name.
func (j *WarmLeaderboardsJob) Name() string {
	return "warm_leaderboards"
}

// Description returns a human-readable description.
func (j *WarmLeaderboardsJob) Description() string {
	return "Rebuilds public and top challenger leaderboards into the cache"
}

// Run executes the job. Every view is attempted; failures are joined.
func (j *WarmLeaderboardsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	errs := make([]error, len(j.config.Ranges)+1)

	var g errgroup.Group
	for i, r := range j.config.Ranges {
		g.Go(func() error {
			view, err := j.public.Handle(ctx, query.GetPublicLeaderboardQuery{Range: r.String(), SkipCache: true})
			if err != nil {
				errs[i] = fmt.Errorf("public %s: %w", r, err)
				return nil
			}
			j.logger.Debug("public leaderboard warmed", "range", r.String(), "rows", len(view.Rows))
			return nil
		})
	}
	g.Go(func() error {
		view, err := j.top.Handle(ctx, query.GetTopChallengersQuery{SkipCache: true})
		if err != nil {
			errs[len(errs)-1] = fmt.Errorf("top challengers: %w", err)
			return nil
		}
		j.logger.Debug("top challengers warmed", "rows", len(view.Rows))
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	j.logger.Info("leaderboards warmed", "ranges", len(j.config.Ranges))
	return nil
}
