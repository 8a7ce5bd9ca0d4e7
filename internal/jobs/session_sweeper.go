package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleSweeper ends and forgets sessions that have gone quiet.
type IdleSweeper interface {
	SweepIdle(ctx context.Context, maxIdle time.Duration, now time.Time) []string
}

// SweeperConfig contains configuration for the sweeper job
type SweeperConfig struct {
	Schedule string        // Cron schedule (e.g., "@every 1m")
	IdleTTL  time.Duration // Sessions idle this long are ended
	Enabled  bool
}

// SessionSweeperJob periodically reclaims abandoned live sessions.
type SessionSweeperJob struct {
	sessions IdleSweeper
	config   SweeperConfig
	cron     *cron.Cron
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionSweeperJob(sessions IdleSweeper, config SweeperConfig, logger *zap.Logger) *SessionSweeperJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeperJob{
		sessions: sessions,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduled sweep
func (j *SessionSweeperJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("session sweeper is disabled, skipping scheduler")
		return nil
	}
	if j.config.IdleTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive, got %s", j.config.IdleTTL)
	}

	if _, err := j.cron.AddFunc(j.config.Schedule, func() { j.RunSweep() }); err != nil {
		return fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	j.cron.Start()
	j.logger.Info("session sweeper started",
		zap.String("schedule", j.config.Schedule),
		zap.Duration("idle_ttl", j.config.IdleTTL))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *SessionSweeperJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("session sweeper stopped")
	}
}

// RunSweep performs a single sweep and returns the removed session ids.
func (j *SessionSweeperJob) RunSweep() []string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed := j.sessions.SweepIdle(ctx, j.config.IdleTTL, j.now())
	if len(removed) > 0 {
		j.logger.Info("swept idle sessions", zap.Int("count", len(removed)), zap.Strings("session_ids", removed))
	}
	return removed
}
