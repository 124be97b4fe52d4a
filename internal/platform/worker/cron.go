package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronJob is a task triggered by a cron expression.
type CronJob struct {
	Name string
	// Spec is a standard five-field cron expression or a descriptor such as "@hourly".
	Spec string
	Run  func(ctx context.Context) error
}

// CronConfig configures a cron scheduler.
type CronConfig struct {
	// Name identifies the scheduler for logging.
	Name string

	// Jobs are the scheduled tasks. Jobs with an empty Spec are skipped.
	Jobs []CronJob

	// OnResult is called after every job run with its error, if any.
	OnResult func(job string, err error)

	// Logger for the scheduler.
	Logger *zerolog.Logger
}

// Cron runs jobs on their schedules until ctx is canceled. A job that is still
// running when its next tick arrives is skipped for that tick.
func Cron(ctx context.Context, cfg CronConfig) error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	c := cron.New()
	scheduled := 0

	for _, job := range cfg.Jobs {
		if job.Spec == "" || job.Run == nil {
			continue
		}

		if _, err := c.AddFunc(job.Spec, cronRunner(ctx, job, cfg.OnResult, logger)); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}

		scheduled++
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Int("jobs", scheduled).Msg("starting cron scheduler")

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	logger.Info().Str(logFieldWorker, cfg.Name).Msg("cron scheduler stopped")

	return fmt.Errorf("cron %s: %w", cfg.Name, ctx.Err())
}

func cronRunner(ctx context.Context, job CronJob, onResult func(string, error), logger *zerolog.Logger) func() {
	var running sync.Mutex

	return func() {
		if !running.TryLock() {
			logger.Warn().Str(logFieldTask, job.Name).Msg("previous run still in progress, skipping")

			return
		}
		defer running.Unlock()

		defer RecoverPanic(logger, job.Name)

		start := time.Now()
		err := job.Run(ctx)

		if err != nil {
			logger.Error().Err(err).Str(logFieldTask, job.Name).Dur("duration", time.Since(start)).Msg("scheduled job failed")
		} else {
			logger.Info().Str(logFieldTask, job.Name).Dur("duration", time.Since(start)).Msg("scheduled job finished")
		}

		if onResult != nil {
			onResult(job.Name, err)
		}
	}
}
