// Package worker provides the background loops shared by the audit modes: a
// step loop that sleeps only when idle or failing, and a cron scheduler.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFieldWorker   = "worker"
	logFieldTask     = "task"
	logFieldFailures = "failures"
	logFieldBackoff  = "backoff"
)

// Step does one unit of work. busy reports that work was found, in which case
// the loop runs the next step without waiting.
type Step func(ctx context.Context) (busy bool, err error)

// PeriodicTask runs alongside the steps at a fixed interval. The first run
// happens before the first step.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Config configures a step loop.
type Config struct {
	// Name identifies the loop for logging.
	Name string

	Step Step

	// Idle is the wait after a step that found no work.
	Idle time.Duration

	// Backoff is the wait after the first failed step, Idle when unset. It
	// doubles with every consecutive failure up to MaxBackoff and resets after
	// a success.
	Backoff    time.Duration
	MaxBackoff time.Duration

	// Fatal reports whether a step error ends the loop. When nil every error
	// is logged and the loop continues.
	Fatal func(err error) bool

	Periodic []PeriodicTask

	Logger *zerolog.Logger
}

// Loop runs cfg.Step until ctx is canceled or a fatal error occurs.
// A panicking step counts as a failed step.
func Loop(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Msg("starting worker loop")
	defer logger.Info().Str(logFieldWorker, cfg.Name).Msg("worker loop stopped")

	base := cfg.Backoff
	if base <= 0 {
		base = cfg.Idle
	}

	lastRun := make([]time.Time, len(cfg.Periodic))
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("worker loop %s: %w", cfg.Name, err)
		}

		runPeriodic(ctx, cfg.Periodic, lastRun, logger)

		busy, err := runStep(ctx, cfg.Step, logger, cfg.Name)

		var wait time.Duration

		switch {
		case err != nil:
			if cfg.Fatal != nil && cfg.Fatal(err) {
				return err
			}

			failures++
			wait = backoff(base, cfg.MaxBackoff, failures)

			logger.Error().Err(err).
				Str(logFieldWorker, cfg.Name).
				Int(logFieldFailures, failures).
				Dur(logFieldBackoff, wait).
				Msg("worker step failed")
		case busy:
			failures = 0
		default:
			failures = 0
			wait = cfg.Idle
		}

		if err := Wait(ctx, wait); err != nil {
			return fmt.Errorf("worker loop %s: %w", cfg.Name, err)
		}
	}
}

func runPeriodic(ctx context.Context, tasks []PeriodicTask, lastRun []time.Time, logger *zerolog.Logger) {
	now := time.Now()

	for i, task := range tasks {
		if task.Interval <= 0 || task.Run == nil {
			continue
		}

		if !lastRun[i].IsZero() && now.Sub(lastRun[i]) < task.Interval {
			continue
		}

		logger.Debug().Str(logFieldTask, task.Name).Msg("running periodic task")

		func() {
			defer RecoverPanic(logger, task.Name)
			task.Run(ctx)
		}()

		lastRun[i] = now
	}
}

func runStep(ctx context.Context, step Step, logger *zerolog.Logger, name string) (busy bool, err error) {
	if step == nil {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str(logFieldWorker, name).Msg("recovered from panic")

			busy, err = false, fmt.Errorf("worker %s step panicked: %v", name, r)
		}
	}()

	return step(ctx)
}

// backoff returns base doubled once per failure after the first, capped at
// ceiling. A zero ceiling leaves the growth uncapped.
func backoff(base, ceiling time.Duration, failures int) time.Duration {
	if base <= 0 || failures <= 0 {
		return base
	}

	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
	}

	return d
}

// Wait blocks until d elapses or ctx is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}
