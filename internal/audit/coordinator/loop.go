package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

const (
	logFieldAudit   = "audit"
	logFieldBatch   = "batch"
	logFieldItems   = "items"
	logFieldWorkers = "workers"
)

// MasterLoop drives master batches through fan-out, join and a single-writer persist.
type MasterLoop[Out any] struct {
	// Name labels metrics and logs.
	Name    string
	Workers int

	// Next returns the next master batch. An empty batch ends the loop.
	Next func(ctx context.Context) ([]string, error)
	// Work processes one sub-batch of ids.
	Work WorkFunc[string, Out]
	// Persist receives every worker result of a batch after the join.
	Persist func(ctx context.Context, batch []string, results []Out) error
	// Advance moves the cursor past batch once it has been persisted.
	Advance func(ctx context.Context, batch []string) error

	// MaxBatches stops the loop after that many batches. Zero means unbounded.
	MaxBatches int

	Logger *zerolog.Logger
}

// LoopStats summarizes a MasterLoop run.
type LoopStats struct {
	Batches int
	Items   int
}

// Run processes master batches until the source is exhausted, ctx is done or a batch fails.
func (l *MasterLoop[Out]) Run(ctx context.Context) (LoopStats, error) {
	logger := l.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var stats LoopStats

	for l.MaxBatches == 0 || stats.Batches < l.MaxBatches {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batch, err := l.Next(ctx)
		if err != nil {
			return stats, fmt.Errorf("next %s master batch: %w", l.Name, err)
		}

		if len(batch) == 0 {
			return stats, nil
		}

		if err := l.runBatch(ctx, batch, logger); err != nil {
			return stats, err
		}

		stats.Batches++
		stats.Items += len(batch)
	}

	return stats, nil
}

func (l *MasterLoop[Out]) runBatch(ctx context.Context, batch []string, logger *zerolog.Logger) error {
	start := time.Now()

	results, err := Run(ctx, batch, l.Workers, l.Work)
	if err != nil {
		observability.WorkerFailures.WithLabelValues(l.Name).Inc()
		observability.MasterBatches.WithLabelValues(l.Name, observability.StatusError).Inc()

		return fmt.Errorf("%s master batch: %w", l.Name, err)
	}

	if l.Persist != nil {
		if err := l.Persist(ctx, batch, results); err != nil {
			observability.MasterBatches.WithLabelValues(l.Name, observability.StatusError).Inc()

			return fmt.Errorf("persist %s master batch: %w", l.Name, err)
		}
	}

	if l.Advance != nil {
		if err := l.Advance(ctx, batch); err != nil {
			return fmt.Errorf("advance %s cursor: %w", l.Name, err)
		}
	}

	observability.MasterBatches.WithLabelValues(l.Name, observability.StatusSuccess).Inc()
	observability.MasterBatchDurationSeconds.WithLabelValues(l.Name).Observe(time.Since(start).Seconds())

	logger.Info().
		Str(logFieldAudit, l.Name).
		Str(logFieldBatch, batch[0]).
		Int(logFieldItems, len(batch)).
		Int(logFieldWorkers, l.Workers).
		Msg("master batch persisted")

	return nil
}
