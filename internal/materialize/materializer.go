// Package materialize consumes custom target list tasks from the task queue.
// A materialize task renders the saved query of a list into a CSV export and
// writes the list statistics; a video exclusion task collects the unsafe videos
// of a channel list into a second export.
package materialize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
	"github.com/lueurxax/brand-safety-audit/internal/platform/worker"
)

// KeyVideoExclusionFilename holds the video exclusion object key in the list
// statistics, or false when generation failed.
const KeyVideoExclusionFilename = "video_exclusion_filename"

const (
	workerName = "materializer"

	defaultMaxItems            = 20000
	defaultIDChunk             = 10000
	defaultChannelChunk        = 40
	defaultMaxRetries          = 3
	defaultVideoExclusionLimit = 125000
	defaultDequeueTimeout      = 5 * time.Second
	defaultPollInterval        = 5 * time.Second
	defaultQueueReportInterval = time.Minute
	maxDequeueBackoff          = time.Minute

	csvContentType = "text/csv"

	logFieldSegment = "segment_id"
	logFieldTask    = "task_id"
	logFieldKind    = "kind"
	logFieldItems   = "items"
	logFieldRetry   = "retry_count"
	logFieldQueue   = "queue_length"
)

// Pager pages through the backing item store.
type Pager interface {
	Each(ctx context.Context, itemType domain.ItemType, filters []domain.Filter, fn func(items []domain.Item) error) error
	ItemsForChannels(ctx context.Context, channelIDs []string, fn func(videos []domain.Item) error) error
}

// Scorer scores items that carry no stored brand-safety score.
type Scorer interface {
	Score(item domain.Item) domain.ScoreResult
}

// queueLength is implemented by queues that can report their backlog.
type queueLength interface {
	Len(ctx context.Context) (int64, error)
}

// Deps bundles the collaborators of a Materializer.
type Deps struct {
	Segments ports.CustomSegmentRepository
	Audits   ports.AuditRepository
	Objects  ports.ObjectStore
	Queue    ports.TaskQueue
	Items    Pager

	// Scorer is optional. Without it unscored items export with an empty score.
	Scorer Scorer
}

// Options configures a Materializer.
type Options struct {
	// MaxItems caps the rows of one export.
	MaxItems int

	// IDChunk bounds the ids of an inclusion source list per store query.
	IDChunk int

	// MaxRetries is the number of times a failed task is requeued before the
	// failure is recorded on the list.
	MaxRetries int

	// VideoExclusionLimit caps the rows of a video exclusion export.
	VideoExclusionLimit int

	DequeueTimeout time.Duration

	// PollInterval is the wait after an empty dequeue or after a task was put
	// back because its audit is paused.
	PollInterval time.Duration

	QueueReportInterval time.Duration
}

// Materializer handles queued custom target list tasks.
type Materializer struct {
	deps   Deps
	opts   Options
	logger *zerolog.Logger
}

// New creates a Materializer.
func New(deps Deps, opts Options, logger *zerolog.Logger) *Materializer {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}

	if opts.IDChunk <= 0 {
		opts.IDChunk = defaultIDChunk
	}

	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	if opts.VideoExclusionLimit <= 0 {
		opts.VideoExclusionLimit = defaultVideoExclusionLimit
	}

	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = defaultDequeueTimeout
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	if opts.QueueReportInterval <= 0 {
		opts.QueueReportInterval = defaultQueueReportInterval
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Materializer{deps: deps, opts: opts, logger: logger}
}

// Run consumes tasks until ctx is canceled.
func (m *Materializer) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:       workerName,
		Step:       m.ProcessNext,
		Idle:       m.opts.PollInterval,
		Backoff:    m.opts.DequeueTimeout,
		MaxBackoff: maxDequeueBackoff,
		Periodic: []worker.PeriodicTask{
			{Name: "queue_length", Interval: m.opts.QueueReportInterval, Run: m.reportQueue},
		},
		Logger: m.logger,
	})
}

// ProcessNext handles at most one queued task and reports whether it made
// progress. An empty queue after the dequeue timeout is not an error; neither
// an empty queue nor a task put back for a paused audit counts as progress.
func (m *Materializer) ProcessNext(ctx context.Context) (bool, error) {
	task, err := m.deps.Queue.Dequeue(ctx, m.opts.DequeueTimeout)
	if err != nil {
		return false, fmt.Errorf("dequeue task: %w", err)
	}

	if task == nil {
		return false, nil
	}

	return m.Handle(ctx, *task), nil
}

// Handle runs task and records its outcome. Failed tasks are requeued until
// MaxRetries is reached, then the failure is written onto the list. A task of
// a stopped audit ends the list with an error. Handle returns false only when
// the task was put back to wait for a paused audit.
func (m *Materializer) Handle(ctx context.Context, task domain.Task) (progressed bool) {
	progressed = true

	defer worker.RecoverPanic(m.logger, "materialize task")

	logger := m.logger.With().
		Str(logFieldTask, task.ID).
		Str(logFieldKind, string(task.Kind)).
		Int64(logFieldSegment, task.SegmentID).
		Logger()

	start := time.Now()
	err := m.run(ctx, task)

	observability.TaskDurationSeconds.WithLabelValues(string(task.Kind)).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusSuccess).Inc()
		logger.Info().Dur("duration", time.Since(start)).Msg("task completed")
	case apperrors.Is(err, apperrors.ErrAuditStopped):
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusSkipped).Inc()
		logger.Info().Msg("audit stopped, task dropped")

		if ferr := m.fail(ctx, task, apperrors.ErrAuditStopped); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to record stopped audit")
		}
	case apperrors.Is(err, apperrors.ErrAuditPaused):
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusSkipped).Inc()
		logger.Info().Msg("audit paused, task requeued")
		m.requeue(ctx, task, &logger)

		progressed = false
	case apperrors.Is(err, apperrors.ErrSegmentNotFound):
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusSkipped).Inc()
		logger.Warn().Err(err).Msg("list no longer exists, task dropped")
	case task.RetryCount < m.opts.MaxRetries && ctx.Err() == nil:
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusError).Inc()
		logger.Warn().Err(err).Int(logFieldRetry, task.RetryCount).Msg("task failed, retrying")

		task.RetryCount++
		m.requeue(ctx, task, &logger)
	default:
		observability.TasksProcessed.WithLabelValues(string(task.Kind), observability.StatusError).Inc()
		logger.Error().Err(err).Int(logFieldRetry, task.RetryCount).Msg("task failed")

		if ferr := m.fail(ctx, task, err); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to record task failure")
		}
	}

	return progressed
}

func (m *Materializer) run(ctx context.Context, task domain.Task) error {
	switch task.Kind {
	case domain.TaskMaterialize:
		return m.Materialize(ctx, task)
	case domain.TaskVideoExclusion:
		return m.VideoExclusion(ctx, task.SegmentID)
	default:
		return fmt.Errorf("run task: unknown kind %q", task.Kind)
	}
}

func (m *Materializer) requeue(ctx context.Context, task domain.Task, logger *zerolog.Logger) {
	if err := m.deps.Queue.Enqueue(ctx, task); err != nil {
		logger.Error().Err(err).Msg("failed to requeue task")
	}
}

// fail records a final task failure on the list.
func (m *Materializer) fail(ctx context.Context, task domain.Task, cause error) error {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, task.SegmentID)
	if err != nil {
		return fmt.Errorf("get custom segment: %w", err)
	}

	if seg.Statistics == nil {
		seg.Statistics = map[string]any{}
	}

	switch task.Kind {
	case domain.TaskVideoExclusion:
		seg.WithVideoExclusion = false
		seg.Statistics[KeyVideoExclusionFilename] = false
	default:
		seg.IsRegenerating = false
		seg.Statistics[domain.StatisticsErrorKey] = cause.Error()
	}

	if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
		return fmt.Errorf("update custom segment: %w", err)
	}

	return nil
}

func (m *Materializer) reportQueue(ctx context.Context) {
	q, ok := m.deps.Queue.(queueLength)
	if !ok {
		return
	}

	n, err := q.Len(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to read queue length")

		return
	}

	m.logger.Info().Int64(logFieldQueue, n).Msg("task queue backlog")
}
