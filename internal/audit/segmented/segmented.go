// Package segmented runs the persistent-segment brand-safety audit: channel
// batches are fetched from a tracked cursor, their videos are scored by a pool of
// workers, and the coordinator stores channels and videos into segments.
package segmented

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/audit/coordinator"
	"github.com/lueurxax/brand-safety-audit/internal/audit/fetcher"
	"github.com/lueurxax/brand-safety-audit/internal/audit/scoring"
	"github.com/lueurxax/brand-safety-audit/internal/audit/segments"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
	"github.com/lueurxax/brand-safety-audit/internal/platform/worker"
)

// TrackerName is the script tracker holding the channel cursor.
const TrackerName = "SegmentedAudit"

const (
	auditName                = "segmented"
	defaultChannelBatchLimit = 100
	defaultWorkers           = 4
	maxLoopBackoff           = 10 * time.Minute

	logFieldCursor   = "cursor"
	logFieldChannels = "channels"
	logFieldVideos   = "videos"
)

// Options configures an Auditor.
type Options struct {
	// ChannelBatchLimit is the number of channels per pass.
	ChannelBatchLimit int

	// Workers is the number of concurrent video fetch-and-score workers.
	Workers int
}

// Auditor runs segmented audit passes.
type Auditor struct {
	fetcher     *fetcher.Fetcher
	engine      *scoring.Engine
	partitioner *segments.Partitioner
	trackers    ports.TrackerRepository
	opts        Options
	logger      *zerolog.Logger
}

// New creates an Auditor.
func New(f *fetcher.Fetcher, engine *scoring.Engine, partitioner *segments.Partitioner, trackers ports.TrackerRepository, opts Options, logger *zerolog.Logger) *Auditor {
	if opts.ChannelBatchLimit <= 0 {
		opts.ChannelBatchLimit = defaultChannelBatchLimit
	}

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Auditor{
		fetcher:     f,
		engine:      engine,
		partitioner: partitioner,
		trackers:    trackers,
		opts:        opts,
		logger:      logger,
	}
}

// PassReport summarizes one pass.
type PassReport struct {
	Channels      int
	Videos        int
	Cursor        string
	ChannelStore  segments.StoreReport
	VideoStore    segments.StoreReport
	WrappedCursor bool
}

// pass holds the state of a single run. It is never shared between runs.
type pass struct {
	channels []domain.Item
	videos   []domain.ScoredItem
	byOwner  map[string][]domain.ScoreResult
}

// RunPass audits the next channel batch after the tracked cursor. When the
// corpus is exhausted the cursor wraps to the beginning.
func (a *Auditor) RunPass(ctx context.Context) (PassReport, error) {
	tracker, err := a.trackers.GetOrCreateTracker(ctx, TrackerName)
	if err != nil {
		return PassReport{}, fmt.Errorf("load tracker: %w", err)
	}

	report := PassReport{}

	channels, err := a.fetcher.NextItemsBatch(ctx, domain.ItemTypeChannel, tracker.LastID, a.opts.ChannelBatchLimit)
	if err != nil {
		return report, err
	}

	if len(channels) == 0 && tracker.LastID != "" {
		report.WrappedCursor = true

		channels, err = a.fetcher.NextItemsBatch(ctx, domain.ItemTypeChannel, "", a.opts.ChannelBatchLimit)
		if err != nil {
			return report, err
		}
	}

	if len(channels) == 0 {
		a.logger.Info().Msg("no channels to audit")

		return report, nil
	}

	run := &pass{channels: channels, byOwner: make(map[string][]domain.ScoreResult)}
	if err := a.scoreVideos(ctx, run); err != nil {
		return report, err
	}

	scoredChannels := a.rollup(run)

	report.Channels = len(scoredChannels)
	report.Videos = len(run.videos)

	if report.ChannelStore, err = a.partitioner.Store(ctx, domain.ItemTypeChannel, scoredChannels); err != nil {
		return report, fmt.Errorf("store channels: %w", err)
	}

	if report.VideoStore, err = a.partitioner.Store(ctx, domain.ItemTypeVideo, run.videos); err != nil {
		return report, fmt.Errorf("store videos: %w", err)
	}

	tracker.LastID = channels[len(channels)-1].ID
	tracker.Cursor += int64(len(channels))

	if err := a.trackers.SaveTracker(ctx, tracker); err != nil {
		return report, fmt.Errorf("save tracker: %w", err)
	}

	report.Cursor = tracker.LastID
	observability.AuditCursor.WithLabelValues(auditName).Set(float64(tracker.Cursor))

	a.logger.Info().
		Str(logFieldCursor, report.Cursor).
		Int(logFieldChannels, report.Channels).
		Int(logFieldVideos, report.Videos).
		Msg("segmented audit pass complete")

	return report, nil
}

// scoreVideos fans the channel ids out to workers. Each worker fetches and
// scores the videos of its channels and returns them; merging happens here
// after the join.
func (a *Auditor) scoreVideos(ctx context.Context, run *pass) error {
	ids := make([]string, len(run.channels))
	for i, c := range run.channels {
		ids[i] = c.ID
	}

	start := time.Now()

	results, err := coordinator.Run(ctx, ids, a.opts.Workers, func(ctx context.Context, sub []string) ([]domain.ScoredItem, error) {
		videos, err := a.fetcher.VideosForChannels(ctx, sub)
		if err != nil {
			return nil, err
		}

		scored := make([]domain.ScoredItem, 0, len(videos))
		for _, v := range videos {
			scored = append(scored, domain.ScoredItem{Item: v, Result: a.engine.Score(v)})
		}

		return scored, nil
	})
	if err != nil {
		observability.WorkerFailures.WithLabelValues(auditName).Inc()
		observability.MasterBatches.WithLabelValues(auditName, observability.StatusError).Inc()

		return fmt.Errorf("score videos: %w", err)
	}

	for _, batch := range results {
		for _, s := range batch {
			run.videos = append(run.videos, s)
			run.byOwner[s.Item.ChannelID] = append(run.byOwner[s.Item.ChannelID], s.Result)
			recordHits(domain.ItemTypeVideo, s.Result)
		}
	}

	observability.ItemsScanned.WithLabelValues(auditName, string(domain.ItemTypeVideo)).Add(float64(len(run.videos)))
	observability.MasterBatches.WithLabelValues(auditName, observability.StatusSuccess).Inc()
	observability.MasterBatchDurationSeconds.WithLabelValues(auditName).Observe(time.Since(start).Seconds())

	return nil
}

func (a *Auditor) rollup(run *pass) []domain.ScoredItem {
	out := make([]domain.ScoredItem, 0, len(run.channels))

	for _, c := range run.channels {
		result := a.engine.RollupChannel(c, run.byOwner[c.ID])
		out = append(out, domain.ScoredItem{Item: c, Result: result})
	}

	observability.ItemsScanned.WithLabelValues(auditName, string(domain.ItemTypeChannel)).Add(float64(len(out)))

	return out
}

func recordHits(itemType domain.ItemType, r domain.ScoreResult) {
	for _, h := range r.Hits {
		observability.BadWordHits.WithLabelValues(string(itemType), h.Category).Add(float64(h.Count))
	}
}

// RunLoop runs passes back to back until ctx is canceled. Once the corpus is
// exhausted and the cursor wraps, the loop waits interval before starting over.
// Failed passes are retried with a growing delay.
func (a *Auditor) RunLoop(ctx context.Context, interval time.Duration) error {
	return worker.Loop(ctx, worker.Config{
		Name: auditName,
		Step: func(ctx context.Context) (bool, error) {
			report, err := a.RunPass(ctx)
			if err != nil {
				return false, err
			}

			return !report.WrappedCursor, nil
		},
		Idle:       interval,
		Backoff:    interval,
		MaxBackoff: maxLoopBackoff,
		Logger:     a.logger,
	})
}
