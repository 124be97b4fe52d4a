// Package topic runs keyword topic audits over every channel held in a
// persistent segment. Matching videos and their channels are added to the
// topic's own video and channel segments.
//
// A topic picked up mid-corpus keeps running across runs until the cursor has
// wrapped back past its start position, so every topic sees every channel once.
package topic

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/audit/coordinator"
	"github.com/lueurxax/brand-safety-audit/internal/audit/fetcher"
	"github.com/lueurxax/brand-safety-audit/internal/audit/stats"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

// TrackerName is the script tracker holding the channel offset cursor.
const TrackerName = "TopicAudit"

// LockID is the advisory lock guarding against concurrent topic audit runs.
const LockID int64 = 7_301_001

const (
	auditName               = "topic"
	defaultMasterBatchSize  = 5000
	defaultWorkers          = 10
	logFieldTopic           = "topic"
	logFieldCursor          = "cursor"
	logFieldCompletedTopics = "completed"
	logFieldRerunTopics     = "rerun"
)

// Options configures an Auditor.
type Options struct {
	// MasterBatchSize is the number of channels handed to the worker pool at once.
	MasterBatchSize int

	// Workers is the worker pool size.
	Workers int
}

// Deps bundles the repositories an Auditor needs.
type Deps struct {
	Segments  ports.SegmentRepository
	Topics    ports.TopicRepository
	Trackers  ports.TrackerRepository
	Locks     ports.LockRepository
	Fetcher   *fetcher.Fetcher
	Refresher *stats.Refresher
}

// Auditor runs topic audits.
type Auditor struct {
	deps   Deps
	opts   Options
	logger *zerolog.Logger
	now    func() time.Time
}

// New creates an Auditor.
func New(deps Deps, opts Options, logger *zerolog.Logger) *Auditor {
	if opts.MasterBatchSize <= 0 {
		opts.MasterBatchSize = defaultMasterBatchSize
	}

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Auditor{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Report summarizes a topic audit run.
type Report struct {
	Batches   int
	Channels  int
	Completed []string
	Rerun     []string
}

// activeTopic is a running topic with its compiled pattern.
type activeTopic struct {
	topic   domain.TopicAudit
	pattern *Pattern
}

// found holds the memberships discovered by one worker.
type found struct {
	channels []domain.Membership
	videos   []domain.Membership
}

// run is the state of one topic audit run. Only the coordinating goroutine
// mutates it; workers read channels and topics between fan-out and join.
type run struct {
	tracker  domain.ScriptTracker
	topics   []activeTopic
	channels map[string]domain.Membership
	report   Report
}

// Run executes one full topic audit over the channel corpus. It fails with
// ErrLockHeld when another run is in progress.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	acquired, err := a.deps.Locks.TryAcquireAdvisoryLock(ctx, LockID)
	if err != nil {
		return Report{}, fmt.Errorf("acquire topic audit lock: %w", err)
	}

	if !acquired {
		return Report{}, apperrors.ErrLockHeld
	}

	defer func() {
		if err := a.deps.Locks.ReleaseAdvisoryLock(context.WithoutCancel(ctx), LockID); err != nil {
			a.logger.Warn().Err(err).Msg("failed to release topic audit lock")
		}
	}()

	tracker, err := a.deps.Trackers.GetOrCreateTracker(ctx, TrackerName)
	if err != nil {
		return Report{}, fmt.Errorf("load tracker: %w", err)
	}

	state := &run{tracker: tracker, channels: make(map[string]domain.Membership)}

	if err := a.pickUpTopics(ctx, state); err != nil {
		return Report{}, err
	}

	if len(state.topics) == 0 {
		a.logger.Info().Msg("no topics to run")

		return Report{}, nil
	}

	loop := coordinator.MasterLoop[found]{
		Name:    auditName,
		Workers: a.opts.Workers,
		Next:    func(ctx context.Context) ([]string, error) { return a.next(ctx, state) },
		Work:    func(ctx context.Context, ids []string) (found, error) { return a.auditChannels(ctx, state, ids) },
		Persist: a.persist,
		Advance: func(ctx context.Context, batch []string) error { return a.advance(ctx, state, batch) },
		Logger:  a.logger,
	}

	loopStats, err := loop.Run(ctx)

	state.report.Batches = loopStats.Batches
	state.report.Channels = loopStats.Items

	if err != nil {
		return state.report, err
	}

	state.tracker.Cursor = 0
	if err := a.saveTracker(ctx, state); err != nil {
		return state.report, err
	}

	if err := a.finishRun(ctx, state); err != nil {
		return state.report, err
	}

	a.logger.Info().
		Strs(logFieldCompletedTopics, state.report.Completed).
		Strs(logFieldRerunTopics, state.report.Rerun).
		Int(logFieldCursor, int(state.tracker.Cursor)).
		Msg("topic audit complete")

	return state.report, nil
}

// next loads the next master batch of distinct channel members.
func (a *Auditor) next(ctx context.Context, state *run) ([]string, error) {
	members, err := a.deps.Segments.DistinctChannelMembers(ctx, int(state.tracker.Cursor), a.opts.MasterBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list channel members: %w", err)
	}

	clear(state.channels)

	ids := make([]string, 0, len(members))
	for _, m := range members {
		state.channels[m.RelatedID] = m
		ids = append(ids, m.RelatedID)
	}

	return ids, nil
}

// auditChannels fetches the videos of ids and matches them against every active topic.
func (a *Auditor) auditChannels(ctx context.Context, state *run, ids []string) (found, error) {
	var out found

	err := a.deps.Fetcher.ItemsForChannels(ctx, ids, func(videos []domain.Item) error {
		for _, t := range state.topics {
			channels, matched, err := auditVideos(t, videos, state.channels)
			if err != nil {
				return fmt.Errorf("audit topic %q: %w", t.topic.Title, err)
			}

			out.channels = append(out.channels, channels...)
			out.videos = append(out.videos, matched...)
		}

		return nil
	})

	observability.ItemsScanned.WithLabelValues(auditName, string(domain.ItemTypeChannel)).Add(float64(len(ids)))

	return out, err
}

// auditVideos returns channel and video memberships for the videos matching t.
// Channels aggregate the words found across their matching videos.
func auditVideos(t activeTopic, videos []domain.Item, channels map[string]domain.Membership) ([]domain.Membership, []domain.Membership, error) {
	var (
		matched []domain.Membership
		order   []string
	)

	byChannel := make(map[string]*domain.Membership)

	for _, v := range videos {
		if v.ChannelID == "" {
			continue
		}

		words, err := t.pattern.FindAll(v.Text())
		if err != nil {
			return nil, nil, err
		}

		if len(words) == 0 {
			continue
		}

		matched = append(matched, videoMembership(t.topic.VideoSegmentID, v, words))

		if row, ok := byChannel[v.ChannelID]; ok {
			row.Details.BadWords = append(row.Details.BadWords, words...)

			continue
		}

		row := channels[v.ChannelID]
		row.SegmentID = t.topic.ChannelSegmentID
		row.RelatedID = v.ChannelID
		row.Details.BadWords = append([]string(nil), words...)
		byChannel[v.ChannelID] = &row
		order = append(order, v.ChannelID)
	}

	out := make([]domain.Membership, 0, len(order))
	for _, id := range order {
		out = append(out, *byChannel[id])
	}

	return out, matched, nil
}

func videoMembership(segmentID int64, v domain.Item, words []string) domain.Membership {
	return domain.Membership{
		SegmentID:    segmentID,
		RelatedID:    v.ID,
		Title:        v.Title,
		Category:     v.Category,
		ThumbnailURL: v.ThumbnailURL,
		Details: domain.MembershipDetails{
			Language:    v.Language,
			Likes:       v.Stats.Likes,
			Dislikes:    v.Stats.Dislikes,
			Views:       v.Stats.Views,
			Tags:        v.TagsText(),
			Description: v.Description,
			BadWords:    words,
		},
	}
}

// persist writes every membership found in a master batch. Rows already present are skipped.
func (a *Auditor) persist(ctx context.Context, _ []string, results []found) error {
	var channels, videos []domain.Membership

	for _, r := range results {
		channels = append(channels, r.channels...)
		videos = append(videos, r.videos...)
	}

	channels = mergeChannels(channels)

	if len(channels) > 0 {
		created, err := a.deps.Segments.BulkCreateMemberships(ctx, domain.ItemTypeChannel, channels)
		if err != nil {
			return fmt.Errorf("create channel memberships: %w", err)
		}

		observability.MembershipsInserted.WithLabelValues(string(domain.ItemTypeChannel)).Add(float64(created))
	}

	if len(videos) > 0 {
		created, err := a.deps.Segments.BulkCreateMemberships(ctx, domain.ItemTypeVideo, videos)
		if err != nil {
			return fmt.Errorf("create video memberships: %w", err)
		}

		observability.MembershipsInserted.WithLabelValues(string(domain.ItemTypeVideo)).Add(float64(created))
	}

	return nil
}

// mergeChannels folds rows of the same channel and segment into the first
// one, concatenating their bad words. A channel whose videos span several
// pages yields one row per page.
func mergeChannels(rows []domain.Membership) []domain.Membership {
	type key struct {
		segmentID int64
		channelID string
	}

	index := make(map[key]int, len(rows))
	out := rows[:0:0]

	for _, row := range rows {
		k := key{segmentID: row.SegmentID, channelID: row.RelatedID}

		if i, ok := index[k]; ok {
			out[i].Details.BadWords = append(out[i].Details.BadWords, row.Details.BadWords...)

			continue
		}

		words := row.Details.BadWords
		row.Details.BadWords = words[:len(words):len(words)]

		index[k] = len(out)
		out = append(out, row)
	}

	return out
}

// advance moves the cursor past batch, finalizes topics whose start cursor has
// been reached again and picks up topics started since the last batch.
func (a *Auditor) advance(ctx context.Context, state *run, batch []string) error {
	state.tracker.Cursor += int64(len(batch))

	if err := a.saveTracker(ctx, state); err != nil {
		return err
	}

	if err := a.checkTopicCursors(ctx, state); err != nil {
		return err
	}

	return a.pickUpTopics(ctx, state)
}

func (a *Auditor) saveTracker(ctx context.Context, state *run) error {
	if err := a.deps.Trackers.SaveTracker(ctx, state.tracker); err != nil {
		return fmt.Errorf("save tracker: %w", err)
	}

	observability.AuditCursor.WithLabelValues(auditName).Set(float64(state.tracker.Cursor))

	return nil
}

// pickUpTopics activates running topics not yet active in this run. A topic
// seen for the first time starts at the current cursor.
func (a *Auditor) pickUpTopics(ctx context.Context, state *run) error {
	running, err := a.deps.Topics.RunningTopics(ctx)
	if err != nil {
		return fmt.Errorf("list running topics: %w", err)
	}

	active := make(map[int64]struct{}, len(state.topics))
	for _, t := range state.topics {
		active[t.topic.ID] = struct{}{}
	}

	for _, t := range running {
		if _, ok := active[t.ID]; ok {
			continue
		}

		pattern, err := CompilePattern(t.Keywords)
		if err != nil {
			a.logger.Warn().Err(err).Str(logFieldTopic, t.Title).Msg("skipping topic with invalid keywords")

			continue
		}

		if !t.Started() {
			now := a.now()
			t.StartedAt = &now
			t.StartCursor = state.tracker.Cursor
			t.FromBeginning = state.tracker.Cursor == 0
			t.Wrapped = false

			if err := a.deps.Topics.SaveTopic(ctx, t); err != nil {
				return fmt.Errorf("start topic %q: %w", t.Title, err)
			}
		}

		state.topics = append(state.topics, activeTopic{topic: t, pattern: pattern})
	}

	return nil
}

// checkTopicCursors completes wrapped topics once the cursor reaches their start position.
func (a *Auditor) checkTopicCursors(ctx context.Context, state *run) error {
	remaining := state.topics[:0]

	for _, t := range state.topics {
		if t.topic.Wrapped && state.tracker.Cursor >= t.topic.StartCursor {
			t.topic.FromBeginning = true

			if err := a.complete(ctx, state, t.topic); err != nil {
				return err
			}

			continue
		}

		remaining = append(remaining, t)
	}

	state.topics = remaining

	return nil
}

// finishRun completes topics that have seen the whole corpus and marks the
// others as wrapped so they finish during the next run.
func (a *Auditor) finishRun(ctx context.Context, state *run) error {
	for _, t := range state.topics {
		if t.topic.FromBeginning || t.topic.Wrapped {
			if err := a.complete(ctx, state, t.topic); err != nil {
				return err
			}

			continue
		}

		t.topic.Wrapped = true
		if err := a.deps.Topics.SaveTopic(ctx, t.topic); err != nil {
			return fmt.Errorf("save topic %q: %w", t.topic.Title, err)
		}

		state.report.Rerun = append(state.report.Rerun, t.topic.Title)
	}

	state.topics = nil

	return nil
}

// complete stops topic and refreshes the statistics of its segments.
func (a *Auditor) complete(ctx context.Context, state *run, topic domain.TopicAudit) error {
	now := a.now()
	topic.IsRunning = false
	topic.CompletedAt = &now

	if err := a.deps.Topics.SaveTopic(ctx, topic); err != nil {
		return fmt.Errorf("complete topic %q: %w", topic.Title, err)
	}

	if err := a.deps.Refresher.RefreshByID(ctx, domain.ItemTypeChannel, topic.ChannelSegmentID); err != nil {
		return fmt.Errorf("refresh topic %q channels: %w", topic.Title, err)
	}

	if err := a.deps.Refresher.RefreshByID(ctx, domain.ItemTypeVideo, topic.VideoSegmentID); err != nil {
		return fmt.Errorf("refresh topic %q videos: %w", topic.Title, err)
	}

	state.report.Completed = append(state.report.Completed, topic.Title)

	a.logger.Info().Str(logFieldTopic, topic.Title).Msg("topic audit completed")

	return nil
}
