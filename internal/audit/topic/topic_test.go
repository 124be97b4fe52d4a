package topic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/audit/fetcher"
	"github.com/lueurxax/brand-safety-audit/internal/audit/stats"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
)

const (
	topicChannels = "Topic Firearms Channels"
	topicVideos   = "Topic Firearms Videos"
)

type fixture struct {
	source   *mocks.PageSource
	store    *mocks.SegmentStore
	trackers *mocks.Trackers
	auditor  *Auditor
	topic    domain.TopicAudit
}

func video(id, channelID, title string) domain.Item {
	return domain.Item{
		ID: id, Type: domain.ItemTypeVideo, ChannelID: channelID, Title: title,
		ThumbnailURL: "http://img/" + id, Stats: domain.Stats{Views: 10},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	f := &fixture{
		source: mocks.NewPageSource(
			video("v1", "c1", "guns and ammo"),
			video("v2", "c1", "ammo box"),
			video("v3", "c2", "cooking"),
			video("v4", "c3", "gun show"),
		),
		store:    mocks.NewSegmentStore(),
		trackers: mocks.NewTrackers(),
	}

	seg, err := f.store.GetOrCreateSegment(ctx, domain.ItemTypeChannel, "Channels Gaming Whitelist", domain.Whitelist)
	require.NoError(t, err)

	var rows []domain.Membership
	for _, id := range []string{"c1", "c2", "c3"} {
		rows = append(rows, domain.Membership{SegmentID: seg.ID, RelatedID: id, Title: "channel " + id, ThumbnailURL: "http://img/" + id})
	}

	_, err = f.store.BulkCreateMemberships(ctx, domain.ItemTypeChannel, rows)
	require.NoError(t, err)

	channelSeg, err := f.store.GetOrCreateSegment(ctx, domain.ItemTypeChannel, topicChannels, domain.Whitelist)
	require.NoError(t, err)

	videoSeg, err := f.store.GetOrCreateSegment(ctx, domain.ItemTypeVideo, topicVideos, domain.Whitelist)
	require.NoError(t, err)

	f.topic = domain.TopicAudit{
		ID:               1,
		Title:            "Firearms",
		Keywords:         []string{"guns?", "ammo"},
		ChannelSegmentID: channelSeg.ID,
		VideoSegmentID:   videoSeg.ID,
		IsRunning:        true,
	}
	require.NoError(t, f.trackers.SaveTopic(ctx, f.topic))

	f.auditor = New(Deps{
		Segments:  f.store,
		Topics:    f.trackers,
		Trackers:  f.trackers,
		Locks:     f.trackers,
		Fetcher:   fetcher.New(f.source, fetcher.Options{ChannelChunk: 1}, nil),
		Refresher: stats.NewRefresher(f.store, nil),
	}, Options{MasterBatchSize: 2, Workers: 2}, nil)

	return f
}

func TestRunFromBeginning(t *testing.T) {
	f := newFixture(t)

	report, err := f.auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 3, report.Channels)
	assert.Equal(t, []string{"Firearms"}, report.Completed)
	assert.Empty(t, report.Rerun)

	assert.Equal(t, []string{"v1", "v2", "v4"}, f.store.Members(domain.ItemTypeVideo, topicVideos))
	assert.Equal(t, []string{"c1", "c3"}, f.store.Members(domain.ItemTypeChannel, topicChannels))

	v1, ok := f.store.Membership(domain.ItemTypeVideo, topicVideos, "v1")
	require.True(t, ok)
	assert.Equal(t, []string{"guns", "ammo"}, v1.Details.BadWords)

	c1, ok := f.store.Membership(domain.ItemTypeChannel, topicChannels, "c1")
	require.True(t, ok)
	assert.Equal(t, "channel c1", c1.Title)
	assert.Equal(t, []string{"guns", "ammo", "ammo"}, c1.Details.BadWords)

	topic, ok := f.trackers.Topic(1)
	require.True(t, ok)
	assert.False(t, topic.IsRunning)
	assert.True(t, topic.FromBeginning)
	assert.NotNil(t, topic.CompletedAt)

	seg, ok := f.store.Segment(domain.ItemTypeVideo, topicVideos)
	require.True(t, ok)
	assert.Equal(t, 3, seg.Details[stats.KeyItemsCount])

	tracker, ok := f.trackers.Tracker(TrackerName)
	require.True(t, ok)
	assert.Equal(t, int64(0), tracker.Cursor)
	assert.False(t, f.trackers.Locked(LockID))
}

func TestRunMergesChannelWordsAcrossPages(t *testing.T) {
	f := newFixture(t)
	f.auditor.deps.Fetcher = fetcher.New(f.source, fetcher.Options{PageSize: 1, ChannelChunk: 1}, nil)

	_, err := f.auditor.Run(context.Background())
	require.NoError(t, err)

	c1, ok := f.store.Membership(domain.ItemTypeChannel, topicChannels, "c1")
	require.True(t, ok)
	assert.Equal(t, []string{"guns", "ammo", "ammo"}, c1.Details.BadWords)
	assert.Equal(t, []string{"c1", "c3"}, f.store.Members(domain.ItemTypeChannel, topicChannels))
}

func TestMergeChannels(t *testing.T) {
	rows := []domain.Membership{
		{SegmentID: 1, RelatedID: "c1", Details: domain.MembershipDetails{BadWords: []string{"guns"}}},
		{SegmentID: 1, RelatedID: "c2", Details: domain.MembershipDetails{BadWords: []string{"ammo"}}},
		{SegmentID: 1, RelatedID: "c1", Details: domain.MembershipDetails{BadWords: []string{"ammo"}}},
		{SegmentID: 2, RelatedID: "c1", Details: domain.MembershipDetails{BadWords: []string{"knife"}}},
	}

	got := mergeChannels(rows)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"guns", "ammo"}, got[0].Details.BadWords)
	assert.Equal(t, "c2", got[1].RelatedID)
	assert.Equal(t, int64(2), got[2].SegmentID)
	assert.Equal(t, []string{"guns"}, rows[0].Details.BadWords)
}

func TestRunMidCorpusFinishesOnNextRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.trackers.SaveTracker(ctx, domain.ScriptTracker{Name: TrackerName, Cursor: 2}))

	first, err := f.auditor.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Firearms"}, first.Rerun)
	assert.Empty(t, first.Completed)
	assert.Equal(t, []string{"v4"}, f.store.Members(domain.ItemTypeVideo, topicVideos))

	topic, _ := f.trackers.Topic(1)
	assert.True(t, topic.IsRunning)
	assert.True(t, topic.Wrapped)
	assert.False(t, topic.FromBeginning)
	assert.Equal(t, int64(2), topic.StartCursor)

	second, err := f.auditor.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Firearms"}, second.Completed)
	assert.Equal(t, []string{"v1", "v2", "v4"}, f.store.Members(domain.ItemTypeVideo, topicVideos))

	topic, _ = f.trackers.Topic(1)
	assert.False(t, topic.IsRunning)
	assert.True(t, topic.FromBeginning)
}

func TestRunLockHeld(t *testing.T) {
	f := newFixture(t)

	acquired, err := f.trackers.TryAcquireAdvisoryLock(context.Background(), LockID)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.auditor.Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLockHeld)
	assert.Empty(t, f.source.Calls())
}

func TestRunNoTopics(t *testing.T) {
	f := newFixture(t)
	f.topic.IsRunning = false
	require.NoError(t, f.trackers.SaveTopic(context.Background(), f.topic))

	report, err := f.auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Batches)
	assert.Empty(t, f.source.Calls())
}

func TestRunWorkerFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.source.FetchPageFn = func(_ context.Context, _ domain.ItemType, _ ports.PageRequest) (ports.Page, error) {
		return ports.Page{}, errors.New("store down")
	}

	_, err := f.auditor.Run(context.Background())
	require.ErrorIs(t, err, apperrors.ErrWorkerFailed)

	assert.Empty(t, f.store.Members(domain.ItemTypeVideo, topicVideos))
	assert.Empty(t, f.store.Members(domain.ItemTypeChannel, topicChannels))

	tracker, _ := f.trackers.Tracker(TrackerName)
	assert.Equal(t, int64(0), tracker.Cursor)
	assert.False(t, f.trackers.Locked(LockID))
}

func TestCompilePattern(t *testing.T) {
	_, err := CompilePattern([]string{" ", ""})
	require.ErrorIs(t, err, apperrors.ErrEmptyKeywordList)

	_, err = CompilePattern([]string{"("})
	require.Error(t, err)

	p, err := CompilePattern([]string{"colou?r", "(?<=dark )web"})
	require.NoError(t, err)

	got, err := p.FindAll("color colour dark web web")
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "colour", "web"}, got)
}
