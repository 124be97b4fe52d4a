package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
)

func intPtr(v int) *int { return &v }

func TestAccumulatorVideos(t *testing.T) {
	acc := NewAccumulator(domain.ItemTypeVideo)

	items := []domain.Item{
		{ID: "v1", Title: "One", ThumbnailURL: "http://img/1", Stats: domain.Stats{Views: 10, Likes: 2, Dislikes: 1}},
		{ID: "v2", Title: "", ThumbnailURL: "http://img/2", Stats: domain.Stats{Views: 5}},
		{ID: "v3", Title: "Three", ThumbnailURL: "http://img/3", IsMonetizable: true},
		{ID: "v4", Title: "Four", ThumbnailURL: "http://img/4"},
		{ID: "v5", Title: "Five", ThumbnailURL: "http://img/5"},
	}
	scores := []*int{intPtr(95), intPtr(85), intPtr(75), intPtr(60), nil}

	for i, item := range items {
		acc.Add(item, scores[i], 0)
	}

	got := acc.Statistics()

	assert.Equal(t, 5, got[KeyItemsCount])
	assert.Equal(t, int64(15), got[KeyViews])
	assert.Equal(t, int64(2), got[KeyLikes])
	assert.Equal(t, int64(1), got[KeyDislikes])
	assert.Equal(t, 1, got[KeyMonetizableCount])
	// (95+85+75+60+0)/5 = 63
	assert.Equal(t, 6, got[KeyAverageScore])
	assert.NotContains(t, got, KeySubscribers)

	top, ok := got[KeyTopThreeItems].([]TopItem)
	require.True(t, ok)
	assert.Equal(t, []TopItem{
		{ID: "v1", Title: "One", ImageURL: "http://img/1"},
		{ID: "v3", Title: "Three", ImageURL: "http://img/3"},
		{ID: "v4", Title: "Four", ImageURL: "http://img/4"},
	}, top)

	assert.Equal(t, map[string]int{"safe": 1, "low_risk": 1, "risky": 1, "high_risk": 1}, got[KeyLabels])
}

func TestAccumulatorChannels(t *testing.T) {
	acc := NewAccumulator(domain.ItemTypeChannel)
	acc.Add(domain.Item{ID: "c1", Stats: domain.Stats{Subscribers: 100}}, intPtr(90), 15)
	acc.Add(domain.Item{ID: "c2", Stats: domain.Stats{Subscribers: 50}}, intPtr(70), 3)

	got := acc.Statistics()

	assert.Equal(t, int64(150), got[KeySubscribers])
	assert.Equal(t, int64(18), got[KeyAuditedVideos])
	assert.Equal(t, 8, got[KeyAverageScore])
}

func TestAccumulatorEmpty(t *testing.T) {
	got := NewAccumulator(domain.ItemTypeVideo).Statistics()

	assert.Equal(t, 0, got[KeyItemsCount])
	assert.Equal(t, 0, got[KeyAverageScore])
	assert.Equal(t, []TopItem{}, got[KeyTopThreeItems])
	assert.NotContains(t, got, KeyLabels)
}

func seedChannel(t *testing.T, store *mocks.SegmentStore, title string, rows ...domain.Membership) domain.Segment {
	t.Helper()

	seg, err := store.GetOrCreateSegment(context.Background(), domain.ItemTypeChannel, title, domain.Blacklist)
	require.NoError(t, err)

	for i := range rows {
		rows[i].SegmentID = seg.ID
	}

	_, err = store.BulkCreateMemberships(context.Background(), domain.ItemTypeChannel, rows)
	require.NoError(t, err)

	return seg
}

func TestRefreshSegment(t *testing.T) {
	store := mocks.NewSegmentStore()
	subs := int64(40)
	audited := 15

	seg := seedChannel(t, store, "Topic Channels",
		domain.Membership{RelatedID: "c1", Title: "C1", ThumbnailURL: "http://img/c1", Details: domain.MembershipDetails{
			Views: 7, Subscribers: &subs, AuditedVideos: &audited, BadWords: []string{"bomb", "bad"},
		}},
		domain.Membership{RelatedID: "c2", Title: "C2", Details: domain.MembershipDetails{Views: 3}},
	)

	r := NewRefresher(store, nil)

	details, err := r.RefreshSegment(context.Background(), seg)
	require.NoError(t, err)

	assert.Equal(t, 2, details[KeyItemsCount])
	assert.Equal(t, int64(10), details[KeyViews])
	assert.Equal(t, int64(40), details[KeySubscribers])
	assert.Equal(t, int64(15), details[KeyAuditedVideos])
	assert.Equal(t, int64(2), details[KeyBadWordsCount])
	assert.Equal(t, []TopItem{{ID: "c1", Title: "C1", ImageURL: "http://img/c1"}}, details[KeyTopThreeItems])

	stored, ok := store.Segment(domain.ItemTypeChannel, "Topic Channels")
	require.True(t, ok)
	assert.Equal(t, details, stored.Details)
}

func TestRefreshByIDMissing(t *testing.T) {
	r := NewRefresher(mocks.NewSegmentStore(), nil)

	err := r.RefreshByID(context.Background(), domain.ItemTypeVideo, 42)
	assert.ErrorIs(t, err, apperrors.ErrSegmentNotFound)
}

func TestRefreshAllAndCSV(t *testing.T) {
	store := mocks.NewSegmentStore()
	seedChannel(t, store, "A", domain.Membership{RelatedID: "c1", Details: domain.MembershipDetails{Views: 1}})
	seedChannel(t, store, "B")

	_, err := store.GetOrCreateSegment(context.Background(), domain.ItemTypeVideo, "V", domain.Whitelist)
	require.NoError(t, err)

	rows, err := NewRefresher(store, nil).RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "channel", "A", "blacklist", "1", "1", "0", "0", "0", "0", "0", "0"}, records[1])
	assert.Equal(t, []string{"3", "video", "V", "whitelist", "0", "0", "0", "0", "", "", "0", "0"}, records[3])
}
