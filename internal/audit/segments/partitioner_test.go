package segments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
)

const (
	whitelistMaster = "Channels Brand Safety Master Whitelist"
	blacklistMaster = "Channels Brand Safety Master Blacklist"
	gamingWhite     = "Channels Gaming Whitelist"
	gamingBlack     = "Channels Gaming Blacklist"
)

func scored(id, category string, languageOK bool, words ...string) domain.ScoredItem {
	return domain.ScoredItem{
		Item: domain.Item{
			ID:       id,
			Type:     domain.ItemTypeChannel,
			Title:    "title " + id,
			Category: category,
			Language: "English",
			Stats:    domain.Stats{Views: 10, Subscribers: 5},
		},
		Result: domain.ScoreResult{
			ItemID:        id,
			FoundWords:    words,
			Overall:       100,
			LanguageOK:    languageOK,
			AuditedVideos: 3,
		},
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.Whitelist, Classify(domain.Item{}, domain.ScoreResult{LanguageOK: true}))
	assert.Equal(t, domain.Blacklist, Classify(domain.Item{}, domain.ScoreResult{LanguageOK: true, FoundWords: []string{"bad"}}))
	assert.Equal(t, domain.Blacklist, Classify(domain.Item{}, domain.ScoreResult{LanguageOK: false}))
}

func TestPartitioner_ClassifyPassScore(t *testing.T) {
	p := NewPartitioner(mocks.NewSegmentStore(), mocks.NewSegmentStore(), Options{PassScore: 70}, nil)

	assert.Equal(t, domain.Blacklist, p.Classify(domain.Item{}, domain.ScoreResult{LanguageOK: true, Overall: 69}))
	assert.Equal(t, domain.Whitelist, p.Classify(domain.Item{}, domain.ScoreResult{LanguageOK: true, Overall: 70}))
}

func TestPartitioner_Store(t *testing.T) {
	store := mocks.NewSegmentStore()
	p := NewPartitioner(store, store, Options{}, nil)

	report, err := p.Store(context.Background(), domain.ItemTypeChannel, []domain.ScoredItem{
		scored("c1", "Gaming", true),
		scored("c2", "Gaming", true, "bad", "bad"),
		scored("c3", "Music", false),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Items)
	assert.Equal(t, int64(6), report.Created)
	assert.Equal(t, 5, report.Segments)

	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, whitelistMaster))
	assert.Equal(t, []string{"c2", "c3"}, store.Members(domain.ItemTypeChannel, blacklistMaster))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, gamingWhite))
	assert.Equal(t, []string{"c2"}, store.Members(domain.ItemTypeChannel, gamingBlack))
	assert.Equal(t, []string{"c3"}, store.Members(domain.ItemTypeChannel, "Channels Music Blacklist"))

	master, ok := store.Segment(domain.ItemTypeChannel, whitelistMaster)
	require.True(t, ok)
	assert.True(t, master.IsMaster)
	assert.Equal(t, domain.Whitelist, master.Category)

	m, ok := store.Membership(domain.ItemTypeChannel, gamingBlack, "c2")
	require.True(t, ok)
	assert.Equal(t, []string{"bad", "bad"}, m.Details.BadWords)
	require.NotNil(t, m.Details.AuditedVideos)
	assert.Equal(t, 3, *m.Details.AuditedVideos)
	require.NotNil(t, m.Details.Subscribers)
	assert.Equal(t, int64(5), *m.Details.Subscribers)
	assert.Equal(t, "Gaming", m.Category)
}

func TestPartitioner_StoreIsIdempotent(t *testing.T) {
	store := mocks.NewSegmentStore()
	p := NewPartitioner(store, store, Options{}, nil)
	items := []domain.ScoredItem{
		scored("c1", "Gaming", true),
		scored("c2", "Gaming", true, "bad"),
	}

	_, err := p.Store(context.Background(), domain.ItemTypeChannel, items)
	require.NoError(t, err)

	before := store.MembershipCount(domain.ItemTypeChannel)

	report, err := p.Store(context.Background(), domain.ItemTypeChannel, items)
	require.NoError(t, err)

	assert.Zero(t, report.Created)
	assert.Zero(t, report.Removed)
	assert.Equal(t, before, store.MembershipCount(domain.ItemTypeChannel))
}

func TestPartitioner_ReclassificationKeepsMastersExclusive(t *testing.T) {
	store := mocks.NewSegmentStore()
	p := NewPartitioner(store, store, Options{}, nil)
	ctx := context.Background()

	_, err := p.Store(ctx, domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true)})
	require.NoError(t, err)

	report, err := p.Store(ctx, domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true, "bad")})
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Removed)
	assert.Empty(t, store.Members(domain.ItemTypeChannel, whitelistMaster))
	assert.Empty(t, store.Members(domain.ItemTypeChannel, gamingWhite))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, blacklistMaster))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, gamingBlack))
}

func TestPartitioner_CategoryChangeMovesCategorizedMembership(t *testing.T) {
	store := mocks.NewSegmentStore()
	p := NewPartitioner(store, store, Options{}, nil)
	ctx := context.Background()

	_, err := p.Store(ctx, domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true)})
	require.NoError(t, err)

	_, err = p.Store(ctx, domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Music", true)})
	require.NoError(t, err)

	assert.Empty(t, store.Members(domain.ItemTypeChannel, gamingWhite))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, "Channels Music Whitelist"))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, whitelistMaster))
}

func TestPartitioner_NoAuditSegmentsAreExempt(t *testing.T) {
	store := mocks.NewSegmentStore()
	store.AddMember(domain.ItemTypeChannel, "Channels Curated Whitelist", domain.Whitelist, "c1")
	store.AddMember(domain.ItemTypeChannel, whitelistMaster, domain.Whitelist, "c1")

	p := NewPartitioner(store, store, Options{NoAuditTitles: []string{"Channels Curated Whitelist", whitelistMaster}}, nil)

	_, err := p.Store(context.Background(), domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true, "bad")})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, "Channels Curated Whitelist"))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, whitelistMaster))
	assert.Equal(t, []string{"c1"}, store.Members(domain.ItemTypeChannel, blacklistMaster))
}

func TestPartitioner_IgnoredItemsAreNeverTouched(t *testing.T) {
	store := mocks.NewSegmentStore()
	store.AddMember(domain.ItemTypeChannel, whitelistMaster, domain.Whitelist, "cX")
	store.Ignore(domain.ItemTypeChannel, "cX")

	p := NewPartitioner(store, store, Options{}, nil)

	report, err := p.Store(context.Background(), domain.ItemTypeChannel, []domain.ScoredItem{
		scored("cX", "Gaming", true, "bad"),
		scored("c2", "Gaming", true, "bad"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ignored)
	assert.Equal(t, []string{"cX"}, store.Members(domain.ItemTypeChannel, whitelistMaster))
	assert.Equal(t, []string{"c2"}, store.Members(domain.ItemTypeChannel, blacklistMaster))
	assert.Equal(t, []string{"c2"}, store.Members(domain.ItemTypeChannel, gamingBlack))
}

func TestPartitioner_AllIgnored(t *testing.T) {
	store := mocks.NewSegmentStore()
	store.Ignore(domain.ItemTypeChannel, "c1")

	p := NewPartitioner(store, store, Options{}, nil)

	report, err := p.Store(context.Background(), domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true)})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ignored)
	assert.Zero(t, store.MembershipCount(domain.ItemTypeChannel))
}

func TestPartitioner_StoreError(t *testing.T) {
	store := mocks.NewSegmentStore()
	store.BulkCreateMembershipsFn = func(context.Context, domain.ItemType, []domain.Membership) (int64, error) {
		return 0, errors.New("insert failed")
	}

	p := NewPartitioner(store, store, Options{}, nil)

	_, err := p.Store(context.Background(), domain.ItemTypeChannel, []domain.ScoredItem{scored("c1", "Gaming", true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
}
