package source

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

const (
	videoID   = "dQw4w9WgXcQ"
	channelID = "UCuAXFkgsw1L7xaCfnd5JJOw"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		itemType domain.ItemType
		want     string
		ok       bool
	}{
		{name: "bare video id", value: videoID, itemType: domain.ItemTypeVideo, want: videoID, ok: true},
		{name: "watch url", value: "https://www.youtube.com/watch?v=" + videoID, itemType: domain.ItemTypeVideo, want: videoID, ok: true},
		{name: "short url", value: "https://youtu.be/" + videoID, itemType: domain.ItemTypeVideo, want: videoID, ok: true},
		{name: "channel url", value: "https://www.youtube.com/channel/" + channelID + "/", itemType: domain.ItemTypeChannel, want: channelID, ok: true},
		{name: "channel id as video", value: channelID, itemType: domain.ItemTypeVideo},
		{name: "video url as channel", value: "https://youtu.be/" + videoID, itemType: domain.ItemTypeChannel},
		{name: "user url", value: "https://www.youtube.com/user/somebody", itemType: domain.ItemTypeChannel},
		{name: "blank", value: "  ", itemType: domain.ItemTypeVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseID(tt.value, tt.itemType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractIDs(t *testing.T) {
	input := strings.Join([]string{
		"https://www.youtube.com/channel/" + channelID,
		"",
		"not a url,extra",
		"https://www.youtube.com/channel/UCaaaaaaaaaaaaaaaaaaaaaa",
		channelID,
	}, "\n")

	list, err := ExtractIDs(strings.NewReader(input), domain.ItemTypeChannel, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{channelID, "UCaaaaaaaaaaaaaaaaaaaaaa"}, list.IDs)
	assert.Equal(t, 1, list.Dropped)
	assert.False(t, list.Truncated)
}

func TestExtractIDsCap(t *testing.T) {
	input := "aaaaaaaaaaa\nbbbbbbbbbbb\nccccccccccc\n"

	list, err := ExtractIDs(strings.NewReader(input), domain.ItemTypeVideo, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}, list.IDs)
	assert.True(t, list.Truncated)
}

func TestExtractIDsEmpty(t *testing.T) {
	_, err := ExtractIDs(strings.NewReader("https://youtu.be/"+videoID+"\n\n"), domain.ItemTypeChannel, 0)

	require.ErrorIs(t, err, apperrors.ErrEmptySourceList)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source_file", verr.Field)
}

func TestSameIDs(t *testing.T) {
	assert.True(t, SameIDs([]string{"abc", "DEF"}, []string{"def", "ABC", "abc"}))
	assert.False(t, SameIDs([]string{"abc"}, []string{"abc", "def"}))
	assert.True(t, SameIDs(nil, []string{}))
}

func TestWriteIDsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIDs(&buf, []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}))

	list, err := ExtractIDs(&buf, domain.ItemTypeVideo, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}, list.IDs)
}

func TestReadKeywords(t *testing.T) {
	got, err := ReadKeywords(strings.NewReader("Guns\n\n guns \nammo,ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Guns", "ammo"}, got)

	_, err = ReadKeywords(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, apperrors.ErrEmptyKeywordList)
}

func TestReadExclusionKeywords(t *testing.T) {
	rows, categories, err := ReadExclusionKeywords(strings.NewReader("bomb,Terrorism\nheck,Profanity\nbomb,Terrorism\nplain\n,Orphan\n"))
	require.NoError(t, err)

	assert.Equal(t, []domain.ExclusionRow{{"bomb", "Terrorism"}, {"heck", "Profanity"}, {"plain"}}, rows)
	assert.Equal(t, []string{"Terrorism", "Profanity"}, categories)

	_, _, err = ReadExclusionKeywords(strings.NewReader(""))
	assert.ErrorIs(t, err, apperrors.ErrEmptyKeywordList)
}

func TestSameExclusionRows(t *testing.T) {
	a := []domain.ExclusionRow{{"bomb", "Terrorism"}, {"heck"}}
	b := []domain.ExclusionRow{{"heck"}, {"bomb", "Terrorism"}}
	c := []domain.ExclusionRow{{"bomb", "Violence"}, {"heck"}}

	assert.True(t, SameExclusionRows(a, b))
	assert.False(t, SameExclusionRows(a, c))
}

func TestHitCounter(t *testing.T) {
	h, err := NewHitCounter([]string{"gun", "ammo"}, 2)
	require.NoError(t, err)

	item := domain.Item{Title: "Gun review", Description: "ammo and more ammo", Tags: []string{"shotgun"}}

	n, ok := h.Hits(item)
	assert.Equal(t, 3, n)
	assert.True(t, ok)

	n, ok = h.Hits(domain.Item{Title: "gun"})
	assert.Equal(t, 1, n)
	assert.False(t, ok)

	zero, err := NewHitCounter([]string{"gun"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, zero.Threshold())

	var none *HitCounter
	n, ok = none.Hits(item)
	assert.Zero(t, n)
	assert.False(t, ok)
}

func TestExclusionWords(t *testing.T) {
	rows := []domain.ExclusionRow{{"bomb", "Terrorism"}, {"heck", "Profanity"}, {"plain"}}

	assert.Equal(t, []string{"bomb", "heck", "plain"}, ExclusionWords(rows, nil))
	assert.Equal(t, []string{"bomb"}, ExclusionWords(rows, []string{"Terrorism"}))
}
