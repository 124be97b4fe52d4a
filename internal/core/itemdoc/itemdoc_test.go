package itemdoc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

func TestDecodeVideo(t *testing.T) {
	raw := json.RawMessage(`{
		"main": {"id": "dQw4w9WgXcQ"},
		"channel": {"id": "UC0123456789012345678901"},
		"general_data": {"title": "Song", "tags": "music, pop ,", "language": "en", "age_restricted": true},
		"stats": {"views": 10, "likes": 2, "last_video_published_at": "2024-05-01"},
		"brand_safety": {"overall_score": 87.6},
		"custom_properties": {"blocklist": true}
	}`)

	item, err := Decode(raw, domain.ItemTypeVideo)
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", item.ID)
	assert.Equal(t, "UC0123456789012345678901", item.ChannelID)
	assert.Equal(t, []string{"music", "pop"}, item.Tags)
	assert.True(t, item.AgeRestricted)
	assert.True(t, item.Blocklisted)
	assert.Equal(t, int64(10), item.Stats.Views)
	require.NotNil(t, item.BrandSafetyScore)
	assert.Equal(t, 87, *item.BrandSafetyScore)
	assert.True(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Equal(item.LastUploadDate))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	for _, in := range []string{"2024-05-01T10:30:00Z", "2024-05-01 10:30:00", "May 1, 2024 10:30:00"} {
		assert.True(t, want.Equal(parseDate(in)), in)
	}

	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("not a date").IsZero())
}

func TestDecodeChannel(t *testing.T) {
	item, err := Decode(json.RawMessage(`{"main": {"id": "c1"}, "general_data": {"tags": ["a", "b"]}}`), domain.ItemTypeChannel)
	require.NoError(t, err)

	assert.Equal(t, "c1", item.ChannelID)
	assert.Equal(t, []string{"a", "b"}, item.Tags)
	assert.Nil(t, item.BrandSafetyScore)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(json.RawMessage(`[`), domain.ItemTypeVideo)
	assert.Error(t, err)
}
