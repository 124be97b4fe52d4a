package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
)

func channel(id, language string) domain.Item {
	return domain.Item{ID: id, Type: domain.ItemTypeChannel, Title: "channel " + id, Language: language}
}

func video(id, channelID string) domain.Item {
	return domain.Item{ID: id, Type: domain.ItemTypeVideo, ChannelID: channelID, Title: "video " + id, Language: "en"}
}

func TestFetcher_NextItemsBatch_Cursor(t *testing.T) {
	source := mocks.NewPageSource(channel("a", "English"), channel("b", "English"), channel("c", "English"))
	f := New(source, Options{}, nil)

	items, err := f.NextItemsBatch(context.Background(), domain.ItemTypeChannel, "a", 10)
	require.NoError(t, err)

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestFetcher_NextItemsBatch_RetriesEmptyPageOnce(t *testing.T) {
	source := mocks.NewPageSource(channel("a", "English"))
	source.EmptyResponses = 1

	f := New(source, Options{}, nil)

	items, err := f.NextItemsBatch(context.Background(), domain.ItemTypeChannel, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	calls := source.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Cursor, calls[1].Cursor)
}

func TestFetcher_NextItemsBatch_ExhaustedAfterSecondEmptyPage(t *testing.T) {
	source := mocks.NewPageSource(channel("a", "English"))
	source.EmptyResponses = 5

	f := New(source, Options{}, nil)

	items, err := f.NextItemsBatch(context.Background(), domain.ItemTypeChannel, "", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, source.Calls(), 2)
}

func TestFetcher_NextItemsBatch_Error(t *testing.T) {
	source := mocks.NewPageSource()
	source.FetchPageFn = func(context.Context, domain.ItemType, ports.PageRequest) (ports.Page, error) {
		return ports.Page{}, errors.New("boom")
	}

	_, err := New(source, Options{}, nil).NextItemsBatch(context.Background(), domain.ItemTypeChannel, "", 10)
	assert.Error(t, err)
}

func TestFetcher_Normalizes(t *testing.T) {
	source := mocks.NewPageSource(
		domain.Item{ID: "a", Type: domain.ItemTypeChannel},
		domain.Item{ID: "b", Type: domain.ItemTypeChannel, Category: "Music", Language: "es"},
	)

	items, err := New(source, Options{}, nil).NextItemsBatch(context.Background(), domain.ItemTypeChannel, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, domain.UnclassifiedCategory, items[0].Category)
	assert.Equal(t, domain.UnknownLanguage, items[0].Language)
	assert.Equal(t, "Music", items[1].Category)
	assert.Equal(t, "Spanish", items[1].Language)
}

func TestFetcher_CategoryLookup(t *testing.T) {
	source := mocks.NewPageSource(
		domain.Item{ID: "a", Type: domain.ItemTypeVideo, TopCategory: "Gaming"},
		domain.Item{ID: "b", Type: domain.ItemTypeVideo, Category: "Music", TopCategory: "Gaming"},
		domain.Item{ID: "c", Type: domain.ItemTypeVideo, Category: "24"},
		domain.Item{ID: "d", Type: domain.ItemTypeVideo},
	)

	items, err := New(source, Options{}, nil).NextItemsBatch(context.Background(), domain.ItemTypeVideo, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Gaming", items[0].Category)
	assert.Equal(t, "Music", items[1].Category)
	assert.Equal(t, domain.UnknownCategory, items[2].Category)
	assert.Equal(t, domain.UnknownCategory, items[3].Category)
}

func TestFetcher_ItemsForChannels_PagesAndChunks(t *testing.T) {
	source := mocks.NewPageSource()

	var channelIDs []string

	for c := 0; c < 5; c++ {
		channelID := fmt.Sprintf("ch%d", c)
		channelIDs = append(channelIDs, channelID)

		for v := 0; v < 3; v++ {
			source.Add(video(fmt.Sprintf("%s-v%d", channelID, v), channelID))
		}
	}

	source.Add(video("other-v0", "other"))

	f := New(source, Options{PageSize: 2, ChannelChunk: 2}, nil)

	videos, err := f.VideosForChannels(context.Background(), channelIDs)
	require.NoError(t, err)
	assert.Len(t, videos, 15)

	for _, v := range videos {
		assert.NotEqual(t, "other", v.ChannelID)
	}
}

func TestFetcher_EachStopsOnCallbackError(t *testing.T) {
	source := mocks.NewPageSource(video("v1", "c"), video("v2", "c"), video("v3", "c"))
	f := New(source, Options{PageSize: 1}, nil)
	stop := errors.New("stop")

	pages := 0
	err := f.Each(context.Background(), domain.ItemTypeVideo, nil, func([]domain.Item) error {
		pages++
		if pages == 2 {
			return stop
		}

		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, pages)
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: domain.UnknownLanguage},
		{in: "en", want: "English"},
		{in: "es-MX", want: "Spanish"},
		{in: "de_DE", want: "German"},
		{in: "English", want: "English"},
		{in: "Unknown", want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLanguage(tt.in))
		})
	}
}
