// Package fetcher pulls channel and video pages from a backing item store.
//
// Pagination is driven by a monotonic id cursor: every page holds items with ids
// strictly greater than the cursor, in ascending id order. The store itself is
// hidden behind ports.PageSource.
package fetcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
)

const (
	defaultPageSize     = 10000
	defaultChannelChunk = 40

	logFieldCursor   = "cursor"
	logFieldItemType = "item_type"
	logFieldItemID   = "item_id"
)

// Options configures a Fetcher.
type Options struct {
	// PageSize is the number of videos requested per page when expanding channels.
	PageSize int
	// ChannelChunk bounds the number of channel ids per video query.
	ChannelChunk int
	// Fields restricts the returned document fields. Empty returns every field.
	Fields []string
}

// Fetcher is a store-agnostic batch reader.
type Fetcher struct {
	source ports.PageSource
	opts   Options
	logger *zerolog.Logger
}

// New creates a Fetcher over source.
func New(source ports.PageSource, opts Options, logger *zerolog.Logger) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	if opts.ChannelChunk <= 0 {
		opts.ChannelChunk = defaultChannelChunk
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Fetcher{source: source, opts: opts, logger: logger}
}

// NextItemsBatch returns up to limit items with ids greater than lastID.
// An empty page is retried exactly once from the same cursor; a second empty
// page means the source is exhausted and an empty batch is returned.
func (f *Fetcher) NextItemsBatch(ctx context.Context, itemType domain.ItemType, lastID string, limit int, filters ...domain.Filter) ([]domain.Item, error) {
	req := ports.PageRequest{Cursor: lastID, Limit: limit, Filters: filters, Fields: f.opts.Fields}

	page, err := f.source.FetchPage(ctx, itemType, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s batch: %w", itemType, err)
	}

	if len(page.Items) == 0 {
		f.logger.Debug().Str(logFieldItemType, string(itemType)).Str(logFieldCursor, lastID).Msg("empty page, retrying once")

		page, err = f.source.FetchPage(ctx, itemType, req)
		if err != nil {
			return nil, fmt.Errorf("retry %s batch: %w", itemType, err)
		}
	}

	return f.normalizeAll(page.Items), nil
}

// ItemsForChannels streams every video of channelIDs to fn, one page at a time.
// Channel ids are queried in chunks so no single query exceeds the store's result window.
func (f *Fetcher) ItemsForChannels(ctx context.Context, channelIDs []string, fn func(videos []domain.Item) error) error {
	for start := 0; start < len(channelIDs); start += f.opts.ChannelChunk {
		end := min(start+f.opts.ChannelChunk, len(channelIDs))
		chunk := channelIDs[start:end]

		err := f.Each(ctx, domain.ItemTypeVideo, []domain.Filter{domain.Terms(domain.FieldChannelID, chunk...)}, fn)
		if err != nil {
			return fmt.Errorf("fetch videos for channels: %w", err)
		}
	}

	return nil
}

// VideosForChannels collects every video of channelIDs.
func (f *Fetcher) VideosForChannels(ctx context.Context, channelIDs []string) ([]domain.Item, error) {
	var out []domain.Item

	err := f.ItemsForChannels(ctx, channelIDs, func(videos []domain.Item) error {
		out = append(out, videos...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Each pages through every item matching filters and passes each page to fn.
// Returning an error from fn stops the iteration with that error.
func (f *Fetcher) Each(ctx context.Context, itemType domain.ItemType, filters []domain.Filter, fn func(items []domain.Item) error) error {
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fetch %s pages: %w", itemType, err)
		}

		page, err := f.source.FetchPage(ctx, itemType, ports.PageRequest{
			Cursor:  cursor,
			Limit:   f.opts.PageSize,
			Filters: filters,
			Fields:  f.opts.Fields,
		})
		if err != nil {
			return fmt.Errorf("fetch %s page after %q: %w", itemType, cursor, err)
		}

		if len(page.Items) == 0 {
			return nil
		}

		if err := fn(f.normalizeAll(page.Items)); err != nil {
			return err
		}

		if page.NextCursor == "" || page.NextCursor == cursor {
			return nil
		}

		cursor = page.NextCursor
	}
}

func (f *Fetcher) normalizeAll(items []domain.Item) []domain.Item {
	for i := range items {
		item := &items[i]

		switch lookup := domain.LookupCategory(item.Category, item.TopCategory); lookup.Kind {
		case domain.LookupFound:
			item.Category = lookup.Value
		case domain.LookupInvalid:
			f.logger.Debug().Str(logFieldItemID, item.ID).Str("reason", lookup.Reason).Msg("replacing invalid category")

			item.Category = ""
		case domain.LookupNotFound:
			item.Category = ""
		}

		item.Normalize()
		item.Language = NormalizeLanguage(item.Language)
	}

	return items
}
