package materialize

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/query"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/source"
)

const defaultExclusionLevel = 4

// VideoExclusion builds the video exclusion export of a channel list: the
// videos of its exported channels scoring below the requested threshold.
// Blocklisted videos come first, then the lowest scores, up to the row cap.
func (m *Materializer) VideoExclusion(ctx context.Context, segmentID int64) error {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("get custom segment: %w", err)
	}

	if seg.SegmentType != domain.ItemTypeChannel {
		return fmt.Errorf("video exclusion of %s list: %w", seg.SegmentType, apperrors.ErrInvalidItemType)
	}

	export, err := m.deps.Segments.GetExport(ctx, seg.ID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("load export: %w", err)
	}

	if export.Filename == "" {
		return fmt.Errorf("video exclusion: %w", apperrors.ErrExportMissing)
	}

	channelIDs, err := m.exportedIDs(ctx, export.Filename)
	if err != nil {
		return err
	}

	threshold := exclusionThreshold(export.Params)
	filters := []domain.Filter{domain.Between(domain.FieldScore, domain.Range{LT: threshold})}

	limit := m.opts.VideoExclusionLimit

	var blocklisted, videos []domain.Item

	for start := 0; start < len(channelIDs) && len(blocklisted) < limit; start += defaultChannelChunk {
		end := min(start+defaultChannelChunk, len(channelIDs))

		chunk := append([]domain.Filter{domain.Terms(domain.FieldChannelID, channelIDs[start:end]...)}, filters...)

		err := m.deps.Items.Each(ctx, domain.ItemTypeVideo, chunk, func(page []domain.Item) error {
			for _, v := range page {
				if v.Blocklisted {
					blocklisted = append(blocklisted, v)
				} else {
					videos = append(videos, v)
				}
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("fetch channel videos: %w", err)
		}

		sortByScore(videos)

		if len(videos) > limit {
			videos = videos[:limit]
		}
	}

	results := append(blocklisted, videos...)
	if len(results) > limit {
		results = results[:limit]
	}

	body, err := writeExclusion(results)
	if err != nil {
		return err
	}

	key := seg.VideoExclusionKey()
	if err := m.deps.Objects.Put(ctx, key, bytes.NewReader(body), csvContentType); err != nil {
		return fmt.Errorf("upload video exclusion: %w", err)
	}

	seg, err = m.deps.Segments.GetCustomSegment(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("reload custom segment: %w", err)
	}

	if seg.Statistics == nil {
		seg.Statistics = map[string]any{}
	}

	seg.Statistics[KeyVideoExclusionFilename] = key

	if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
		return fmt.Errorf("update custom segment: %w", err)
	}

	m.logger.Info().Int64(logFieldSegment, seg.ID).Int(logFieldItems, len(results)).Msg("video exclusion materialized")

	return nil
}

func (m *Materializer) exportedIDs(ctx context.Context, key string) ([]string, error) {
	body, err := m.deps.Objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download export: %w", err)
	}
	defer body.Close()

	list, err := source.ExtractIDs(body, domain.ItemTypeChannel, 0)
	if err != nil {
		return nil, fmt.Errorf("read exported channels: %w", err)
	}

	return list.IDs, nil
}

// exclusionThreshold maps the requested severity level onto a score. The
// list score threshold is used when no level was requested.
func exclusionThreshold(params domain.QueryParams) int {
	for _, key := range []string{query.ParamVideoExclusionScoreThreshold, query.ParamScoreThreshold} {
		if level, ok := params.Int(key); ok {
			if score, known := query.ScoreThreshold(level); known {
				return score
			}
		}
	}

	score, _ := query.ScoreThreshold(defaultExclusionLevel)

	return score
}

func sortByScore(videos []domain.Item) {
	sort.SliceStable(videos, func(i, j int) bool {
		return scoreOf(videos[i]) < scoreOf(videos[j])
	})
}

func scoreOf(item domain.Item) int {
	if item.BrandSafetyScore == nil {
		return domain.MaxScore
	}

	return *item.BrandSafetyScore
}

func writeExclusion(videos []domain.Item) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"URL", "Title"}); err != nil {
		return nil, fmt.Errorf("write video exclusion header: %w", err)
	}

	for _, v := range videos {
		if err := w.Write([]string{v.URL(), v.Title}); err != nil {
			return nil, fmt.Errorf("write video exclusion row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush video exclusion: %w", err)
	}

	return buf.Bytes(), nil
}
