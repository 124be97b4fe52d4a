package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
)

// SegmentStatistics is the refreshed aggregate of one persistent segment.
type SegmentStatistics struct {
	Segment    domain.Segment
	Statistics map[string]any
}

// Refresher recomputes and persists persistent segment details.
type Refresher struct {
	segments ports.SegmentRepository
	logger   *zerolog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(segments ports.SegmentRepository, logger *zerolog.Logger) *Refresher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Refresher{segments: segments, logger: logger}
}

// RefreshSegment recomputes and stores the details of seg.
func (r *Refresher) RefreshSegment(ctx context.Context, seg domain.Segment) (map[string]any, error) {
	members, err := r.segments.ListMemberships(ctx, seg.Type, seg.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of %q: %w", seg.Title, err)
	}

	acc := NewAccumulator(seg.Type)
	for _, m := range members {
		acc.AddMembership(m)
	}

	details := acc.Statistics()

	if err := r.segments.UpdateSegmentDetails(ctx, seg.Type, seg.ID, details); err != nil {
		return nil, fmt.Errorf("update details of %q: %w", seg.Title, err)
	}

	return details, nil
}

// RefreshByID refreshes the segment of itemType with id.
func (r *Refresher) RefreshByID(ctx context.Context, itemType domain.ItemType, id int64) error {
	all, err := r.segments.ListSegments(ctx, itemType)
	if err != nil {
		return fmt.Errorf("list %s segments: %w", itemType, err)
	}

	for _, seg := range all {
		if seg.ID == id {
			_, err := r.RefreshSegment(ctx, seg)

			return err
		}
	}

	return fmt.Errorf("refresh %s segment %d: %w", itemType, id, apperrors.ErrSegmentNotFound)
}

// RefreshAll refreshes every channel and video segment.
func (r *Refresher) RefreshAll(ctx context.Context) ([]SegmentStatistics, error) {
	var out []SegmentStatistics

	for _, itemType := range []domain.ItemType{domain.ItemTypeChannel, domain.ItemTypeVideo} {
		all, err := r.segments.ListSegments(ctx, itemType)
		if err != nil {
			return out, fmt.Errorf("list %s segments: %w", itemType, err)
		}

		for _, seg := range all {
			details, err := r.RefreshSegment(ctx, seg)
			if err != nil {
				return out, err
			}

			out = append(out, SegmentStatistics{Segment: seg, Statistics: details})
		}
	}

	r.logger.Info().Int("segments", len(out)).Msg("refreshed segment statistics")

	return out, nil
}

var csvHeader = []string{
	"id", "type", "title", "category", KeyItemsCount, KeyViews, KeyLikes, KeyDislikes,
	KeySubscribers, KeyAuditedVideos, KeyBadWordsCount, KeyAverageScore,
}

// WriteCSV writes one row per segment.
func WriteCSV(w io.Writer, rows []SegmentStatistics) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.Segment.ID, 10),
			string(row.Segment.Type),
			row.Segment.Title,
			string(row.Segment.Category),
		}

		for _, key := range csvHeader[4:] {
			record = append(record, format(row.Statistics[key]))
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}

func format(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(n)
	}
}
