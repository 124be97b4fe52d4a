package materialize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/audit/stats"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/query"
)

var errLimitReached = errors.New("export limit reached")

// Materialize renders the saved query of a list into its CSV export. When the
// task carries an audit the keyword gates of the list audit are applied and
// the audit stop and pause flags are checked between pages.
func (m *Materializer) Materialize(ctx context.Context, task domain.Task) error {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, task.SegmentID)
	if err != nil {
		return fmt.Errorf("get custom segment: %w", err)
	}

	export, err := m.deps.Segments.GetExport(ctx, seg.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("load query: %w", apperrors.ErrExportMissing)
		}

		return fmt.Errorf("load query: %w", err)
	}

	filters, err := query.Build(seg.SegmentType, export.Params)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	src, err := m.sourceList(ctx, seg.ID)
	if err != nil {
		return err
	}

	var (
		audit *domain.AuditProcessor
		gate  *gates
	)

	if task.WithAudit && seg.MetaAuditID != nil {
		audit, err = m.startAudit(ctx, *seg.MetaAuditID)
		if err != nil {
			return err
		}

		gate, err = newGates(audit.Params)
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer

	out := newExportWriter(&buf, seg.SegmentType)
	acc := stats.NewAccumulator(seg.SegmentType)

	visit := func(items []domain.Item) error {
		if audit != nil {
			if err := m.checkAudit(ctx, audit); err != nil {
				return err
			}
		}

		items = src.filter(items)

		if gate != nil {
			var gateErr error

			items, gateErr = m.applyGates(ctx, seg.SegmentType, audit.Params, gate, items)
			if gateErr != nil {
				return gateErr
			}
		}

		for _, item := range items {
			score := m.score(item)

			if err := out.write(item, score); err != nil {
				return err
			}

			acc.Add(item, score, 0)

			if acc.Count() >= m.opts.MaxItems {
				return errLimitReached
			}
		}

		return nil
	}

	err = m.scan(ctx, seg.SegmentType, filters, src, visit)
	if err != nil && !errors.Is(err, errLimitReached) {
		return err
	}

	if err := out.flush(); err != nil {
		return err
	}

	key := seg.ExportKey()
	if err := m.deps.Objects.Put(ctx, key, &buf, csvContentType); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	now := time.Now()
	export.Filename = key
	export.CompletedAt = &now

	if err := m.deps.Segments.SaveExport(ctx, export); err != nil {
		return fmt.Errorf("save export: %w", err)
	}

	if audit != nil {
		if err := m.completeAudit(ctx, audit, now); err != nil {
			return err
		}
	}

	// Reload so flags written while the export ran are kept.
	seg, err = m.deps.Segments.GetCustomSegment(ctx, task.SegmentID)
	if err != nil {
		return fmt.Errorf("reload custom segment: %w", err)
	}

	seg.Statistics = acc.Statistics()
	seg.IsRegenerating = false

	if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
		return fmt.Errorf("update custom segment: %w", err)
	}

	m.logger.Info().Int64(logFieldSegment, seg.ID).Int(logFieldItems, acc.Count()).Msg("export materialized")

	return nil
}

// scan pages through the query. An inclusion source list restricts the query
// to its ids, queried in chunks.
func (m *Materializer) scan(ctx context.Context, itemType domain.ItemType, filters []domain.Filter, src *sourceList, fn func([]domain.Item) error) error {
	if !src.inclusion() {
		if err := m.deps.Items.Each(ctx, itemType, filters, fn); err != nil {
			return fmt.Errorf("scan items: %w", err)
		}

		return nil
	}

	for start := 0; start < len(src.ids); start += m.opts.IDChunk {
		end := min(start+m.opts.IDChunk, len(src.ids))

		chunk := make([]domain.Filter, 0, len(filters)+1)
		chunk = append(chunk, filters...)
		chunk = append(chunk, domain.Terms(domain.FieldID, src.ids[start:end]...))

		if err := m.deps.Items.Each(ctx, itemType, chunk, fn); err != nil {
			return fmt.Errorf("scan source items: %w", err)
		}
	}

	return nil
}

func (m *Materializer) score(item domain.Item) *int {
	if item.BrandSafetyScore != nil {
		score := *item.BrandSafetyScore
		return &score
	}

	if m.deps.Scorer == nil {
		return nil
	}

	score := m.deps.Scorer.Score(item).Overall

	return &score
}

// sourceList is the user-supplied id list of a custom target list.
type sourceList struct {
	kind domain.SourceType
	ids  []string
	set  map[string]struct{}
}

func (m *Materializer) sourceList(ctx context.Context, segmentID int64) (*sourceList, error) {
	file, err := m.deps.Segments.GetSourceFile(ctx, segmentID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("get source file: %w", err)
	}

	if len(file.IDs) == 0 {
		return nil, nil
	}

	set := make(map[string]struct{}, len(file.IDs))
	for _, id := range file.IDs {
		set[id] = struct{}{}
	}

	return &sourceList{kind: file.SourceType, ids: file.IDs, set: set}, nil
}

func (s *sourceList) inclusion() bool {
	return s != nil && s.kind == domain.SourceInclusion
}

// filter drops the items named by an exclusion list.
func (s *sourceList) filter(items []domain.Item) []domain.Item {
	if s == nil || s.kind != domain.SourceExclusion {
		return items
	}

	kept := items[:0]

	for _, item := range items {
		if _, excluded := s.set[item.ID]; !excluded {
			kept = append(kept, item)
		}
	}

	return kept
}
