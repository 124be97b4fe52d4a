package materialize

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/source"
)

// gates are the inclusion and exclusion keyword filters of a list audit.
// A nil counter is an open gate.
type gates struct {
	inclusion *source.HitCounter
	exclusion *source.HitCounter
}

func newGates(params domain.AuditParams) (*gates, error) {
	g := &gates{}

	if len(params.Inclusion) > 0 {
		counter, err := source.NewHitCounter(params.Inclusion, params.InclusionHitCount)
		if err != nil {
			return nil, fmt.Errorf("inclusion gate: %w", err)
		}

		g.inclusion = counter
	}

	if words := source.ExclusionWords(params.Exclusion, params.ExclusionCategory); len(words) > 0 {
		counter, err := source.NewHitCounter(words, params.ExclusionHitCount)
		if err != nil {
			return nil, fmt.Errorf("exclusion gate: %w", err)
		}

		g.exclusion = counter
	}

	return g, nil
}

// pass reports whether the text of docs meets the inclusion threshold and
// stays below the exclusion threshold.
func (g *gates) pass(docs []domain.Item) bool {
	if g.inclusion != nil && count(g.inclusion, docs) < g.inclusion.Threshold() {
		return false
	}

	if g.exclusion != nil && count(g.exclusion, docs) >= g.exclusion.Threshold() {
		return false
	}

	return true
}

func count(counter *source.HitCounter, docs []domain.Item) int {
	total := 0

	for _, doc := range docs {
		n, _ := counter.Hits(doc)
		total += n
	}

	return total
}

// applyGates keeps the items passing the keyword gates. Channel audits that
// scan videos count hits over the channel metadata and its first videos.
func (m *Materializer) applyGates(ctx context.Context, itemType domain.ItemType, params domain.AuditParams, g *gates, items []domain.Item) ([]domain.Item, error) {
	videos := make(map[string][]domain.Item)

	if itemType == domain.ItemTypeChannel && params.DoVideos && len(items) > 0 {
		limit := params.NumVideos
		if limit <= 0 {
			limit = domain.DefaultChannelAuditVideos
		}

		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}

		err := m.deps.Items.ItemsForChannels(ctx, ids, func(page []domain.Item) error {
			for _, v := range page {
				if len(videos[v.ChannelID]) < limit {
					videos[v.ChannelID] = append(videos[v.ChannelID], v)
				}
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("fetch audit videos: %w", err)
		}
	}

	kept := items[:0]

	for _, item := range items {
		docs := append([]domain.Item{item}, videos[item.ID]...)
		if g.pass(docs) {
			kept = append(kept, item)
		}
	}

	return kept, nil
}

func (m *Materializer) startAudit(ctx context.Context, id int64) (*domain.AuditProcessor, error) {
	audit, err := m.deps.Audits.GetAudit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get list audit: %w", err)
	}

	if err := auditState(audit); err != nil {
		return nil, err
	}

	now := time.Now()
	audit.Started = &now
	audit.Cursor = 0

	if err := m.deps.Audits.UpdateAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("start list audit: %w", err)
	}

	return &audit, nil
}

// checkAudit re-reads the operator flags of audit.
func (m *Materializer) checkAudit(ctx context.Context, audit *domain.AuditProcessor) error {
	current, err := m.deps.Audits.GetAudit(ctx, audit.ID)
	if err != nil {
		return fmt.Errorf("check list audit: %w", err)
	}

	if err := auditState(current); err != nil {
		return err
	}

	audit.Pause = current.Pause
	audit.TempStop = current.TempStop
	audit.Params.Stopped = current.Params.Stopped

	return nil
}

func auditState(audit domain.AuditProcessor) error {
	switch {
	case audit.Stopped():
		return fmt.Errorf("audit %d: %w", audit.ID, apperrors.ErrAuditStopped)
	case audit.Paused():
		return fmt.Errorf("audit %d: %w", audit.ID, apperrors.ErrAuditPaused)
	default:
		return nil
	}
}

func (m *Materializer) completeAudit(ctx context.Context, audit *domain.AuditProcessor, at time.Time) error {
	audit.Completed = &at
	audit.TempStop = false

	if err := m.deps.Audits.UpdateAudit(ctx, *audit); err != nil {
		return fmt.Errorf("complete list audit: %w", err)
	}

	return nil
}
