// Package segments sorts scored items into persistent whitelist and blacklist
// segments and reconciles their membership.
//
// Every item lands in two segments: the categorized one ("Channels Gaming
// Whitelist") and the master one of its classification. Re-running a pass over an
// unchanged corpus inserts nothing and removes nothing.
package segments

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

const (
	logFieldItemType = "item_type"
	logFieldSegment  = "segment"
	logFieldCreated  = "created"
	logFieldRemoved  = "removed"
	logFieldIgnored  = "ignored"
)

// Options configures a Partitioner.
type Options struct {
	// NoAuditTitles names segments whose members are never removed by reclassification.
	NoAuditTitles []string
	// PassScore blacklists items scoring below it. Zero disables the check.
	PassScore int
}

// Classify applies the default rule: any found word or a language mismatch blacklists.
func Classify(_ domain.Item, result domain.ScoreResult) domain.Classification {
	if result.Disqualified() {
		return domain.Blacklist
	}

	return domain.Whitelist
}

// StoreReport summarizes one Store call.
type StoreReport struct {
	Items    int
	Ignored  int
	Created  int64
	Removed  int64
	Segments int
}

// Partitioner persists scored items into segments.
type Partitioner struct {
	segments ports.SegmentRepository
	ignores  ports.IgnoreRepository
	opts     Options
	noAudit  map[string]struct{}
	logger   *zerolog.Logger
}

// NewPartitioner creates a Partitioner.
func NewPartitioner(segments ports.SegmentRepository, ignores ports.IgnoreRepository, opts Options, logger *zerolog.Logger) *Partitioner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	noAudit := make(map[string]struct{}, len(opts.NoAuditTitles))
	for _, t := range opts.NoAuditTitles {
		noAudit[t] = struct{}{}
	}

	return &Partitioner{
		segments: segments,
		ignores:  ignores,
		opts:     opts,
		noAudit:  noAudit,
		logger:   logger,
	}
}

// Classify returns the bucket of a scored item.
func (p *Partitioner) Classify(item domain.Item, result domain.ScoreResult) domain.Classification {
	if c := Classify(item, result); c == domain.Blacklist {
		return c
	}

	if p.opts.PassScore > 0 && result.Overall < p.opts.PassScore {
		return domain.Blacklist
	}

	return domain.Whitelist
}

type group struct {
	segment domain.Segment
	items   []domain.ScoredItem
}

// Store classifies scored items of one type and reconciles segment membership.
// Manually ignored items are neither inserted nor removed anywhere.
func (p *Partitioner) Store(ctx context.Context, itemType domain.ItemType, scored []domain.ScoredItem) (StoreReport, error) {
	report := StoreReport{}

	kept, ignored, err := p.filterIgnored(ctx, itemType, scored)
	if err != nil {
		return report, err
	}

	report.Items = len(kept)
	report.Ignored = ignored
	observability.ItemsIgnored.WithLabelValues(string(itemType)).Add(float64(ignored))

	if len(kept) == 0 {
		return report, nil
	}

	groups, order, err := p.group(ctx, itemType, kept)
	if err != nil {
		return report, err
	}

	sib, err := p.loadSiblings(ctx, itemType)
	if err != nil {
		return report, err
	}

	for _, title := range order {
		g := groups[title]

		created, removed, err := p.reconcile(ctx, itemType, g, sib)
		if err != nil {
			return report, err
		}

		report.Created += created
		report.Removed += removed
	}

	report.Segments = len(order)

	observability.MembershipsInserted.WithLabelValues(string(itemType)).Add(float64(report.Created))
	observability.MembershipsRemoved.WithLabelValues(string(itemType)).Add(float64(report.Removed))

	p.logger.Info().
		Str(logFieldItemType, string(itemType)).
		Int64(logFieldCreated, report.Created).
		Int64(logFieldRemoved, report.Removed).
		Int(logFieldIgnored, report.Ignored).
		Msg("stored segment memberships")

	return report, nil
}

func (p *Partitioner) filterIgnored(ctx context.Context, itemType domain.ItemType, scored []domain.ScoredItem) ([]domain.ScoredItem, int, error) {
	if len(scored) == 0 {
		return nil, 0, nil
	}

	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.Item.ID
	}

	ignoredIDs, err := p.ignores.IgnoredIDs(ctx, itemType, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load ignored %s ids: %w", itemType, err)
	}

	if len(ignoredIDs) == 0 {
		return scored, 0, nil
	}

	ignored := toSet(ignoredIDs)
	kept := make([]domain.ScoredItem, 0, len(scored))

	for _, s := range scored {
		if _, ok := ignored[s.Item.ID]; !ok {
			kept = append(kept, s)
		}
	}

	return kept, len(scored) - len(kept), nil
}

func (p *Partitioner) group(ctx context.Context, itemType domain.ItemType, scored []domain.ScoredItem) (map[string]*group, []string, error) {
	groups := make(map[string]*group)

	var order []string

	for _, s := range scored {
		classification := p.Classify(s.Item, s.Result)
		observability.ItemsClassified.WithLabelValues(string(itemType), string(classification)).Inc()

		titles := []string{
			domain.CategorizedTitle(itemType, s.Item.Category, classification),
			domain.MasterTitle(itemType, classification),
		}

		for _, title := range titles {
			g, ok := groups[title]
			if !ok {
				seg, err := p.segments.GetOrCreateSegment(ctx, itemType, title, classification)
				if err != nil {
					return nil, nil, fmt.Errorf("get or create segment %q: %w", title, err)
				}

				g = &group{segment: seg}
				groups[title] = g
				order = append(order, title)
			}

			g.items = append(g.items, s)
		}
	}

	return groups, order, nil
}

type siblings struct {
	all    []domain.Segment
	exempt map[int64]struct{}
}

func (p *Partitioner) loadSiblings(ctx context.Context, itemType domain.ItemType) (siblings, error) {
	all, err := p.segments.ListSegments(ctx, itemType)
	if err != nil {
		return siblings{}, fmt.Errorf("list %s segments: %w", itemType, err)
	}

	exempt := make(map[int64]struct{})

	for _, seg := range all {
		if _, ok := p.noAudit[seg.Title]; ok {
			exempt[seg.ID] = struct{}{}
		}
	}

	return siblings{all: all, exempt: exempt}, nil
}

func (p *Partitioner) reconcile(ctx context.Context, itemType domain.ItemType, g *group, sib siblings) (int64, int64, error) {
	seg := g.segment

	ids := make([]string, len(g.items))
	for i, s := range g.items {
		ids[i] = s.Item.ID
	}

	existing, err := p.segments.ExistingMemberIDs(ctx, itemType, seg.ID, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("load members of %q: %w", seg.Title, err)
	}

	have := toSet(existing)
	rows := make([]domain.Membership, 0, len(g.items))
	newIDs := make([]string, 0, len(g.items))

	for _, s := range g.items {
		if _, ok := have[s.Item.ID]; ok {
			continue
		}

		have[s.Item.ID] = struct{}{}
		rows = append(rows, domain.NewMembership(seg.ID, s))
		newIDs = append(newIDs, s.Item.ID)
	}

	if len(rows) == 0 {
		return 0, 0, nil
	}

	created, err := p.segments.BulkCreateMemberships(ctx, itemType, rows)
	if err != nil {
		return 0, 0, fmt.Errorf("create members of %q: %w", seg.Title, err)
	}

	targets := removalTargets(seg, sib)
	if len(targets) == 0 {
		return created, 0, nil
	}

	removed, err := p.segments.RemoveMemberships(ctx, itemType, targets, newIDs)
	if err != nil {
		return created, 0, fmt.Errorf("remove reclassified members of %q: %w", seg.Title, err)
	}

	p.logger.Debug().
		Str(logFieldSegment, seg.Title).
		Int64(logFieldCreated, created).
		Int64(logFieldRemoved, removed).
		Msg("reconciled segment")

	return created, removed, nil
}

// removalTargets lists the segments new members of seg must leave. Master
// members leave the other masters; categorized members leave every other
// categorized segment. Exempt segments are never targeted.
func removalTargets(seg domain.Segment, sib siblings) []int64 {
	var targets []int64

	for _, other := range sib.all {
		if _, skip := sib.exempt[other.ID]; skip || other.ID == seg.ID || other.IsMaster != seg.IsMaster {
			continue
		}

		targets = append(targets, other.ID)
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	return targets
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}
