package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

type segmentKey struct {
	itemType domain.ItemType
	title    string
}

// SegmentStore is a thread-safe in-memory implementation of
// ports.SegmentRepository and ports.IgnoreRepository.
type SegmentStore struct {
	mu          sync.RWMutex
	nextID      int64
	segments    map[int64]domain.Segment
	byTitle     map[segmentKey]int64
	memberships map[int64]map[string]domain.Membership
	ignored     map[domain.ItemType]map[string]struct{}

	// BulkCreateMembershipsFn allows overriding BulkCreateMemberships behavior.
	BulkCreateMembershipsFn func(ctx context.Context, itemType domain.ItemType, rows []domain.Membership) (int64, error)

	// RemoveMembershipsFn allows overriding RemoveMemberships behavior.
	RemoveMembershipsFn func(ctx context.Context, itemType domain.ItemType, segmentIDs []int64, relatedIDs []string) (int64, error)
}

// NewSegmentStore creates an empty segment store.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{
		segments:    make(map[int64]domain.Segment),
		byTitle:     make(map[segmentKey]int64),
		memberships: make(map[int64]map[string]domain.Membership),
		ignored:     make(map[domain.ItemType]map[string]struct{}),
	}
}

// GetOrCreateSegment returns the segment titled title, creating it when absent.
func (s *SegmentStore) GetOrCreateSegment(_ context.Context, itemType domain.ItemType, title string, category domain.Classification) (domain.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := segmentKey{itemType: itemType, title: title}
	if id, ok := s.byTitle[key]; ok {
		return s.segments[id], nil
	}

	s.nextID++
	now := time.Now()
	seg := domain.Segment{
		ID:        s.nextID,
		Type:      itemType,
		Title:     title,
		Category:  category,
		IsMaster:  domain.IsMasterTitle(title),
		Details:   map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.segments[seg.ID] = seg
	s.byTitle[key] = seg.ID
	s.memberships[seg.ID] = make(map[string]domain.Membership)

	return seg, nil
}

// ListSegments returns every segment of itemType ordered by id.
func (s *SegmentStore) ListSegments(_ context.Context, itemType domain.ItemType) ([]domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Segment

	for _, seg := range s.segments {
		if seg.Type == itemType {
			out = append(out, seg)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// ExistingMemberIDs returns the subset of ids already in segmentID.
func (s *SegmentStore) ExistingMemberIDs(_ context.Context, _ domain.ItemType, segmentID int64, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.memberships[segmentID]
	if !ok {
		return nil, apperrors.ErrSegmentNotFound
	}

	var out []string

	for _, id := range ids {
		if _, ok := members[id]; ok {
			out = append(out, id)
		}
	}

	return out, nil
}

// BulkCreateMemberships inserts rows, skipping rows that already exist.
func (s *SegmentStore) BulkCreateMemberships(ctx context.Context, itemType domain.ItemType, rows []domain.Membership) (int64, error) {
	if s.BulkCreateMembershipsFn != nil {
		return s.BulkCreateMembershipsFn(ctx, itemType, rows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created int64

	for _, row := range rows {
		members, ok := s.memberships[row.SegmentID]
		if !ok {
			return created, apperrors.ErrSegmentNotFound
		}

		if _, exists := members[row.RelatedID]; exists {
			continue
		}

		row.UpdatedAt = time.Now()
		members[row.RelatedID] = row
		created++
	}

	return created, nil
}

// RemoveMemberships deletes relatedIDs from each of segmentIDs.
func (s *SegmentStore) RemoveMemberships(ctx context.Context, itemType domain.ItemType, segmentIDs []int64, relatedIDs []string) (int64, error) {
	if s.RemoveMembershipsFn != nil {
		return s.RemoveMembershipsFn(ctx, itemType, segmentIDs, relatedIDs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	for _, segID := range segmentIDs {
		members := s.memberships[segID]
		for _, id := range relatedIDs {
			if _, ok := members[id]; ok {
				delete(members, id)
				removed++
			}
		}
	}

	return removed, nil
}

// ListMemberships returns the memberships of segmentID ordered by related id.
func (s *SegmentStore) ListMemberships(_ context.Context, _ domain.ItemType, segmentID int64) ([]domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.memberships[segmentID]
	if !ok {
		return nil, apperrors.ErrSegmentNotFound
	}

	out := make([]domain.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelatedID < out[j].RelatedID })

	return out, nil
}

// DistinctChannelMembers pages through the distinct channel ids of all channel segments.
func (s *SegmentStore) DistinctChannelMembers(_ context.Context, offset, limit int) ([]domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	distinct := make(map[string]domain.Membership)

	for segID, members := range s.memberships {
		if s.segments[segID].Type != domain.ItemTypeChannel {
			continue
		}

		for id, m := range members {
			if _, ok := distinct[id]; !ok {
				distinct[id] = m
			}
		}
	}

	ids := make([]string, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}

	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]domain.Membership, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, distinct[id])
	}

	return out, nil
}

// UpdateSegmentDetails replaces the statistics details of segmentID.
func (s *SegmentStore) UpdateSegmentDetails(_ context.Context, _ domain.ItemType, segmentID int64, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return apperrors.ErrSegmentNotFound
	}

	seg.Details = details
	seg.UpdatedAt = time.Now()
	s.segments[segmentID] = seg

	return nil
}

// IgnoredIDs returns the subset of ids on the manual ignore list.
func (s *SegmentStore) IgnoredIDs(_ context.Context, itemType domain.ItemType, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string

	for _, id := range ids {
		if _, ok := s.ignored[itemType][id]; ok {
			out = append(out, id)
		}
	}

	return out, nil
}

// Helper methods for testing

// Ignore adds id to the manual ignore list of itemType.
func (s *SegmentStore) Ignore(itemType domain.ItemType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ignored[itemType] == nil {
		s.ignored[itemType] = make(map[string]struct{})
	}

	s.ignored[itemType][id] = struct{}{}
}

// Segment returns the segment titled title.
func (s *SegmentStore) Segment(itemType domain.ItemType, title string) (domain.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTitle[segmentKey{itemType: itemType, title: title}]
	if !ok {
		return domain.Segment{}, false
	}

	return s.segments[id], true
}

// Members returns the sorted related ids of the segment titled title.
func (s *SegmentStore) Members(itemType domain.ItemType, title string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTitle[segmentKey{itemType: itemType, title: title}]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(s.memberships[id]))
	for relatedID := range s.memberships[id] {
		out = append(out, relatedID)
	}

	sort.Strings(out)

	return out
}

// Membership returns one membership row.
func (s *SegmentStore) Membership(itemType domain.ItemType, title, relatedID string) (domain.Membership, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTitle[segmentKey{itemType: itemType, title: title}]
	if !ok {
		return domain.Membership{}, false
	}

	m, ok := s.memberships[id][relatedID]

	return m, ok
}

// AddMember inserts a membership row directly, creating the segment when needed.
func (s *SegmentStore) AddMember(itemType domain.ItemType, title string, category domain.Classification, relatedID string) {
	seg, _ := s.GetOrCreateSegment(context.Background(), itemType, title, category)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.memberships[seg.ID][relatedID] = domain.Membership{SegmentID: seg.ID, RelatedID: relatedID, UpdatedAt: time.Now()}
}

// MembershipCount returns the total number of membership rows for itemType.
func (s *SegmentStore) MembershipCount(itemType domain.ItemType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0

	for id, members := range s.memberships {
		if s.segments[id].Type == itemType {
			total += len(members)
		}
	}

	return total
}
