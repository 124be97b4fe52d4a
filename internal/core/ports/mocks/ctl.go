package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// CustomSegments is a thread-safe in-memory implementation of
// ports.CustomSegmentRepository and ports.AuditRepository.
type CustomSegments struct {
	mu       sync.Mutex
	nextID   int64
	nextAud  int64
	segments map[int64]domain.CustomSegment
	exports  map[int64]domain.CustomSegmentExport
	sources  map[int64]domain.SourceFile
	vetted   map[int64]domain.VettedExport
	audits   map[int64]domain.AuditProcessor

	// UpdateCustomSegmentFn allows overriding UpdateCustomSegment behavior.
	UpdateCustomSegmentFn func(ctx context.Context, segment domain.CustomSegment) error
}

// NewCustomSegments creates an empty repository.
func NewCustomSegments() *CustomSegments {
	return &CustomSegments{
		segments: make(map[int64]domain.CustomSegment),
		exports:  make(map[int64]domain.CustomSegmentExport),
		sources:  make(map[int64]domain.SourceFile),
		vetted:   make(map[int64]domain.VettedExport),
		audits:   make(map[int64]domain.AuditProcessor),
	}
}

// CreateCustomSegment assigns an id and stores segment.
func (c *CustomSegments) CreateCustomSegment(_ context.Context, segment *domain.CustomSegment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	now := time.Now()
	segment.ID = c.nextID
	segment.CreatedAt = now
	segment.UpdatedAt = now
	c.segments[segment.ID] = copySegment(*segment)

	return nil
}

// GetCustomSegment returns the segment with id.
func (c *CustomSegments) GetCustomSegment(_ context.Context, id int64) (domain.CustomSegment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seg, ok := c.segments[id]
	if !ok {
		return domain.CustomSegment{}, apperrors.ErrSegmentNotFound
	}

	return copySegment(seg), nil
}

// UpdateCustomSegment replaces the stored segment.
func (c *CustomSegments) UpdateCustomSegment(ctx context.Context, segment domain.CustomSegment) error {
	if c.UpdateCustomSegmentFn != nil {
		return c.UpdateCustomSegmentFn(ctx, segment)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.segments[segment.ID]; !ok {
		return apperrors.ErrSegmentNotFound
	}

	segment.UpdatedAt = time.Now()
	c.segments[segment.ID] = copySegment(segment)

	return nil
}

// DeleteCustomSegment removes the segment and its artifacts.
func (c *CustomSegments) DeleteCustomSegment(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.segments[id]; !ok {
		return apperrors.ErrSegmentNotFound
	}

	delete(c.segments, id)
	delete(c.exports, id)
	delete(c.sources, id)
	delete(c.vetted, id)

	return nil
}

// TitleHashExists reports whether another segment of the owner and type uses hash.
func (c *CustomSegments) TitleHashExists(_ context.Context, ownerID int64, itemType domain.ItemType, hash string, excludeID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, seg := range c.segments {
		if id != excludeID && seg.OwnerID == ownerID && seg.SegmentType == itemType && seg.TitleHash == hash {
			return true, nil
		}
	}

	return false, nil
}

// GetExport returns the export of segmentID.
func (c *CustomSegments) GetExport(_ context.Context, segmentID int64) (domain.CustomSegmentExport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	export, ok := c.exports[segmentID]
	if !ok {
		return domain.CustomSegmentExport{}, apperrors.ErrNotFound
	}

	export.Params = export.Params.Clone()

	return export, nil
}

// SaveExport upserts export.
func (c *CustomSegments) SaveExport(_ context.Context, export domain.CustomSegmentExport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	export.Params = export.Params.Clone()
	export.UpdatedAt = time.Now()
	c.exports[export.SegmentID] = export

	return nil
}

// DeleteExport removes the export of segmentID.
func (c *CustomSegments) DeleteExport(_ context.Context, segmentID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.exports, segmentID)

	return nil
}

// GetSourceFile returns the source list of segmentID.
func (c *CustomSegments) GetSourceFile(_ context.Context, segmentID int64) (domain.SourceFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source, ok := c.sources[segmentID]
	if !ok {
		return domain.SourceFile{}, apperrors.ErrNotFound
	}

	source.IDs = append([]string(nil), source.IDs...)

	return source, nil
}

// SaveSourceFile upserts source.
func (c *CustomSegments) SaveSourceFile(_ context.Context, source domain.SourceFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	source.IDs = append([]string(nil), source.IDs...)
	c.sources[source.SegmentID] = source

	return nil
}

// GetVettedExport returns the vetted export of segmentID.
func (c *CustomSegments) GetVettedExport(_ context.Context, segmentID int64) (domain.VettedExport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.vetted[segmentID]
	if !ok {
		return domain.VettedExport{}, apperrors.ErrNotFound
	}

	return v, nil
}

// DeleteVettedExport removes the vetted export of segmentID.
func (c *CustomSegments) DeleteVettedExport(_ context.Context, segmentID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.vetted, segmentID)

	return nil
}

// CreateAudit assigns an id and stores audit.
func (c *CustomSegments) CreateAudit(_ context.Context, audit *domain.AuditProcessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextAud++
	audit.ID = c.nextAud
	audit.CreatedAt = time.Now()
	c.audits[audit.ID] = *audit

	return nil
}

// GetAudit returns the audit with id.
func (c *CustomSegments) GetAudit(_ context.Context, id int64) (domain.AuditProcessor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.audits[id]
	if !ok {
		return domain.AuditProcessor{}, apperrors.ErrAuditNotFound
	}

	return a, nil
}

// UpdateAudit replaces the stored audit.
func (c *CustomSegments) UpdateAudit(_ context.Context, audit domain.AuditProcessor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.audits[audit.ID]; !ok {
		return apperrors.ErrAuditNotFound
	}

	c.audits[audit.ID] = audit

	return nil
}

// DeleteAudit removes the audit with id.
func (c *CustomSegments) DeleteAudit(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.audits, id)

	return nil
}

// Helper methods for testing

// SetVettedExport stores a vetted export directly.
func (c *CustomSegments) SetVettedExport(v domain.VettedExport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vetted[v.SegmentID] = v
}

// HasSegment reports whether a segment with id exists.
func (c *CustomSegments) HasSegment(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.segments[id]

	return ok
}

// Audits returns the number of stored audit processors.
func (c *CustomSegments) Audits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.audits)
}

func copySegment(s domain.CustomSegment) domain.CustomSegment {
	if s.Statistics != nil {
		stats := make(map[string]any, len(s.Statistics))
		for k, v := range s.Statistics {
			stats[k] = v
		}

		s.Statistics = stats
	}

	if s.AuditID != nil {
		id := *s.AuditID
		s.AuditID = &id
	}

	if s.MetaAuditID != nil {
		id := *s.MetaAuditID
		s.MetaAuditID = &id
	}

	return s
}
