package db

import (
	"context"
	"fmt"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

const customSegmentColumns = `id, uuid, owner_id, title, title_hash, segment_type, list_type,
	audit_id, meta_audit_id, is_vetting_complete, is_featured, is_regenerating,
	with_video_exclusion, statistics, created_at, updated_at`

// CreateCustomSegment inserts segment and sets its id and timestamps.
func (db *DB) CreateCustomSegment(ctx context.Context, s *domain.CustomSegment) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO custom_segments (uuid, owner_id, title, title_hash, segment_type, list_type,
			audit_id, meta_audit_id, is_vetting_complete, is_featured, is_regenerating,
			with_video_exclusion, statistics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, s.UUID, s.OwnerID, SanitizeUTF8(s.Title), s.TitleHash, string(s.SegmentType), string(s.ListType),
		s.AuditID, s.MetaAuditID, s.IsVettingComplete, s.IsFeatured, s.IsRegenerating,
		s.WithVideoExclusion, nonNilMap(s.Statistics)).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	return mapError("create custom segment", err, apperrors.ErrSegmentNotFound)
}

// GetCustomSegment returns the custom segment with id.
func (db *DB) GetCustomSegment(ctx context.Context, id int64) (domain.CustomSegment, error) {
	var (
		s        domain.CustomSegment
		itemType string
		listType string
	)

	err := db.Pool.QueryRow(ctx, `SELECT `+customSegmentColumns+` FROM custom_segments WHERE id = $1`, id).Scan(
		&s.ID, &s.UUID, &s.OwnerID, &s.Title, &s.TitleHash, &itemType, &listType,
		&s.AuditID, &s.MetaAuditID, &s.IsVettingComplete, &s.IsFeatured, &s.IsRegenerating,
		&s.WithVideoExclusion, &s.Statistics, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.CustomSegment{}, mapError(fmt.Sprintf("get custom segment %d", id), err, apperrors.ErrSegmentNotFound)
	}

	s.SegmentType = domain.ItemType(itemType)
	s.ListType = domain.Classification(listType)

	return s, nil
}

// UpdateCustomSegment stores every mutable column of segment.
func (db *DB) UpdateCustomSegment(ctx context.Context, s domain.CustomSegment) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE custom_segments
		SET title = $2,
			title_hash = $3,
			list_type = $4,
			audit_id = $5,
			meta_audit_id = $6,
			is_vetting_complete = $7,
			is_featured = $8,
			is_regenerating = $9,
			with_video_exclusion = $10,
			statistics = $11,
			updated_at = NOW()
		WHERE id = $1
	`, s.ID, SanitizeUTF8(s.Title), s.TitleHash, string(s.ListType), s.AuditID, s.MetaAuditID,
		s.IsVettingComplete, s.IsFeatured, s.IsRegenerating, s.WithVideoExclusion, nonNilMap(s.Statistics))
	if err != nil {
		return mapError(fmt.Sprintf("update custom segment %d", s.ID), err, apperrors.ErrSegmentNotFound)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update custom segment %d: %w", s.ID, apperrors.ErrSegmentNotFound)
	}

	return nil
}

// DeleteCustomSegment removes the segment. Exports and source files cascade.
func (db *DB) DeleteCustomSegment(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM custom_segments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete custom segment %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete custom segment %d: %w", id, apperrors.ErrSegmentNotFound)
	}

	return nil
}

// TitleHashExists reports whether another segment of the owner and type uses hash.
func (db *DB) TitleHashExists(ctx context.Context, ownerID int64, itemType domain.ItemType, hash string, excludeID int64) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM custom_segments
			WHERE owner_id = $1 AND segment_type = $2 AND title_hash = $3 AND id <> $4
		)
	`, ownerID, string(itemType), hash, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check title hash: %w", err)
	}

	return exists, nil
}

// GetExport returns the export of segmentID.
func (db *DB) GetExport(ctx context.Context, segmentID int64) (domain.CustomSegmentExport, error) {
	e := domain.CustomSegmentExport{SegmentID: segmentID}

	err := db.Pool.QueryRow(ctx, `
		SELECT params, query, filename, completed_at, updated_at
		FROM custom_segment_exports
		WHERE segment_id = $1
	`, segmentID).Scan(&e.Params, &e.Query, &e.Filename, &e.CompletedAt, &e.UpdatedAt)
	if err != nil {
		return domain.CustomSegmentExport{}, mapError(fmt.Sprintf("get export %d", segmentID), err, apperrors.ErrNotFound)
	}

	return e, nil
}

// SaveExport upserts export.
func (db *DB) SaveExport(ctx context.Context, e domain.CustomSegmentExport) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO custom_segment_exports (segment_id, params, query, filename, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (segment_id) DO UPDATE
		SET params = EXCLUDED.params,
			query = EXCLUDED.query,
			filename = EXCLUDED.filename,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
	`, e.SegmentID, nonNilMap(e.Params), nonNilMap(e.Query), e.Filename, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("save export %d: %w", e.SegmentID, err)
	}

	return nil
}

// DeleteExport removes the export of segmentID.
func (db *DB) DeleteExport(ctx context.Context, segmentID int64) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM custom_segment_exports WHERE segment_id = $1`, segmentID); err != nil {
		return fmt.Errorf("delete export %d: %w", segmentID, err)
	}

	return nil
}

// GetSourceFile returns the source list of segmentID.
func (db *DB) GetSourceFile(ctx context.Context, segmentID int64) (domain.SourceFile, error) {
	f := domain.SourceFile{SegmentID: segmentID}

	var sourceType int

	err := db.Pool.QueryRow(ctx, `
		SELECT filename, name, source_type, ids
		FROM custom_segment_source_files
		WHERE segment_id = $1
	`, segmentID).Scan(&f.Filename, &f.Name, &sourceType, &f.IDs)
	if err != nil {
		return domain.SourceFile{}, mapError(fmt.Sprintf("get source file %d", segmentID), err, apperrors.ErrNotFound)
	}

	f.SourceType = domain.SourceType(sourceType)

	return f, nil
}

// SaveSourceFile upserts source.
func (db *DB) SaveSourceFile(ctx context.Context, f domain.SourceFile) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO custom_segment_source_files (segment_id, filename, name, source_type, ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (segment_id) DO UPDATE
		SET filename = EXCLUDED.filename,
			name = EXCLUDED.name,
			source_type = EXCLUDED.source_type,
			ids = EXCLUDED.ids
	`, f.SegmentID, f.Filename, SanitizeUTF8(f.Name), int(f.SourceType), nonNilStrings(f.IDs))
	if err != nil {
		return fmt.Errorf("save source file %d: %w", f.SegmentID, err)
	}

	return nil
}

// GetVettedExport returns the vetted export of segmentID.
func (db *DB) GetVettedExport(ctx context.Context, segmentID int64) (domain.VettedExport, error) {
	v := domain.VettedExport{SegmentID: segmentID}

	err := db.Pool.QueryRow(ctx, `
		SELECT filename, created_at
		FROM custom_segment_vetted_exports
		WHERE segment_id = $1
	`, segmentID).Scan(&v.Filename, &v.CreatedAt)
	if err != nil {
		return domain.VettedExport{}, mapError(fmt.Sprintf("get vetted export %d", segmentID), err, apperrors.ErrNotFound)
	}

	return v, nil
}

// DeleteVettedExport removes the vetted export of segmentID.
func (db *DB) DeleteVettedExport(ctx context.Context, segmentID int64) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM custom_segment_vetted_exports WHERE segment_id = $1`, segmentID); err != nil {
		return fmt.Errorf("delete vetted export %d: %w", segmentID, err)
	}

	return nil
}
