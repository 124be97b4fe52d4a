package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

const segmentColumns = `id, segment_type, title, category, is_master, details, created_at, updated_at`

func scanSegment(row pgx.Row) (domain.Segment, error) {
	var (
		seg      domain.Segment
		itemType string
		category string
	)

	if err := row.Scan(&seg.ID, &itemType, &seg.Title, &category, &seg.IsMaster, &seg.Details, &seg.CreatedAt, &seg.UpdatedAt); err != nil {
		return domain.Segment{}, err
	}

	seg.Type = domain.ItemType(itemType)
	seg.Category = domain.Classification(category)
	seg.Details = nonNilMap(seg.Details)

	return seg, nil
}

// GetOrCreateSegment returns the segment titled title, creating it when absent.
func (db *DB) GetOrCreateSegment(ctx context.Context, itemType domain.ItemType, title string, category domain.Classification) (domain.Segment, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO persistent_segments (segment_type, title, category, is_master)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (segment_type, title) DO UPDATE SET title = EXCLUDED.title
		RETURNING `+segmentColumns,
		string(itemType), title, string(category), domain.IsMasterTitle(title))

	seg, err := scanSegment(row)
	if err != nil {
		return domain.Segment{}, mapError(fmt.Sprintf("get or create segment %q", title), err, apperrors.ErrSegmentNotFound)
	}

	return seg, nil
}

// ListSegments returns every segment of itemType ordered by id.
func (db *DB) ListSegments(ctx context.Context, itemType domain.ItemType) ([]domain.Segment, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+segmentColumns+`
		FROM persistent_segments
		WHERE segment_type = $1
		ORDER BY id
	`, string(itemType))
	if err != nil {
		return nil, fmt.Errorf("list %s segments: %w", itemType, err)
	}
	defer rows.Close()

	var out []domain.Segment

	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}

		out = append(out, seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}

	return out, nil
}

// ExistingMemberIDs returns the subset of ids already in segmentID.
func (db *DB) ExistingMemberIDs(ctx context.Context, _ domain.ItemType, segmentID int64, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT related_id
		FROM persistent_segment_items
		WHERE segment_id = $1 AND related_id = ANY($2)
	`, segmentID, ids)
	if err != nil {
		return nil, fmt.Errorf("existing members of segment %d: %w", segmentID, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect existing members: %w", err)
	}

	return out, nil
}

// BulkCreateMemberships inserts rows in one batch, skipping rows that already exist.
func (db *DB) BulkCreateMemberships(ctx context.Context, itemType domain.ItemType, rows []domain.Membership) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}

	for _, m := range rows {
		m.Details.BadWords = nonNilStrings(m.Details.BadWords)

		batch.Queue(`
			INSERT INTO persistent_segment_items (segment_id, related_id, title, category, thumbnail_image_url, details)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (segment_id, related_id) DO NOTHING
		`, m.SegmentID, m.RelatedID, SanitizeUTF8(m.Title), m.Category, m.ThumbnailURL, m.Details)
	}

	results := db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	var created int64

	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return created, fmt.Errorf("insert %s membership: %w", itemType, err)
		}

		created += tag.RowsAffected()
	}

	return created, nil
}

// RemoveMemberships deletes relatedIDs from each of segmentIDs.
func (db *DB) RemoveMemberships(ctx context.Context, itemType domain.ItemType, segmentIDs []int64, relatedIDs []string) (int64, error) {
	if len(segmentIDs) == 0 || len(relatedIDs) == 0 {
		return 0, nil
	}

	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM persistent_segment_items
		WHERE segment_id = ANY($1) AND related_id = ANY($2)
	`, segmentIDs, relatedIDs)
	if err != nil {
		return 0, fmt.Errorf("remove %s memberships: %w", itemType, err)
	}

	return tag.RowsAffected(), nil
}

const membershipColumns = `segment_id, related_id, title, category, thumbnail_image_url, details, updated_at`

func scanMembership(row pgx.Row) (domain.Membership, error) {
	var m domain.Membership

	err := row.Scan(&m.SegmentID, &m.RelatedID, &m.Title, &m.Category, &m.ThumbnailURL, &m.Details, &m.UpdatedAt)

	return m, err
}

// ListMemberships returns the memberships of segmentID ordered by related id.
func (db *DB) ListMemberships(ctx context.Context, _ domain.ItemType, segmentID int64) ([]domain.Membership, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+membershipColumns+`
		FROM persistent_segment_items
		WHERE segment_id = $1
		ORDER BY related_id
	`, segmentID)
	if err != nil {
		return nil, fmt.Errorf("list memberships of segment %d: %w", segmentID, err)
	}

	return collectMemberships(rows)
}

// DistinctChannelMembers pages through the distinct channel ids of all channel segments.
func (db *DB) DistinctChannelMembers(ctx context.Context, offset, limit int) ([]domain.Membership, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ON (i.related_id)
			i.segment_id, i.related_id, i.title, i.category, i.thumbnail_image_url, i.details, i.updated_at
		FROM persistent_segment_items i
		JOIN persistent_segments s ON s.id = i.segment_id
		WHERE s.segment_type = $1
		ORDER BY i.related_id, i.segment_id
		OFFSET $2
		LIMIT $3
	`, string(domain.ItemTypeChannel), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("distinct channel members at %d: %w", offset, err)
	}

	return collectMemberships(rows)
}

func collectMemberships(rows pgx.Rows) ([]domain.Membership, error) {
	defer rows.Close()

	var out []domain.Membership

	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}

		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return out, nil
}

// UpdateSegmentDetails replaces the statistics details of segmentID.
func (db *DB) UpdateSegmentDetails(ctx context.Context, itemType domain.ItemType, segmentID int64, details map[string]any) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE persistent_segments
		SET details = $2, updated_at = NOW()
		WHERE id = $1 AND segment_type = $3
	`, segmentID, nonNilMap(details), string(itemType))
	if err != nil {
		return fmt.Errorf("update segment %d details: %w", segmentID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update segment %d details: %w", segmentID, apperrors.ErrSegmentNotFound)
	}

	return nil
}

// IgnoredIDs returns the subset of ids on the manual ignore list.
func (db *DB) IgnoredIDs(ctx context.Context, itemType domain.ItemType, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT item_id
		FROM audit_ignores
		WHERE item_type = $1 AND item_id = ANY($2)
	`, string(itemType), ids)
	if err != nil {
		return nil, fmt.Errorf("ignored %s ids: %w", itemType, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect ignored ids: %w", err)
	}

	return out, nil
}

// ListBadWords returns the active bad words with their category names.
func (db *DB) ListBadWords(ctx context.Context) ([]domain.BadWord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT w.id, w.name, c.name, w.category_id, w.language, w.negative_score
		FROM bad_words w
		JOIN bad_word_categories c ON c.id = w.category_id
		WHERE w.deleted_at IS NULL
		ORDER BY w.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list bad words: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BadWord, error) {
		var w domain.BadWord
		err := row.Scan(&w.ID, &w.Name, &w.Category, &w.CategoryID, &w.Language, &w.NegativeScore)

		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect bad words: %w", err)
	}

	return out, nil
}

// ListBadWordCategories returns every bad word category.
func (db *DB) ListBadWordCategories(ctx context.Context) ([]domain.BadWordCategory, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name FROM bad_word_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list bad word categories: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BadWordCategory, error) {
		var c domain.BadWordCategory
		err := row.Scan(&c.ID, &c.Name)

		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect bad word categories: %w", err)
	}

	return out, nil
}
