package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/storage/sqlc"
)

// GetOrCreateTracker returns the tracker called name, creating it at cursor zero.
func (db *DB) GetOrCreateTracker(ctx context.Context, name string) (domain.ScriptTracker, error) {
	row, err := db.Queries.GetOrCreateTracker(ctx, name)
	if err != nil {
		return domain.ScriptTracker{}, fmt.Errorf("get or create tracker %s: %w", name, err)
	}

	return domain.ScriptTracker{
		Name:      row.Name,
		Cursor:    row.Cursor,
		LastID:    row.LastID,
		UpdatedAt: fromTimestamptz(row.UpdatedAt),
	}, nil
}

// SaveTracker stores the tracker cursor.
func (db *DB) SaveTracker(ctx context.Context, tracker domain.ScriptTracker) error {
	err := db.Queries.SaveTracker(ctx, sqlc.SaveTrackerParams{
		Name:   tracker.Name,
		Cursor: tracker.Cursor,
		LastID: tracker.LastID,
	})
	if err != nil {
		return fmt.Errorf("save tracker %s: %w", tracker.Name, err)
	}

	return nil
}

// RunningTopics returns the topics flagged as running with their keywords.
func (db *DB) RunningTopics(ctx context.Context) ([]domain.TopicAudit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT t.id, t.title, t.channel_segment_id, t.video_segment_id,
			t.start_cursor, t.from_beginning, t.wrapped, t.is_running, t.started_at, t.completed_at,
			COALESCE((SELECT array_agg(k.keyword ORDER BY k.id) FROM topic_keywords k WHERE k.topic_id = t.id), '{}')
		FROM topic_audits t
		WHERE t.is_running
		ORDER BY t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list running topics: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TopicAudit, error) {
		var t domain.TopicAudit
		err := row.Scan(&t.ID, &t.Title, &t.ChannelSegmentID, &t.VideoSegmentID,
			&t.StartCursor, &t.FromBeginning, &t.Wrapped, &t.IsRunning, &t.StartedAt, &t.CompletedAt,
			&t.Keywords)

		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect running topics: %w", err)
	}

	return out, nil
}

// SaveTopic stores the run state of topic. Keywords are not modified.
func (db *DB) SaveTopic(ctx context.Context, topic domain.TopicAudit) error {
	rows, err := db.Queries.SaveTopicState(ctx, sqlc.SaveTopicStateParams{
		ID:            topic.ID,
		StartCursor:   topic.StartCursor,
		FromBeginning: topic.FromBeginning,
		Wrapped:       topic.Wrapped,
		IsRunning:     topic.IsRunning,
		StartedAt:     toTimestamptzPtr(topic.StartedAt),
		CompletedAt:   toTimestamptzPtr(topic.CompletedAt),
	})
	if err != nil {
		return fmt.Errorf("save topic %d: %w", topic.ID, err)
	}

	if rows == 0 {
		return fmt.Errorf("save topic %d: %w", topic.ID, apperrors.ErrNotFound)
	}

	return nil
}
