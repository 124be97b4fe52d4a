package domain

import "time"

// TaskKind names an async job handled by the materializer.
type TaskKind string

const (
	TaskMaterialize    TaskKind = "materialize"
	TaskVideoExclusion TaskKind = "video_exclusion"
)

// Task is the queued envelope for async CTL work.
type Task struct {
	ID         string    `json:"job_id"`
	Kind       TaskKind  `json:"kind"`
	SegmentID  int64     `json:"segment_id"`
	WithAudit  bool      `json:"with_audit"`
	CreatedAt  time.Time `json:"created_at"`
	RetryCount int       `json:"retry_count"`
}
