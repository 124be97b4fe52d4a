// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing audit logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// PageRequest asks an item store for one page after Cursor.
type PageRequest struct {
	// Cursor is the last item id already seen. Empty starts from the beginning.
	Cursor  string
	Limit   int
	Filters []domain.Filter
	Fields  []string
}

// Page is one page of items. NextCursor is empty when the source is exhausted.
type Page struct {
	Items      []domain.Item
	NextCursor string
}

// PageSource is implemented once per backing item store.
type PageSource interface {
	FetchPage(ctx context.Context, itemType domain.ItemType, req PageRequest) (Page, error)
}

// BadWordRepository provides the bad-word list and its categories.
type BadWordRepository interface {
	ListBadWords(ctx context.Context) ([]domain.BadWord, error)
	ListBadWordCategories(ctx context.Context) ([]domain.BadWordCategory, error)
}

// SegmentRepository handles persistent segments and their memberships.
type SegmentRepository interface {
	GetOrCreateSegment(ctx context.Context, itemType domain.ItemType, title string, category domain.Classification) (domain.Segment, error)
	ListSegments(ctx context.Context, itemType domain.ItemType) ([]domain.Segment, error)
	ExistingMemberIDs(ctx context.Context, itemType domain.ItemType, segmentID int64, ids []string) ([]string, error)
	BulkCreateMemberships(ctx context.Context, itemType domain.ItemType, rows []domain.Membership) (int64, error)
	RemoveMemberships(ctx context.Context, itemType domain.ItemType, segmentIDs []int64, relatedIDs []string) (int64, error)
	ListMemberships(ctx context.Context, itemType domain.ItemType, segmentID int64) ([]domain.Membership, error)
	DistinctChannelMembers(ctx context.Context, offset, limit int) ([]domain.Membership, error)
	UpdateSegmentDetails(ctx context.Context, itemType domain.ItemType, segmentID int64, details map[string]any) error
}

// IgnoreRepository exposes the manual audit-ignore lists.
type IgnoreRepository interface {
	IgnoredIDs(ctx context.Context, itemType domain.ItemType, ids []string) ([]string, error)
}

// TrackerRepository persists script progress cursors.
type TrackerRepository interface {
	GetOrCreateTracker(ctx context.Context, name string) (domain.ScriptTracker, error)
	SaveTracker(ctx context.Context, tracker domain.ScriptTracker) error
}

// TopicRepository handles keyword topic audits.
type TopicRepository interface {
	RunningTopics(ctx context.Context) ([]domain.TopicAudit, error)
	SaveTopic(ctx context.Context, topic domain.TopicAudit) error
}

// LockRepository provides cross-process single-runner locks.
type LockRepository interface {
	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}

// CustomSegmentRepository handles custom target lists and their artifacts.
type CustomSegmentRepository interface {
	CreateCustomSegment(ctx context.Context, segment *domain.CustomSegment) error
	GetCustomSegment(ctx context.Context, id int64) (domain.CustomSegment, error)
	UpdateCustomSegment(ctx context.Context, segment domain.CustomSegment) error
	DeleteCustomSegment(ctx context.Context, id int64) error
	TitleHashExists(ctx context.Context, ownerID int64, itemType domain.ItemType, hash string, excludeID int64) (bool, error)

	GetExport(ctx context.Context, segmentID int64) (domain.CustomSegmentExport, error)
	SaveExport(ctx context.Context, export domain.CustomSegmentExport) error
	DeleteExport(ctx context.Context, segmentID int64) error

	GetSourceFile(ctx context.Context, segmentID int64) (domain.SourceFile, error)
	SaveSourceFile(ctx context.Context, source domain.SourceFile) error

	GetVettedExport(ctx context.Context, segmentID int64) (domain.VettedExport, error)
	DeleteVettedExport(ctx context.Context, segmentID int64) error
}

// AuditRepository handles audit processors and their vetting rows.
type AuditRepository interface {
	CreateAudit(ctx context.Context, audit *domain.AuditProcessor) error
	GetAudit(ctx context.Context, id int64) (domain.AuditProcessor, error)
	UpdateAudit(ctx context.Context, audit domain.AuditProcessor) error
	DeleteAudit(ctx context.Context, id int64) error
}

// ObjectStore stores export and source artifacts.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TaskQueue carries async CTL work.
type TaskQueue interface {
	Enqueue(ctx context.Context, task domain.Task) error
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Task, error)
}
