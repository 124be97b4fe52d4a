package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatisticsErrorKey marks a failed materialization in CustomSegment.Statistics.
const StatisticsErrorKey = "error"

// SegmentState is the derived lifecycle state of a custom target list.
type SegmentState string

const (
	StateCreating     SegmentState = "creating"
	StatePending      SegmentState = "pending"
	StateReady        SegmentState = "ready"
	StateRegenerating SegmentState = "regenerating"
	StateFailed       SegmentState = "failed"
)

// CustomSegment is a user-defined, periodically materialized list (CTL).
type CustomSegment struct {
	ID                 int64
	UUID               uuid.UUID
	OwnerID            int64
	Title              string
	TitleHash          string
	SegmentType        ItemType
	ListType           Classification
	AuditID            *int64
	MetaAuditID        *int64
	IsVettingComplete  bool
	IsFeatured         bool
	IsRegenerating     bool
	WithVideoExclusion bool
	Statistics         map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// titleKeyEscaper keeps a title inside a single object key segment. The
// mapping is reversible, so distinct titles never share a key.
var titleKeyEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "\\", "%5C")

// titleKey is the title as a single object key segment.
func (s CustomSegment) titleKey() string {
	return titleKeyEscaper.Replace(s.Title)
}

// ExportKey is the object key of the materialized CSV export.
func (s CustomSegment) ExportKey() string {
	return fmt.Sprintf("%d/%s/%s.csv", s.OwnerID, s.SegmentType, s.titleKey())
}

// SourceKey is the object key of the cleaned source id list.
func (s CustomSegment) SourceKey() string {
	return fmt.Sprintf("source/%s.csv", s.UUID)
}

// VideoExclusionKey is the object key of the video exclusion export of a channel list.
func (s CustomSegment) VideoExclusionKey() string {
	return fmt.Sprintf("%d/video_exclusion/%s.csv", s.OwnerID, s.titleKey())
}

// Pending is true until the materialization task attaches statistics.
func (s CustomSegment) Pending() bool {
	return len(s.Statistics) == 0
}

// State derives the lifecycle state from stored flags.
func (s CustomSegment) State() SegmentState {
	switch {
	case s.ID == 0:
		return StateCreating
	case s.Statistics[StatisticsErrorKey] != nil:
		return StateFailed
	case s.IsRegenerating:
		return StateRegenerating
	case s.Pending():
		return StatePending
	default:
		return StateReady
	}
}

// CustomSegmentExport is the saved query snapshot and its materialized file.
type CustomSegmentExport struct {
	SegmentID   int64
	Params      QueryParams
	Query       map[string]any
	Filename    string
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// SourceType says whether a source id list includes or excludes items.
type SourceType int

const (
	SourceInclusion SourceType = 0
	SourceExclusion SourceType = 1
)

// SourceFile is the user-supplied id list of a CTL.
type SourceFile struct {
	SegmentID  int64
	Filename   string
	Name       string
	SourceType SourceType
	IDs        []string
}

// VettedExport points at an export restricted to vetted items.
type VettedExport struct {
	SegmentID int64
	Filename  string
	CreatedAt time.Time
}
