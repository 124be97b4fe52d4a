package domain

import (
	"strings"
	"time"
)

// AuditType is the kind of items an audit processor scans.
type AuditType int

const (
	AuditTypeVideo   AuditType = 1
	AuditTypeChannel AuditType = 2
)

// AuditTypeFor maps an item type to the audit type.
func AuditTypeFor(t ItemType) AuditType {
	if t == ItemTypeChannel {
		return AuditTypeChannel
	}

	return AuditTypeVideo
}

// AuditSourceCTL marks audits created for custom target lists.
const AuditSourceCTL = 2

// DefaultChannelAuditVideos is the number of videos scanned per channel in a channel audit.
const DefaultChannelAuditVideos = 15

// ExclusionRow is one exclusion keyword followed by optional category columns.
type ExclusionRow []string

// Keyword returns the first column.
func (r ExclusionRow) Keyword() string {
	if len(r) == 0 {
		return ""
	}

	return r[0]
}

// Category returns the second column or "".
func (r ExclusionRow) Category() string {
	if len(r) < 2 {
		return ""
	}

	return r[1]
}

// Key joins the row columns with commas for comparison.
func (r ExclusionRow) Key() string {
	return strings.Join(r, ",")
}

// AuditParams is the free-form job configuration of an audit processor.
type AuditParams struct {
	Name              string            `json:"name"`
	SegmentID         int64             `json:"segment_id"`
	UserID            int64             `json:"user_id"`
	Inclusion         []string          `json:"inclusion,omitempty"`
	Exclusion         []ExclusionRow    `json:"exclusion,omitempty"`
	ExclusionCategory []string          `json:"exclusion_category,omitempty"`
	InclusionHitCount int               `json:"inclusion_hit_count,omitempty"`
	ExclusionHitCount int               `json:"exclusion_hit_count,omitempty"`
	Files             map[string]string `json:"files,omitempty"`
	DoVideos          bool              `json:"do_videos,omitempty"`
	NumVideos         int               `json:"num_videos,omitempty"`
	Stopped           bool              `json:"stopped,omitempty"`
}

// HasKeywords reports whether either keyword gate is configured.
func (p AuditParams) HasKeywords() bool {
	return len(p.Inclusion) > 0 || len(p.Exclusion) > 0
}

// AuditProcessor is one long-running scan or vetting job.
type AuditProcessor struct {
	ID        int64
	Name      string
	AuditType AuditType
	Source    int
	Params    AuditParams
	Cursor    int64
	TempStop  bool
	Pause     int
	Started   *time.Time
	Completed *time.Time
	CreatedAt time.Time
}

// Stopped reports whether an operator stopped or completed the audit.
func (a AuditProcessor) Stopped() bool {
	return a.Params.Stopped || a.Completed != nil
}

// Paused reports whether an operator paused the audit.
func (a AuditProcessor) Paused() bool {
	return a.Pause > 0
}
