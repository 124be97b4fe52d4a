package domain

import (
	"fmt"
	"time"
)

// Classification is the whitelist or blacklist bucket of an item.
type Classification string

const (
	Whitelist Classification = "whitelist"
	Blacklist Classification = "blacklist"
)

// Title returns the capitalized classification name.
func (c Classification) Title() string {
	if c == Blacklist {
		return "Blacklist"
	}

	return "Whitelist"
}

// Opposite returns the other classification.
func (c Classification) Opposite() Classification {
	if c == Blacklist {
		return Whitelist
	}

	return Blacklist
}

// Segment is a persistent bucket of channels or videos.
type Segment struct {
	ID        int64
	Type      ItemType
	Title     string
	Category  Classification
	IsMaster  bool
	Details   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategorizedTitle formats "{ItemType}s {Category} {Whitelist|Blacklist}".
func CategorizedTitle(t ItemType, category string, c Classification) string {
	return fmt.Sprintf("%s %s %s", t.Plural(), category, c.Title())
}

// MasterTitle returns the master segment title for the type and classification.
func MasterTitle(t ItemType, c Classification) string {
	return fmt.Sprintf("%s Brand Safety Master %s", t.Plural(), c.Title())
}

// IsMasterTitle reports whether title names one of the four master segments.
func IsMasterTitle(title string) bool {
	for _, t := range []ItemType{ItemTypeChannel, ItemTypeVideo} {
		for _, c := range []Classification{Whitelist, Blacklist} {
			if MasterTitle(t, c) == title {
				return true
			}
		}
	}

	return false
}

// MembershipDetails is the per-item audit metadata stored with a membership.
type MembershipDetails struct {
	Language      string   `json:"language"`
	Likes         int64    `json:"likes"`
	Dislikes      int64    `json:"dislikes"`
	Views         int64    `json:"views"`
	Subscribers   *int64   `json:"subscribers,omitempty"`
	Tags          string   `json:"tags"`
	Description   string   `json:"description"`
	BadWords      []string `json:"bad_words"`
	AuditedVideos *int     `json:"audited_videos,omitempty"`
}

// Membership links an item to a segment.
type Membership struct {
	SegmentID    int64
	RelatedID    string
	Title        string
	Category     string
	ThumbnailURL string
	Details      MembershipDetails
	UpdatedAt    time.Time
}

// NewMembership builds a membership row for a scored item.
func NewMembership(segmentID int64, si ScoredItem) Membership {
	item := si.Item
	details := MembershipDetails{
		Language:    item.Language,
		Likes:       item.Stats.Likes,
		Dislikes:    item.Stats.Dislikes,
		Views:       item.Stats.Views,
		Tags:        item.TagsText(),
		Description: item.Description,
		BadWords:    si.Result.FoundWords,
	}

	if details.BadWords == nil {
		details.BadWords = []string{}
	}

	if item.Type == ItemTypeChannel {
		subscribers := item.Stats.Subscribers
		audited := si.Result.AuditedVideos
		details.Subscribers = &subscribers
		details.AuditedVideos = &audited
	}

	return Membership{
		SegmentID:    segmentID,
		RelatedID:    item.ID,
		Title:        item.Title,
		Category:     item.Category,
		ThumbnailURL: item.ThumbnailURL,
		Details:      details,
	}
}
