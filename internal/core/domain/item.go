// Package domain holds the core audit types shared across packages.
package domain

import (
	"strings"
	"time"
)

// ItemType identifies whether an item is a channel or a video.
type ItemType string

const (
	ItemTypeVideo   ItemType = "video"
	ItemTypeChannel ItemType = "channel"
)

// Normalized sentinel values for missing metadata.
const (
	UnclassifiedCategory = "Unclassified"
	UnknownCategory      = "Unknown"
	UnknownLanguage      = "Unknown"
)

// Platform id lengths.
const (
	videoIDLength   = 11
	channelIDLength = 24
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeVideo || t == ItemTypeChannel
}

// Plural returns the capitalized plural form used in segment titles.
func (t ItemType) Plural() string {
	if t == ItemTypeChannel {
		return "Channels"
	}

	return "Videos"
}

// Capitalized returns "Video" or "Channel".
func (t ItemType) Capitalized() string {
	if t == ItemTypeChannel {
		return "Channel"
	}

	return "Video"
}

// IDLength returns the length of a well-formed platform id for t.
func (t ItemType) IDLength() int {
	if t == ItemTypeChannel {
		return channelIDLength
	}

	return videoIDLength
}

// Code returns the numeric segment type code.
func (t ItemType) Code() int {
	if t == ItemTypeChannel {
		return 1
	}

	return 0
}

// Stats holds engagement counters. Missing counters are zero.
type Stats struct {
	Views       int64
	Likes       int64
	Dislikes    int64
	Subscribers int64
	Videos      int64
	Sentiment   float64
}

// Item is a channel or video record pulled from the backing store.
type Item struct {
	ID             string
	Type           ItemType
	ChannelID      string
	Title          string
	Description    string
	Tags           []string
	Transcript     string
	Category       string
	TopCategory    string
	Language       string
	Country        string
	ThumbnailURL   string
	Stats          Stats
	LastUploadDate time.Time
	AgeRestricted  bool
	IsMonetizable  bool
	Blocklisted    bool

	// BrandSafetyScore is the score stored in the backing index, nil when unscored.
	BrandSafetyScore *int
}

// URL is the public page of the item.
func (i Item) URL() string {
	if i.Type == ItemTypeChannel {
		return "https://www.youtube.com/channel/" + i.ID
	}

	return "https://www.youtube.com/watch?v=" + i.ID
}

// TagsText joins tags with a single space.
func (i Item) TagsText() string {
	return strings.Join(i.Tags, " ")
}

// Text concatenates the scanned text fields separated by single spaces.
func (i Item) Text() string {
	return strings.Join([]string{i.Title, i.Description, i.TagsText(), i.Transcript}, " ")
}

// DefaultCategory is the category given to items without a usable one.
func (t ItemType) DefaultCategory() string {
	if t == ItemTypeVideo {
		return UnknownCategory
	}

	return UnclassifiedCategory
}

// Normalize replaces missing category and language with sentinel values.
func (i *Item) Normalize() {
	if strings.TrimSpace(i.Category) == "" {
		i.Category = i.Type.DefaultCategory()
	}

	if strings.TrimSpace(i.Language) == "" {
		i.Language = UnknownLanguage
	}
}
