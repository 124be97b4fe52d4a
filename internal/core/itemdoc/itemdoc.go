// Package itemdoc decodes channel and video documents returned by the item stores.
package itemdoc

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// Document is the nested store representation of a channel or video.
type Document struct {
	Main struct {
		ID string `json:"id"`
	} `json:"main"`

	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`

	GeneralData struct {
		Title         string          `json:"title"`
		Description   string          `json:"description"`
		Tags          json.RawMessage `json:"tags"`
		Category      string          `json:"category"`
		TopCategory   string          `json:"top_category"`
		Language      string          `json:"language"`
		CountryCode   string          `json:"country_code"`
		AgeRestricted bool            `json:"age_restricted"`
		ThumbnailURL  string          `json:"thumbnail_image_url"`
	} `json:"general_data"`

	Stats struct {
		Views          int64   `json:"views"`
		Likes          int64   `json:"likes"`
		Dislikes       int64   `json:"dislikes"`
		Subscribers    int64   `json:"subscribers"`
		Videos         int64   `json:"total_videos_count"`
		Sentiment      float64 `json:"sentiment"`
		LastUploadDate string  `json:"last_video_published_at"`
	} `json:"stats"`

	BrandSafety struct {
		OverallScore *float64 `json:"overall_score"`
	} `json:"brand_safety"`

	Monetization struct {
		IsMonetizable bool `json:"is_monetizable"`
	} `json:"monetization"`

	CustomProperties struct {
		Blocklist bool `json:"blocklist"`
	} `json:"custom_properties"`

	Transcript string `json:"transcript"`
}

// Decode parses one raw document into an item of itemType.
func Decode(raw json.RawMessage, itemType domain.ItemType) (domain.Item, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Item{}, err
	}

	return doc.Item(itemType), nil
}

// Item converts the document.
func (d Document) Item(itemType domain.ItemType) domain.Item {
	item := domain.Item{
		ID:            d.Main.ID,
		Type:          itemType,
		ChannelID:     d.Channel.ID,
		Title:         d.GeneralData.Title,
		Description:   d.GeneralData.Description,
		Tags:          tags(d.GeneralData.Tags),
		Transcript:    d.Transcript,
		Category:      d.GeneralData.Category,
		TopCategory:   d.GeneralData.TopCategory,
		Language:      d.GeneralData.Language,
		Country:       d.GeneralData.CountryCode,
		ThumbnailURL:  d.GeneralData.ThumbnailURL,
		AgeRestricted: d.GeneralData.AgeRestricted,
		IsMonetizable: d.Monetization.IsMonetizable,
		Blocklisted:   d.CustomProperties.Blocklist,
		Stats: domain.Stats{
			Views:       d.Stats.Views,
			Likes:       d.Stats.Likes,
			Dislikes:    d.Stats.Dislikes,
			Subscribers: d.Stats.Subscribers,
			Videos:      d.Stats.Videos,
			Sentiment:   d.Stats.Sentiment,
		},
	}

	if itemType == domain.ItemTypeChannel && item.ChannelID == "" {
		item.ChannelID = item.ID
	}

	if d.BrandSafety.OverallScore != nil {
		score := int(*d.BrandSafety.OverallScore)
		item.BrandSafetyScore = &score
	}

	item.LastUploadDate = parseDate(d.Stats.LastUploadDate)

	return item
}

// parseDate accepts the date formats the stores emit. Unparseable values yield the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}

	return t
}

// tags accepts either a JSON list or a comma separated string.
func tags(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil || strings.TrimSpace(joined) == "" {
		return nil
	}

	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}

	return out
}
