// Package stats aggregates segment statistics: item counts, engagement totals,
// the top three displayable items and the averaged brand-safety tier.
package stats

import (
	"github.com/lueurxax/brand-safety-audit/internal/audit/scoring"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// Statistics keys.
const (
	KeyItemsCount       = "items_count"
	KeyTopThreeItems    = "top_three_items"
	KeyViews            = "views"
	KeyLikes            = "likes"
	KeyDislikes         = "dislikes"
	KeySubscribers      = "subscribers"
	KeyAuditedVideos    = "audited_videos"
	KeyAverageScore     = "average_brand_safety_score"
	KeyLabels           = "brand_safety_labels"
	KeyMonetizableCount = "monetizable_count"
	KeyBadWordsCount    = "bad_words_count"
)

const topItems = 3

// TopItem is one entry of the top three preview.
type TopItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Accumulator aggregates statistics over a stream of items. It is not safe for concurrent use.
type Accumulator struct {
	itemType    domain.ItemType
	count       int
	top         []TopItem
	views       int64
	likes       int64
	dislikes    int64
	subscribers int64
	audited     int64
	badWords    int64
	monetizable int
	scoreSum    int64
	labels      map[string]int
}

// NewAccumulator creates an Accumulator for items of itemType.
func NewAccumulator(itemType domain.ItemType) *Accumulator {
	return &Accumulator{itemType: itemType, labels: make(map[string]int)}
}

// Add records one item. A nil score counts as zero in the average.
func (a *Accumulator) Add(item domain.Item, score *int, auditedVideos int) {
	a.count++
	a.addTop(item.ID, item.Title, item.ThumbnailURL)

	a.views += item.Stats.Views
	a.likes += item.Stats.Likes
	a.dislikes += item.Stats.Dislikes

	if a.itemType == domain.ItemTypeChannel {
		a.subscribers += item.Stats.Subscribers
		a.audited += int64(auditedVideos)
	}

	if item.IsMonetizable {
		a.monetizable++
	}

	if score != nil {
		a.scoreSum += int64(*score)
	}

	if label := scoring.Label(score); label != scoring.LabelNone {
		a.labels[label]++
	}
}

// AddMembership records a persistent segment membership row.
func (a *Accumulator) AddMembership(m domain.Membership) {
	a.count++
	a.addTop(m.RelatedID, m.Title, m.ThumbnailURL)

	a.views += m.Details.Views
	a.likes += m.Details.Likes
	a.dislikes += m.Details.Dislikes
	a.badWords += int64(len(m.Details.BadWords))

	if m.Details.Subscribers != nil {
		a.subscribers += *m.Details.Subscribers
	}

	if m.Details.AuditedVideos != nil {
		a.audited += int64(*m.Details.AuditedVideos)
	}
}

func (a *Accumulator) addTop(id, title, image string) {
	if len(a.top) < topItems && title != "" && image != "" {
		a.top = append(a.top, TopItem{ID: id, Title: title, ImageURL: image})
	}
}

// Count returns the number of recorded items.
func (a *Accumulator) Count() int {
	return a.count
}

// AverageScore returns the mean score of the recorded items.
func (a *Accumulator) AverageScore() int {
	return int(a.scoreSum / int64(max(a.count, 1)))
}

// Statistics renders the aggregate as a JSON-ready map.
func (a *Accumulator) Statistics() map[string]any {
	top := a.top
	if top == nil {
		top = []TopItem{}
	}

	out := map[string]any{
		KeyItemsCount:       a.count,
		KeyTopThreeItems:    top,
		KeyViews:            a.views,
		KeyLikes:            a.likes,
		KeyDislikes:         a.dislikes,
		KeyAverageScore:     scoring.Tier(a.AverageScore()),
		KeyMonetizableCount: a.monetizable,
		KeyBadWordsCount:    a.badWords,
	}

	if a.itemType == domain.ItemTypeChannel {
		out[KeySubscribers] = a.subscribers
		out[KeyAuditedVideos] = a.audited
	}

	if len(a.labels) > 0 {
		labels := make(map[string]int, len(a.labels))
		for k, v := range a.labels {
			labels[k] = v
		}

		out[KeyLabels] = labels
	}

	return out
}
