package source

import (
	"fmt"

	"github.com/lueurxax/brand-safety-audit/internal/audit/keywords"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// HitCounter counts keyword occurrences in item text against a threshold.
type HitCounter struct {
	matcher   *keywords.Matcher
	threshold int
}

// NewHitCounter compiles words. A threshold below one is treated as one.
func NewHitCounter(words []string, threshold int) (*HitCounter, error) {
	m, err := keywords.Compile(words)
	if err != nil {
		return nil, fmt.Errorf("compile hit keywords: %w", err)
	}

	return &HitCounter{matcher: m, threshold: max(threshold, 1)}, nil
}

// Threshold returns the effective threshold.
func (h *HitCounter) Threshold() int {
	return h.threshold
}

// Hits returns the number of keyword occurrences in item and whether it meets the threshold.
func (h *HitCounter) Hits(item domain.Item) (int, bool) {
	if h == nil || h.matcher.Empty() {
		return 0, false
	}

	n := h.matcher.Count(item.Text())

	return n, n >= h.threshold
}

// ExclusionWords returns the keywords of rows, limited to categories when any are given.
func ExclusionWords(rows []domain.ExclusionRow, categories []string) []string {
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}

	out := make([]string, 0, len(rows))

	for _, row := range rows {
		if len(allowed) > 0 {
			if _, ok := allowed[row.Category()]; !ok {
				continue
			}
		}

		out = append(out, row.Keyword())
	}

	return out
}
