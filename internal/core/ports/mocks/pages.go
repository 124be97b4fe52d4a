package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
)

// PageSource is a thread-safe in-memory implementation of ports.PageSource.
// Items are served in ascending id order after the request cursor.
type PageSource struct {
	mu    sync.Mutex
	items map[domain.ItemType][]domain.Item
	calls []ports.PageRequest

	// EmptyResponses makes the next n calls return an empty page.
	EmptyResponses int

	// FetchPageFn allows overriding FetchPage behavior.
	FetchPageFn func(ctx context.Context, itemType domain.ItemType, req ports.PageRequest) (ports.Page, error)
}

// NewPageSource creates a page source seeded with items.
func NewPageSource(items ...domain.Item) *PageSource {
	p := &PageSource{items: make(map[domain.ItemType][]domain.Item)}
	p.Add(items...)

	return p
}

// Add appends items to the source.
func (p *PageSource) Add(items ...domain.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range items {
		p.items[item.Type] = append(p.items[item.Type], item)
	}

	for t := range p.items {
		list := p.items[t]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
}

// Calls returns the requests received so far.
func (p *PageSource) Calls() []ports.PageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ports.PageRequest, len(p.calls))
	copy(out, p.calls)

	return out
}

// FetchPage returns items with ids greater than req.Cursor that match every filter.
func (p *PageSource) FetchPage(ctx context.Context, itemType domain.ItemType, req ports.PageRequest) (ports.Page, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)

	if p.EmptyResponses > 0 {
		p.EmptyResponses--
		p.mu.Unlock()

		return ports.Page{}, nil
	}

	p.mu.Unlock()

	if p.FetchPageFn != nil {
		return p.FetchPageFn(ctx, itemType, req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var page ports.Page

	for _, item := range p.items[itemType] {
		if item.ID <= req.Cursor || !matchesAll(item, req.Filters) {
			continue
		}

		page.Items = append(page.Items, cloneItem(item))

		if req.Limit > 0 && len(page.Items) == req.Limit {
			page.NextCursor = item.ID
			break
		}
	}

	return page, nil
}

func matchesAll(item domain.Item, filters []domain.Filter) bool {
	for _, f := range filters {
		if !f.Match(item) {
			return false
		}
	}

	return true
}

func cloneItem(item domain.Item) domain.Item {
	if item.Tags != nil {
		item.Tags = append([]string(nil), item.Tags...)
	}

	if item.BrandSafetyScore != nil {
		score := *item.BrandSafetyScore
		item.BrandSafetyScore = &score
	}

	return item
}
