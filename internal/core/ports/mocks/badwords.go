package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// BadWords is a thread-safe in-memory implementation of ports.BadWordRepository.
type BadWords struct {
	mu         sync.RWMutex
	words      []domain.BadWord
	categories []domain.BadWordCategory

	// ListBadWordsFn allows overriding ListBadWords behavior.
	ListBadWordsFn func(ctx context.Context) ([]domain.BadWord, error)
}

// NewBadWords creates a repository seeded with words. Categories are derived from the words.
func NewBadWords(words ...domain.BadWord) *BadWords {
	b := &BadWords{}
	seen := make(map[int64]struct{})

	for _, w := range words {
		b.words = append(b.words, w)

		if _, ok := seen[w.CategoryID]; ok {
			continue
		}

		seen[w.CategoryID] = struct{}{}
		b.categories = append(b.categories, domain.BadWordCategory{ID: w.CategoryID, Name: w.Category})
	}

	return b
}

// ListBadWords returns the seeded words.
func (b *BadWords) ListBadWords(ctx context.Context) ([]domain.BadWord, error) {
	if b.ListBadWordsFn != nil {
		return b.ListBadWordsFn(ctx)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]domain.BadWord(nil), b.words...), nil
}

// ListBadWordCategories returns the categories of the seeded words.
func (b *BadWords) ListBadWordCategories(_ context.Context) ([]domain.BadWordCategory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]domain.BadWordCategory(nil), b.categories...), nil
}
