package keywords

import (
	"context"
	"fmt"
	"strings"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// WordSource provides the bad-word list.
type WordSource interface {
	ListBadWords(ctx context.Context) ([]domain.BadWord, error)
}

// LoadBadWords reads the bad-word list and fails fast when it is unavailable or empty.
func LoadBadWords(ctx context.Context, src WordSource) ([]domain.BadWord, error) {
	words, err := src.ListBadWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBadWordsUnavailable, err)
	}

	names := 0

	for _, w := range words {
		if strings.TrimSpace(w.Name) != "" {
			names++
		}
	}

	if names == 0 {
		return nil, apperrors.ErrEmptyBadWords
	}

	return words, nil
}

// CompileFromSource loads the bad-word list and compiles one matcher over all names.
func CompileFromSource(ctx context.Context, src WordSource) (*Matcher, error) {
	words, err := LoadBadWords(ctx, src)
	if err != nil {
		return nil, err
	}

	return Compile(Names(words))
}

// Names returns the distinct bad-word names.
func Names(words []domain.BadWord) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if _, ok := seen[w.Name]; ok {
			continue
		}

		seen[w.Name] = struct{}{}
		out = append(out, w.Name)
	}

	return out
}
