// Package scoring computes brand-safety scores for channels and videos.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lueurxax/brand-safety-audit/internal/audit/keywords"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// Rollup selects how video results are aggregated into a channel result.
type Rollup string

const (
	// RollupAnyDisqualifies drops the channel to its worst video.
	RollupAnyDisqualifies Rollup = "any"
	// RollupAverage averages video scores, then applies channel metadata hits.
	RollupAverage Rollup = "average"
)

// DefaultLanguage is the target language of the standard audit.
const DefaultLanguage = "English"

// defaultNegativeScore penalizes a match that cannot be traced back to a listed word.
const defaultNegativeScore = 1

// ParseRollup accepts "any" or "average"; empty selects the default.
func ParseRollup(s string) (Rollup, error) {
	switch Rollup(strings.ToLower(strings.TrimSpace(s))) {
	case "", RollupAnyDisqualifies:
		return RollupAnyDisqualifies, nil
	case RollupAverage:
		return RollupAverage, nil
	default:
		return "", fmt.Errorf("parse rollup %q: %w", s, apperrors.ErrInvalidConfig)
	}
}

// Options configures an Engine.
type Options struct {
	// Language is the required item language. Empty disables the criterion.
	Language string
	Rollup   Rollup
}

// Engine scores items against a fixed bad-word list. It is safe for concurrent use.
type Engine struct {
	matcher    *keywords.Matcher
	emoji      *keywords.EmojiMatcher
	words      map[string]domain.BadWord
	categories []string
	opts       Options
}

// NewEngine compiles words into an Engine. An empty list is a configuration error.
func NewEngine(words []domain.BadWord, opts Options) (*Engine, error) {
	if opts.Rollup == "" {
		opts.Rollup = RollupAnyDisqualifies
	}

	byName := make(map[string]domain.BadWord, len(words))
	categorySet := make(map[string]struct{})

	for _, w := range words {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}

		key := keywords.FoldKey(name)
		if _, ok := byName[key]; ok {
			continue
		}

		byName[key] = w
		categorySet[w.Category] = struct{}{}
	}

	if len(byName) == 0 {
		return nil, apperrors.ErrEmptyBadWords
	}

	matcher, err := keywords.Compile(keywords.Names(words))
	if err != nil {
		return nil, fmt.Errorf("compile bad words: %w", err)
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}

	sort.Strings(categories)

	return &Engine{
		matcher:    matcher,
		emoji:      keywords.NewEmojiMatcher(),
		words:      byName,
		categories: categories,
		opts:       opts,
	}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Categories returns the sorted bad-word categories.
func (e *Engine) Categories() []string {
	return append([]string(nil), e.categories...)
}

// LanguageOK reports whether item satisfies the language criterion.
func (e *Engine) LanguageOK(item domain.Item) bool {
	if e.opts.Language == "" {
		return true
	}

	return strings.EqualFold(strings.TrimSpace(item.Language), e.opts.Language)
}

type fieldSpan struct {
	location domain.Location
	start    int
	end      int
}

// Score audits a single item. Missing text fields are treated as empty strings.
func (e *Engine) Score(item domain.Item) domain.ScoreResult {
	text, spans := concat(item)

	result := domain.ScoreResult{
		ItemID:         item.ID,
		FoundWords:     []string{},
		CategoryScores: e.fullScores(),
		Overall:        domain.MaxScore,
		LanguageOK:     e.LanguageOK(item),
		HasEmoji:       e.emoji.HasEmoji(text),
	}

	hitIndex := make(map[string]int)

	for _, m := range e.matcher.Matches(text) {
		// Unlisted matches only count against the overall score.
		word, listed := e.words[keywords.FoldKey(m.Word)]
		if !listed {
			word = domain.BadWord{Name: m.Word, NegativeScore: defaultNegativeScore}
		}

		location := locate(spans, m.Start)
		penalty := word.NegativeScore * location.Multiplier()

		result.FoundWords = append(result.FoundWords, m.Word)
		result.Overall = clamp(result.Overall - penalty)

		if listed {
			result.CategoryScores[word.Category] = clamp(result.CategoryScores[word.Category] - penalty)
		}

		key := m.Word + "\x00" + string(location)
		if i, seen := hitIndex[key]; seen {
			result.Hits[i].Count++

			continue
		}

		hitIndex[key] = len(result.Hits)
		result.Hits = append(result.Hits, domain.KeywordHit{
			Word:     m.Word,
			Category: word.Category,
			Location: location,
			Count:    1,
		})
	}

	if item.Blocklisted {
		result.Overall = domain.MinScore
	}

	return result
}

func (e *Engine) fullScores() map[string]int {
	scores := make(map[string]int, len(e.categories))
	for _, c := range e.categories {
		scores[c] = domain.MaxScore
	}

	return scores
}

func (e *Engine) penalty(hit domain.KeywordHit) int {
	word, ok := e.words[keywords.FoldKey(hit.Word)]
	if !ok {
		word.NegativeScore = defaultNegativeScore
	}

	return word.NegativeScore * hit.Location.Multiplier() * hit.Count
}

func concat(item domain.Item) (string, []fieldSpan) {
	fields := []struct {
		location domain.Location
		text     string
	}{
		{domain.LocationTitle, item.Title},
		{domain.LocationDescription, item.Description},
		{domain.LocationTags, item.TagsText()},
		{domain.LocationTranscript, item.Transcript},
	}

	var b strings.Builder

	spans := make([]fieldSpan, 0, len(fields))

	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}

		start := b.Len()
		b.WriteString(f.text)
		spans = append(spans, fieldSpan{location: f.location, start: start, end: b.Len()})
	}

	return b.String(), spans
}

func locate(spans []fieldSpan, offset int) domain.Location {
	for _, s := range spans {
		if offset < s.end {
			return s.location
		}
	}

	return spans[len(spans)-1].location
}

func clamp(score int) int {
	if score < domain.MinScore {
		return domain.MinScore
	}

	if score > domain.MaxScore {
		return domain.MaxScore
	}

	return score
}
