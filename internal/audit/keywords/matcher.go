// Package keywords compiles bad-word lists into whole-word, case-insensitive matchers.
//
// Word boundaries are Unicode aware: a match must not be preceded or followed by
// a letter, digit or underscore of any script. An empty word list compiles into a
// matcher that never matches.
package keywords

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	boundaryClass = `[^\p{L}\p{N}\p{M}_]`
	patternFmt    = `(?i)(?:^|%s)(%s)(?:%s|$)`
)

// Match is one occurrence of a listed word in a text.
type Match struct {
	// Word is the listed word as supplied to Compile.
	Word string
	// Text is the matched span as it appears in the scanned text.
	Text  string
	Start int
	End   int
}

// Matcher finds whole-word occurrences of a fixed word list.
type Matcher struct {
	re    *regexp.Regexp
	words map[string]string
}

// Compile builds a Matcher for words. Blank and duplicate words are dropped.
func Compile(words []string) (*Matcher, error) {
	canonical := make(map[string]string, len(words))

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}

		key := FoldKey(w)
		if _, ok := canonical[key]; !ok {
			canonical[key] = w
		}
	}

	m := &Matcher{words: canonical}
	if len(canonical) == 0 {
		return m, nil
	}

	unique := make([]string, 0, len(canonical))
	for _, w := range canonical {
		unique = append(unique, w)
	}

	// Longest first so that phrases win over their own prefixes.
	sort.Slice(unique, func(i, j int) bool {
		if len(unique[i]) != len(unique[j]) {
			return len(unique[i]) > len(unique[j])
		}

		return unique[i] < unique[j]
	})

	quoted := make([]string, len(unique))
	for i, w := range unique {
		quoted[i] = regexp.QuoteMeta(w)
	}

	re, err := regexp.Compile(fmt.Sprintf(patternFmt, boundaryClass, strings.Join(quoted, "|"), boundaryClass))
	if err != nil {
		return nil, fmt.Errorf("compile keyword pattern: %w", err)
	}

	m.re = re

	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(words []string) *Matcher {
	m, err := Compile(words)
	if err != nil {
		panic(err)
	}

	return m
}

// Len returns the number of distinct words.
func (m *Matcher) Len() int {
	return len(m.words)
}

// Empty reports whether the matcher never matches.
func (m *Matcher) Empty() bool {
	return m.re == nil
}

// Matches returns every occurrence of a listed word in text, in order.
func (m *Matcher) Matches(text string) []Match {
	if m == nil || m.re == nil || text == "" {
		return nil
	}

	var out []Match

	pos := 0
	for pos <= len(text) {
		loc := m.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}

		start, end := pos+loc[2], pos+loc[3]

		// A slice that starts right after a word character must not count as a boundary.
		if start == pos && pos > 0 && isWordRune(lastRune(text[:pos])) {
			_, size := utf8.DecodeRuneInString(text[pos:])
			if size == 0 {
				break
			}

			pos += size

			continue
		}

		span := text[start:end]
		out = append(out, Match{
			Word:  m.canonical(span),
			Text:  span,
			Start: start,
			End:   end,
		})

		pos = end
		if end == start {
			pos++
		}
	}

	return out
}

// FindAll returns the matched spans in order.
func (m *Matcher) FindAll(text string) []string {
	matches := m.Matches(text)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, len(matches))
	for i, match := range matches {
		out[i] = match.Text
	}

	return out
}

// Count returns the number of occurrences in text.
func (m *Matcher) Count(text string) int {
	return len(m.Matches(text))
}

// Contains reports whether text contains at least one listed word.
func (m *Matcher) Contains(text string) bool {
	return len(m.Matches(text)) > 0
}

func (m *Matcher) canonical(span string) string {
	if w, ok := m.words[FoldKey(span)]; ok {
		return w
	}

	return span
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.M, r)
}
