package topic

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

const matchTimeout = 2 * time.Second

// Pattern matches the keywords of one topic. Keywords are regular expression
// alternatives and may use backtracking constructs.
type Pattern struct {
	re *regexp2.Regexp
}

// CompilePattern joins keywords into a single alternation.
func CompilePattern(keywords []string) (*Pattern, error) {
	parts := make([]string, 0, len(keywords))

	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			parts = append(parts, k)
		}
	}

	if len(parts) == 0 {
		return nil, apperrors.ErrEmptyKeywordList
	}

	re, err := regexp2.Compile(strings.Join(parts, "|"), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile topic pattern: %w", err)
	}

	re.MatchTimeout = matchTimeout

	return &Pattern{re: re}, nil
}

// FindAll returns every match in text in order.
func (p *Pattern) FindAll(text string) ([]string, error) {
	var out []string

	m, err := p.re.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, m.String())
		m, err = p.re.FindNextMatch(m)
	}

	if err != nil {
		return out, fmt.Errorf("match topic pattern: %w", err)
	}

	return out, nil
}
