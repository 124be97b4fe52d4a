// Package source parses user-uploaded id and keyword lists for custom target lists.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// DefaultMaxRows caps the number of ids taken from one source file.
const DefaultMaxRows = 200000

var (
	videoIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	channelIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{24}$`)
)

// IDList is the result of parsing a source file.
type IDList struct {
	IDs []string

	// Dropped counts non-blank rows without a well-formed id.
	Dropped int

	// Truncated is set when the file held more than the row cap.
	Truncated bool
}

// ExtractIDs reads one url or id per CSV row and returns the well-formed ids
// for itemType in file order. Blank rows are skipped and rows without an id
// are dropped. At most maxRows ids are kept.
func ExtractIDs(r io.Reader, itemType domain.ItemType, maxRows int) (IDList, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var list IDList

	seen := make(map[string]struct{})

	err := eachFirstColumn(r, func(value string) bool {
		id, ok := ParseID(value, itemType)
		if !ok {
			list.Dropped++

			return true
		}

		if _, dup := seen[id]; dup {
			return true
		}

		if len(list.IDs) >= maxRows {
			list.Truncated = true

			return false
		}

		seen[id] = struct{}{}
		list.IDs = append(list.IDs, id)

		return true
	})
	if err != nil {
		return list, err
	}

	if len(list.IDs) == 0 {
		return list, apperrors.NewValidationError("source_file",
			fmt.Sprintf("mismatching file format, %s lists need %s urls", strings.ToLower(itemType.Plural()), itemType),
			apperrors.ErrEmptySourceList)
	}

	return list, nil
}

// ParseID extracts the platform id of itemType from a url or bare id.
func ParseID(value string, itemType domain.ItemType) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	pattern := videoIDPattern
	if itemType == domain.ItemTypeChannel {
		pattern = channelIDPattern
	}

	if pattern.MatchString(value) {
		return value, true
	}

	u, err := url.Parse(value)
	if err != nil {
		return "", false
	}

	if v := u.Query().Get("v"); itemType == domain.ItemTypeVideo && pattern.MatchString(v) {
		return v, true
	}

	segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	last := segments[len(segments)-1]

	if pattern.MatchString(last) {
		return last, true
	}

	return "", false
}

// SameIDs reports whether a and b hold the same ids ignoring order, duplicates and case.
func SameIDs(a, b []string) bool {
	left := upperSet(a)
	right := upperSet(b)

	if len(left) != len(right) {
		return false
	}

	for id := range left {
		if _, ok := right[id]; !ok {
			return false
		}
	}

	return true
}

func upperSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[strings.ToUpper(id)] = struct{}{}
	}

	return out
}

// WriteIDs writes ids as a one-column CSV.
func WriteIDs(w io.Writer, ids []string) error {
	cw := csv.NewWriter(w)

	for _, id := range ids {
		if err := cw.Write([]string{id}); err != nil {
			return fmt.Errorf("write source id: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush source ids: %w", err)
	}

	return nil
}

// ReadKeywords reads one inclusion keyword per row from the first column.
func ReadKeywords(r io.Reader) ([]string, error) {
	var out []string

	seen := make(map[string]struct{})

	err := eachFirstColumn(r, func(value string) bool {
		key := strings.ToLower(value)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			out = append(out, value)
		}

		return true
	})
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, apperrors.NewValidationError("inclusion_file", "empty inclusion keywords file", apperrors.ErrEmptyKeywordList)
	}

	return out, nil
}

// ReadExclusionKeywords reads keyword,category rows. It returns the rows and
// the distinct categories in file order.
func ReadExclusionKeywords(r io.Reader) ([]domain.ExclusionRow, []string, error) {
	cr := newReader(r)

	var (
		rows       []domain.ExclusionRow
		categories []string
	)

	seenRows := make(map[string]struct{})
	seenCategories := make(map[string]struct{})

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, nil, fmt.Errorf("read exclusion keywords: %w", err)
		}

		row := trimRow(record)
		if row.Keyword() == "" {
			continue
		}

		if _, dup := seenRows[row.Key()]; dup {
			continue
		}

		seenRows[row.Key()] = struct{}{}
		rows = append(rows, row)

		if c := row.Category(); c != "" {
			if _, dup := seenCategories[c]; !dup {
				seenCategories[c] = struct{}{}
				categories = append(categories, c)
			}
		}
	}

	if len(rows) == 0 {
		return nil, nil, apperrors.NewValidationError("exclusion_file", "empty exclusion keywords file", apperrors.ErrEmptyKeywordList)
	}

	return rows, categories, nil
}

// SameExclusionRows compares exclusion rows as sets.
func SameExclusionRows(a, b []domain.ExclusionRow) bool {
	left := make([]string, len(a))
	for i, row := range a {
		left[i] = row.Key()
	}

	right := make([]string, len(b))
	for i, row := range b {
		right[i] = row.Key()
	}

	return SameKeywords(left, right)
}

// SameKeywords compares keyword lists as sets.
func SameKeywords(a, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, k := range a {
		left[k] = struct{}{}
	}

	right := make(map[string]struct{}, len(b))
	for _, k := range b {
		right[k] = struct{}{}
	}

	if len(left) != len(right) {
		return false
	}

	for k := range left {
		if _, ok := right[k]; !ok {
			return false
		}
	}

	return true
}

// trimRow trims every column and drops trailing empty columns.
func trimRow(record []string) domain.ExclusionRow {
	row := make(domain.ExclusionRow, len(record))
	for i, col := range record {
		row[i] = strings.TrimSpace(col)
	}

	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}

	return row
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	return cr
}

// eachFirstColumn calls fn with the trimmed first column of every non-blank row
// until fn returns false.
func eachFirstColumn(r io.Reader, fn func(value string) bool) error {
	cr := newReader(r)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read csv row: %w", err)
		}

		if len(record) == 0 {
			continue
		}

		value := strings.TrimSpace(record[0])
		if value == "" {
			continue
		}

		if !fn(value) {
			return nil
		}
	}
}
