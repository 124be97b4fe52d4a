// Package query turns saved custom target list parameters into store-agnostic filters.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// Query parameter keys.
const (
	ParamMinimumViews             = "minimum_views"
	ParamMinimumViewsIncludeNA    = "minimum_views_include_na"
	ParamMinimumSubscribers       = "minimum_subscribers"
	ParamMinimumSubscribersNA     = "minimum_subscribers_include_na"
	ParamMinimumVideos            = "minimum_videos"
	ParamMinimumVideosIncludeNA   = "minimum_videos_include_na"
	ParamVideoIDs                 = "video_ids"
	ParamLastUploadDate           = "last_upload_date"
	ParamSentiment                = "sentiment"
	ParamLanguages                = "languages"
	ParamContentCategories        = "content_categories"
	ParamExcludeContentCategories = "exclude_content_categories"
	ParamCountries                = "countries"
	ParamCountriesIncludeNA       = "countries_include_na"
	ParamScoreThreshold           = "score_threshold"
	ParamAgeRestricted            = "age_restricted"
	ParamIsMonetizable            = "is_monetizable"
	ParamInclusionHitThreshold    = "inclusion_hit_threshold"
	ParamExclusionHitThreshold    = "exclusion_hit_threshold"

	ParamVideoExclusionScoreThreshold = "video_exclusion_score_threshold"
)

// ScoreThreshold maps the client severity level onto a minimum overall score.
// Unknown levels report false.
func ScoreThreshold(level int) (int, bool) {
	switch level {
	case 1:
		return 0, true
	case 2:
		return 70, true
	case 3:
		return 80, true
	case 4:
		return 90, true
	default:
		return 0, false
	}
}

// SentimentThreshold maps the client sentiment level onto a minimum sentiment percentage.
func SentimentThreshold(level int) (int, bool) {
	switch level {
	case 1:
		return 0, true
	case 2:
		return 79, true
	case 3:
		return 90, true
	case 4:
		return 100, true
	default:
		return 0, false
	}
}

// Build converts params into filters for items of itemType. Clauses are ANDed.
// Videos exclude age-restricted items unless age_restricted is set.
func Build(itemType domain.ItemType, params domain.QueryParams) ([]domain.Filter, error) {
	var filters []domain.Filter

	add := func(f domain.Filter) { filters = append(filters, f) }

	minimums := []struct {
		key, naKey, field string
		channelOnly       bool
	}{
		{key: ParamMinimumViews, naKey: ParamMinimumViewsIncludeNA, field: domain.FieldViews},
		{key: ParamMinimumSubscribers, naKey: ParamMinimumSubscribersNA, field: domain.FieldSubscribers, channelOnly: true},
		{key: ParamMinimumVideos, naKey: ParamMinimumVideosIncludeNA, field: domain.FieldVideos, channelOnly: true},
	}

	for _, m := range minimums {
		if m.channelOnly && itemType != domain.ItemTypeChannel {
			continue
		}

		f, ok, err := minimum(params, m.key, m.naKey, m.field)
		if err != nil {
			return nil, err
		}

		if ok {
			add(f)
		}
	}

	if ids := params.Strings(ParamVideoIDs); len(ids) > 0 {
		add(domain.Terms(domain.FieldID, ids...))
	}

	if date := params.String(ParamLastUploadDate); date != "" {
		add(domain.Between(domain.FieldLastUpload, domain.Range{GTE: date}))
	}

	if params.Has(ParamSentiment) {
		level, _ := params.Int(ParamSentiment)
		if threshold, ok := SentimentThreshold(level); ok && threshold > 0 {
			add(domain.Between(domain.FieldSentiment, domain.Range{GTE: threshold}))
		}
	}

	if langs := params.Strings(ParamLanguages); len(langs) > 0 {
		add(anyTerm(domain.FieldLanguage, langs))
	}

	if cats := params.Strings(ParamContentCategories); len(cats) > 0 {
		add(anyTerm(domain.FieldCategory, cats))
	}

	if cats := params.Strings(ParamExcludeContentCategories); len(cats) > 0 {
		add(domain.Not(domain.Terms(domain.FieldCategory, cats...)))
	}

	if countries := params.Strings(ParamCountries); len(countries) > 0 {
		f := anyTerm(domain.FieldCountry, countries)
		if na, _ := params.Bool(ParamCountriesIncludeNA); na {
			f.Any = append(f.Any, domain.Not(domain.Exists(domain.FieldCountry)))
		}

		add(f)
	}

	if params.Has(ParamScoreThreshold) {
		f, err := scoreFilter(params)
		if err != nil {
			return nil, err
		}

		add(f)
	}

	if b, ok := params.Bool(ParamIsMonetizable); ok && b {
		add(domain.Term(domain.FieldMonetizable, true))
	}

	if itemType == domain.ItemTypeVideo {
		if allow, _ := params.Bool(ParamAgeRestricted); !allow {
			add(domain.Term(domain.FieldAgeRestricted, false))
		}
	}

	return filters, nil
}

func minimum(params domain.QueryParams, key, naKey, field string) (domain.Filter, bool, error) {
	if !params.Has(key) {
		return domain.Filter{}, false, nil
	}

	n, ok := params.Int(key)
	if !ok || n < 0 {
		return domain.Filter{}, false, apperrors.NewValidationError(key, "must be a non-negative integer", apperrors.ErrInvalidThreshold)
	}

	if n == 0 {
		return domain.Filter{}, false, nil
	}

	f := domain.Or(domain.Between(field, domain.Range{GTE: n}))
	if na, _ := params.Bool(naKey); na {
		f.Any = append(f.Any, domain.Term(field, 0))
	}

	return f, true, nil
}

func scoreFilter(params domain.QueryParams) (domain.Filter, error) {
	level, ok := params.Int(ParamScoreThreshold)
	if !ok {
		return domain.Filter{}, apperrors.NewValidationError(ParamScoreThreshold, "must be an integer", apperrors.ErrInvalidThreshold)
	}

	threshold, ok := ScoreThreshold(level)
	if !ok {
		return domain.Filter{}, apperrors.NewValidationError(ParamScoreThreshold,
			fmt.Sprintf("unknown level %d, allowed 1-4", level), apperrors.ErrInvalidThreshold)
	}

	f := domain.Or(domain.Between(domain.FieldScore, domain.Range{GTE: threshold}))
	if threshold == 0 {
		f.Any = append(f.Any, domain.Not(domain.Exists(domain.FieldScore)))
	}

	return f, nil
}

func anyTerm(field string, values []string) domain.Filter {
	terms := make([]domain.Filter, 0, len(values))
	for _, v := range values {
		terms = append(terms, domain.Term(field, v))
	}

	return domain.Or(terms...)
}

// Changed reports whether any key of next differs from prev. Keys absent from
// next are not compared, so partial updates only compare what they carry.
func Changed(prev, next domain.QueryParams) bool {
	for key, v := range next {
		if !sameValue(prev[key], v) {
			return true
		}
	}

	return false
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := number(a); ok {
		bf, ok := number(b)

		return ok && af == bf
	}

	return fmt.Sprint(normalizeList(a)) == fmt.Sprint(normalizeList(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func normalizeList(v any) any {
	switch list := v.(type) {
	case []any:
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = fmt.Sprint(e)
		}

		return out
	default:
		return v
	}
}

// Snapshot renders params and the derived filters as a JSON-ready map.
func Snapshot(params domain.QueryParams, filters []domain.Filter) map[string]any {
	rendered := make([]map[string]any, 0, len(filters))
	for _, f := range filters {
		rendered = append(rendered, render(f))
	}

	return map[string]any{
		"params":  map[string]any(params.Clone()),
		"filters": rendered,
	}
}

func render(f domain.Filter) map[string]any {
	out := map[string]any{"op": string(f.Op)}

	if f.Field != "" {
		out["field"] = f.Field
	}

	if f.Not {
		out["not"] = true
	}

	switch f.Op {
	case domain.OpTerm, domain.OpMatchPhrase:
		out["value"] = f.Value
	case domain.OpTerms:
		out["values"] = f.Values
	case domain.OpRange:
		bounds := map[string]any{}
		for name, b := range map[string]any{"gte": f.Range.GTE, "lte": f.Range.LTE, "gt": f.Range.GT, "lt": f.Range.LT} {
			if b != nil {
				bounds[name] = b
			}
		}

		out["range"] = bounds
	case domain.OpOr:
		anyOf := make([]map[string]any, 0, len(f.Any))
		for _, sub := range f.Any {
			anyOf = append(anyOf, render(sub))
		}

		out["any"] = anyOf
	}

	return out
}
