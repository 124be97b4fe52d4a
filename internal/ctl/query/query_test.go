package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

func intPtr(v int) *int { return &v }

func matchAll(filters []domain.Filter, item domain.Item) bool {
	for _, f := range filters {
		if !f.Match(item) {
			return false
		}
	}

	return true
}

func TestScoreThreshold(t *testing.T) {
	for level, want := range map[int]int{1: 0, 2: 70, 3: 80, 4: 90} {
		got, ok := ScoreThreshold(level)
		require.True(t, ok)
		assert.Equal(t, want, got, "level %d", level)
	}

	_, ok := ScoreThreshold(5)
	assert.False(t, ok)
}

func TestBuildVideoDefaults(t *testing.T) {
	filters, err := Build(domain.ItemTypeVideo, domain.QueryParams{})
	require.NoError(t, err)

	assert.True(t, matchAll(filters, domain.Item{ID: "v1"}))
	assert.False(t, matchAll(filters, domain.Item{ID: "v2", AgeRestricted: true}))

	filters, err = Build(domain.ItemTypeVideo, domain.QueryParams{ParamAgeRestricted: true})
	require.NoError(t, err)
	assert.True(t, matchAll(filters, domain.Item{ID: "v2", AgeRestricted: true}))
}

func TestBuildFilters(t *testing.T) {
	params := domain.QueryParams{
		ParamMinimumViews:             1000,
		ParamMinimumViewsIncludeNA:    true,
		ParamMinimumSubscribers:       "500",
		ParamLanguages:                []any{"en", "de"},
		ParamExcludeContentCategories: "Music",
		ParamCountries:                []string{"US"},
		ParamCountriesIncludeNA:       true,
		ParamScoreThreshold:           3,
	}

	filters, err := Build(domain.ItemTypeChannel, params)
	require.NoError(t, err)

	base := domain.Item{
		ID: "c1", Language: "en", Category: "Gaming", Country: "US",
		Stats:            domain.Stats{Views: 5000, Subscribers: 900},
		BrandSafetyScore: intPtr(85),
	}

	tests := []struct {
		name   string
		mutate func(*domain.Item)
		want   bool
	}{
		{name: "passes", mutate: func(*domain.Item) {}, want: true},
		{name: "few views", mutate: func(i *domain.Item) { i.Stats.Views = 10 }, want: false},
		{name: "hidden views included", mutate: func(i *domain.Item) { i.Stats.Views = 0 }, want: true},
		{name: "few subscribers", mutate: func(i *domain.Item) { i.Stats.Subscribers = 100 }, want: false},
		{name: "other language", mutate: func(i *domain.Item) { i.Language = "fr" }, want: false},
		{name: "excluded category", mutate: func(i *domain.Item) { i.Category = "Music" }, want: false},
		{name: "other country", mutate: func(i *domain.Item) { i.Country = "FR" }, want: false},
		{name: "missing country", mutate: func(i *domain.Item) { i.Country = "" }, want: true},
		{name: "low score", mutate: func(i *domain.Item) { i.BrandSafetyScore = intPtr(75) }, want: false},
		{name: "unscored", mutate: func(i *domain.Item) { i.BrandSafetyScore = nil }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := base
			tt.mutate(&item)
			assert.Equal(t, tt.want, matchAll(filters, item))
		})
	}
}

func TestBuildLowestScoreLevelIncludesUnscored(t *testing.T) {
	filters, err := Build(domain.ItemTypeChannel, domain.QueryParams{ParamScoreThreshold: 1})
	require.NoError(t, err)

	assert.True(t, matchAll(filters, domain.Item{ID: "c1"}))
	assert.True(t, matchAll(filters, domain.Item{ID: "c2", BrandSafetyScore: intPtr(3)}))
}

func TestBuildChannelOnlyMinimumsIgnoredForVideos(t *testing.T) {
	filters, err := Build(domain.ItemTypeVideo, domain.QueryParams{ParamMinimumSubscribers: 100})
	require.NoError(t, err)

	assert.True(t, matchAll(filters, domain.Item{ID: "v1"}))
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		params domain.QueryParams
		field  string
	}{
		{name: "unknown score level", params: domain.QueryParams{ParamScoreThreshold: 7}, field: ParamScoreThreshold},
		{name: "non numeric score level", params: domain.QueryParams{ParamScoreThreshold: "high"}, field: ParamScoreThreshold},
		{name: "negative views", params: domain.QueryParams{ParamMinimumViews: -1}, field: ParamMinimumViews},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(domain.ItemTypeChannel, tt.params)
			require.ErrorIs(t, err, apperrors.ErrInvalidThreshold)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestChanged(t *testing.T) {
	prev := domain.QueryParams{ParamMinimumViews: 0, ParamLanguages: []any{"en"}, ParamScoreThreshold: float64(2)}

	assert.False(t, Changed(prev, domain.QueryParams{ParamMinimumViews: 0, ParamScoreThreshold: 2}))
	assert.False(t, Changed(prev, domain.QueryParams{ParamLanguages: []string{"en"}}))
	assert.False(t, Changed(prev, domain.QueryParams{}))
	assert.True(t, Changed(prev, domain.QueryParams{ParamMinimumViews: 1000}))
	assert.True(t, Changed(prev, domain.QueryParams{ParamLanguages: []string{"en", "de"}}))
	assert.True(t, Changed(prev, domain.QueryParams{ParamCountries: []string{"US"}}))
	assert.True(t, Changed(prev, domain.QueryParams{ParamScoreThreshold: nil}))
}

func TestSnapshot(t *testing.T) {
	params := domain.QueryParams{ParamMinimumViews: 10}
	filters, err := Build(domain.ItemTypeVideo, params)
	require.NoError(t, err)

	snap := Snapshot(params, filters)

	assert.Equal(t, map[string]any{ParamMinimumViews: 10}, snap["params"])

	rendered, ok := snap["filters"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rendered, 2)
	assert.Equal(t, "or", rendered[0]["op"])
	assert.Equal(t, map[string]any{"op": "term", "field": domain.FieldAgeRestricted, "value": false}, rendered[1])
}
