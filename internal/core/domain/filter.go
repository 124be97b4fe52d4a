package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical document field names understood by every item store adapter.
const (
	FieldID            = "main.id"
	FieldChannelID     = "channel.id"
	FieldTitle         = "general_data.title"
	FieldDescription   = "general_data.description"
	FieldTags          = "general_data.tags"
	FieldCategory      = "general_data.category"
	FieldLanguage      = "general_data.language"
	FieldCountry       = "general_data.country_code"
	FieldAgeRestricted = "general_data.age_restricted"
	FieldViews         = "stats.views"
	FieldLikes         = "stats.likes"
	FieldDislikes      = "stats.dislikes"
	FieldSubscribers   = "stats.subscribers"
	FieldVideos        = "stats.total_videos_count"
	FieldLastUpload    = "stats.last_video_published_at"
	FieldSentiment     = "stats.sentiment"
	FieldScore         = "brand_safety.overall_score"
	FieldMonetizable   = "monetization.is_monetizable"
	FieldTranscript    = "transcript"
)

// FilterOp is the kind of a filter clause.
type FilterOp string

const (
	OpTerm        FilterOp = "term"
	OpTerms       FilterOp = "terms"
	OpRange       FilterOp = "range"
	OpExists      FilterOp = "exists"
	OpMatchPhrase FilterOp = "match_phrase"
	OpOr          FilterOp = "or"
)

// Range bounds a numeric or date field. Nil bounds are open.
type Range struct {
	GTE any
	LTE any
	GT  any
	LT  any
}

// Filter is one clause of a store-agnostic item query. Clauses in a slice are ANDed.
type Filter struct {
	Op     FilterOp
	Field  string
	Value  any
	Values []string
	Range  Range
	Any    []Filter
	Not    bool
}

// Term matches field == value.
func Term(field string, value any) Filter {
	return Filter{Op: OpTerm, Field: field, Value: value}
}

// Terms matches field in values.
func Terms(field string, values ...string) Filter {
	return Filter{Op: OpTerms, Field: field, Values: values}
}

// Between matches field within r.
func Between(field string, r Range) Filter {
	return Filter{Op: OpRange, Field: field, Range: r}
}

// Exists matches documents where field is set.
func Exists(field string) Filter {
	return Filter{Op: OpExists, Field: field}
}

// MatchPhrase matches documents whose field contains phrase.
func MatchPhrase(field, phrase string) Filter {
	return Filter{Op: OpMatchPhrase, Field: field, Value: phrase}
}

// Or matches when at least one of filters matches.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Any: filters}
}

// Not negates f.
func Not(f Filter) Filter {
	f.Not = !f.Not
	return f
}

// Match evaluates f against an in-memory item.
func (f Filter) Match(item Item) bool {
	matched := f.match(item)
	if f.Not {
		return !matched
	}

	return matched
}

func (f Filter) match(item Item) bool {
	switch f.Op {
	case OpOr:
		for _, sub := range f.Any {
			if sub.Match(item) {
				return true
			}
		}

		return false
	case OpTerm:
		v, ok := item.Field(f.Field)
		return ok && equalValue(v, f.Value)
	case OpTerms:
		v, ok := item.Field(f.Field)
		if !ok {
			return false
		}

		for _, want := range f.Values {
			if equalValue(v, want) {
				return true
			}
		}

		return false
	case OpRange:
		v, ok := item.Field(f.Field)
		return ok && f.Range.contains(v)
	case OpExists:
		v, ok := item.Field(f.Field)
		return ok && !isZero(v)
	case OpMatchPhrase:
		v, ok := item.Field(f.Field)
		return ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(f.Value)))
	default:
		return false
	}
}

// Field returns the value of a canonical field name.
func (i Item) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return i.ID, true
	case FieldChannelID:
		return i.ChannelID, true
	case FieldTitle:
		return i.Title, true
	case FieldDescription:
		return i.Description, true
	case FieldTags:
		return i.TagsText(), true
	case FieldCategory:
		return i.Category, true
	case FieldLanguage:
		return i.Language, true
	case FieldCountry:
		return i.Country, true
	case FieldAgeRestricted:
		return i.AgeRestricted, true
	case FieldViews:
		return i.Stats.Views, true
	case FieldLikes:
		return i.Stats.Likes, true
	case FieldDislikes:
		return i.Stats.Dislikes, true
	case FieldSubscribers:
		return i.Stats.Subscribers, true
	case FieldVideos:
		return i.Stats.Videos, true
	case FieldSentiment:
		return i.Stats.Sentiment, true
	case FieldLastUpload:
		return i.LastUploadDate, !i.LastUploadDate.IsZero()
	case FieldScore:
		if i.BrandSafetyScore == nil {
			return nil, false
		}

		return *i.BrandSafetyScore, true
	case FieldMonetizable:
		return i.IsMonetizable, true
	case FieldTranscript:
		return i.Transcript, true
	default:
		return nil, false
	}
}

func (r Range) contains(v any) bool {
	if t, ok := v.(time.Time); ok {
		return r.containsTime(t)
	}

	n, ok := toFloat(v)
	if !ok {
		return false
	}

	check := func(bound any, ok func(b float64) bool) bool {
		if bound == nil {
			return true
		}

		b, valid := toFloat(bound)

		return valid && ok(b)
	}

	return check(r.GTE, func(b float64) bool { return n >= b }) &&
		check(r.LTE, func(b float64) bool { return n <= b }) &&
		check(r.GT, func(b float64) bool { return n > b }) &&
		check(r.LT, func(b float64) bool { return n < b })
}

func (r Range) containsTime(t time.Time) bool {
	check := func(bound any, ok func(b time.Time) bool) bool {
		if bound == nil {
			return true
		}

		b, valid := toTime(bound)

		return valid && ok(b)
	}

	return check(r.GTE, func(b time.Time) bool { return !t.Before(b) }) &&
		check(r.LTE, func(b time.Time) bool { return !t.After(b) }) &&
		check(r.GT, func(b time.Time) bool { return t.After(b) }) &&
		check(r.LT, func(b time.Time) bool { return t.Before(b) })
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}

	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func equalValue(have, want any) bool {
	if hf, ok := toFloat(have); ok {
		if wf, ok := toFloat(want); ok {
			return hf == wf
		}
	}

	if hb, ok := have.(bool); ok {
		switch w := want.(type) {
		case bool:
			return hb == w
		case string:
			wb, err := strconv.ParseBool(w)
			return err == nil && hb == wb
		}
	}

	return strings.EqualFold(fmt.Sprint(have), fmt.Sprint(want))
}

func isZero(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case nil:
		return true
	default:
		return false
	}
}
