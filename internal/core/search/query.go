package search

import (
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// clause is one node of the index bool query DSL.
type clause map[string]any

// buildQuery ANDs filters into a single bool query.
func buildQuery(filters []domain.Filter) clause {
	if len(filters) == 0 {
		return clause{"match_all": clause{}}
	}

	must := make([]clause, 0, len(filters))
	for _, f := range filters {
		must = append(must, translate(f))
	}

	return clause{"bool": clause{"filter": must}}
}

func translate(f domain.Filter) clause {
	c := positive(f)
	if f.Not {
		return clause{"bool": clause{"must_not": []clause{c}}}
	}

	return c
}

func positive(f domain.Filter) clause {
	switch f.Op {
	case domain.OpTerm:
		return clause{"term": clause{f.Field: f.Value}}
	case domain.OpTerms:
		return clause{"terms": clause{f.Field: f.Values}}
	case domain.OpRange:
		return clause{"range": clause{f.Field: bounds(f.Range)}}
	case domain.OpExists:
		return clause{"exists": clause{"field": f.Field}}
	case domain.OpMatchPhrase:
		return clause{"match_phrase": clause{f.Field: f.Value}}
	case domain.OpOr:
		should := make([]clause, 0, len(f.Any))
		for _, sub := range f.Any {
			should = append(should, translate(sub))
		}

		return clause{"bool": clause{"should": should, "minimum_should_match": 1}}
	default:
		return clause{"match_none": clause{}}
	}
}

func bounds(r domain.Range) clause {
	out := clause{}

	if r.GTE != nil {
		out["gte"] = r.GTE
	}

	if r.LTE != nil {
		out["lte"] = r.LTE
	}

	if r.GT != nil {
		out["gt"] = r.GT
	}

	if r.LT != nil {
		out["lt"] = r.LT
	}

	return out
}
