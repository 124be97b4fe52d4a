package ctl

import (
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/query"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/source"
)

// Action is the outcome of an update decision.
type Action int

const (
	ActionNoOp Action = iota
	ActionRename
	ActionRegenerate
)

func (a Action) String() string {
	switch a {
	case ActionRename:
		return "rename"
	case ActionRegenerate:
		return "regenerate"
	default:
		return "noop"
	}
}

// Reason explains why an action was chosen.
type Reason string

const (
	ReasonTitleChanged     Reason = "title_changed"
	ReasonParamsChanged    Reason = "params_changed"
	ReasonSourceChanged    Reason = "source_changed"
	ReasonInclusionChanged Reason = "inclusion_changed"
	ReasonExclusionChanged Reason = "exclusion_changed"
	ReasonInclusionRemoved Reason = "inclusion_removed"
	ReasonExclusionRemoved Reason = "exclusion_removed"
)

// KeywordChange describes one keyword gate in an update request.
type KeywordChange[T any] struct {
	// Old holds the keywords stored on the current audit processor.
	Old []T

	// New holds the keywords of an uploaded file. Nil when no file was supplied.
	New []T

	// Removed is set when the request nulls the gate threshold.
	Removed bool
}

// Supplied reports whether the request carried a keyword file.
func (k KeywordChange[T]) Supplied() bool {
	return k.New != nil
}

// DecisionInput is everything an update is compared on.
type DecisionInput struct {
	TitleChanged bool

	OldParams domain.QueryParams
	NewParams domain.QueryParams

	// OldSourceIDs are the ids extracted when the list was last materialized.
	OldSourceIDs []string

	// NewSourceIDs are the ids of an uploaded source file. Nil when no file was supplied.
	NewSourceIDs []string

	Inclusion KeywordChange[string]
	Exclusion KeywordChange[domain.ExclusionRow]
}

// Decision is the result of Decide.
type Decision struct {
	Action  Action
	Reasons []Reason
}

// Decide maps an update onto NoOp, Rename or Regenerate.
//
//	filter params changed                        -> Regenerate
//	source file supplied with a different id set -> Regenerate
//	keyword file supplied with different rows    -> Regenerate
//	keyword threshold nulled while keywords set  -> Regenerate
//	only the title changed                       -> Rename
//	nothing changed                              -> NoOp
//
// An omitted file is never a change.
func Decide(in DecisionInput) Decision {
	var reasons []Reason

	if query.Changed(in.OldParams, in.NewParams) {
		reasons = append(reasons, ReasonParamsChanged)
	}

	if in.NewSourceIDs != nil && !source.SameIDs(in.OldSourceIDs, in.NewSourceIDs) {
		reasons = append(reasons, ReasonSourceChanged)
	}

	if in.Inclusion.Supplied() && !source.SameKeywords(in.Inclusion.Old, in.Inclusion.New) {
		reasons = append(reasons, ReasonInclusionChanged)
	}

	if in.Exclusion.Supplied() && !source.SameExclusionRows(in.Exclusion.Old, in.Exclusion.New) {
		reasons = append(reasons, ReasonExclusionChanged)
	}

	if in.Inclusion.Removed && len(in.Inclusion.Old) > 0 {
		reasons = append(reasons, ReasonInclusionRemoved)
	}

	if in.Exclusion.Removed && len(in.Exclusion.Old) > 0 {
		reasons = append(reasons, ReasonExclusionRemoved)
	}

	if len(reasons) > 0 {
		return Decision{Action: ActionRegenerate, Reasons: reasons}
	}

	if in.TitleChanged {
		return Decision{Action: ActionRename, Reasons: []Reason{ReasonTitleChanged}}
	}

	return Decision{Action: ActionNoOp}
}
