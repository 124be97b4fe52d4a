package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// LookupKind tags the outcome of a manual lookup.
type LookupKind int

const (
	LookupFound LookupKind = iota
	LookupNotFound
	LookupInvalid
)

// Lookup is the tagged result of resolving a user-supplied reference.
type Lookup[T any] struct {
	Kind   LookupKind
	Value  T
	Reason string
}

// Found wraps a resolved value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Kind: LookupFound, Value: v}
}

// NotFound reports a well-formed reference with no match.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{Kind: LookupNotFound}
}

// Invalid reports a malformed reference.
func Invalid[T any](reason string) Lookup[T] {
	return Lookup[T]{Kind: LookupInvalid, Reason: reason}
}

// LookupCategory resolves an item category from its stored candidates in
// priority order. The first non-blank candidate decides: it is Found unless it
// carries no letters, such as a bare numeric platform category id.
func LookupCategory(candidates ...string) Lookup[string] {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}

		if !strings.ContainsFunc(c, unicode.IsLetter) {
			return Invalid[string](fmt.Sprintf("category %q has no letters", c))
		}

		return Found(c)
	}

	return NotFound[string]()
}

// BadWordCategory is a brand-safety category.
type BadWordCategory struct {
	ID   int64
	Name string
}
