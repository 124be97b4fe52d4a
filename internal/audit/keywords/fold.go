package keywords

import (
	"strings"
	"unicode"
)

// FoldKey maps every rune of s to the smallest rune of its simple case folding
// orbit. Two strings have the same key exactly when a (?i) pattern built from
// one matches the other rune for rune, so a matched span always finds the
// listed word it came from.
func FoldKey(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		b.WriteRune(foldRune(r))
	}

	return b.String()
}

func foldRune(r rune) rune {
	least := r

	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < least {
			least = f
		}
	}

	return least
}
