package ctl

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

const maxTitleLength = 255

// TitleHash hashes the case-folded, trimmed title.
func TitleHash(title string) string {
	sum := sha256.Sum256([]byte(cases.Fold().String(strings.TrimSpace(title))))

	return hex.EncodeToString(sum[:])
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)

	switch {
	case title == "":
		return "", apperrors.NewValidationError("title", "must not be empty", nil)
	case len(title) > maxTitleLength:
		return "", apperrors.NewValidationError("title", "must be at most 255 characters", nil)
	default:
		return title, nil
	}
}
