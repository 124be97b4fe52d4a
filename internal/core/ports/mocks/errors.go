package mocks

import (
	"fmt"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// ErrObjectNotFound is returned for a missing object key. Like the S3 adapter
// it matches apperrors.ErrNotFound.
var ErrObjectNotFound = fmt.Errorf("object: %w", apperrors.ErrNotFound)
