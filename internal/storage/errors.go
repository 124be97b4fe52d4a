package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// mapError wraps err with op and translates missing rows to notFound and
// unique violations to ErrAlreadyExists.
func mapError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, apperrors.ErrAlreadyExists, pgErr.ConstraintName)
	}

	return fmt.Errorf("%s: %w", op, err)
}
