package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/storage/sqlc"
)

func auditFromRow(row sqlc.AuditProcessor) (domain.AuditProcessor, error) {
	a := domain.AuditProcessor{
		ID:        row.ID,
		Name:      row.Name,
		AuditType: domain.AuditType(row.AuditType),
		Source:    int(row.Source),
		Cursor:    row.Cursor,
		TempStop:  row.TempStop,
		Pause:     int(row.Pause),
		Started:   fromTimestamptzPtr(row.Started),
		Completed: fromTimestamptzPtr(row.Completed),
		CreatedAt: fromTimestamptz(row.CreatedAt),
	}

	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &a.Params); err != nil {
			return domain.AuditProcessor{}, fmt.Errorf("decode audit %d params: %w", row.ID, err)
		}
	}

	return a, nil
}

func auditParams(a domain.AuditProcessor) ([]byte, error) {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, fmt.Errorf("encode audit params: %w", err)
	}

	return params, nil
}

// CreateAudit inserts audit and sets its id.
func (db *DB) CreateAudit(ctx context.Context, a *domain.AuditProcessor) error {
	params, err := auditParams(*a)
	if err != nil {
		return err
	}

	row, err := db.Queries.CreateAudit(ctx, sqlc.CreateAuditParams{
		Name:      SanitizeUTF8(a.Name),
		AuditType: safeIntToInt16(int(a.AuditType)),
		Source:    safeIntToInt16(a.Source),
		Params:    params,
		Cursor:    a.Cursor,
		TempStop:  a.TempStop,
		Pause:     safeIntToInt32(a.Pause),
		Started:   toTimestamptzPtr(a.Started),
		Completed: toTimestamptzPtr(a.Completed),
	})
	if err != nil {
		return mapError("create audit", err, apperrors.ErrAuditNotFound)
	}

	a.ID = row.ID
	a.CreatedAt = fromTimestamptz(row.CreatedAt)

	return nil
}

// GetAudit returns the audit processor with id.
func (db *DB) GetAudit(ctx context.Context, id int64) (domain.AuditProcessor, error) {
	row, err := db.Queries.GetAudit(ctx, id)
	if err != nil {
		return domain.AuditProcessor{}, mapError(fmt.Sprintf("get audit %d", id), err, apperrors.ErrAuditNotFound)
	}

	return auditFromRow(row)
}

// UpdateAudit stores every mutable column of audit.
func (db *DB) UpdateAudit(ctx context.Context, a domain.AuditProcessor) error {
	params, err := auditParams(a)
	if err != nil {
		return err
	}

	rows, err := db.Queries.UpdateAudit(ctx, sqlc.UpdateAuditParams{
		ID:        a.ID,
		Name:      SanitizeUTF8(a.Name),
		Params:    params,
		Cursor:    a.Cursor,
		TempStop:  a.TempStop,
		Pause:     safeIntToInt32(a.Pause),
		Started:   toTimestamptzPtr(a.Started),
		Completed: toTimestamptzPtr(a.Completed),
	})
	if err != nil {
		return fmt.Errorf("update audit %d: %w", a.ID, err)
	}

	if rows == 0 {
		return fmt.Errorf("update audit %d: %w", a.ID, apperrors.ErrAuditNotFound)
	}

	return nil
}

// DeleteAudit removes the audit processor and its vetting rows.
func (db *DB) DeleteAudit(ctx context.Context, id int64) error {
	if err := db.Queries.DeleteAudit(ctx, id); err != nil {
		return fmt.Errorf("delete audit %d: %w", id, err)
	}

	return nil
}
