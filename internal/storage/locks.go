package db

import (
	"context"
	"fmt"
)

// TryAcquireAdvisoryLock takes a session advisory lock without waiting. The
// lock lives on a dedicated pooled connection until ReleaseAdvisoryLock.
func (db *DB) TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error) {
	db.locksMu.Lock()
	defer db.locksMu.Unlock()

	if _, held := db.locks[lockID]; held {
		return false, nil
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()

		return false, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return false, nil
	}

	db.locks[lockID] = conn

	return true, nil
}

// ReleaseAdvisoryLock releases a lock taken by TryAcquireAdvisoryLock.
func (db *DB) ReleaseAdvisoryLock(ctx context.Context, lockID int64) error {
	db.locksMu.Lock()
	conn, held := db.locks[lockID]
	delete(db.locks, lockID)
	db.locksMu.Unlock()

	if !held {
		return nil
	}

	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}

	return nil
}
