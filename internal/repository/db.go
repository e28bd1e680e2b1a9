package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// recomputeReflexive refreshes the test's derived reflexive flag.
func recomputeReflexive(ctx context.Context, q sqlx.ExecerContext, testID string) error {
	const query = `UPDATE tests SET has_reflexive_level = EXISTS (
SELECT 1 FROM tasks WHERE test_id = $1 AND level = 'reflexive'), updated_at = NOW()
WHERE id = $1`
	_, err := q.ExecContext(ctx, query, testID)
	return err
}
