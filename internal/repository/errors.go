package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey reports a unique constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrReferenced reports a delete blocked by a foreign key.
	ErrReferenced = errors.New("row is still referenced")
	// ErrAssignmentWritten reports an unassign attempt for a group that already wrote the test.
	ErrAssignmentWritten = errors.New("assignment already has a writing date")
	// ErrResultAboveMax reports a stored result larger than a proposed max_points.
	ErrResultAboveMax = errors.New("stored result exceeds max points")
	// ErrLevelConflict reports a task edit that would leave stored results
	// breaking the reflexive/basic pairing rule.
	ErrLevelConflict = errors.New("stored results break level consistency")
	// ErrMissingRow reports a result write without a matching task_solutions row.
	ErrMissingRow = errors.New("result row does not exist")
	// ErrJobNotClaimable reports a report job that is no longer queued.
	ErrJobNotClaimable = errors.New("report job is not queued")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// RowSyncError wraps a failure while creating or deleting task_solutions rows.
type RowSyncError struct {
	Op  string
	Err error
}

func (e *RowSyncError) Error() string {
	return fmt.Sprintf("sync result rows (%s): %v", e.Op, e.Err)
}

func (e *RowSyncError) Unwrap() error {
	return e.Err
}

// mapPQError translates constraint violations into repository sentinels.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrReferenced, pqErr.Constraint)
	}
	return err
}
