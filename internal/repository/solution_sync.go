package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// SolutionSync keeps task_solutions aligned with tasks and group assignments.
// Every method runs on the caller's transaction so the rows change together
// with the structural edit that required them.
type SolutionSync struct {
	logger *zap.Logger
}

// NewSolutionSync constructs the synchroniser.
func NewSolutionSync(logger *zap.Logger) *SolutionSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolutionSync{logger: logger}
}

// CreateForGroups inserts a blank row per student of the groups for every task
// of the test. Existing rows are left alone.
func (s *SolutionSync) CreateForGroups(ctx context.Context, q sqlx.ExecerContext, testID string, groupIDs []string) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	const query = `INSERT INTO task_solutions (id, student_id, task_id, result)
SELECT gen_random_uuid(), s.id, t.id, NULL
FROM students s
JOIN tasks t ON t.test_id = $1
WHERE s.group_id = ANY($2)
ON CONFLICT (student_id, task_id) DO NOTHING`
	return s.exec(ctx, q, "create for groups", query, testID, pq.Array(groupIDs))
}

// CreateForTask inserts a blank row for the task per student of every group
// assigned to the task's test.
func (s *SolutionSync) CreateForTask(ctx context.Context, q sqlx.ExecerContext, taskID string) (int64, error) {
	const query = `INSERT INTO task_solutions (id, student_id, task_id, result)
SELECT gen_random_uuid(), s.id, t.id, NULL
FROM tasks t
JOIN test_assigns ta ON ta.test_id = t.test_id
JOIN students s ON s.group_id = ta.group_id
WHERE t.id = $1
ON CONFLICT (student_id, task_id) DO NOTHING`
	return s.exec(ctx, q, "create for task", query, taskID)
}

// CreateForStudent inserts a blank row for the student for every task of the
// tests assigned to the student's group.
func (s *SolutionSync) CreateForStudent(ctx context.Context, q sqlx.ExecerContext, studentID string) (int64, error) {
	const query = `INSERT INTO task_solutions (id, student_id, task_id, result)
SELECT gen_random_uuid(), s.id, t.id, NULL
FROM students s
JOIN test_assigns ta ON ta.group_id = s.group_id
JOIN tasks t ON t.test_id = ta.test_id
WHERE s.id = $1
ON CONFLICT (student_id, task_id) DO NOTHING`
	return s.exec(ctx, q, "create for student", query, studentID)
}

// DeleteForGroups removes the rows of the groups' students for the test's tasks.
func (s *SolutionSync) DeleteForGroups(ctx context.Context, q sqlx.ExecerContext, testID string, groupIDs []string) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM task_solutions ts
USING tasks t, students s
WHERE ts.task_id = t.id AND ts.student_id = s.id
AND t.test_id = $1 AND s.group_id = ANY($2)`
	return s.exec(ctx, q, "delete for groups", query, testID, pq.Array(groupIDs))
}

// DeleteForTask removes every row of the task.
func (s *SolutionSync) DeleteForTask(ctx context.Context, q sqlx.ExecerContext, taskID string) (int64, error) {
	const query = `DELETE FROM task_solutions WHERE task_id = $1`
	return s.exec(ctx, q, "delete for task", query, taskID)
}

// Reconcile adds missing rows for the test's assigned groups and removes rows of
// students whose current group is not assigned, e.g. after a student moved.
func (s *SolutionSync) Reconcile(ctx context.Context, q sqlx.ExecerContext, testID string) (models.SyncReport, error) {
	const create = `INSERT INTO task_solutions (id, student_id, task_id, result)
SELECT gen_random_uuid(), s.id, t.id, NULL
FROM test_assigns ta
JOIN tasks t ON t.test_id = ta.test_id
JOIN students s ON s.group_id = ta.group_id
WHERE ta.test_id = $1
ON CONFLICT (student_id, task_id) DO NOTHING`
	const remove = `DELETE FROM task_solutions ts
USING tasks t, students s
WHERE ts.task_id = t.id AND ts.student_id = s.id AND t.test_id = $1
AND NOT EXISTS (SELECT 1 FROM test_assigns ta WHERE ta.test_id = t.test_id AND ta.group_id = s.group_id)`

	var report models.SyncReport
	created, err := s.exec(ctx, q, "reconcile create", create, testID)
	if err != nil {
		return report, err
	}
	deleted, err := s.exec(ctx, q, "reconcile delete", remove, testID)
	if err != nil {
		return report, err
	}
	report.Created, report.Deleted = created, deleted
	return report, nil
}

func (s *SolutionSync) exec(ctx context.Context, q sqlx.ExecerContext, op, query string, args ...interface{}) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("result row sync failed", zap.String("op", op), zap.Error(err))
		return 0, &RowSyncError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &RowSyncError{Op: op, Err: fmt.Errorf("rows affected: %w", err)}
	}
	s.logger.Debug("result rows synced", zap.String("op", op), zap.Int64("rows", n))
	return n, nil
}
