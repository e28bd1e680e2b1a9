package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const taskColumns = "id, test_id, num, level, checked_skill, max_points"

// TaskRepository persists tasks together with the result rows and derived
// test state that depend on them.
type TaskRepository struct {
	db           *sqlx.DB
	sync         *SolutionSync
	strictLevels bool
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB, sync *SolutionSync) *TaskRepository {
	if sync == nil {
		sync = NewSolutionSync(nil)
	}
	return &TaskRepository{db: db, sync: sync}
}

// WithStrictLevels makes Update refuse edits that leave a stored reflexive
// score paired with a basic score below the basic max.
func (r *TaskRepository) WithStrictLevels(strict bool) *TaskRepository {
	r.strictLevels = strict
	return r
}

// ListByTest returns the tasks of a test ordered by number, basic first.
func (r *TaskRepository) ListByTest(ctx context.Context, testID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE test_id = $1
ORDER BY num, CASE level WHEN 'basic' THEN 0 ELSE 1 END`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, testID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindByID fetches a task.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// Create inserts the task, creates blank rows for every assigned student and
// refreshes the test's reflexive flag, all in one transaction. A taken
// (num, level) pair yields ErrDuplicateKey.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (models.SyncReport, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO tasks (id, test_id, num, level, checked_skill, max_points)
VALUES (:id, :test_id, :num, :level, :checked_skill, :max_points)`
		if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
			return fmt.Errorf("create task: %w", mapPQError(err))
		}
		created, err := r.sync.CreateForTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		report.Created = created
		if err := recomputeReflexive(ctx, tx, task.TestID); err != nil {
			return fmt.Errorf("recompute reflexive level: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.SyncReport{}, err
	}
	return report, nil
}

// Update rewrites a task. Lowering max_points below a stored result yields
// ErrResultAboveMax; a taken (num, level) pair yields ErrDuplicateKey. With
// strict levels, an edit that makes stored results inconsistent yields
// ErrLevelConflict and nothing changes.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var highest sql.NullInt64
		const maxQuery = `SELECT MAX(result) FROM task_solutions WHERE task_id = $1`
		if err := tx.GetContext(ctx, &highest, maxQuery, task.ID); err != nil {
			return fmt.Errorf("check stored results: %w", err)
		}
		if highest.Valid && int(highest.Int64) > task.MaxPoints {
			return fmt.Errorf("%w: %d > %d", ErrResultAboveMax, highest.Int64, task.MaxPoints)
		}
		const query = `UPDATE tasks SET num = :num, level = :level, checked_skill = :checked_skill,
max_points = :max_points WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, task)
		if err != nil {
			return fmt.Errorf("update task: %w", mapPQError(err))
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update task: %w", sql.ErrNoRows)
		}
		if r.strictLevels {
			if err := checkStoredLevels(ctx, tx, task.TestID); err != nil {
				return err
			}
		}
		if err := recomputeReflexive(ctx, tx, task.TestID); err != nil {
			return fmt.Errorf("recompute reflexive level: %w", err)
		}
		return nil
	})
}

type levelConflict struct {
	StudentID string `db:"student_id"`
	Num       int    `db:"num"`
	MaxPoints int    `db:"max_points"`
}

// checkStoredLevels looks for a student whose reflexive score is above zero
// while the paired basic score is stored below the basic max.
func checkStoredLevels(ctx context.Context, q sqlx.QueryerContext, testID string) error {
	const query = `SELECT sb.student_id, b.num, b.max_points
FROM tasks b
JOIN tasks rt ON rt.test_id = b.test_id AND rt.num = b.num AND rt.level = 'reflexive'
JOIN task_solutions sb ON sb.task_id = b.id
JOIN task_solutions sr ON sr.task_id = rt.id AND sr.student_id = sb.student_id
WHERE b.test_id = $1 AND b.level = 'basic'
AND sr.result > 0 AND sb.result IS NOT NULL AND sb.result <> b.max_points
ORDER BY b.num LIMIT 1`
	var conflict levelConflict
	err := sqlx.GetContext(ctx, q, &conflict, query, testID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("check level consistency: %w", err)
	}
	return fmt.Errorf("%w: student %s, task %d needs the full basic score of %d",
		ErrLevelConflict, conflict.StudentID, conflict.Num, conflict.MaxPoints)
}

// Delete removes the task and exactly its result rows, then refreshes the
// test's reflexive flag.
func (r *TaskRepository) Delete(ctx context.Context, task *models.Task) (models.SyncReport, error) {
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		deleted, err := r.sync.DeleteForTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		report.Deleted = deleted
		res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", task.ID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete task: %w", sql.ErrNoRows)
		}
		if err := recomputeReflexive(ctx, tx, task.TestID); err != nil {
			return fmt.Errorf("recompute reflexive level: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.SyncReport{}, err
	}
	return report, nil
}
