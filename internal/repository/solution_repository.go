package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const resultRowColumns = `ts.student_id, s.group_id, t.test_id, ts.task_id, t.num, t.level, t.max_points, ts.result, ta.writing_date`

// SolutionRepository reads and writes task_solutions scores.
type SolutionRepository struct {
	db *sqlx.DB
}

// NewSolutionRepository constructs a SolutionRepository.
func NewSolutionRepository(db *sqlx.DB) *SolutionRepository {
	return &SolutionRepository{db: db}
}

// ListForTest returns the rows of a test, optionally restricted to one group.
func (r *SolutionRepository) ListForTest(ctx context.Context, testID, groupID string) ([]models.ResultRow, error) {
	query := fmt.Sprintf(`SELECT %s
FROM task_solutions ts
JOIN tasks t ON t.id = ts.task_id
JOIN students s ON s.id = ts.student_id
LEFT JOIN test_assigns ta ON ta.test_id = t.test_id AND ta.group_id = s.group_id
WHERE t.test_id = $1`, resultRowColumns)
	args := []interface{}{testID}
	if groupID != "" {
		query += " AND s.group_id = $2"
		args = append(args, groupID)
	}
	query += " ORDER BY s.surname, s.name, t.num, t.level"
	var rows []models.ResultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list results for test: %w", err)
	}
	return rows, nil
}

// DecideFunc receives the locked stored results (student -> task -> result)
// and returns the writes to apply, or an error to abort without writing.
type DecideFunc func(existing map[string]map[string]*int) ([]models.SolutionUpdate, error)

// Submit locks the rows of the students on the test, lets decide validate the
// submission against them and writes the returned updates in the same
// transaction. Either every update lands or none does.
func (r *SolutionRepository) Submit(ctx context.Context, testID string, studentIDs []string, decide DecideFunc) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lock = `SELECT ts.student_id, ts.task_id, ts.result
FROM task_solutions ts
JOIN tasks t ON t.id = ts.task_id
WHERE t.test_id = $1 AND ts.student_id = ANY($2)
FOR UPDATE OF ts`
		var rows []struct {
			StudentID string `db:"student_id"`
			TaskID    string `db:"task_id"`
			Result    *int   `db:"result"`
		}
		if err := tx.SelectContext(ctx, &rows, lock, testID, pq.Array(studentIDs)); err != nil {
			return fmt.Errorf("lock results: %w", err)
		}
		existing := make(map[string]map[string]*int, len(studentIDs))
		for _, id := range studentIDs {
			existing[id] = make(map[string]*int)
		}
		for _, row := range rows {
			existing[row.StudentID][row.TaskID] = row.Result
		}

		updates, err := decide(existing)
		if err != nil {
			return err
		}

		const update = `UPDATE task_solutions SET result = $1, updated_at = $2 WHERE student_id = $3 AND task_id = $4`
		now := time.Now().UTC()
		for _, u := range updates {
			res, err := tx.ExecContext(ctx, update, u.Result, now, u.StudentID, u.TaskID)
			if err != nil {
				return fmt.Errorf("save result: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("%w: student %s task %s", ErrMissingRow, u.StudentID, u.TaskID)
			}
		}
		return nil
	})
}
