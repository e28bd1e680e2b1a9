package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const testColumns = "id, name, subject_id, studying_year, month, has_reflexive_level, is_published, creator_id, created_at, updated_at"

// TestRepository persists tests and their group assignments.
type TestRepository struct {
	db   *sqlx.DB
	sync *SolutionSync
}

// NewTestRepository constructs a TestRepository.
func NewTestRepository(db *sqlx.DB, sync *SolutionSync) *TestRepository {
	if sync == nil {
		sync = NewSolutionSync(nil)
	}
	return &TestRepository{db: db, sync: sync}
}

// List returns tests matching the filter with the total count.
func (r *TestRepository) List(ctx context.Context, filter models.TestFilter) ([]models.Test, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.StudyingYear > 0 {
		args = append(args, filter.StudyingYear)
		conditions = append(conditions, fmt.Sprintf("studying_year = $%d", len(args)))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", len(args)))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM test_assigns ta WHERE ta.test_id = tests.id AND ta.group_id = $%d)", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM tests WHERE %s ORDER BY studying_year, month, name LIMIT %d OFFSET %d", testColumns, where, size, offset)
	var tests []models.Test
	if err := r.db.SelectContext(ctx, &tests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM tests WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count tests: %w", err)
	}
	return tests, total, nil
}

// FindByID fetches a test.
func (r *TestRepository) FindByID(ctx context.Context, id string) (*models.Test, error) {
	query := fmt.Sprintf("SELECT %s FROM tests WHERE id = $1", testColumns)
	var test models.Test
	if err := r.db.GetContext(ctx, &test, query, id); err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	return &test, nil
}

// Create inserts a test. has_reflexive_level always starts false.
func (r *TestRepository) Create(ctx context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	test.CreatedAt = now
	test.UpdatedAt = now
	test.HasReflexiveLevel = false
	const query = `INSERT INTO tests (id, name, subject_id, studying_year, month, has_reflexive_level, is_published, creator_id, created_at, updated_at)
VALUES (:id, :name, :subject_id, :studying_year, :month, :has_reflexive_level, :is_published, :creator_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("create test: %w", mapPQError(err))
	}
	return nil
}

// Update writes the user-editable columns. The reflexive flag is never written here.
func (r *TestRepository) Update(ctx context.Context, test *models.Test) error {
	test.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tests SET name = :name, studying_year = :studying_year, month = :month,
is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, test)
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update test: %w", sql.ErrNoRows)
	}
	return nil
}

// Delete removes a test; tasks, assignments and results cascade.
func (r *TestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tests WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete test: %w", sql.ErrNoRows)
	}
	return nil
}

// ListAssignments returns the groups a test is assigned to.
func (r *TestRepository) ListAssignments(ctx context.Context, testID string) ([]models.TestAssign, error) {
	const query = `SELECT id, test_id, group_id, writing_date FROM test_assigns WHERE test_id = $1 ORDER BY group_id`
	var assigns []models.TestAssign
	if err := r.db.SelectContext(ctx, &assigns, query, testID); err != nil {
		return nil, fmt.Errorf("list test assignments: %w", err)
	}
	return assigns, nil
}

// FindAssignment returns one assignment of a test.
func (r *TestRepository) FindAssignment(ctx context.Context, testID, groupID string) (*models.TestAssign, error) {
	const query = `SELECT id, test_id, group_id, writing_date FROM test_assigns WHERE test_id = $1 AND group_id = $2`
	var assign models.TestAssign
	if err := r.db.GetContext(ctx, &assign, query, testID, groupID); err != nil {
		return nil, fmt.Errorf("get test assignment: %w", err)
	}
	return &assign, nil
}

// AssignGroups links groups to a test and creates their blank result rows in the
// same transaction. Already assigned groups are skipped.
func (r *TestRepository) AssignGroups(ctx context.Context, testID string, groupIDs []string) (models.SyncReport, error) {
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO test_assigns (id, test_id, group_id, writing_date)
VALUES ($1, $2, $3, NULL) ON CONFLICT (test_id, group_id) DO NOTHING`
		for _, groupID := range groupIDs {
			if _, err := tx.ExecContext(ctx, query, uuid.NewString(), testID, groupID); err != nil {
				return fmt.Errorf("assign group %s: %w", groupID, mapPQError(err))
			}
		}
		created, err := r.sync.CreateForGroups(ctx, tx, testID, groupIDs)
		if err != nil {
			return err
		}
		report.Created = created
		return nil
	})
	if err != nil {
		return models.SyncReport{}, err
	}
	return report, nil
}

// UnassignGroups removes assignments and their result rows. Groups that already
// wrote the test are refused with ErrAssignmentWritten and nothing changes.
func (r *TestRepository) UnassignGroups(ctx context.Context, testID string, groupIDs []string) (models.SyncReport, error) {
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lock = `SELECT group_id FROM test_assigns
WHERE test_id = $1 AND group_id = ANY($2) AND writing_date IS NOT NULL FOR UPDATE`
		var written []string
		if err := tx.SelectContext(ctx, &written, lock, testID, pq.Array(groupIDs)); err != nil {
			return fmt.Errorf("lock test assignments: %w", err)
		}
		if len(written) > 0 {
			return fmt.Errorf("%w: %s", ErrAssignmentWritten, strings.Join(written, ", "))
		}
		deleted, err := r.sync.DeleteForGroups(ctx, tx, testID, groupIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM test_assigns WHERE test_id = $1 AND group_id = ANY($2)`, testID, pq.Array(groupIDs)); err != nil {
			return fmt.Errorf("unassign groups: %w", err)
		}
		report.Deleted = deleted
		return nil
	})
	if err != nil {
		return models.SyncReport{}, err
	}
	return report, nil
}

// SetWritingDate records or clears when a group wrote the test.
func (r *TestRepository) SetWritingDate(ctx context.Context, testID, groupID string, date *time.Time) error {
	const query = `UPDATE test_assigns SET writing_date = $1 WHERE test_id = $2 AND group_id = $3`
	res, err := r.db.ExecContext(ctx, query, date, testID, groupID)
	if err != nil {
		return fmt.Errorf("set writing date: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set writing date: %w", sql.ErrNoRows)
	}
	return nil
}

// ListIDs returns every test ID, used by maintenance commands.
func (r *TestRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM tests ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list test ids: %w", err)
	}
	return ids, nil
}

// Reconcile realigns the test's result rows with its current assignments.
func (r *TestRepository) Reconcile(ctx context.Context, testID string) (models.SyncReport, error) {
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		report, err = r.sync.Reconcile(ctx, tx, testID)
		return err
	})
	return report, err
}
