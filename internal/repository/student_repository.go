package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const studentColumns = "id, surname, name, patronymic, group_id, created_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db   *sqlx.DB
	sync *SolutionSync
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, sync *SolutionSync) *StudentRepository {
	if sync == nil {
		sync = NewSolutionSync(nil)
	}
	return &StudentRepository{db: db, sync: sync}
}

// ListByGroup returns the group's students ordered by surname, then name.
func (r *StudentRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE group_id = $1 ORDER BY surname, name, patronymic", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns), id); err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// Create inserts a student together with blank result rows for every test
// already assigned to the student's group.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (models.SyncReport, error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = time.Now().UTC()
	var report models.SyncReport
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, surname, name, patronymic, group_id, created_at)
VALUES (:id, :surname, :name, :patronymic, :group_id, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("create student: %w", mapPQError(err))
		}
		created, err := r.sync.CreateForStudent(ctx, tx, student.ID)
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

// Delete removes a student; their result rows cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete student: %w", sql.ErrNoRows)
	}
	return nil
}
