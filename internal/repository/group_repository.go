package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

const groupColumns = "id, campus, studying_year, letter, year_created, is_active, created_at"

// GroupRepository persists student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups matching the filter.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Campus != "" {
		args = append(args, filter.Campus)
		conditions = append(conditions, fmt.Sprintf("campus = $%d", len(args)))
	}
	if filter.StudyingYear > 0 {
		args = append(args, filter.StudyingYear)
		conditions = append(conditions, fmt.Sprintf("studying_year = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM groups WHERE %s ORDER BY campus, studying_year, letter", groupColumns, strings.Join(conditions, " AND "))
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID fetches a group.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.GetContext(ctx, &group, fmt.Sprintf("SELECT %s FROM groups WHERE id = $1", groupColumns), id); err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &group, nil
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO groups (id, campus, studying_year, letter, year_created, is_active, created_at)
VALUES (:id, :campus, :studying_year, :letter, :year_created, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", mapPQError(err))
	}
	return nil
}

// Delete removes a group. Groups with students are protected and yield ErrReferenced.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", mapPQError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete group: %w", sql.ErrNoRows)
	}
	return nil
}
