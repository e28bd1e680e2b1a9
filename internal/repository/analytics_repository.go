package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// ResultFilter scopes the flattened result rows read for aggregation.
type ResultFilter struct {
	TestID    string
	GroupID   string
	StudentID string
	SubjectID string
	Nums      []int
	// WrittenOnly keeps rows whose group has a writing date for the test.
	WrittenOnly bool
}

// AnalyticsRepository exposes read-optimised queries for aggregate endpoints.
// Aggregation itself happens in Go so undefined percents stay explicit.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// ResultRows returns task_solutions joined with task, student group and the
// group's writing date, filtered by the provided scope.
func (r *AnalyticsRepository) ResultRows(ctx context.Context, filter ResultFilter) ([]models.ResultRow, error) {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(`SELECT %s
FROM task_solutions ts
JOIN tasks t ON t.id = ts.task_id
JOIN tests te ON te.id = t.test_id
JOIN students s ON s.id = ts.student_id
LEFT JOIN test_assigns ta ON ta.test_id = t.test_id AND ta.group_id = s.group_id
WHERE 1=1`, resultRowColumns))
	var args []interface{}
	if filter.TestID != "" {
		args = append(args, filter.TestID)
		builder.WriteString(fmt.Sprintf(" AND t.test_id = $%d", len(args)))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		builder.WriteString(fmt.Sprintf(" AND s.group_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND ts.student_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		builder.WriteString(fmt.Sprintf(" AND te.subject_id = $%d", len(args)))
	}
	if len(filter.Nums) > 0 {
		args = append(args, pq.Array(filter.Nums))
		builder.WriteString(fmt.Sprintf(" AND t.num = ANY($%d)", len(args)))
	}
	if filter.WrittenOnly {
		builder.WriteString(" AND ta.writing_date IS NOT NULL")
	}
	builder.WriteString(" ORDER BY ts.student_id, t.test_id, t.num, t.level")

	var rows []models.ResultRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query result rows: %w", err)
	}
	return rows, nil
}

// ReportSources lists the tests assigned to a group with subject names and the
// group's writing date, ordered by subject then date.
func (r *AnalyticsRepository) ReportSources(ctx context.Context, groupID string) ([]models.ReportCardSource, error) {
	const query = `SELECT te.id AS test_id, te.name AS test_name, sub.id AS subject_id, sub.name AS subject_name, ta.writing_date
FROM test_assigns ta
JOIN tests te ON te.id = ta.test_id
JOIN subjects sub ON sub.id = te.subject_id
WHERE ta.group_id = $1
ORDER BY sub.name, ta.writing_date NULLS LAST, te.name`
	var sources []models.ReportCardSource
	if err := r.db.SelectContext(ctx, &sources, query, groupID); err != nil {
		return nil, fmt.Errorf("query report sources: %w", err)
	}
	return sources, nil
}
