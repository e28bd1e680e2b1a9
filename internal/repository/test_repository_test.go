package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

func TestTestRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	published := true
	cols := []string{"id", "name", "subject_id", "studying_year", "month", "has_reflexive_level", "is_published", "creator_id", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM tests WHERE 1=1 AND subject_id = $1 AND is_published = $2 ORDER BY studying_year, month, name LIMIT 20 OFFSET 0")).
		WithArgs("subj-1", true).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tests WHERE 1=1 AND subject_id = $1 AND is_published = $2")).
		WithArgs("subj-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	tests, total, err := NewTestRepository(db, nil).List(context.Background(), models.TestFilter{SubjectID: "subj-1", Published: &published})
	require.NoError(t, err)
	assert.Empty(t, tests)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryAssignGroupsCreatesRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO test_assigns")).
		WithArgs(sqlmock.AnyArg(), "test-1", "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO test_assigns")).
		WithArgs(sqlmock.AnyArg(), "test-1", "g2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WithArgs("test-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	report, err := NewTestRepository(db, nil).AssignGroups(context.Background(), "test-1", []string{"g1", "g2"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), report.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryAssignGroupsRollsBackOnSyncFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO test_assigns")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := NewTestRepository(db, nil).AssignGroups(context.Background(), "test-1", []string{"g1"})
	var syncErr *RowSyncError
	assert.ErrorAs(t, err, &syncErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryUnassignWrittenGroupRefused(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT group_id FROM test_assigns")).
		WithArgs("test-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow("g1"))
	mock.ExpectRollback()

	_, err := NewTestRepository(db, nil).UnassignGroups(context.Background(), "test-1", []string{"g1"})
	assert.ErrorIs(t, err, ErrAssignmentWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryUnassignDeletesRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT group_id FROM test_assigns")).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_solutions ts")).
		WithArgs("test-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 8))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM test_assigns WHERE test_id = $1")).
		WithArgs("test-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := NewTestRepository(db, nil).UnassignGroups(context.Background(), "test-1", []string{"g2"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), report.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
