package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionSyncCreateForGroupsSkipsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	n, err := NewSolutionSync(nil).CreateForGroups(context.Background(), db, "test-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionSyncCreateForTaskWrapsFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WithArgs("task-1").
		WillReturnError(errors.New("connection reset"))

	_, err := NewSolutionSync(nil).CreateForTask(context.Background(), db, "task-1")
	var syncErr *RowSyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "create for task", syncErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionSyncReconcile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_solutions ts")).
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	report, err := NewSolutionSync(nil).Reconcile(context.Background(), db, "test-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.Created)
	assert.Equal(t, int64(2), report.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionSyncCreateForStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("JOIN test_assigns ta ON ta.group_id = s.group_id")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := NewSolutionSync(nil).CreateForStudent(context.Background(), db, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
