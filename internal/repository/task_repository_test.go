package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

func TestTaskRepositoryListByTestOrdersBasicFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "test_id", "num", "level", "checked_skill", "max_points"}).
		AddRow("k1", "test-1", 1, "basic", "fractions", 2).
		AddRow("k1r", "test-1", 1, "reflexive", "fractions", 3)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY num, CASE level WHEN 'basic' THEN 0 ELSE 1 END")).
		WithArgs("test-1").
		WillReturnRows(rows)

	tasks, err := NewTaskRepository(db, nil).ListByTest(context.Background(), "test-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.LevelReflexive, tasks[1].Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateSyncsRowsAndFlag(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(sqlmock.AnyArg(), "test-1", 2, models.LevelReflexive, "", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 25))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tests SET has_reflexive_level")).
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task := &models.Task{TestID: "test-1", Num: 2, Level: models.LevelReflexive, MaxPoints: 4}
	report, err := NewTaskRepository(db, nil).Create(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, int64(25), report.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateDuplicateRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tasks_test_id_num_level_key"})
	mock.ExpectRollback()

	_, err := NewTaskRepository(db, nil).Create(context.Background(), &models.Task{TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 2})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateRowSyncFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_solutions")).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := NewTaskRepository(db, nil).Create(context.Background(), &models.Task{TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 2})
	var syncErr *RowSyncError
	assert.ErrorAs(t, err, &syncErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateRejectsMaxBelowStoredResult(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(result) FROM task_solutions WHERE task_id = $1")).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectRollback()

	err := NewTaskRepository(db, nil).Update(context.Background(), &models.Task{ID: "k1", TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 2})
	assert.ErrorIs(t, err, ErrResultAboveMax)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateRaisingBasicMaxBreaksLevels(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(result) FROM task_solutions WHERE task_id = $1")).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET num = ?, level = ?")).
		WithArgs(1, models.LevelBasic, "", 12, "k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("sr.result > 0 AND sb.result IS NOT NULL AND sb.result <> b.max_points")).
		WithArgs("test-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "num", "max_points"}).AddRow("s1", 1, 12))
	mock.ExpectRollback()

	repo := NewTaskRepository(db, nil).WithStrictLevels(true)
	err := repo.Update(context.Background(), &models.Task{ID: "k1", TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 12})
	require.ErrorIs(t, err, ErrLevelConflict)
	assert.Contains(t, err.Error(), "student s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateRenumberingChecksLevels(t *testing.T) {
	cases := []struct {
		name     string
		task     models.Task
		conflict bool
	}{
		{name: "renumbered onto graded reflexive", task: models.Task{ID: "k3", TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 10}, conflict: true},
		{name: "level swapped without conflict", task: models.Task{ID: "k3", TestID: "test-1", Num: 2, Level: models.LevelReflexive, MaxPoints: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(result) FROM task_solutions WHERE task_id = $1")).
				WithArgs("k3").
				WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
			mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET num = ?, level = ?")).
				WillReturnResult(sqlmock.NewResult(0, 1))
			rows := sqlmock.NewRows([]string{"student_id", "num", "max_points"})
			if tc.conflict {
				rows.AddRow("s2", 1, 10)
			}
			mock.ExpectQuery(regexp.QuoteMeta("JOIN tasks rt ON rt.test_id = b.test_id")).
				WithArgs("test-1").
				WillReturnRows(rows)
			if tc.conflict {
				mock.ExpectRollback()
			} else {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE tests SET has_reflexive_level")).
					WithArgs("test-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			}

			task := tc.task
			err := NewTaskRepository(db, nil).WithStrictLevels(true).Update(context.Background(), &task)
			if tc.conflict {
				assert.ErrorIs(t, err, ErrLevelConflict)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTaskRepositoryUpdateLenientSkipsLevelCheck(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(result) FROM task_solutions WHERE task_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET num = ?, level = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tests SET has_reflexive_level")).
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTaskRepository(db, nil).Update(context.Background(), &models.Task{ID: "k1", TestID: "test-1", Num: 1, Level: models.LevelBasic, MaxPoints: 12})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryDeleteRemovesRowsFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_solutions WHERE task_id = $1")).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 25))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1")).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tests SET has_reflexive_level")).
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := NewTaskRepository(db, nil).Delete(context.Background(), &models.Task{ID: "k1", TestID: "test-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(25), report.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
