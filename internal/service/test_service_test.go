package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

const subjectUUID = "6f1c1a9e-3b0a-4c7e-9a55-1d2f0b3c4d5e"

type testServiceFixture struct {
	tests  *fakeTestStore
	tasks  *fakeTaskStore
	groups *fakeGroupStore
	cache  *stubCacheRepo
	svc    *TestService
}

func newTestServiceFixture() *testServiceFixture {
	f := &testServiceFixture{
		tests: newFakeTestStore(models.Test{ID: "t1", Name: "Fractions", SubjectID: subjectUUID, StudyingYear: 3, Month: 10}),
		tasks: newFakeTaskStore(
			models.Task{ID: "k2", TestID: "t1", Num: 2, Level: models.LevelBasic, MaxPoints: 3},
			models.Task{ID: "k1", TestID: "t1", Num: 1, Level: models.LevelBasic, MaxPoints: 2},
		),
		groups: newFakeGroupStore(models.Group{ID: "g1"}, models.Group{ID: "g2"}),
		cache:  &stubCacheRepo{},
	}
	subjects := newFakeSubjectStore(models.Subject{ID: subjectUUID, Name: "Mathematics"})
	cacheSvc := NewCacheService(f.cache, nil, time.Minute, zap.NewNop(), true)
	f.svc = NewTestService(f.tests, f.tasks, subjects, f.groups, cacheSvc, NewMetricsService(), nil, zap.NewNop())
	return f
}

func TestTestServiceGetOrdersTasks(t *testing.T) {
	f := newTestServiceFixture()

	detail, err := f.svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, detail.Tasks, 2)
	assert.Equal(t, 1, detail.Tasks[0].Num)
	assert.Equal(t, 2, detail.Tasks[1].Num)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTestServiceCreateValidates(t *testing.T) {
	f := newTestServiceFixture()

	_, err := f.svc.Create(context.Background(), models.CreateTestRequest{Name: "Geometry", SubjectID: subjectUUID, StudyingYear: 3, Month: 13})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	test, err := f.svc.Create(context.Background(), models.CreateTestRequest{Name: " Geometry ", SubjectID: subjectUUID, StudyingYear: 3, Month: 11, CreatorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Geometry", test.Name)
	assert.False(t, test.HasReflexiveLevel)
	assert.Equal(t, "u1", test.CreatorID)
}

func TestTestServiceCreateUnknownSubject(t *testing.T) {
	f := newTestServiceFixture()

	_, err := f.svc.Create(context.Background(), models.CreateTestRequest{Name: "Geometry", SubjectID: "0b1c1a9e-3b0a-4c7e-9a55-1d2f0b3c4d5e", StudyingYear: 3, Month: 11})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTestServiceAddTaskDuplicate(t *testing.T) {
	f := newTestServiceFixture()
	f.tasks.createErr = fmt.Errorf("create task: %w: tasks_test_num_level_key", repository.ErrDuplicateKey)

	_, err := f.svc.AddTask(context.Background(), "t1", models.CreateTaskRequest{Num: 1, Level: models.LevelBasic, MaxPoints: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateTaskKey)
}

func TestTestServiceAddTaskRowSyncFailure(t *testing.T) {
	f := newTestServiceFixture()
	f.tasks.createErr = &repository.RowSyncError{Op: "create_for_task", Err: assert.AnError}

	_, err := f.svc.AddTask(context.Background(), "t1", models.CreateTaskRequest{Num: 3, Level: models.LevelBasic, MaxPoints: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrRowSync)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTestServiceAddTaskInvalidatesCache(t *testing.T) {
	f := newTestServiceFixture()
	f.cache.store = map[string][]byte{"analytics:task-counts:t1": []byte("[]")}

	task, err := f.svc.AddTask(context.Background(), "t1", models.CreateTaskRequest{Num: 1, Level: models.LevelReflexive, MaxPoints: 4, CheckedSkill: " ratios "})
	require.NoError(t, err)
	assert.Equal(t, "ratios", task.CheckedSkill)
	assert.Equal(t, []string{analyticsPattern}, f.cache.invalidated)
	assert.Empty(t, f.cache.store)
}

func TestTestServiceUpdateTaskBelowStoredResult(t *testing.T) {
	f := newTestServiceFixture()
	f.tasks.updateErr = fmt.Errorf("%w: 3 > 1", repository.ErrResultAboveMax)

	_, err := f.svc.UpdateTask(context.Background(), "k2", models.UpdateTaskRequest{MaxPoints: intPtr(1)})
	assert.ErrorIs(t, err, appErrors.ErrScoreOutOfRange)
}

func TestTestServiceUpdateTaskLevelConflict(t *testing.T) {
	f := newTestServiceFixture()
	f.tasks.updateErr = fmt.Errorf("%w: student s1, task 1 needs the full basic score of 12", repository.ErrLevelConflict)

	_, err := f.svc.UpdateTask(context.Background(), "k1", models.UpdateTaskRequest{MaxPoints: intPtr(12)})
	assert.ErrorIs(t, err, appErrors.ErrLevelConsistency)
}

func TestTestServiceRemoveTask(t *testing.T) {
	f := newTestServiceFixture()

	require.NoError(t, f.svc.RemoveTask(context.Background(), "k1"))
	assert.Len(t, f.tasks.tasks["t1"], 1)

	err := f.svc.RemoveTask(context.Background(), "k1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTestServiceAssignGroupsDedupes(t *testing.T) {
	f := newTestServiceFixture()
	f.tests.assignReport = models.SyncReport{Created: 4}
	g1 := "0a6e1f4c-1e1b-4c55-8f39-6c0f3b1f2a01"
	f.groups.groups[g1] = models.Group{ID: g1}

	report, err := f.svc.AssignGroups(context.Background(), "t1", models.AssignGroupsRequest{GroupIDs: []string{g1, g1}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Created)
	assert.Equal(t, [][]string{{g1}}, f.tests.assigned)
}

func TestTestServiceAssignUnknownGroup(t *testing.T) {
	f := newTestServiceFixture()

	_, err := f.svc.AssignGroups(context.Background(), "t1", models.AssignGroupsRequest{GroupIDs: []string{"0a6e1f4c-1e1b-4c55-8f39-6c0f3b1f2a09"}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, f.tests.assigned)
}

func TestTestServiceUnassignWrittenGroup(t *testing.T) {
	f := newTestServiceFixture()
	f.tests.unassignErr = fmt.Errorf("%w: g1", repository.ErrAssignmentWritten)

	_, err := f.svc.UnassignGroups(context.Background(), "t1", models.AssignGroupsRequest{GroupIDs: []string{"0a6e1f4c-1e1b-4c55-8f39-6c0f3b1f2a01"}})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
}

func TestTestServiceReconcileAll(t *testing.T) {
	f := newTestServiceFixture()
	f.tests.tests["t2"] = &models.Test{ID: "t2"}

	report, err := f.svc.Reconcile(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Created)
	assert.ElementsMatch(t, []string{"t1", "t2"}, f.tests.reconciled)
}
