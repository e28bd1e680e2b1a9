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

const rosterGroupID = "5f0c4a1e-8a3b-4c1d-9e2f-1a2b3c4d5e6f"

type rosterFixture struct {
	svc      *RosterService
	groups   *fakeGroupStore
	students *fakeStudentStore
	subjects *fakeSubjectStore
	cache    *stubCacheRepo
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		groups:   newFakeGroupStore(models.Group{ID: rosterGroupID, Campus: "North", StudyingYear: 3, Letter: "B", IsActive: true}),
		students: &fakeStudentStore{},
		subjects: newFakeSubjectStore(),
		cache:    &stubCacheRepo{},
	}
	cache := NewCacheService(f.cache, nil, time.Minute, zap.NewNop(), true)
	f.svc = NewRosterService(f.groups, f.students, f.subjects, cache, nil, zap.NewNop())
	return f
}

func TestRosterServiceCreateGroup(t *testing.T) {
	f := newRosterFixture()

	group, err := f.svc.CreateGroup(context.Background(), models.CreateGroupRequest{Campus: "South", StudyingYear: 5, Letter: "A", YearCreated: 2021})
	require.NoError(t, err)
	assert.True(t, group.IsActive)
	assert.Equal(t, "5A", group.Label())

	_, err = f.svc.CreateGroup(context.Background(), models.CreateGroupRequest{Campus: "South", StudyingYear: 14, Letter: "A", YearCreated: 2021})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterServiceDeleteGroupWithStudentsConflicts(t *testing.T) {
	f := newRosterFixture()
	f.groups.deleteErr = fmt.Errorf("delete group: %w", repository.ErrReferenced)

	err := f.svc.DeleteGroup(context.Background(), rosterGroupID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestRosterServiceDeleteGroupInvalidatesAnalytics(t *testing.T) {
	f := newRosterFixture()

	require.NoError(t, f.svc.DeleteGroup(context.Background(), rosterGroupID))
	assert.Equal(t, []string{analyticsPattern}, f.cache.invalidated)

	err := f.svc.DeleteGroup(context.Background(), rosterGroupID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRosterServiceStudents(t *testing.T) {
	f := newRosterFixture()
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, models.CreateStudentRequest{Surname: "Ivanova", Name: "Anna", GroupID: rosterGroupID})
	require.NoError(t, err)
	assert.Equal(t, []string{analyticsPattern}, f.cache.invalidated)

	students, err := f.svc.ListStudents(ctx, rosterGroupID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].ID)

	_, err = f.svc.CreateStudent(ctx, models.CreateStudentRequest{Surname: "Petrov", Name: "Ivan", GroupID: "8d9e0f1a-2b3c-4d5e-8f70-8192a3b4c5d6"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, f.svc.DeleteStudent(ctx, student.ID))
	assert.Equal(t, []string{student.ID}, f.students.deleted)
}

func TestRosterServiceCreateStudentRowSyncFailure(t *testing.T) {
	f := newRosterFixture()
	f.students.createErr = &repository.RowSyncError{Op: "create for student", Err: fmt.Errorf("deadlock detected")}

	_, err := f.svc.CreateStudent(context.Background(), models.CreateStudentRequest{Surname: "Ivanova", Name: "Anna", GroupID: rosterGroupID})
	assert.ErrorIs(t, err, appErrors.ErrRowSync)
	assert.Empty(t, f.students.students)
}

func TestRosterServiceDuplicateSubject(t *testing.T) {
	f := newRosterFixture()
	f.subjects.createErr = fmt.Errorf("create subject: %w", repository.ErrDuplicateKey)

	_, err := f.svc.CreateSubject(context.Background(), models.CreateSubjectRequest{Name: "Mathematics"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}
