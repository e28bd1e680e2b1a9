package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

type testStore interface {
	List(ctx context.Context, filter models.TestFilter) ([]models.Test, int, error)
	FindByID(ctx context.Context, id string) (*models.Test, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
	ListAssignments(ctx context.Context, testID string) ([]models.TestAssign, error)
	AssignGroups(ctx context.Context, testID string, groupIDs []string) (models.SyncReport, error)
	UnassignGroups(ctx context.Context, testID string, groupIDs []string) (models.SyncReport, error)
	SetWritingDate(ctx context.Context, testID, groupID string, date *time.Time) error
	ListIDs(ctx context.Context) ([]string, error)
	Reconcile(ctx context.Context, testID string) (models.SyncReport, error)
}

type taskStore interface {
	ListByTest(ctx context.Context, testID string) ([]models.Task, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) (models.SyncReport, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, task *models.Task) (models.SyncReport, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// TestService manages tests, their tasks and group assignments. Every
// structural change keeps result rows in sync inside the repository
// transaction and drops cached aggregates afterwards.
type TestService struct {
	tests     testStore
	tasks     taskStore
	subjects  subjectReader
	groups    groupReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTestService constructs a TestService.
func NewTestService(tests testStore, tasks taskStore, subjects subjectReader, groups groupReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestService{
		tests:     tests,
		tasks:     tasks,
		subjects:  subjects,
		groups:    groups,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns paginated tests.
func (s *TestService) List(ctx context.Context, filter models.TestFilter) ([]models.Test, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	tests, total, err := s.tests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tests")
	}
	return tests, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a test with its ordered tasks and assignments.
func (s *TestService) Get(ctx context.Context, id string) (*models.TestDetail, error) {
	test, err := s.tests.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "test", "load test")
	}
	tasks, err := s.tasks.ListByTest(ctx, id)
	if err != nil {
		return nil, storeError(err, "test", "load tasks")
	}
	grading.SortTasks(tasks)
	assigns, err := s.tests.ListAssignments(ctx, id)
	if err != nil {
		return nil, storeError(err, "test", "load assignments")
	}
	return &models.TestDetail{Test: *test, Tasks: tasks, Assignments: assigns}, nil
}

// Create registers a new test for an existing subject.
func (s *TestService) Create(ctx context.Context, req models.CreateTestRequest) (*models.Test, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return nil, storeError(err, "subject", "load subject")
	}
	test := &models.Test{
		Name:         strings.TrimSpace(req.Name),
		SubjectID:    req.SubjectID,
		StudyingYear: req.StudyingYear,
		Month:        req.Month,
		CreatorID:    req.CreatorID,
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, storeError(err, "test", "create test")
	}
	s.logger.Info("test created", zap.String("test_id", test.ID), zap.String("subject_id", test.SubjectID))
	return test, nil
}

// Update modifies the editable test fields.
func (s *TestService) Update(ctx context.Context, id string, req models.UpdateTestRequest) (*models.Test, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test payload")
	}
	test, err := s.tests.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "test", "load test")
	}
	if req.Name != nil {
		test.Name = strings.TrimSpace(*req.Name)
	}
	if req.StudyingYear != nil {
		test.StudyingYear = *req.StudyingYear
	}
	if req.Month != nil {
		test.Month = *req.Month
	}
	if req.IsPublished != nil {
		test.IsPublished = *req.IsPublished
	}
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, storeError(err, "test", "update test")
	}
	return test, nil
}

// Delete removes a test together with its tasks, assignments and results.
func (s *TestService) Delete(ctx context.Context, id string) error {
	if err := s.tests.Delete(ctx, id); err != nil {
		return storeError(err, "test", "delete test")
	}
	s.invalidate(ctx)
	return nil
}

// AddTask appends a task and creates blank results for every assigned student.
func (s *TestService) AddTask(ctx context.Context, testID string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if _, err := s.tests.FindByID(ctx, testID); err != nil {
		return nil, storeError(err, "test", "load test")
	}
	task := &models.Task{
		TestID:       testID,
		Num:          req.Num,
		Level:        req.Level,
		CheckedSkill: strings.TrimSpace(req.CheckedSkill),
		MaxPoints:    req.MaxPoints,
	}
	report, err := s.tasks.Create(ctx, task)
	if err != nil {
		return nil, s.taskError(err, "create task")
	}
	s.metrics.ObserveSync(report)
	s.invalidate(ctx)
	s.logger.Info("task added",
		zap.String("test_id", testID),
		zap.Int("num", task.Num),
		zap.String("level", string(task.Level)),
		zap.Int64("rows_created", report.Created))
	return task, nil
}

// UpdateTask edits a task. Lowering max points under a stored result is refused.
func (s *TestService) UpdateTask(ctx context.Context, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err, "task", "load task")
	}
	if req.Num != nil {
		task.Num = *req.Num
	}
	if req.Level != nil {
		task.Level = *req.Level
	}
	if req.CheckedSkill != nil {
		task.CheckedSkill = strings.TrimSpace(*req.CheckedSkill)
	}
	if req.MaxPoints != nil {
		task.MaxPoints = *req.MaxPoints
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, s.taskError(err, "update task")
	}
	s.invalidate(ctx)
	return task, nil
}

// RemoveTask deletes a task and its results.
func (s *TestService) RemoveTask(ctx context.Context, taskID string) error {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return storeError(err, "task", "load task")
	}
	report, err := s.tasks.Delete(ctx, task)
	if err != nil {
		return s.taskError(err, "delete task")
	}
	s.metrics.ObserveSync(report)
	s.invalidate(ctx)
	s.logger.Info("task removed", zap.String("task_id", taskID), zap.Int64("rows_deleted", report.Deleted))
	return nil
}

// AssignGroups assigns groups to a test and creates their blank results.
func (s *TestService) AssignGroups(ctx context.Context, testID string, req models.AssignGroupsRequest) (models.SyncReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.SyncReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.tests.FindByID(ctx, testID); err != nil {
		return models.SyncReport{}, storeError(err, "test", "load test")
	}
	groupIDs := dedupe(req.GroupIDs)
	for _, id := range groupIDs {
		if _, err := s.groups.FindByID(ctx, id); err != nil {
			return models.SyncReport{}, storeError(err, "group", "load group")
		}
	}
	report, err := s.tests.AssignGroups(ctx, testID, groupIDs)
	if err != nil {
		return models.SyncReport{}, storeError(err, "assignment", "assign groups")
	}
	s.metrics.ObserveSync(report)
	s.invalidate(ctx)
	s.logger.Info("groups assigned", zap.String("test_id", testID), zap.Strings("group_ids", groupIDs), zap.Int64("rows_created", report.Created))
	return report, nil
}

// UnassignGroups removes assignments that have no writing date yet.
func (s *TestService) UnassignGroups(ctx context.Context, testID string, req models.AssignGroupsRequest) (models.SyncReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.SyncReport{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	groupIDs := dedupe(req.GroupIDs)
	report, err := s.tests.UnassignGroups(ctx, testID, groupIDs)
	if err != nil {
		return models.SyncReport{}, storeError(err, "assignment", "unassign groups")
	}
	s.metrics.ObserveSync(report)
	s.invalidate(ctx)
	s.logger.Info("groups unassigned", zap.String("test_id", testID), zap.Strings("group_ids", groupIDs), zap.Int64("rows_deleted", report.Deleted))
	return report, nil
}

// SetWritingDate records when a group wrote the test; nil clears it.
func (s *TestService) SetWritingDate(ctx context.Context, testID, groupID string, req models.SetWritingDateRequest) error {
	if err := s.tests.SetWritingDate(ctx, testID, groupID, req.WritingDate); err != nil {
		return storeError(err, "assignment", "set writing date")
	}
	s.invalidate(ctx)
	return nil
}

// Reconcile realigns result rows with current assignments, for one test or,
// when testID is empty, every test.
func (s *TestService) Reconcile(ctx context.Context, testID string) (models.SyncReport, error) {
	ids := []string{testID}
	if testID == "" {
		var err error
		if ids, err = s.tests.ListIDs(ctx); err != nil {
			return models.SyncReport{}, storeError(err, "test", "list tests")
		}
	}
	var total models.SyncReport
	for _, id := range ids {
		report, err := s.tests.Reconcile(ctx, id)
		if err != nil {
			return total, storeError(err, "test", "reconcile results")
		}
		total.Created += report.Created
		total.Deleted += report.Deleted
	}
	s.metrics.ObserveSync(total)
	s.invalidate(ctx)
	return total, nil
}

func (s *TestService) taskError(err error, action string) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateTaskKey.Code, appErrors.ErrDuplicateTaskKey.Status, appErrors.ErrDuplicateTaskKey.Message)
	}
	return storeError(err, "task", action)
}

func (s *TestService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, analyticsPattern)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
