package service

import (
	"context"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

type solutionStore interface {
	ListForTest(ctx context.Context, testID, groupID string) ([]models.ResultRow, error)
	Submit(ctx context.Context, testID string, studentIDs []string, decide repository.DecideFunc) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Test, error)
	FindAssignment(ctx context.Context, testID, groupID string) (*models.TestAssign, error)
}

// SubmissionRejected is returned as error details when a group submission
// fails; it lists every rejected student batch.
type SubmissionRejected struct {
	Failures []*grading.ValidationError `json:"failures"`
}

// ResultService serves grading sheets and records teacher submissions.
type ResultService struct {
	solutions solutionStore
	tests     assignmentReader
	tasks     taskLister
	students  studentReader
	groups    groupReader
	cache     *CacheService
	metrics   *MetricsService
	policy    grading.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService validating batches under policy.
func NewResultService(solutions solutionStore, tests assignmentReader, tasks taskLister, students studentReader, groups groupReader, cache *CacheService, metrics *MetricsService, policy grading.Policy, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		solutions: solutions,
		tests:     tests,
		tasks:     tasks,
		students:  students,
		groups:    groups,
		cache:     cache,
		metrics:   metrics,
		policy:    policy,
		validator: validator.New(),
		logger:    logger,
	}
}

// Sheet returns the grading matrix of a test for one assigned group. Students
// with every task graded are listed under Graded, the rest under Pending.
func (s *ResultService) Sheet(ctx context.Context, testID, groupID string) (*models.GradingSheet, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		return nil, storeError(err, "test", "load test")
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "group", "load group")
	}
	if _, err := s.tests.FindAssignment(ctx, testID, groupID); err != nil {
		return nil, storeError(err, "assignment", "load assignment")
	}
	tasks, err := s.orderedTasks(ctx, testID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "group", "load students")
	}
	rows, err := s.solutions.ListForTest(ctx, testID, groupID)
	if err != nil {
		return nil, storeError(err, "test", "load results")
	}

	byStudent := grading.ResultsByStudent(rows)
	sheet := &models.GradingSheet{Test: *test, Group: *group, Tasks: tasks, Graded: []models.SheetRow{}, Pending: []models.SheetRow{}}
	for _, student := range students {
		results := byStudent[student.ID]
		row := models.SheetRow{
			Student:       student,
			Participation: grading.ParticipationOf(tasks, results),
			Cells:         sheetCells(tasks, results),
		}
		if row.Participation == models.ParticipationGraded {
			sheet.Graded = append(sheet.Graded, row)
		} else {
			sheet.Pending = append(sheet.Pending, row)
		}
	}
	return sheet, nil
}

// SubmitStudent validates and stores one student's batch for a test. Tasks
// omitted from the request keep their stored values.
func (s *ResultService) SubmitStudent(ctx context.Context, testID, studentID string, req models.StudentResultsRequest) (*models.SheetRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid results payload")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student", "load student")
	}
	tasks, err := s.orderedTasks(ctx, testID)
	if err != nil {
		return nil, err
	}

	var merged map[string]*int
	err = s.solutions.Submit(ctx, testID, []string{studentID}, func(existing map[string]map[string]*int) ([]models.SolutionUpdate, error) {
		stored := existing[studentID]
		if len(stored) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no results for this test")
		}
		result, err := grading.ValidateBatch(studentID, tasks, stored, req.Results, s.policy)
		if err != nil {
			return nil, err
		}
		merged = result
		return changedResults(studentID, tasks, stored, result), nil
	})
	if err != nil {
		return nil, s.submitError(err)
	}

	s.metrics.ObserveSubmission(OutcomeAccepted)
	s.invalidate(ctx)
	s.logger.Info("results submitted", zap.String("test_id", testID), zap.String("student_id", studentID))
	return &models.SheetRow{
		Student:       *student,
		Participation: grading.ParticipationOf(tasks, merged),
		Cells:         sheetCells(tasks, merged),
	}, nil
}

// SubmitGroup validates every student's batch of a group first and then stores
// all of them in one transaction. A single rejected batch stores nothing; the
// error details list every rejection.
func (s *ResultService) SubmitGroup(ctx context.Context, testID, groupID string, req models.GroupResultsRequest) (*models.GradingSheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid results payload")
	}
	if _, err := s.tests.FindAssignment(ctx, testID, groupID); err != nil {
		return nil, storeError(err, "assignment", "load assignment")
	}
	members, err := s.students.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "group", "load students")
	}
	inGroup := make(map[string]bool, len(members))
	for _, m := range members {
		inGroup[m.ID] = true
	}

	batches := make(map[string]map[string]*int, len(req.Students))
	ids := make([]string, 0, len(req.Students))
	for _, entry := range req.Students {
		if !inGroup[entry.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student "+entry.StudentID+" is not in the group")
		}
		if _, dup := batches[entry.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student "+entry.StudentID+" is listed twice")
		}
		batches[entry.StudentID] = entry.Results
		ids = append(ids, entry.StudentID)
	}
	sort.Strings(ids)

	tasks, err := s.orderedTasks(ctx, testID)
	if err != nil {
		return nil, err
	}

	err = s.solutions.Submit(ctx, testID, ids, func(existing map[string]map[string]*int) ([]models.SolutionUpdate, error) {
		var failures []*grading.ValidationError
		var updates []models.SolutionUpdate
		for _, id := range ids {
			stored := existing[id]
			if len(stored) == 0 {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student "+id+" has no results for this test")
			}
			merged, err := grading.ValidateBatch(id, tasks, stored, batches[id], s.policy)
			if err != nil {
				var vErr *grading.ValidationError
				if !errors.As(err, &vErr) {
					return nil, err
				}
				failures = append(failures, vErr)
				continue
			}
			updates = append(updates, changedResults(id, tasks, stored, merged)...)
		}
		if len(failures) > 0 {
			return nil, &groupRejection{failures: failures}
		}
		return updates, nil
	})
	if err != nil {
		return nil, s.submitError(err)
	}

	for range ids {
		s.metrics.ObserveSubmission(OutcomeAccepted)
	}
	s.invalidate(ctx)
	s.logger.Info("group results submitted", zap.String("test_id", testID), zap.String("group_id", groupID), zap.Int("students", len(ids)))
	return s.Sheet(ctx, testID, groupID)
}

type groupRejection struct {
	failures []*grading.ValidationError
}

func (g *groupRejection) Error() string {
	return g.failures[0].Message
}

func (s *ResultService) submitError(err error) error {
	var group *groupRejection
	if errors.As(err, &group) {
		for _, f := range group.failures {
			s.metrics.ObserveSubmission(string(f.Kind))
		}
		first := rejection(group.failures[0])
		return appErrors.WithDetails(first, SubmissionRejected{Failures: group.failures})
	}
	var vErr *grading.ValidationError
	if errors.As(err, &vErr) {
		s.metrics.ObserveSubmission(string(vErr.Kind))
		return rejection(vErr)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrMissingRow) {
		return appErrors.Wrap(err, appErrors.ErrRowSync.Code, appErrors.ErrRowSync.Status, "result rows are out of sync; run reconcile")
	}
	return storeError(err, "results", "save results")
}

func (s *ResultService) orderedTasks(ctx context.Context, testID string) ([]models.Task, error) {
	tasks, err := s.tasks.ListByTest(ctx, testID)
	if err != nil {
		return nil, storeError(err, "test", "load tasks")
	}
	if len(tasks) == 0 {
		if _, err := s.tests.FindByID(ctx, testID); err != nil {
			return nil, storeError(err, "test", "load test")
		}
	}
	grading.SortTasks(tasks)
	return tasks, nil
}

func (s *ResultService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, analyticsPattern)
}

// changedResults lists the writes that turn stored into merged.
func changedResults(studentID string, tasks []models.Task, stored, merged map[string]*int) []models.SolutionUpdate {
	var updates []models.SolutionUpdate
	for _, t := range tasks {
		before, after := stored[t.ID], merged[t.ID]
		if _, exists := stored[t.ID]; exists && sameResult(before, after) {
			continue
		}
		updates = append(updates, models.SolutionUpdate{StudentID: studentID, TaskID: t.ID, Result: after})
	}
	return updates
}

func sameResult(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
