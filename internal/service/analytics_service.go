package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

// analyticsPattern matches every cached aggregate.
const analyticsPattern = "analytics:*"

type resultRowReader interface {
	ResultRows(ctx context.Context, filter repository.ResultFilter) ([]models.ResultRow, error)
	ReportSources(ctx context.Context, groupID string) ([]models.ReportCardSource, error)
}

type testReader interface {
	FindByID(ctx context.Context, id string) (*models.Test, error)
	ListAssignments(ctx context.Context, testID string) ([]models.TestAssign, error)
}

type taskLister interface {
	ListByTest(ctx context.Context, testID string) ([]models.Task, error)
}

type studentReader interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// AnalyticsService computes aggregates over result rows with optional caching.
type AnalyticsService struct {
	results   resultRowReader
	tests     testReader
	tasks     taskLister
	students  studentReader
	groups    groupReader
	cards     personalCardReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(results resultRowReader, tests testReader, tasks taskLister, students studentReader, groups groupReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		results:   results,
		tests:     tests,
		tasks:     tasks,
		students:  students,
		groups:    groups,
		cache:     cache,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// WithPersonalCards attaches the student's teacher-written card to report cards.
func (s *AnalyticsService) WithPersonalCards(cards personalCardReader) *AnalyticsService {
	s.cards = cards
	return s
}

// StudentSummary returns a student's participation and per-level totals on a test.
func (s *AnalyticsService) StudentSummary(ctx context.Context, studentID, testID string) (*models.StudentTestSummary, error) {
	key := analyticsKey("student", studentID, "test", testID)
	summary, _, err := cached(ctx, s.cache, key, func() (models.StudentTestSummary, error) {
		if _, err := s.loadStudent(ctx, studentID); err != nil {
			return models.StudentTestSummary{}, err
		}
		tasks, err := s.loadTasks(ctx, testID)
		if err != nil {
			return models.StudentTestSummary{}, err
		}
		rows, err := s.rows(ctx, "student_summary", repository.ResultFilter{TestID: testID, StudentID: studentID})
		if err != nil {
			return models.StudentTestSummary{}, err
		}
		results := grading.ResultsByStudent(rows)[studentID]
		return models.StudentTestSummary{
			StudentID:     studentID,
			TestID:        testID,
			Participation: grading.ParticipationOf(tasks, results),
			Levels:        grading.SummarizeLevels(tasks, results),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// TaskCounts returns per-task solved and zero counts across the cohort,
// optionally restricted to one group.
func (s *AnalyticsService) TaskCounts(ctx context.Context, testID, groupID string) ([]models.TaskCount, error) {
	key := analyticsKey("task-counts", testID, groupID)
	counts, _, err := cached(ctx, s.cache, key, func() ([]models.TaskCount, error) {
		tasks, err := s.loadTasks(ctx, testID)
		if err != nil {
			return nil, err
		}
		rows, err := s.rows(ctx, "task_counts", repository.ResultFilter{TestID: testID, GroupID: groupID})
		if err != nil {
			return nil, err
		}
		return grading.TaskCounts(tasks, rows), nil
	})
	return counts, err
}

// TestSummary builds the results matrix of a test for graded students only.
func (s *AnalyticsService) TestSummary(ctx context.Context, testID, groupID string) (*models.TestSummary, error) {
	key := analyticsKey("test-summary", testID, groupID)
	summary, _, err := cached(ctx, s.cache, key, func() (models.TestSummary, error) {
		test, err := s.loadTest(ctx, testID)
		if err != nil {
			return models.TestSummary{}, err
		}
		tasks, err := s.loadTasks(ctx, testID)
		if err != nil {
			return models.TestSummary{}, err
		}
		students, err := s.studentsOfTest(ctx, testID, groupID)
		if err != nil {
			return models.TestSummary{}, err
		}
		rows, err := s.rows(ctx, "test_summary", repository.ResultFilter{TestID: testID, GroupID: groupID})
		if err != nil {
			return models.TestSummary{}, err
		}

		byStudent := grading.ResultsByStudent(rows)
		graded := make(map[string]bool, len(byStudent))
		matrix := make([]models.MatrixRow, 0, len(students))
		for _, student := range students {
			results := byStudent[student.ID]
			if !grading.HasTakenTest(tasks, results) {
				continue
			}
			graded[student.ID] = true
			matrix = append(matrix, models.MatrixRow{
				Student: student,
				Points:  sheetCells(tasks, results),
				Levels:  grading.SummarizeLevels(tasks, results),
			})
		}

		gradedRows := make([]models.ResultRow, 0, len(rows))
		for _, row := range rows {
			if graded[row.StudentID] {
				gradedRows = append(gradedRows, row)
			}
		}

		return models.TestSummary{
			Test:       *test,
			GroupID:    groupID,
			Tasks:      tasks,
			Rows:       matrix,
			TaskCounts: grading.TaskCounts(tasks, gradedRows),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GroupAverages returns the weighted percent of a group for each level over
// the tasks selected by filter.
func (s *AnalyticsService) GroupAverages(ctx context.Context, groupID string, filter models.TaskFilter) ([]models.GroupLevelAverage, error) {
	key := analyticsKey("group-avg", groupID, filter.TestID, filter.SubjectID, joinInts(filter.Nums))
	averages, _, err := cached(ctx, s.cache, key, func() ([]models.GroupLevelAverage, error) {
		if _, err := s.loadGroup(ctx, groupID); err != nil {
			return nil, err
		}
		rows, err := s.rows(ctx, "group_average", repository.ResultFilter{
			GroupID:   groupID,
			TestID:    filter.TestID,
			SubjectID: filter.SubjectID,
			Nums:      filter.Nums,
		})
		if err != nil {
			return nil, err
		}
		return []models.GroupLevelAverage{
			grading.GroupLevelAverage(groupID, models.LevelBasic, rows),
			grading.GroupLevelAverage(groupID, models.LevelReflexive, rows),
		}, nil
	})
	return averages, err
}

// TimeSeries returns month-ordered weighted percents of a subject for a student
// or a group over the academic month range.
func (s *AnalyticsService) TimeSeries(ctx context.Context, query models.TimeSeriesQuery) (*models.TimeSeries, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time series query")
	}
	if _, err := grading.MonthRange(query.FromMonth, query.ToMonth); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	key := analyticsKey("series", string(query.Scope), query.ScopeID, query.SubjectID,
		strconv.Itoa(query.AcademicYear), strconv.Itoa(query.FromMonth), strconv.Itoa(query.ToMonth), string(query.Level))
	series, _, err := cached(ctx, s.cache, key, func() (models.TimeSeries, error) {
		filter := repository.ResultFilter{SubjectID: query.SubjectID, WrittenOnly: true}
		if query.Scope == models.ScopeStudent {
			if _, err := s.loadStudent(ctx, query.ScopeID); err != nil {
				return models.TimeSeries{}, err
			}
			filter.StudentID = query.ScopeID
		} else {
			if _, err := s.loadGroup(ctx, query.ScopeID); err != nil {
				return models.TimeSeries{}, err
			}
			filter.GroupID = query.ScopeID
		}
		rows, err := s.rows(ctx, "time_series", filter)
		if err != nil {
			return models.TimeSeries{}, err
		}
		points, err := grading.MonthlySeries(rows, query.AcademicYear, query.FromMonth, query.ToMonth, query.Level)
		if err != nil {
			return models.TimeSeries{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return models.TimeSeries{
			Scope:        query.Scope,
			ScopeID:      query.ScopeID,
			SubjectID:    query.SubjectID,
			AcademicYear: query.AcademicYear,
			Level:        query.Level,
			Points:       points,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// ReportCard assembles a student's personal card: per subject, the monthly
// series and the level percents of every test written within the period, plus
// the teacher-written card overlapping the period when one exists.
func (s *AnalyticsService) ReportCard(ctx context.Context, query models.ReportCardQuery) (*models.ReportCard, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card query")
	}
	if _, err := grading.MonthRange(query.FromMonth, query.ToMonth); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	student, err := s.loadStudent(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}
	group, err := s.loadGroup(ctx, student.GroupID)
	if err != nil {
		return nil, err
	}
	sources, err := s.results.ReportSources(ctx, student.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report sources")
	}
	rows, err := s.rows(ctx, "report_card", repository.ResultFilter{StudentID: student.ID, WrittenOnly: true})
	if err != nil {
		return nil, err
	}

	byTest := make(map[string][]models.ResultRow)
	for _, row := range rows {
		byTest[row.TestID] = append(byTest[row.TestID], row)
	}

	card := &models.ReportCard{
		Student:      *student,
		Group:        *group,
		AcademicYear: query.AcademicYear,
		FromMonth:    query.FromMonth,
		ToMonth:      query.ToMonth,
		GeneratedAt:  s.now().UTC(),
	}

	subjectIndex := make(map[string]int)
	subjectRows := make(map[string][]models.ResultRow)
	for _, src := range sources {
		if src.WritingDate == nil || !grading.InRange(*src.WritingDate, query.AcademicYear, query.FromMonth, query.ToMonth) {
			continue
		}
		testRows := byTest[src.TestID]
		if len(testRows) == 0 {
			continue
		}
		idx, ok := subjectIndex[src.SubjectID]
		if !ok {
			idx = len(card.Subjects)
			subjectIndex[src.SubjectID] = idx
			card.Subjects = append(card.Subjects, models.ReportCardSubject{
				Subject: models.Subject{ID: src.SubjectID, Name: src.SubjectName},
			})
		}
		tasks := tasksFromRows(testRows)
		results := grading.ResultsByStudent(testRows)[student.ID]
		card.Subjects[idx].Tests = append(card.Subjects[idx].Tests, models.ReportCardTest{
			TestID:      src.TestID,
			Name:        src.TestName,
			WritingDate: src.WritingDate,
			Levels:      grading.SummarizeLevels(tasks, results),
		})
		subjectRows[src.SubjectID] = append(subjectRows[src.SubjectID], testRows...)
	}

	for i := range card.Subjects {
		months, err := grading.MonthlySeries(subjectRows[card.Subjects[i].Subject.ID], query.AcademicYear, query.FromMonth, query.ToMonth, "")
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		card.Subjects[i].Months = months
	}

	if s.cards != nil {
		from, to := periodBounds(query.AcademicYear, query.FromMonth, query.ToMonth)
		personal, err := s.cards.FindForPeriod(ctx, student.ID, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load personal card")
		}
		card.PersonalCard = personal
	}
	return card, nil
}

// periodBounds returns the first and last day of an academic month range.
func periodBounds(academicYear, fromMonth, toMonth int) (time.Time, time.Time) {
	from := time.Date(grading.CalendarYear(academicYear, fromMonth), time.Month(fromMonth), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(grading.CalendarYear(academicYear, toMonth), time.Month(toMonth)+1, 0, 0, 0, 0, 0, time.UTC)
	return from, to
}

func (s *AnalyticsService) rows(ctx context.Context, label string, filter repository.ResultFilter) ([]models.ResultRow, error) {
	start := time.Now()
	rows, err := s.results.ResultRows(ctx, filter)
	s.metrics.ObserveAggregate(label, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	return rows, nil
}

func (s *AnalyticsService) studentsOfTest(ctx context.Context, testID, groupID string) ([]models.Student, error) {
	groupIDs := []string{groupID}
	if groupID == "" {
		assigns, err := s.tests.ListAssignments(ctx, testID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		groupIDs = groupIDs[:0]
		for _, a := range assigns {
			groupIDs = append(groupIDs, a.GroupID)
		}
	}
	var students []models.Student
	for _, id := range groupIDs {
		list, err := s.students.ListByGroup(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
		students = append(students, list...)
	}
	return students, nil
}

func (s *AnalyticsService) loadTest(ctx context.Context, id string) (*models.Test, error) {
	test, err := s.tests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "test")
	}
	return test, nil
}

func (s *AnalyticsService) loadTasks(ctx context.Context, testID string) ([]models.Task, error) {
	if _, err := s.loadTest(ctx, testID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByTest(ctx, testID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tasks")
	}
	grading.SortTasks(tasks)
	return tasks, nil
}

func (s *AnalyticsService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

func (s *AnalyticsService) loadGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	return group, nil
}

// lookupError maps a missing row to NOT_FOUND and anything else to INTERNAL.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

func sheetCells(tasks []models.Task, results map[string]*int) []models.SheetCell {
	cells := make([]models.SheetCell, 0, len(tasks))
	for _, t := range tasks {
		cells = append(cells, models.SheetCell{TaskID: t.ID, Result: results[t.ID]})
	}
	return cells
}

// tasksFromRows rebuilds the ordered task list of a test from its result rows.
func tasksFromRows(rows []models.ResultRow) []models.Task {
	seen := make(map[string]bool)
	var tasks []models.Task
	for _, row := range rows {
		if seen[row.TaskID] {
			continue
		}
		seen[row.TaskID] = true
		tasks = append(tasks, models.Task{ID: row.TaskID, TestID: row.TestID, Num: row.Num, Level: row.Level, MaxPoints: row.MaxPoints})
	}
	grading.SortTasks(tasks)
	return tasks
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
