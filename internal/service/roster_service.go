package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

type groupStore interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
}

type studentStore interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) (models.SyncReport, error)
	Delete(ctx context.Context, id string) error
}

type subjectStore interface {
	List(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// RosterService manages groups, students and subjects.
type RosterService struct {
	groups    groupStore
	students  studentStore
	subjects  subjectStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(groups groupStore, students studentStore, subjects subjectStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{groups: groups, students: students, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// ListGroups returns groups matching the filter.
func (s *RosterService) ListGroups(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	groups, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "group", "list groups")
	}
	return groups, nil
}

// GetGroup returns a group by ID.
func (s *RosterService) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "group", "load group")
	}
	return group, nil
}

// CreateGroup registers an active group.
func (s *RosterService) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group := &models.Group{
		Campus:       req.Campus,
		StudyingYear: req.StudyingYear,
		Letter:       req.Letter,
		YearCreated:  req.YearCreated,
		IsActive:     true,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, storeError(err, "group", "create group")
	}
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("label", group.Label()))
	return group, nil
}

// DeleteGroup removes an empty group. Groups with students are rejected with a conflict.
func (s *RosterService) DeleteGroup(ctx context.Context, id string) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return storeError(err, "group", "delete group")
	}
	_ = s.cache.Invalidate(ctx, analyticsPattern)
	return nil
}

// ListStudents returns the group's students in roster order.
func (s *RosterService) ListStudents(ctx context.Context, groupID string) ([]models.Student, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	students, err := s.students.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err, "student", "list students")
	}
	return students, nil
}

// CreateStudent enrols a student into an existing group. Blank result rows for
// the tests already assigned to the group are created with the student.
func (s *RosterService) CreateStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.GetGroup(ctx, req.GroupID); err != nil {
		return nil, err
	}
	student := &models.Student{
		Surname:    req.Surname,
		Name:       req.Name,
		Patronymic: req.Patronymic,
		GroupID:    req.GroupID,
	}
	report, err := s.students.Create(ctx, student)
	if err != nil {
		return nil, storeError(err, "student", "create student")
	}
	_ = s.cache.Invalidate(ctx, analyticsPattern)
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("group_id", student.GroupID),
		zap.Int64("rows_created", report.Created))
	return student, nil
}

// DeleteStudent removes a student together with their results.
func (s *RosterService) DeleteStudent(ctx context.Context, id string) error {
	if err := s.students.Delete(ctx, id); err != nil {
		return storeError(err, "student", "delete student")
	}
	_ = s.cache.Invalidate(ctx, analyticsPattern)
	return nil
}

// ListSubjects returns every subject.
func (s *RosterService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, storeError(err, "subject", "list subjects")
	}
	return subjects, nil
}

// CreateSubject registers a subject with a unique name.
func (s *RosterService) CreateSubject(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{Name: req.Name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, storeError(err, "subject", "create subject")
	}
	return subject, nil
}

// DeleteSubject removes a subject not used by any test.
func (s *RosterService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		return storeError(err, "subject", "delete subject")
	}
	return nil
}
