package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

type personalCardStore interface {
	ListByStudent(ctx context.Context, studentID string, includeArchived bool) ([]models.PersonalCard, error)
	FindByID(ctx context.Context, id string) (*models.PersonalCard, error)
	Create(ctx context.Context, card *models.PersonalCard) error
	Save(ctx context.Context, card *models.PersonalCard, notes []models.CardNote, marks []models.SoftSkillMark) error
	Delete(ctx context.Context, id string) error
	ListSoftSkills(ctx context.Context) ([]models.SoftSkill, error)
	CreateSoftSkill(ctx context.Context, skill *models.SoftSkill) error
}

// personalCardReader is the read side the report card needs.
type personalCardReader interface {
	FindForPeriod(ctx context.Context, studentID string, from, to time.Time) (*models.PersonalCard, error)
}

// PersonalCardService manages the teacher-written part of a student's report
// card: per-subject recommendations and strengths and soft skill marks.
type PersonalCardService struct {
	cards     personalCardStore
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonalCardService constructs a PersonalCardService.
func NewPersonalCardService(cards personalCardStore, students studentReader, validate *validator.Validate, logger *zap.Logger) *PersonalCardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonalCardService{cards: cards, students: students, validator: validate, logger: logger}
}

// ListCards returns a student's cards, newest first.
func (s *PersonalCardService) ListCards(ctx context.Context, studentID string, includeArchived bool) ([]models.PersonalCard, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storeError(err, "student", "load student")
	}
	cards, err := s.cards.ListByStudent(ctx, studentID, includeArchived)
	if err != nil {
		return nil, storeError(err, "personal card", "list personal cards")
	}
	return cards, nil
}

// GetCard returns a card with its notes and marks.
func (s *PersonalCardService) GetCard(ctx context.Context, id string) (*models.PersonalCard, error) {
	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "personal card", "load personal card")
	}
	return card, nil
}

// CreateCard opens an empty card for the student's reporting period.
func (s *PersonalCardService) CreateCard(ctx context.Context, studentID string, req models.CreatePersonalCardRequest) (*models.PersonalCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personal card payload")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storeError(err, "student", "load student")
	}
	card := &models.PersonalCard{
		StudentID:  studentID,
		StartDate:  dateOnly(req.StartDate),
		EndDate:    dateOnly(req.EndDate),
		Notes:      []models.CardNote{},
		SkillMarks: []models.SoftSkillMark{},
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, storeError(err, "personal card", "create personal card")
	}
	s.logger.Info("personal card created", zap.String("card_id", card.ID), zap.String("student_id", studentID))
	return card, nil
}

// UpdateCard writes notes and marks and toggles the archive flag. Archived
// cards only accept being restored.
func (s *PersonalCardService) UpdateCard(ctx context.Context, id string, req models.UpdatePersonalCardRequest) (*models.PersonalCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personal card payload")
	}
	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "personal card", "load personal card")
	}
	archived := card.IsArchived
	if req.IsArchived != nil {
		archived = *req.IsArchived
	}
	editing := len(req.Notes) > 0 || len(req.SkillMarks) > 0
	if editing && archived {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "archived personal cards cannot be edited")
	}

	notes := make([]models.CardNote, 0, len(req.Notes))
	for _, in := range req.Notes {
		notes = append(notes, models.CardNote{SubjectID: in.SubjectID, Kind: in.Kind, Text: strings.TrimSpace(in.Text)})
	}
	marks := make([]models.SoftSkillMark, 0, len(req.SkillMarks))
	for _, in := range req.SkillMarks {
		marks = append(marks, models.SoftSkillMark{SkillID: in.SkillID, Mark: in.Mark})
	}

	card.IsArchived = archived
	if err := s.cards.Save(ctx, card, notes, marks); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown subject or soft skill")
		}
		return nil, storeError(err, "personal card", "save personal card")
	}
	return s.GetCard(ctx, id)
}

// DeleteCard removes a card.
func (s *PersonalCardService) DeleteCard(ctx context.Context, id string) error {
	if err := s.cards.Delete(ctx, id); err != nil {
		return storeError(err, "personal card", "delete personal card")
	}
	return nil
}

// ListSoftSkills returns the soft skill catalogue.
func (s *PersonalCardService) ListSoftSkills(ctx context.Context) ([]models.SoftSkill, error) {
	skills, err := s.cards.ListSoftSkills(ctx)
	if err != nil {
		return nil, storeError(err, "soft skill", "list soft skills")
	}
	return skills, nil
}

// CreateSoftSkill adds a soft skill to the catalogue.
func (s *PersonalCardService) CreateSoftSkill(ctx context.Context, req models.CreateSoftSkillRequest) (*models.SoftSkill, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid soft skill payload")
	}
	skill := &models.SoftSkill{Name: strings.TrimSpace(req.Name)}
	if err := s.cards.CreateSoftSkill(ctx, skill); err != nil {
		return nil, storeError(err, "soft skill", "create soft skill")
	}
	return skill, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
