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

const (
	cardSubjectID = "0b1c2d3e-4f50-4617-8829-3a4b5c6d7e8f"
	cardSkillID   = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f2a3b4c5d"
)

func newPersonalCardFixture(cards ...models.PersonalCard) (*PersonalCardService, *fakePersonalCardStore) {
	store := newFakePersonalCardStore(cards...)
	students := &fakeStudentStore{students: []models.Student{{ID: "s1", Surname: "Abel", GroupID: "g1"}}}
	return NewPersonalCardService(store, students, nil, zap.NewNop()), store
}

func TestPersonalCardServiceCreateCard(t *testing.T) {
	svc, store := newPersonalCardFixture()

	card, err := svc.CreateCard(context.Background(), "s1", models.CreatePersonalCardRequest{
		StartDate: time.Date(2025, time.October, 1, 9, 30, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), card.StartDate)
	assert.Contains(t, store.cards, card.ID)

	_, err = svc.CreateCard(context.Background(), "s1", models.CreatePersonalCardRequest{
		StartDate: time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CreateCard(context.Background(), "nobody", models.CreatePersonalCardRequest{
		StartDate: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPersonalCardServiceUpdateCard(t *testing.T) {
	svc, store := newPersonalCardFixture(models.PersonalCard{ID: "c1", StudentID: "s1"})
	mark := models.SkillMarkRatherYes

	card, err := svc.UpdateCard(context.Background(), "c1", models.UpdatePersonalCardRequest{
		Notes:      []models.CardNoteInput{{SubjectID: cardSubjectID, Kind: models.NoteStrength, Text: "  Neat proofs "}},
		SkillMarks: []models.SkillMarkInput{{SkillID: cardSkillID, Mark: &mark}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Neat proofs", card.NotesFor(cardSubjectID, models.NoteStrength))
	require.Len(t, store.savedMarks, 1)
	assert.Equal(t, models.SkillMarkRatherYes, *store.savedMarks[0].Mark)
}

func TestPersonalCardServiceRejectsInvalidMark(t *testing.T) {
	svc, store := newPersonalCardFixture(models.PersonalCard{ID: "c1", StudentID: "s1"})
	mark := models.SkillMark("maybe")

	_, err := svc.UpdateCard(context.Background(), "c1", models.UpdatePersonalCardRequest{
		SkillMarks: []models.SkillMarkInput{{SkillID: cardSkillID, Mark: &mark}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, store.savedMarks)
}

func TestPersonalCardServiceArchivedCardIsReadOnly(t *testing.T) {
	svc, _ := newPersonalCardFixture(models.PersonalCard{ID: "c1", StudentID: "s1", IsArchived: true})
	restore := false

	_, err := svc.UpdateCard(context.Background(), "c1", models.UpdatePersonalCardRequest{
		Notes: []models.CardNoteInput{{SubjectID: cardSubjectID, Kind: models.NoteRecommendation, Text: "More practice"}},
	})
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	card, err := svc.UpdateCard(context.Background(), "c1", models.UpdatePersonalCardRequest{IsArchived: &restore})
	require.NoError(t, err)
	assert.False(t, card.IsArchived)
}

func TestPersonalCardServiceUnknownSubject(t *testing.T) {
	svc, store := newPersonalCardFixture(models.PersonalCard{ID: "c1", StudentID: "s1"})
	store.saveErr = fmt.Errorf("save card note: %w", repository.ErrReferenced)

	_, err := svc.UpdateCard(context.Background(), "c1", models.UpdatePersonalCardRequest{
		Notes: []models.CardNoteInput{{SubjectID: cardSubjectID, Kind: models.NoteStrength, Text: "x"}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPersonalCardServiceSoftSkills(t *testing.T) {
	svc, _ := newPersonalCardFixture()

	skill, err := svc.CreateSoftSkill(context.Background(), models.CreateSoftSkillRequest{Name: " Teamwork "})
	require.NoError(t, err)
	assert.Equal(t, "Teamwork", skill.Name)

	skills, err := svc.ListSoftSkills(context.Background())
	require.NoError(t, err)
	assert.Len(t, skills, 1)

	_, err = svc.CreateSoftSkill(context.Background(), models.CreateSoftSkillRequest{Name: ""})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
