package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type personalCardService interface {
	ListCards(ctx context.Context, studentID string, includeArchived bool) ([]models.PersonalCard, error)
	GetCard(ctx context.Context, id string) (*models.PersonalCard, error)
	CreateCard(ctx context.Context, studentID string, req models.CreatePersonalCardRequest) (*models.PersonalCard, error)
	UpdateCard(ctx context.Context, id string, req models.UpdatePersonalCardRequest) (*models.PersonalCard, error)
	DeleteCard(ctx context.Context, id string) error
	ListSoftSkills(ctx context.Context) ([]models.SoftSkill, error)
	CreateSoftSkill(ctx context.Context, req models.CreateSoftSkillRequest) (*models.SoftSkill, error)
}

// PersonalCardHandler exposes personal card and soft skill endpoints.
type PersonalCardHandler struct {
	cards personalCardService
}

// NewPersonalCardHandler constructs PersonalCardHandler.
func NewPersonalCardHandler(cards personalCardService) *PersonalCardHandler {
	return &PersonalCardHandler{cards: cards}
}

// List godoc
// @Summary List a student's personal cards
// @Tags PersonalCards
// @Produce json
// @Param studentId path string true "Student ID"
// @Param archived query bool false "Include archived cards"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/cards [get]
func (h *PersonalCardHandler) List(c *gin.Context) {
	archived, err := queryBool(c, "archived")
	if err != nil {
		response.Error(c, err)
		return
	}
	cards, err := h.cards.ListCards(c.Request.Context(), c.Param("studentId"), archived != nil && *archived)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// Get godoc
// @Summary Get personal card with notes and soft skill marks
// @Tags PersonalCards
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId} [get]
func (h *PersonalCardHandler) Get(c *gin.Context) {
	card, err := h.cards.GetCard(c.Request.Context(), c.Param("cardId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// Create godoc
// @Summary Open a personal card for a reporting period
// @Tags PersonalCards
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.CreatePersonalCardRequest true "Period"
// @Success 201 {object} response.Envelope
// @Router /students/{studentId}/cards [post]
func (h *PersonalCardHandler) Create(c *gin.Context) {
	var req models.CreatePersonalCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	card, err := h.cards.CreateCard(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// Update godoc
// @Summary Write notes and soft skill marks, or archive the card
// @Tags PersonalCards
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body models.UpdatePersonalCardRequest true "Card changes"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /cards/{cardId} [patch]
func (h *PersonalCardHandler) Update(c *gin.Context) {
	var req models.UpdatePersonalCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	card, err := h.cards.UpdateCard(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// Delete godoc
// @Summary Delete personal card
// @Tags PersonalCards
// @Param cardId path string true "Card ID"
// @Success 204
// @Router /cards/{cardId} [delete]
func (h *PersonalCardHandler) Delete(c *gin.Context) {
	if err := h.cards.DeleteCard(c.Request.Context(), c.Param("cardId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSoftSkills godoc
// @Summary List soft skills
// @Tags PersonalCards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /soft-skills [get]
func (h *PersonalCardHandler) ListSoftSkills(c *gin.Context) {
	skills, err := h.cards.ListSoftSkills(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skills, nil)
}

// CreateSoftSkill godoc
// @Summary Create soft skill
// @Tags PersonalCards
// @Accept json
// @Produce json
// @Param payload body models.CreateSoftSkillRequest true "Soft skill"
// @Success 201 {object} response.Envelope
// @Router /soft-skills [post]
func (h *PersonalCardHandler) CreateSoftSkill(c *gin.Context) {
	var req models.CreateSoftSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	skill, err := h.cards.CreateSoftSkill(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, skill)
}
