package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type resultService interface {
	Sheet(ctx context.Context, testID, groupID string) (*models.GradingSheet, error)
	SubmitStudent(ctx context.Context, testID, studentID string, req models.StudentResultsRequest) (*models.SheetRow, error)
	SubmitGroup(ctx context.Context, testID, groupID string, req models.GroupResultsRequest) (*models.GradingSheet, error)
}

// ResultHandler exposes the grading sheet and result submission endpoints.
type ResultHandler struct {
	results resultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results resultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Sheet godoc
// @Summary Grading sheet of a group for a test
// @Tags Results
// @Produce json
// @Param id path string true "Test ID"
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /tests/{id}/groups/{groupId}/results [get]
func (h *ResultHandler) Sheet(c *gin.Context) {
	sheet, err := h.results.Sheet(c.Request.Context(), c.Param("id"), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// SubmitStudent godoc
// @Summary Submit one student's results
// @Description Results map task IDs to a score or null. Omitted tasks keep their stored value.
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param studentId path string true "Student ID"
// @Param payload body models.StudentResultsRequest true "Results"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tests/{id}/students/{studentId}/results [put]
func (h *ResultHandler) SubmitStudent(c *gin.Context) {
	var req models.StudentResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	row, err := h.results.SubmitStudent(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// SubmitGroup godoc
// @Summary Submit every student's results of a group at once
// @Description All batches are validated first; nothing is stored unless every batch passes.
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param groupId path string true "Group ID"
// @Param payload body models.GroupResultsRequest true "Results"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tests/{id}/groups/{groupId}/results [put]
func (h *ResultHandler) SubmitGroup(c *gin.Context) {
	var req models.GroupResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	sheet, err := h.results.SubmitGroup(c.Request.Context(), c.Param("id"), c.Param("groupId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}
