package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/models"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type testService interface {
	List(ctx context.Context, filter models.TestFilter) ([]models.Test, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TestDetail, error)
	Create(ctx context.Context, req models.CreateTestRequest) (*models.Test, error)
	Update(ctx context.Context, id string, req models.UpdateTestRequest) (*models.Test, error)
	Delete(ctx context.Context, id string) error
	AddTask(ctx context.Context, testID string, req models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID string, req models.UpdateTaskRequest) (*models.Task, error)
	RemoveTask(ctx context.Context, taskID string) error
	AssignGroups(ctx context.Context, testID string, req models.AssignGroupsRequest) (models.SyncReport, error)
	UnassignGroups(ctx context.Context, testID string, req models.AssignGroupsRequest) (models.SyncReport, error)
	SetWritingDate(ctx context.Context, testID, groupID string, req models.SetWritingDateRequest) error
	Reconcile(ctx context.Context, testID string) (models.SyncReport, error)
}

// TestHandler exposes test, task and assignment endpoints.
type TestHandler struct {
	tests testService
}

// NewTestHandler constructs TestHandler.
func NewTestHandler(tests testService) *TestHandler {
	return &TestHandler{tests: tests}
}

// List godoc
// @Summary List tests
// @Tags Tests
// @Produce json
// @Param subject_id query string false "Filter by subject"
// @Param studying_year query int false "Filter by studying year"
// @Param published query bool false "Filter by published state"
// @Param group_id query string false "Only tests assigned to the group"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tests [get]
func (h *TestHandler) List(c *gin.Context) {
	filter := models.TestFilter{
		SubjectID: c.Query("subject_id"),
		GroupID:   c.Query("group_id"),
	}
	var err error
	if filter.StudyingYear, err = queryInt(c, "studying_year", 0); err != nil {
		response.Error(c, err)
		return
	}
	if filter.Published, err = queryBool(c, "published"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.Page, err = queryInt(c, "page", 1); err != nil {
		response.Error(c, err)
		return
	}
	if filter.PageSize, err = queryInt(c, "limit", 20); err != nil {
		response.Error(c, err)
		return
	}

	tests, pagination, err := h.tests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, pagination)
}

// Get godoc
// @Summary Get test with tasks and assignments
// @Tags Tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /tests/{id} [get]
func (h *TestHandler) Get(c *gin.Context) {
	detail, err := h.tests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create test
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body models.CreateTestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Router /tests [post]
func (h *TestHandler) Create(c *gin.Context) {
	var req models.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatorID = claims.UserID
	}
	test, err := h.tests.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test)
}

// Update godoc
// @Summary Update or publish a test
// @Tags Tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body models.UpdateTestRequest true "Test payload"
// @Success 200 {object} response.Envelope
// @Router /tests/{id} [patch]
func (h *TestHandler) Update(c *gin.Context) {
	var req models.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	test, err := h.tests.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, test, nil)
}

// Delete godoc
// @Summary Delete test with its tasks and results
// @Tags Tests
// @Param id path string true "Test ID"
// @Success 204
// @Router /tests/{id} [delete]
func (h *TestHandler) Delete(c *gin.Context) {
	if err := h.tests.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddTask godoc
// @Summary Add task to a test
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body models.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tests/{id}/tasks [post]
func (h *TestHandler) AddTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	task, err := h.tests.AddTask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// UpdateTask godoc
// @Summary Update task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body models.UpdateTaskRequest true "Task payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tasks/{taskId} [patch]
func (h *TestHandler) UpdateTask(c *gin.Context) {
	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	task, err := h.tests.UpdateTask(c.Request.Context(), c.Param("taskId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// RemoveTask godoc
// @Summary Remove task and its results
// @Tags Tasks
// @Param taskId path string true "Task ID"
// @Success 204
// @Router /tasks/{taskId} [delete]
func (h *TestHandler) RemoveTask(c *gin.Context) {
	if err := h.tests.RemoveTask(c.Request.Context(), c.Param("taskId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignGroups godoc
// @Summary Assign groups to a test
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body models.AssignGroupsRequest true "Groups"
// @Success 200 {object} response.Envelope
// @Router /tests/{id}/groups [post]
func (h *TestHandler) AssignGroups(c *gin.Context) {
	var req models.AssignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	report, err := h.tests.AssignGroups(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// UnassignGroups godoc
// @Summary Unassign groups that have not written the test
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body models.AssignGroupsRequest true "Groups"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /tests/{id}/groups [delete]
func (h *TestHandler) UnassignGroups(c *gin.Context) {
	var req models.AssignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	report, err := h.tests.UnassignGroups(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SetWritingDate godoc
// @Summary Set or clear when a group wrote the test
// @Tags Assignments
// @Accept json
// @Param id path string true "Test ID"
// @Param groupId path string true "Group ID"
// @Param payload body models.SetWritingDateRequest true "Writing date"
// @Success 204
// @Router /tests/{id}/groups/{groupId}/writing-date [put]
func (h *TestHandler) SetWritingDate(c *gin.Context) {
	var req models.SetWritingDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.tests.SetWritingDate(c.Request.Context(), c.Param("id"), c.Param("groupId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reconcile godoc
// @Summary Realign result rows with current assignments
// @Tags Assignments
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Router /tests/{id}/reconcile [post]
func (h *TestHandler) Reconcile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "test id required"))
		return
	}
	report, err := h.tests.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
