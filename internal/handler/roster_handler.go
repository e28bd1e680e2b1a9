package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type rosterService interface {
	ListGroups(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	ListStudents(ctx context.Context, groupID string) ([]models.Student, error)
	CreateStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	CreateSubject(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
}

// RosterHandler exposes group, student and subject endpoints.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// ListGroups godoc
// @Summary List groups
// @Tags Roster
// @Produce json
// @Param campus query string false "Campus"
// @Param studying_year query int false "Studying year"
// @Param active query bool false "Active state"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *RosterHandler) ListGroups(c *gin.Context) {
	filter := models.GroupFilter{Campus: c.Query("campus")}
	var err error
	if filter.StudyingYear, err = queryInt(c, "studying_year", 0); err != nil {
		response.Error(c, err)
		return
	}
	if filter.Active, err = queryBool(c, "active"); err != nil {
		response.Error(c, err)
		return
	}
	groups, err := h.roster.ListGroups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// GetGroup godoc
// @Summary Get group
// @Tags Roster
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId} [get]
func (h *RosterHandler) GetGroup(c *gin.Context) {
	group, err := h.roster.GetGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// CreateGroup godoc
// @Summary Create group
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body models.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *RosterHandler) CreateGroup(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	group, err := h.roster.CreateGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// DeleteGroup godoc
// @Summary Delete an empty group
// @Tags Roster
// @Param groupId path string true "Group ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /groups/{groupId} [delete]
func (h *RosterHandler) DeleteGroup(c *gin.Context) {
	if err := h.roster.DeleteGroup(c.Request.Context(), c.Param("groupId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudents godoc
// @Summary Students of a group in roster order
// @Tags Roster
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/students [get]
func (h *RosterHandler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// CreateStudent godoc
// @Summary Enrol student
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *RosterHandler) CreateStudent(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.roster.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// DeleteStudent godoc
// @Summary Delete student with their results
// @Tags Roster
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /students/{studentId} [delete]
func (h *RosterHandler) DeleteStudent(c *gin.Context) {
	if err := h.roster.DeleteStudent(c.Request.Context(), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *RosterHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.roster.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body models.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *RosterHandler) CreateSubject(c *gin.Context) {
	var req models.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	subject, err := h.roster.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// DeleteSubject godoc
// @Summary Delete subject not used by any test
// @Tags Roster
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /subjects/{subjectId} [delete]
func (h *RosterHandler) DeleteSubject(c *gin.Context) {
	if err := h.roster.DeleteSubject(c.Request.Context(), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
