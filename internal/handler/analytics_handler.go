package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/middleware"
	"github.com/noah-isme/sma-tests-api/internal/models"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type analyticsService interface {
	StudentSummary(ctx context.Context, studentID, testID string) (*models.StudentTestSummary, error)
	TaskCounts(ctx context.Context, testID, groupID string) ([]models.TaskCount, error)
	TestSummary(ctx context.Context, testID, groupID string) (*models.TestSummary, error)
	GroupAverages(ctx context.Context, groupID string, filter models.TaskFilter) ([]models.GroupLevelAverage, error)
	TimeSeries(ctx context.Context, query models.TimeSeriesQuery) (*models.TimeSeries, error)
	ReportCard(ctx context.Context, query models.ReportCardQuery) (*models.ReportCard, error)
}

// AnalyticsHandler exposes read-only aggregate endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	now       func() time.Time
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, now: time.Now}
}

// StudentSummary godoc
// @Summary A student's per-level totals on one test
// @Tags Analytics
// @Produce json
// @Param id path string true "Test ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/tests/{id}/students/{studentId} [get]
func (h *AnalyticsHandler) StudentSummary(c *gin.Context) {
	summary, err := h.analytics.StudentSummary(c.Request.Context(), c.Param("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, summary)
}

// TestSummary godoc
// @Summary Results matrix of a test
// @Tags Analytics
// @Produce json
// @Param id path string true "Test ID"
// @Param group_id query string false "Restrict to one group"
// @Success 200 {object} response.Envelope
// @Router /analytics/tests/{id}/summary [get]
func (h *AnalyticsHandler) TestSummary(c *gin.Context) {
	summary, err := h.analytics.TestSummary(c.Request.Context(), c.Param("id"), c.Query("group_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, summary)
}

// TaskCounts godoc
// @Summary Solved and zero counts per task
// @Tags Analytics
// @Produce json
// @Param id path string true "Test ID"
// @Param group_id query string false "Restrict to one group"
// @Success 200 {object} response.Envelope
// @Router /analytics/tests/{id}/tasks [get]
func (h *AnalyticsHandler) TaskCounts(c *gin.Context) {
	counts, err := h.analytics.TaskCounts(c.Request.Context(), c.Param("id"), c.Query("group_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, counts)
}

// GroupAverages godoc
// @Summary Weighted percent of a group per level
// @Tags Analytics
// @Produce json
// @Param groupId path string true "Group ID"
// @Param test_id query string false "Restrict to one test"
// @Param subject_id query string false "Restrict to one subject"
// @Param nums query string false "Task numbers, comma separated"
// @Success 200 {object} response.Envelope
// @Router /analytics/groups/{groupId}/averages [get]
func (h *AnalyticsHandler) GroupAverages(c *gin.Context) {
	nums, err := queryInts(c, "nums")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.TaskFilter{TestID: c.Query("test_id"), SubjectID: c.Query("subject_id"), Nums: nums}
	averages, err := h.analytics.GroupAverages(c.Request.Context(), c.Param("groupId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, averages)
}

// StudentSeries godoc
// @Summary Monthly subject series of a student
// @Tags Analytics
// @Produce json
// @Param studentId path string true "Student ID"
// @Param subject_id query string true "Subject ID"
// @Param academic_year query int false "Academic year start, defaults to the current one"
// @Param from_month query int false "First month, defaults to September"
// @Param to_month query int false "Last month, defaults to August"
// @Param level query string false "basic or reflexive"
// @Success 200 {object} response.Envelope
// @Router /analytics/students/{studentId}/series [get]
func (h *AnalyticsHandler) StudentSeries(c *gin.Context) {
	h.series(c, models.ScopeStudent, c.Param("studentId"))
}

// GroupSeries godoc
// @Summary Monthly subject series of a group
// @Tags Analytics
// @Produce json
// @Param groupId path string true "Group ID"
// @Param subject_id query string true "Subject ID"
// @Param academic_year query int false "Academic year start, defaults to the current one"
// @Param from_month query int false "First month, defaults to September"
// @Param to_month query int false "Last month, defaults to August"
// @Param level query string false "basic or reflexive"
// @Success 200 {object} response.Envelope
// @Router /analytics/groups/{groupId}/series [get]
func (h *AnalyticsHandler) GroupSeries(c *gin.Context) {
	h.series(c, models.ScopeGroup, c.Param("groupId"))
}

// ReportCard godoc
// @Summary Personal report card of a student
// @Tags Analytics
// @Produce json
// @Param studentId path string true "Student ID"
// @Param academic_year query int false "Academic year start, defaults to the current one"
// @Param from_month query int false "First month, defaults to September"
// @Param to_month query int false "Last month, defaults to August"
// @Success 200 {object} response.Envelope
// @Router /analytics/students/{studentId}/report-card [get]
func (h *AnalyticsHandler) ReportCard(c *gin.Context) {
	year, from, to, err := h.period(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	card, err := h.analytics.ReportCard(c.Request.Context(), models.ReportCardQuery{
		StudentID:    c.Param("studentId"),
		AcademicYear: year,
		FromMonth:    from,
		ToMonth:      to,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, card)
}

func (h *AnalyticsHandler) series(c *gin.Context, scope models.SeriesScope, scopeID string) {
	year, from, to, err := h.period(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_id required"))
		return
	}
	series, err := h.analytics.TimeSeries(c.Request.Context(), models.TimeSeriesQuery{
		Scope:        scope,
		ScopeID:      scopeID,
		SubjectID:    subjectID,
		AcademicYear: year,
		FromMonth:    from,
		ToMonth:      to,
		Level:        models.TaskLevel(c.Query("level")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, series)
}

// period reads the academic period query, defaulting to the whole current year.
func (h *AnalyticsHandler) period(c *gin.Context) (year, from, to int, err error) {
	if year, err = queryInt(c, "academic_year", grading.AcademicYearOf(h.now())); err != nil {
		return
	}
	if from, err = queryInt(c, "from_month", int(time.September)); err != nil {
		return
	}
	to, err = queryInt(c, "to_month", int(time.August))
	return
}

func (h *AnalyticsHandler) respond(c *gin.Context, data interface{}) {
	response.JSON(c, http.StatusOK, data, nil, middleware.ResponseMeta(c))
}
