package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/middleware"
	"github.com/noah-isme/sma-tests-api/internal/models"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Tests     *TestHandler
	Results   *ResultHandler
	Analytics *AnalyticsHandler
	Roster    *RosterHandler
	Cards     *PersonalCardHandler
	Reports   *ReportHandler
	Auth      *AuthHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the API under api. Reads are open to every role,
// grading writes to teachers and administrators, roster and maintenance
// writes to administrators only.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, logger *zap.Logger) {
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleViewer)
	graders := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admins := middleware.RequireRoles(models.RoleAdmin)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(logger, action) }

	if h.Reports != nil {
		api.GET("/reports/download/:token", h.Reports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens), middleware.WithResponseMeta())

	if h.Auth != nil {
		secured.GET("/auth/me", h.Auth.Me)
		secured.POST("/auth/tokens", admins, audit("auth.issue_token"), h.Auth.IssueToken)
	}

	if h.Tests != nil {
		tests := secured.Group("/tests")
		tests.GET("", readers, h.Tests.List)
		tests.GET("/:id", readers, h.Tests.Get)
		tests.POST("", graders, audit("tests.create"), h.Tests.Create)
		tests.PATCH("/:id", graders, audit("tests.update"), h.Tests.Update)
		tests.DELETE("/:id", admins, audit("tests.delete"), h.Tests.Delete)
		tests.POST("/:id/tasks", graders, audit("tasks.create"), h.Tests.AddTask)
		tests.POST("/:id/groups", graders, audit("assignments.create"), h.Tests.AssignGroups)
		tests.DELETE("/:id/groups", graders, audit("assignments.delete"), h.Tests.UnassignGroups)
		tests.PUT("/:id/groups/:groupId/writing-date", graders, audit("assignments.writing_date"), h.Tests.SetWritingDate)
		tests.POST("/:id/reconcile", admins, audit("results.reconcile"), h.Tests.Reconcile)

		tasks := secured.Group("/tasks")
		tasks.PATCH("/:taskId", graders, audit("tasks.update"), h.Tests.UpdateTask)
		tasks.DELETE("/:taskId", graders, audit("tasks.delete"), h.Tests.RemoveTask)
	}

	if h.Results != nil {
		secured.GET("/tests/:id/groups/:groupId/results", readers, h.Results.Sheet)
		secured.PUT("/tests/:id/groups/:groupId/results", graders, audit("results.submit_group"), h.Results.SubmitGroup)
		secured.PUT("/tests/:id/students/:studentId/results", graders, audit("results.submit_student"), h.Results.SubmitStudent)
	}

	if h.Analytics != nil {
		analytics := secured.Group("/analytics", readers)
		analytics.GET("/tests/:id/summary", h.Analytics.TestSummary)
		analytics.GET("/tests/:id/tasks", h.Analytics.TaskCounts)
		analytics.GET("/tests/:id/students/:studentId", h.Analytics.StudentSummary)
		analytics.GET("/groups/:groupId/averages", h.Analytics.GroupAverages)
		analytics.GET("/groups/:groupId/series", h.Analytics.GroupSeries)
		analytics.GET("/students/:studentId/series", h.Analytics.StudentSeries)
		analytics.GET("/students/:studentId/report-card", h.Analytics.ReportCard)
	}

	if h.Roster != nil {
		secured.GET("/groups", readers, h.Roster.ListGroups)
		secured.GET("/groups/:groupId", readers, h.Roster.GetGroup)
		secured.GET("/groups/:groupId/students", readers, h.Roster.ListStudents)
		secured.POST("/groups", admins, audit("groups.create"), h.Roster.CreateGroup)
		secured.DELETE("/groups/:groupId", admins, audit("groups.delete"), h.Roster.DeleteGroup)
		secured.POST("/students", admins, audit("students.create"), h.Roster.CreateStudent)
		secured.DELETE("/students/:studentId", admins, audit("students.delete"), h.Roster.DeleteStudent)
		secured.GET("/subjects", readers, h.Roster.ListSubjects)
		secured.POST("/subjects", admins, audit("subjects.create"), h.Roster.CreateSubject)
		secured.DELETE("/subjects/:subjectId", admins, audit("subjects.delete"), h.Roster.DeleteSubject)
	}

	if h.Cards != nil {
		secured.GET("/students/:studentId/cards", readers, h.Cards.List)
		secured.POST("/students/:studentId/cards", graders, audit("cards.create"), h.Cards.Create)
		secured.GET("/cards/:cardId", readers, h.Cards.Get)
		secured.PATCH("/cards/:cardId", graders, audit("cards.update"), h.Cards.Update)
		secured.DELETE("/cards/:cardId", admins, audit("cards.delete"), h.Cards.Delete)
		secured.GET("/soft-skills", readers, h.Cards.ListSoftSkills)
		secured.POST("/soft-skills", admins, audit("soft_skills.create"), h.Cards.CreateSoftSkill)
	}

	if h.Reports != nil {
		secured.POST("/reports", readers, audit("reports.create"), h.Reports.Generate)
		secured.GET("/reports/:id", readers, h.Reports.Status)
	}

	if h.Metrics != nil {
		secured.GET("/system/metrics", admins, h.Metrics.Snapshot)
	}
}
