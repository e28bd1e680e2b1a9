package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	"github.com/noah-isme/sma-tests-api/internal/service"
	"github.com/noah-isme/sma-tests-api/migrations"
	"github.com/noah-isme/sma-tests-api/pkg/config"
	"github.com/noah-isme/sma-tests-api/pkg/database"
	"github.com/noah-isme/sma-tests-api/pkg/logger"
)

type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sqlx.DB
	tests    *service.TestService
	exporter *service.ExportService
}

func bootstrap() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	solutionSync := repository.NewSolutionSync(logr)
	testRepo := repository.NewTestRepository(db, solutionSync)
	taskRepo := repository.NewTaskRepository(db, solutionSync).WithStrictLevels(cfg.Grading.StrictLevelConsistency)
	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db, solutionSync)
	subjectRepo := repository.NewSubjectRepository(db)
	cacheSvc := service.NewCacheService(nil, nil, 0, logr, false)

	analytics := service.NewAnalyticsService(repository.NewAnalyticsRepository(db), testRepo, taskRepo, studentRepo, groupRepo, cacheSvc, nil, logr).
		WithPersonalCards(repository.NewPersonalCardRepository(db))
	return &environment{
		cfg:      cfg,
		logger:   logr,
		db:       db,
		tests:    service.NewTestService(testRepo, taskRepo, subjectRepo, groupRepo, cacheSvc, nil, nil, logr),
		exporter: service.NewExportService(analytics, nil, nil, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr),
	}, nil
}

func (e *environment) Close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func (e *environment) migrate(command string, args ...string) error {
	return database.Migrate(e.db.DB, migrations.FS, e.cfg.Database.MigrationsDir, command, args...)
}

func (e *environment) allTestIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		tests, pagination, err := e.tests.List(ctx, models.TestFilter{Page: page, PageSize: 100})
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			ids = append(ids, t.ID)
		}
		if len(tests) == 0 || len(ids) >= pagination.TotalCount {
			return ids, nil
		}
	}
}

func (e *environment) render(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) ([]byte, error) {
	doc, err := e.exporter.Document(ctx, reportType, params)
	if err != nil {
		return nil, err
	}
	return e.exporter.Render(doc, params.Format)
}

func authFromConfig() (*service.AuthService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return service.NewAuthService(nil, zap.NewNop(), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	}), nil
}

func issueToken(auth *service.AuthService, userID, name, role string, ttl time.Duration) (*models.TokenResponse, error) {
	return auth.IssueToken(models.IssueTokenRequest{
		UserID:   userID,
		FullName: name,
		Role:     models.UserRole(role),
		TTL:      ttl,
	})
}

// exportParams reads report flags, filling the academic period the same way
// queued report jobs do.
func exportParams(c *cli.Context, now time.Time) (models.ReportJobParams, models.ReportType, error) {
	reportType := models.ReportType(c.String("type"))
	params := models.ReportJobParams{
		Format:       models.ReportFormat(c.String("format")),
		StudentID:    c.String("student"),
		GroupID:      c.String("group"),
		TestID:       c.String("test"),
		SubjectID:    c.String("subject"),
		AcademicYear: c.Int("year"),
		FromMonth:    c.Int("from"),
		ToMonth:      c.Int("to"),
	}
	if params.AcademicYear == 0 {
		params.AcademicYear = grading.AcademicYearOf(now)
	}
	if params.Format != models.ReportFormatCSV && params.Format != models.ReportFormatPDF {
		return params, reportType, fmt.Errorf("unsupported format %q", params.Format)
	}
	switch reportType {
	case models.ReportTypeReportCard:
		if params.StudentID == "" {
			return params, reportType, fmt.Errorf("--student required for report_card")
		}
	case models.ReportTypeTestResults:
		if params.TestID == "" {
			return params, reportType, fmt.Errorf("--test required for test_results")
		}
	case models.ReportTypeGroupProgress:
		if params.GroupID == "" || params.SubjectID == "" {
			return params, reportType, fmt.Errorf("--group and --subject required for group_progress")
		}
	default:
		return params, reportType, fmt.Errorf("unsupported report type %q", reportType)
	}
	if _, err := grading.MonthRange(params.FromMonth, params.ToMonth); err != nil {
		return params, reportType, err
	}
	return params, reportType, nil
}
