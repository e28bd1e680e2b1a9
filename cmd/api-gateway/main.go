package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-tests-api/api/swagger"
	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-tests-api/internal/middleware"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	"github.com/noah-isme/sma-tests-api/internal/service"
	"github.com/noah-isme/sma-tests-api/migrations"
	"github.com/noah-isme/sma-tests-api/pkg/cache"
	"github.com/noah-isme/sma-tests-api/pkg/config"
	"github.com/noah-isme/sma-tests-api/pkg/database"
	"github.com/noah-isme/sma-tests-api/pkg/jobs"
	"github.com/noah-isme/sma-tests-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-tests-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-tests-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-tests-api/pkg/storage"
)

// @title SMA Tests API
// @version 1.0.0
// @description Test authoring, result grading and progress analytics
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, migrations.FS, cfg.Database.MigrationsDir, "up"); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, "tests", logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled)

	validate := validator.New()
	solutionSync := repository.NewSolutionSync(logr)
	testRepo := repository.NewTestRepository(db, solutionSync)
	taskRepo := repository.NewTaskRepository(db, solutionSync).WithStrictLevels(cfg.Grading.StrictLevelConsistency)
	solutionRepo := repository.NewSolutionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db, solutionSync)
	subjectRepo := repository.NewSubjectRepository(db)

	policy := grading.Policy{}
	if cfg.Grading.StrictLevelConsistency {
		policy = grading.StrictPolicy
	}

	testSvc := service.NewTestService(testRepo, taskRepo, subjectRepo, groupRepo, cacheSvc, metricsSvc, validate, logr)
	resultSvc := service.NewResultService(solutionRepo, testRepo, taskRepo, studentRepo, groupRepo, cacheSvc, metricsSvc, policy, logr)
	cardRepo := repository.NewPersonalCardRepository(db)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, testRepo, taskRepo, studentRepo, groupRepo, cacheSvc, metricsSvc, logr).
		WithPersonalCards(cardRepo)
	cardSvc := service.NewPersonalCardService(cardRepo, studentRepo, validate, logr)
	rosterSvc := service.NewRosterService(groupRepo, studentRepo, subjectRepo, cacheSvc, validate, logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	handlers := handler.Handlers{
		Tests:     handler.NewTestHandler(testSvc),
		Results:   handler.NewResultHandler(resultSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Roster:    handler.NewRosterHandler(rosterSvc),
		Cards:     handler.NewPersonalCardHandler(cardSvc),
		Auth:      handler.NewAuthHandler(authSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc),
	}

	if cfg.Reports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare report storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(analyticsSvc, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr)
		reportRepo := repository.NewReportRepository(db)

		worker := service.NewReportWorker(reportRepo, exporter, logr)
		mux := jobs.NewMux()
		worker.Register(mux)
		queue := jobs.NewQueue("reports", mux.Dispatch, jobs.QueueConfig{
			Workers:     cfg.Reports.WorkerConcurrency,
			MaxRetries:  cfg.Reports.WorkerRetries,
			RetryDelay:  5 * time.Second,
			Logger:      logr,
			OnExhausted: worker.Exhausted,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, service.ReportTargets{
			Students: studentRepo,
			Groups:   groupRepo,
			Tests:    testRepo,
		}, queue, exporter, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, authSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
