package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-curriculum-api/api/swagger"
	"github.com/noah-isme/sma-curriculum-api/internal/handler"
	"github.com/noah-isme/sma-curriculum-api/internal/repository"
	"github.com/noah-isme/sma-curriculum-api/internal/router"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	"github.com/noah-isme/sma-curriculum-api/pkg/cache"
	"github.com/noah-isme/sma-curriculum-api/pkg/config"
	"github.com/noah-isme/sma-curriculum-api/pkg/database"
	"github.com/noah-isme/sma-curriculum-api/pkg/jobs"
	"github.com/noah-isme/sma-curriculum-api/pkg/logger"
	"github.com/noah-isme/sma-curriculum-api/pkg/storage"
	"github.com/noah-isme/sma-curriculum-api/pkg/tracing"
)

// @title Curriculum Catalog API
// @version 1.0.0
// @description Subjects, courses, topics, lessons and course materials for the school curriculum.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, logr)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("flush traces", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return err
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	cacheEnabled := cfg.Catalog.CacheEnabled
	if cacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Catalog.CacheTTL, logr, cacheEnabled)
	validate := validator.New()

	fileStore, err := storage.NewLocalStorage(cfg.Materials.StorageDir, cfg.Materials.MaxFileSizeBytes)
	if err != nil {
		return fmt.Errorf("prepare material storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)

	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewCourseTeacherRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)

	var materialSvc *service.MaterialService
	cleanupQueue := jobs.NewQueue("material-cleanup", func(ctx context.Context, job jobs.Job) error {
		return materialSvc.CleanupHandler()(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Materials.CleanupWorkers,
		MaxRetries: cfg.Materials.CleanupRetries,
		Logger:     logr,
	})

	authSvc := service.NewAuthService(logr, service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, metrics, validate, logr)
	courseSvc := service.NewCourseService(service.CourseServiceParams{
		Courses:       courseRepo,
		Subjects:      subjectRepo,
		AcademicYears: yearRepo,
		Teachers:      teacherRepo,
		Staff:         staffRepo,
		Topics:        topicRepo,
		Lessons:       lessonRepo,
		Cache:         cacheSvc,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr,
	})
	topicSvc := service.NewTopicService(topicRepo, courseRepo, lessonRepo, cacheSvc, metrics, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, topicRepo, cacheSvc, metrics, validate, logr)
	materialSvc = service.NewMaterialService(service.MaterialServiceParams{
		Materials: materialRepo,
		Courses:   courseRepo,
		Topics:    topicRepo,
		Lessons:   lessonRepo,
		Storage:   fileStore,
		Signer:    signer,
		Cleanup:   cleanupQueue,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config:    service.MaterialServiceConfig{APIPrefix: cfg.APIPrefix},
	})
	yearSvc := service.NewAcademicYearService(yearRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(courseSvc, nil, nil, cfg.Exports.Enabled, logr)

	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	engine := router.Setup(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Auth:           authSvc,
		Observer:       metrics,
		Tracing:        cfg.Tracing.Enabled,
	}, router.Handlers{
		Subject:       handler.NewSubjectHandler(subjectSvc),
		Course:        handler.NewCourseHandler(courseSvc, exportSvc),
		CourseTeacher: handler.NewCourseTeacherHandler(courseSvc),
		Topic:         handler.NewTopicHandler(topicSvc),
		Lesson:        handler.NewLessonHandler(lessonSvc),
		Material:      handler.NewMaterialHandler(materialSvc),
		AcademicYear:  handler.NewAcademicYearHandler(yearSvc),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("catalog_cache", cacheEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
