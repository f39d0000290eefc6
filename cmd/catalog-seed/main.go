package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/repository"
	"github.com/noah-isme/sma-curriculum-api/internal/seed"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	"github.com/noah-isme/sma-curriculum-api/pkg/cache"
	"github.com/noah-isme/sma-curriculum-api/pkg/config"
	"github.com/noah-isme/sma-curriculum-api/pkg/database"
	"github.com/noah-isme/sma-curriculum-api/pkg/logger"
)

func main() {
	dir := flag.String("dir", "./curriculum", "directory of curriculum YAML files")
	dryRun := flag.Bool("dry-run", false, "parse and count records without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	catalog, err := seed.LoadDir(*dir)
	if err != nil {
		logr.Fatal("load curriculum", zap.String("dir", *dir), zap.Error(err))
	}
	subjects, courses, topics, lessons := catalog.Counts()
	logr.Info("curriculum parsed",
		zap.Int("subjects", subjects),
		zap.Int("courses", courses),
		zap.Int("topics", topics),
		zap.Int("lessons", lessons),
	)
	if *dryRun {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, logr, catalog)
	if err != nil {
		logr.Fatal("curriculum import failed", zap.Error(err))
	}
	fmt.Printf("subjects: %d created, %d reused\ncourses: %d created, %d skipped\ntopics: %d created\nlessons: %d created\n",
		result.SubjectsCreated, result.SubjectsReused, result.CoursesCreated, result.CoursesSkipped, result.TopicsCreated, result.LessonsCreated)
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger, catalog *seed.Catalog) (*seed.Result, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return nil, err
		}
	}

	// Writes still invalidate the API's cached listings when the cache is on.
	var redisClient *redis.Client
	cacheEnabled := cfg.Catalog.CacheEnabled
	if cacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, cached listings may be stale until they expire", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close()
		}
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), nil, cfg.Catalog.CacheTTL, logr, cacheEnabled)
	validate := validator.New()

	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	lessonRepo := repository.NewLessonRepository(db)

	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, nil, validate, logr)
	courseSvc := service.NewCourseService(service.CourseServiceParams{
		Courses:       courseRepo,
		Subjects:      subjectRepo,
		AcademicYears: repository.NewAcademicYearRepository(db),
		Teachers:      repository.NewCourseTeacherRepository(db),
		Staff:         repository.NewStaffRepository(db),
		Topics:        topicRepo,
		Lessons:       lessonRepo,
		Cache:         cacheSvc,
		Validator:     validate,
		Logger:        logr,
	})
	topicSvc := service.NewTopicService(topicRepo, courseRepo, lessonRepo, cacheSvc, nil, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, topicRepo, cacheSvc, nil, validate, logr)

	return seed.NewImporter(subjectSvc, courseSvc, topicSvc, lessonSvc, logr).Import(ctx, catalog)
}
