package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
	"github.com/noah-isme/sma-curriculum-api/pkg/jobs"
	"github.com/noah-isme/sma-curriculum-api/pkg/storage"
)

// MaterialCleanupJob is the job kind that removes a stored material file.
const MaterialCleanupJob = "material_file_cleanup"

type materialRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.MaterialDetail, error)
	FindByID(ctx context.Context, id string) (*models.MaterialDetail, error)
	Create(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id string) error
}

type lessonFinder interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type materialStorage interface {
	Save(key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
}

type downloadSigner interface {
	Generate(materialID, key string) (string, time.Time, error)
	Parse(token string) (*storage.DownloadClaims, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateMaterialRequest registers a material hosted elsewhere.
type CreateMaterialRequest struct {
	CourseID    string  `json:"course_id" validate:"required"`
	LessonID    *string `json:"lesson_id"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	FileURL     string  `json:"file_url" validate:"required"`
	FileType    string  `json:"file_type" validate:"required"`
	FileSize    int64   `json:"file_size" validate:"min=0"`
	UploadedBy  string  `json:"uploaded_by"`
	IsPublic    bool    `json:"is_public"`
}

// UploadMaterialInput describes a material whose file is stored by this service.
type UploadMaterialInput struct {
	CourseID    string `validate:"required"`
	LessonID    *string
	Name        string `validate:"required"`
	Description *string
	IsPublic    bool
	FileName    string `validate:"required"`
	ContentType string
	Content     io.Reader `validate:"required"`
}

// MaterialDownloadFile is an opened stored file ready to be streamed.
type MaterialDownloadFile struct {
	Material *models.MaterialDetail
	Content  io.ReadCloser
	Size     int64
}

// MaterialServiceConfig tunes material behaviour.
type MaterialServiceConfig struct {
	APIPrefix string
}

// MaterialServiceParams groups constructor dependencies.
type MaterialServiceParams struct {
	Materials materialRepository
	Courses   courseFinder
	Topics    topicFinder
	Lessons   lessonFinder
	Storage   materialStorage
	Signer    downloadSigner
	Cleanup   jobEnqueuer
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    MaterialServiceConfig
}

// MaterialService manages course materials and their stored files.
type MaterialService struct {
	repo      materialRepository
	courses   courseFinder
	topics    topicFinder
	lessons   lessonFinder
	storage   materialStorage
	signer    downloadSigner
	cleanup   jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	hooks     catalogHooks
	cfg       MaterialServiceConfig
}

// NewMaterialService constructs a MaterialService.
func NewMaterialService(params MaterialServiceParams) *MaterialService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	return &MaterialService{
		repo:      params.Materials,
		courses:   params.Courses,
		topics:    params.Topics,
		lessons:   params.Lessons,
		storage:   params.Storage,
		signer:    params.Signer,
		cleanup:   params.Cleanup,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		hooks:     catalogHooks{cache: params.Cache, metrics: params.Metrics, logger: logger},
		cfg:       cfg,
	}
}

// ListByCourse returns the course's materials newest first with uploader names.
func (s *MaterialService) ListByCourse(ctx context.Context, courseID string) ([]models.MaterialDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	materials, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("list materials", zap.String("course_id", courseID), zap.Error(err))
		return nil, appErrors.Backend(err, "failed to list materials")
	}
	return materials, nil
}

// Create registers a material. uploaderID is used when the request names no uploader.
func (s *MaterialService) Create(ctx context.Context, req CreateMaterialRequest, uploaderID string) (*models.MaterialDetail, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.Name = strings.TrimSpace(req.Name)
	req.LessonID = optionalText(req.LessonID)
	if strings.TrimSpace(req.UploadedBy) == "" {
		req.UploadedBy = uploaderID
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid material payload")
	}
	if req.UploadedBy == "" {
		return nil, appErrors.Validation("uploaded_by is required")
	}
	if err := s.ensureAttachable(ctx, req.CourseID, req.LessonID); err != nil {
		return nil, err
	}

	material := &models.Material{
		CourseID:    req.CourseID,
		LessonID:    req.LessonID,
		Name:        req.Name,
		Description: optionalText(req.Description),
		FileURL:     req.FileURL,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		UploadedBy:  req.UploadedBy,
		IsPublic:    req.IsPublic,
	}
	return s.persist(ctx, material)
}

// Upload stores the file content and registers a material pointing at it.
func (s *MaterialService) Upload(ctx context.Context, in UploadMaterialInput, uploaderID string) (*models.MaterialDetail, error) {
	in.CourseID = strings.TrimSpace(in.CourseID)
	in.Name = strings.TrimSpace(in.Name)
	in.LessonID = optionalText(in.LessonID)
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err, "invalid material upload")
	}
	if uploaderID == "" {
		return nil, appErrors.Validation("uploaded_by is required")
	}
	if err := s.ensureAttachable(ctx, in.CourseID, in.LessonID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := path.Join(in.CourseID, id+strings.ToLower(path.Ext(path.Base(in.FileName))))
	size, err := s.storage.Save(key, in.Content)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Validation("material file exceeds size limit")
		}
		return nil, appErrors.Backend(err, "failed to store material file")
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	material := &models.Material{
		ID:          id,
		CourseID:    in.CourseID,
		LessonID:    in.LessonID,
		Name:        in.Name,
		Description: optionalText(in.Description),
		FileURL:     s.cfg.APIPrefix + "/materials/" + id + "/download-link",
		FileType:    contentType,
		FileSize:    size,
		StorageKey:  &key,
		UploadedBy:  uploaderID,
		IsPublic:    in.IsPublic,
	}
	detail, err := s.persist(ctx, material)
	if err != nil {
		if delErr := s.storage.Delete(key); delErr != nil {
			s.logger.Warn("remove orphaned material file", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return detail, nil
}

// DownloadLink signs a short-lived link for an uploaded material file.
func (s *MaterialService) DownloadLink(ctx context.Context, id string) (*models.MaterialDownload, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "material not found", "failed to load material")
	}
	if material.StorageKey == nil {
		return nil, appErrors.NotFound("material has no stored file")
	}
	token, expiresAt, err := s.signer.Generate(material.ID, *material.StorageKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.MaterialDownload{URL: s.cfg.APIPrefix + "/materials/download?token=" + token, ExpiresAt: expiresAt}, nil
}

// Download resolves a signed token to the stored file.
func (s *MaterialService) Download(ctx context.Context, token string) (*MaterialDownloadFile, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	material, err := s.repo.FindByID(ctx, claims.MaterialID)
	if err != nil {
		return nil, lookupError(err, "material not found", "failed to load material")
	}
	if material.StorageKey == nil || *material.StorageKey != claims.Key {
		return nil, appErrors.NotFound("material file not found")
	}
	file, err := s.storage.Open(claims.Key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.NotFound("material file not found")
		}
		return nil, appErrors.Backend(err, "failed to open material file")
	}
	size := material.FileSize
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}
	return &MaterialDownloadFile{Material: material, Content: file, Size: size}, nil
}

// Delete removes the material row and schedules removal of its stored file.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "material not found", "failed to load material")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "material not found", "failed to delete material")
	}
	s.hooks.mutated(ctx, "material", "delete", id)

	if material.StorageKey != nil && s.cleanup != nil {
		job := jobs.Job{ID: uuid.NewString(), Kind: MaterialCleanupJob, Key: *material.StorageKey}
		if err := s.cleanup.Enqueue(job); err != nil {
			s.logger.Warn("enqueue material cleanup", zap.String("material_id", id), zap.String("key", job.Key), zap.Error(err))
		}
	}
	return nil
}

// CleanupHandler removes stored files for cleanup jobs.
func (s *MaterialService) CleanupHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		if job.Kind != MaterialCleanupJob {
			s.logger.Warn("unknown job kind", zap.String("kind", job.Kind))
			return nil
		}
		if err := s.storage.Delete(job.Key); err != nil {
			s.metrics.RecordCleanupJob("failed")
			return err
		}
		s.metrics.RecordCleanupJob("deleted")
		s.logger.Info("material file removed", zap.String("key", job.Key), zap.Int("attempt", job.Attempt))
		return nil
	}
}

func (s *MaterialService) persist(ctx context.Context, material *models.Material) (*models.MaterialDetail, error) {
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, appErrors.Backend(err, "failed to create material")
	}
	s.hooks.mutated(ctx, "material", "create", material.ID)

	detail, err := s.repo.FindByID(ctx, material.ID)
	if err != nil {
		s.logger.Warn("reload material", zap.String("material_id", material.ID), zap.Error(err))
		return &models.MaterialDetail{Material: *material}, nil
	}
	return detail, nil
}

// ensureAttachable checks the course exists and, when given, that the lesson
// belongs to one of its topics.
func (s *MaterialService) ensureAttachable(ctx context.Context, courseID string, lessonID *string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return referenceError(err, "course does not exist", "failed to load course")
	}
	if lessonID == nil {
		return nil
	}
	lesson, err := s.lessons.FindByID(ctx, *lessonID)
	if err != nil {
		return referenceError(err, "lesson does not exist", "failed to load lesson")
	}
	topic, err := s.topics.FindByID(ctx, lesson.TopicID)
	if err != nil {
		return referenceError(err, "lesson does not belong to the course", "failed to load topic")
	}
	if topic.CourseID != courseID {
		return appErrors.Validation("lesson does not belong to the course")
	}
	return nil
}
