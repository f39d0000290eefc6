package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest captures fields for creating subjects.
type CreateSubjectRequest struct {
	Name        string  `json:"name" validate:"required"`
	Code        string  `json:"code" validate:"required,max=20"`
	Description *string `json:"description"`
	GradeLevel  int     `json:"grade_level" validate:"required,min=1,max=12"`
	Department  string  `json:"department" validate:"required"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateSubjectRequest is a partial patch; nil fields keep their current value.
type UpdateSubjectRequest struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	GradeLevel  *int    `json:"grade_level"`
	Department  *string `json:"department"`
	IsActive    *bool   `json:"is_active"`
}

// IsEmpty reports whether the patch changes nothing.
func (r UpdateSubjectRequest) IsEmpty() bool {
	return r.Name == nil && r.Code == nil && r.Description == nil && r.GradeLevel == nil && r.Department == nil && r.IsActive == nil
}

// SubjectService handles subject domain workflows.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
	hooks     catalogHooks
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		cache:     cache,
		hooks:     catalogHooks{cache: cache, metrics: metrics, logger: logger},
	}
}

// List returns every subject ordered by grade level then name.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, bool, error) {
	key := catalogCacheKey("subjects")
	var cached []models.Subject
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	subjects, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list subjects", zap.Error(err))
		return nil, false, appErrors.Backend(err, "failed to list subjects")
	}
	s.cache.Set(ctx, key, subjects, 0)
	return subjects, false, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "subject not found", "failed to load subject")
	}
	return subject, nil
}

// Create adds a new subject ensuring code uniqueness.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	if blankCode(req.Code) {
		return nil, appErrors.Validation("subject code must not be blank")
	}

	if err := s.ensureUniqueCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		Name:        req.Name,
		Code:        req.Code,
		Description: optionalText(req.Description),
		GradeLevel:  req.GradeLevel,
		Department:  req.Department,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Backend(err, "failed to create subject")
	}
	s.hooks.mutated(ctx, "subject", "create", subject.ID)
	return subject, nil
}

// Update merges the patch onto the stored subject and re-validates the result.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "subject not found", "failed to load subject")
	}
	if req.IsEmpty() {
		return subject, nil
	}

	currentCode := subject.Code
	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		subject.Code = *req.Code
	}
	if req.Description != nil {
		subject.Description = optionalText(req.Description)
	}
	if req.GradeLevel != nil {
		subject.GradeLevel = *req.GradeLevel
	}
	if req.Department != nil {
		subject.Department = strings.TrimSpace(*req.Department)
	}
	if req.IsActive != nil {
		subject.IsActive = *req.IsActive
	}

	merged := CreateSubjectRequest{Name: subject.Name, Code: subject.Code, GradeLevel: subject.GradeLevel, Department: subject.Department}
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	if blankCode(subject.Code) {
		return nil, appErrors.Validation("subject code must not be blank")
	}
	if !strings.EqualFold(currentCode, subject.Code) {
		if err := s.ensureUniqueCode(ctx, subject.Code, id); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, lookupError(err, "subject not found", "failed to update subject")
	}
	s.hooks.mutated(ctx, "subject", "update", id)
	return subject, nil
}

// Delete removes a subject. Courses referencing it are left untouched.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "subject not found", "failed to delete subject")
	}
	s.hooks.mutated(ctx, "subject", "delete", id)
	return nil
}

func (s *SubjectService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Backend(err, "failed to check subject code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return nil
}
