package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

type lessonRepository interface {
	ListByTopic(ctx context.Context, topicID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type topicFinder interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

// CreateLessonRequest captures fields for creating lessons.
type CreateLessonRequest struct {
	TopicID          string   `json:"topic_id" validate:"required"`
	Name             string   `json:"name" validate:"required"`
	Description      *string  `json:"description"`
	Content          *string  `json:"content"`
	OrderIndex       int      `json:"order_index" validate:"min=0"`
	DurationMinutes  int      `json:"duration_minutes" validate:"min=0"`
	LearningOutcomes []string `json:"learning_outcomes"`
	MaterialsNeeded  []string `json:"materials_needed"`
	IsActive         *bool    `json:"is_active"`
}

// UpdateLessonRequest is a partial patch; nil fields keep their current value.
type UpdateLessonRequest struct {
	TopicID          *string   `json:"topic_id"`
	Name             *string   `json:"name"`
	Description      *string   `json:"description"`
	Content          *string   `json:"content"`
	OrderIndex       *int      `json:"order_index"`
	DurationMinutes  *int      `json:"duration_minutes"`
	LearningOutcomes *[]string `json:"learning_outcomes"`
	MaterialsNeeded  *[]string `json:"materials_needed"`
	IsActive         *bool     `json:"is_active"`
}

// IsEmpty reports whether the patch changes nothing.
func (r UpdateLessonRequest) IsEmpty() bool {
	return r.TopicID == nil && r.Name == nil && r.Description == nil && r.Content == nil && r.OrderIndex == nil &&
		r.DurationMinutes == nil && r.LearningOutcomes == nil && r.MaterialsNeeded == nil && r.IsActive == nil
}

// LessonService manages lessons within topics.
type LessonService struct {
	repo      lessonRepository
	topics    topicFinder
	validator *validator.Validate
	logger    *zap.Logger
	hooks     catalogHooks
}

// NewLessonService constructs a LessonService.
func NewLessonService(repo lessonRepository, topics topicFinder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:      repo,
		topics:    topics,
		validator: validate,
		logger:    logger,
		hooks:     catalogHooks{cache: cache, metrics: metrics, logger: logger},
	}
}

// ListByTopic returns the topic's lessons by order_index.
func (s *LessonService) ListByTopic(ctx context.Context, topicID string) ([]models.Lesson, error) {
	if _, err := s.topics.FindByID(ctx, topicID); err != nil {
		return nil, lookupError(err, "topic not found", "failed to load topic")
	}
	lessons, err := s.repo.ListByTopic(ctx, topicID)
	if err != nil {
		s.logger.Error("list lessons", zap.String("topic_id", topicID), zap.Error(err))
		return nil, appErrors.Backend(err, "failed to list lessons")
	}
	for i := range lessons {
		lessons[i] = normalizeLesson(lessons[i])
	}
	return lessons, nil
}

// Create persists a lesson under an existing topic.
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest) (*models.Lesson, error) {
	req.TopicID = strings.TrimSpace(req.TopicID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}
	if _, err := s.topics.FindByID(ctx, req.TopicID); err != nil {
		return nil, referenceError(err, "topic does not exist", "failed to load topic")
	}

	lesson := &models.Lesson{
		TopicID:          req.TopicID,
		Name:             req.Name,
		Description:      optionalText(req.Description),
		Content:          req.Content,
		OrderIndex:       req.OrderIndex,
		DurationMinutes:  req.DurationMinutes,
		LearningOutcomes: textArray(req.LearningOutcomes),
		MaterialsNeeded:  textArray(req.MaterialsNeeded),
		IsActive:         boolOr(req.IsActive, true),
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Backend(err, "failed to create lesson")
	}
	s.hooks.mutated(ctx, "lesson", "create", lesson.ID)
	return lesson, nil
}

// Update merges the patch onto the stored lesson and re-validates the result.
func (s *LessonService) Update(ctx context.Context, id string, req UpdateLessonRequest) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lesson not found", "failed to load lesson")
	}
	if req.IsEmpty() {
		normalized := normalizeLesson(*lesson)
		return &normalized, nil
	}

	currentTopic := lesson.TopicID
	if req.TopicID != nil {
		lesson.TopicID = strings.TrimSpace(*req.TopicID)
	}
	if req.Name != nil {
		lesson.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		lesson.Description = optionalText(req.Description)
	}
	if req.Content != nil {
		lesson.Content = req.Content
	}
	if req.OrderIndex != nil {
		lesson.OrderIndex = *req.OrderIndex
	}
	if req.DurationMinutes != nil {
		lesson.DurationMinutes = *req.DurationMinutes
	}
	if req.LearningOutcomes != nil {
		lesson.LearningOutcomes = textArray(*req.LearningOutcomes)
	}
	if req.MaterialsNeeded != nil {
		lesson.MaterialsNeeded = textArray(*req.MaterialsNeeded)
	}
	if req.IsActive != nil {
		lesson.IsActive = *req.IsActive
	}

	merged := CreateLessonRequest{TopicID: lesson.TopicID, Name: lesson.Name, OrderIndex: lesson.OrderIndex, DurationMinutes: lesson.DurationMinutes}
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}
	if lesson.TopicID != currentTopic {
		if _, err := s.topics.FindByID(ctx, lesson.TopicID); err != nil {
			return nil, referenceError(err, "topic does not exist", "failed to load topic")
		}
	}

	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, lookupError(err, "lesson not found", "failed to update lesson")
	}
	s.hooks.mutated(ctx, "lesson", "update", id)
	normalized := normalizeLesson(*lesson)
	return &normalized, nil
}

// Delete removes a lesson.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "lesson not found", "failed to delete lesson")
	}
	s.hooks.mutated(ctx, "lesson", "delete", id)
	return nil
}
