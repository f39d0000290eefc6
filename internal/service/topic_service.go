package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

type topicRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Topic, error)
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
	Delete(ctx context.Context, id string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateTopicRequest captures fields for creating topics.
type CreateTopicRequest struct {
	CourseID      string  `json:"course_id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Description   *string `json:"description"`
	OrderIndex    int     `json:"order_index" validate:"min=0"`
	DurationHours int     `json:"duration_hours" validate:"min=0"`
	IsActive      *bool   `json:"is_active"`
}

// UpdateTopicRequest is a partial patch; nil fields keep their current value.
type UpdateTopicRequest struct {
	CourseID      *string `json:"course_id"`
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	OrderIndex    *int    `json:"order_index"`
	DurationHours *int    `json:"duration_hours"`
	IsActive      *bool   `json:"is_active"`
}

// IsEmpty reports whether the patch changes nothing.
func (r UpdateTopicRequest) IsEmpty() bool {
	return r.CourseID == nil && r.Name == nil && r.Description == nil && r.OrderIndex == nil && r.DurationHours == nil && r.IsActive == nil
}

// TopicService manages the ordered topics of a course.
type TopicService struct {
	repo      topicRepository
	courses   courseFinder
	lessons   lessonBatchLister
	validator *validator.Validate
	logger    *zap.Logger
	hooks     catalogHooks
}

// NewTopicService constructs a TopicService.
func NewTopicService(repo topicRepository, courses courseFinder, lessons lessonBatchLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{
		repo:      repo,
		courses:   courses,
		lessons:   lessons,
		validator: validate,
		logger:    logger,
		hooks:     catalogHooks{cache: cache, metrics: metrics, logger: logger},
	}
}

// ListByCourse returns the course's topics by order_index, each with its lessons.
func (s *TopicService) ListByCourse(ctx context.Context, courseID string) ([]models.TopicWithLessons, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	topics, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("list topics", zap.String("course_id", courseID), zap.Error(err))
		return nil, appErrors.Backend(err, "failed to list topics")
	}
	return attachLessons(ctx, s.lessons, topics)
}

// Create persists a topic under an existing course.
func (s *TopicService) Create(ctx context.Context, req CreateTopicRequest) (*models.Topic, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid topic payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, referenceError(err, "course does not exist", "failed to load course")
	}

	topic := &models.Topic{
		CourseID:      req.CourseID,
		Name:          req.Name,
		Description:   optionalText(req.Description),
		OrderIndex:    req.OrderIndex,
		DurationHours: req.DurationHours,
		IsActive:      boolOr(req.IsActive, true),
	}
	if err := s.repo.Create(ctx, topic); err != nil {
		return nil, appErrors.Backend(err, "failed to create topic")
	}
	s.hooks.mutated(ctx, "topic", "create", topic.ID)
	return topic, nil
}

// Update merges the patch onto the stored topic and re-validates the result.
func (s *TopicService) Update(ctx context.Context, id string, req UpdateTopicRequest) (*models.Topic, error) {
	topic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "topic not found", "failed to load topic")
	}
	if req.IsEmpty() {
		return topic, nil
	}

	currentCourse := topic.CourseID
	if req.CourseID != nil {
		topic.CourseID = strings.TrimSpace(*req.CourseID)
	}
	if req.Name != nil {
		topic.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		topic.Description = optionalText(req.Description)
	}
	if req.OrderIndex != nil {
		topic.OrderIndex = *req.OrderIndex
	}
	if req.DurationHours != nil {
		topic.DurationHours = *req.DurationHours
	}
	if req.IsActive != nil {
		topic.IsActive = *req.IsActive
	}

	merged := CreateTopicRequest{CourseID: topic.CourseID, Name: topic.Name, OrderIndex: topic.OrderIndex, DurationHours: topic.DurationHours}
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid topic payload")
	}
	if topic.CourseID != currentCourse {
		if _, err := s.courses.FindByID(ctx, topic.CourseID); err != nil {
			return nil, referenceError(err, "course does not exist", "failed to load course")
		}
	}

	if err := s.repo.Update(ctx, topic); err != nil {
		return nil, lookupError(err, "topic not found", "failed to update topic")
	}
	s.hooks.mutated(ctx, "topic", "update", id)
	return topic, nil
}

// Delete removes a topic; its lessons are not deleted.
func (s *TopicService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "topic not found", "failed to delete topic")
	}
	s.hooks.mutated(ctx, "topic", "delete", id)
	return nil
}
