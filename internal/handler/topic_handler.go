package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	"github.com/noah-isme/sma-curriculum-api/pkg/response"
)

type topicService interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.TopicWithLessons, error)
	Create(ctx context.Context, req service.CreateTopicRequest) (*models.Topic, error)
	Update(ctx context.Context, id string, req service.UpdateTopicRequest) (*models.Topic, error)
	Delete(ctx context.Context, id string) error
}

// TopicHandler handles topic endpoints.
type TopicHandler struct {
	service topicService
}

// NewTopicHandler constructs a topic handler.
func NewTopicHandler(svc topicService) *TopicHandler {
	return &TopicHandler{service: svc}
}

// ListByCourse godoc
// @Summary List a course's topics
// @Description Topics ordered by order_index, each with its lessons.
// @Tags Topics
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/topics [get]
func (h *TopicHandler) ListByCourse(c *gin.Context) {
	topics, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, map[string]interface{}{"count": len(topics)})
}

// Create godoc
// @Summary Create topic
// @Tags Topics
// @Accept json
// @Produce json
// @Param payload body service.CreateTopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /topics [post]
func (h *TopicHandler) Create(c *gin.Context) {
	var req service.CreateTopicRequest
	if !bindJSON(c, &req) {
		return
	}
	topic, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Update godoc
// @Summary Update topic
// @Tags Topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body service.UpdateTopicRequest true "Topic patch"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [patch]
func (h *TopicHandler) Update(c *gin.Context) {
	var req service.UpdateTopicRequest
	if !bindJSON(c, &req) {
		return
	}
	topic, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topic)
}

// Delete godoc
// @Summary Delete topic
// @Tags Topics
// @Param id path string true "Topic ID"
// @Success 204
// @Router /topics/{id} [delete]
func (h *TopicHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
