package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	"github.com/noah-isme/sma-curriculum-api/pkg/response"
)

type courseTeacherService interface {
	UpdateTeacherRole(ctx context.Context, id string, req service.UpdateTeacherRoleRequest) (*models.CourseTeacherDetail, error)
	RemoveTeacher(ctx context.Context, id string) error
}

// CourseTeacherHandler manages existing teacher assignments.
type CourseTeacherHandler struct {
	service courseTeacherService
}

// NewCourseTeacherHandler constructs the handler.
func NewCourseTeacherHandler(svc courseTeacherService) *CourseTeacherHandler {
	return &CourseTeacherHandler{service: svc}
}

// UpdateRole godoc
// @Summary Change a teacher assignment role
// @Tags Course Teachers
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.UpdateTeacherRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Router /course-teachers/{id} [patch]
func (h *CourseTeacherHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateTeacherRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.service.UpdateTeacherRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment)
}

// Remove godoc
// @Summary Remove a teacher assignment
// @Tags Course Teachers
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /course-teachers/{id} [delete]
func (h *CourseTeacherHandler) Remove(c *gin.Context) {
	if err := h.service.RemoveTeacher(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
