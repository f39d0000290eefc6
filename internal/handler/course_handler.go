package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
	"github.com/noah-isme/sma-curriculum-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]models.CourseView, bool, error)
	Search(ctx context.Context, filter models.CourseSearchFilter) ([]models.CourseView, bool, error)
	Get(ctx context.Context, id string) (*models.CourseDetail, error)
	Facets(ctx context.Context) (*models.CourseFacets, bool, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	AssignTeacher(ctx context.Context, courseID string, req service.AssignTeacherRequest) (*models.CourseTeacherDetail, error)
}

type outlineExporter interface {
	CourseOutline(ctx context.Context, courseID, format string) (*service.ExportedFile, error)
}

// CourseHandler handles course endpoints.
type CourseHandler struct {
	service courseService
	exports outlineExporter
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(svc courseService, exports outlineExporter) *CourseHandler {
	return &CourseHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List or search courses
// @Description Without parameters every course is returned ordered by grade level then name. Any parameter narrows the list; all given parameters must match.
// @Tags Courses
// @Produce json
// @Param q query string false "Case-insensitive substring of name, code or description"
// @Param grade_level query int false "Grade level"
// @Param department query string false "Department of the owning subject"
// @Param is_mandatory query bool false "Mandatory flag"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter, err := parseCourseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var (
		courses []models.CourseView
		hit     bool
	)
	if filter.IsZero() {
		courses, hit, err = h.service.List(c.Request.Context())
	} else {
		courses, hit, err = h.service.Search(c.Request.Context(), filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, listMeta(c, hit, len(courses)))
}

// Facets godoc
// @Summary Course filter facets
// @Description Distinct departments and grade levels present in the catalog.
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/facets [get]
func (h *CourseHandler) Facets(c *gin.Context) {
	facets, hit, err := h.service.Facets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facets, listMeta(c, hit, len(facets.Departments)))
}

// Get godoc
// @Summary Get course detail
// @Description Course with subject, academic year, teachers, ordered topics with lessons, and a summary.
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Description Partial update; omitted fields keep their stored value.
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course patch"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Delete godoc
// @Summary Delete course
// @Description Topics, teacher assignments and materials of the course are left in place.
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Assign a teacher to a course
// @Tags Course Teachers
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/teachers [post]
func (h *CourseHandler) AssignTeacher(c *gin.Context) {
	var req service.AssignTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.service.AssignTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Outline godoc
// @Summary Export course outline
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Router /courses/{id}/outline [get]
func (h *CourseHandler) Outline(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrDisabled)
		return
	}
	file, err := h.exports.CourseOutline(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func parseCourseFilter(c *gin.Context) (models.CourseSearchFilter, error) {
	filter := models.CourseSearchFilter{Query: c.Query("q")}
	if raw := strings.TrimSpace(c.Query("grade_level")); raw != "" {
		grade, err := strconv.Atoi(raw)
		if err != nil {
			return filter, appErrors.Validation("grade_level must be an integer")
		}
		filter.GradeLevel = &grade
	}
	if raw := strings.TrimSpace(c.Query("department")); raw != "" {
		filter.Department = &raw
	}
	if raw := strings.TrimSpace(c.Query("is_mandatory")); raw != "" {
		mandatory, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Validation("is_mandatory must be a boolean")
		}
		filter.IsMandatory = &mandatory
	}
	return filter, nil
}
