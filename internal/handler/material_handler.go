package handler

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
	"github.com/noah-isme/sma-curriculum-api/pkg/response"
)

type materialService interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.MaterialDetail, error)
	Create(ctx context.Context, req service.CreateMaterialRequest, uploaderID string) (*models.MaterialDetail, error)
	Upload(ctx context.Context, in service.UploadMaterialInput, uploaderID string) (*models.MaterialDetail, error)
	DownloadLink(ctx context.Context, id string) (*models.MaterialDownload, error)
	Download(ctx context.Context, token string) (*service.MaterialDownloadFile, error)
	Delete(ctx context.Context, id string) error
}

// MaterialHandler handles course material endpoints.
type MaterialHandler struct {
	service materialService
}

// NewMaterialHandler constructs a material handler.
func NewMaterialHandler(svc materialService) *MaterialHandler {
	return &MaterialHandler{service: svc}
}

// ListByCourse godoc
// @Summary List a course's materials
// @Description Newest first, with the uploader's display name.
// @Tags Materials
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/materials [get]
func (h *MaterialHandler) ListByCourse(c *gin.Context) {
	materials, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, map[string]interface{}{"count": len(materials)})
}

// Create godoc
// @Summary Register a material hosted elsewhere
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body service.CreateMaterialRequest true "Material payload"
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if !bindJSON(c, &req) {
		return
	}
	material, err := h.service.Create(c.Request.Context(), req, callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// Upload godoc
// @Summary Upload a material file
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param course_id formData string true "Course ID"
// @Param lesson_id formData string false "Lesson ID"
// @Param name formData string true "Display name"
// @Param description formData string false "Description"
// @Param is_public formData bool false "Sharing flag stored with the material; reads are not filtered by it"
// @Param file formData file true "Material file"
// @Success 201 {object} response.Envelope
// @Router /materials/upload [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	isPublic := false
	if raw := strings.TrimSpace(c.PostForm("is_public")); raw != "" {
		if isPublic, err = strconv.ParseBool(raw); err != nil {
			response.Error(c, appErrors.Validation("is_public must be a boolean"))
			return
		}
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	in := service.UploadMaterialInput{
		CourseID:    c.PostForm("course_id"),
		LessonID:    formText(c, "lesson_id"),
		Name:        c.PostForm("name"),
		Description: formText(c, "description"),
		IsPublic:    isPublic,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}
	material, err := h.service.Upload(c.Request.Context(), in, callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// DownloadLink godoc
// @Summary Get a signed download link
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/download-link [get]
func (h *MaterialHandler) DownloadLink(c *gin.Context) {
	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// Download godoc
// @Summary Download a material file
// @Description The signed token authorises the request; no bearer token is needed.
// @Tags Materials
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /materials/download [get]
func (h *MaterialHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}
	file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Content.Close()

	filename := file.Material.Name
	if file.Material.StorageKey != nil {
		filename += path.Ext(*file.Material.StorageKey)
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, file.Size, file.Material.FileType, file.Content, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

// Delete godoc
// @Summary Delete material
// @Description Removes the record; a stored file is removed in the background.
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func formText(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
