package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/handler"
	"github.com/noah-isme/sma-curriculum-api/internal/middleware"
	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/pkg/config"
	"github.com/noah-isme/sma-curriculum-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-curriculum-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-curriculum-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-curriculum-api/pkg/tracing"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups every HTTP handler mounted by Setup.
type Handlers struct {
	Subject       *handler.SubjectHandler
	Course        *handler.CourseHandler
	CourseTeacher *handler.CourseTeacherHandler
	Topic         *handler.TopicHandler
	Lesson        *handler.LessonHandler
	Material      *handler.MaterialHandler
	AcademicYear  *handler.AcademicYearHandler
	Metrics       *handler.MetricsHandler
}

// Options configures Setup.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Auth           TokenValidator
	Observer       middleware.RequestObserver
	Tracing        bool
}

// Setup builds the gin engine with global middleware and every catalog route.
func Setup(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Tracing {
		r.Use(tracing.Middleware(nil))
	}
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// Signed download tokens carry their own authorisation.
	api.GET("/materials/download", h.Material.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(opts.Auth), middleware.RequireRoles(middleware.Readers...))
	editors := middleware.RequireRoles(middleware.Editors...)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	subjects := authed.Group("/subjects")
	{
		subjects.GET("", h.Subject.List)
		subjects.GET("/:id", h.Subject.Get)
		subjects.POST("", editors, h.Subject.Create)
		subjects.PATCH("/:id", editors, h.Subject.Update)
		subjects.DELETE("/:id", adminOnly, h.Subject.Delete)
	}

	courses := authed.Group("/courses")
	{
		courses.GET("", h.Course.List)
		courses.GET("/facets", h.Course.Facets)
		courses.GET("/:id", h.Course.Get)
		courses.GET("/:id/outline", h.Course.Outline)
		courses.GET("/:id/topics", h.Topic.ListByCourse)
		courses.GET("/:id/materials", h.Material.ListByCourse)
		courses.POST("", editors, h.Course.Create)
		courses.PATCH("/:id", editors, h.Course.Update)
		courses.DELETE("/:id", adminOnly, h.Course.Delete)
		courses.POST("/:id/teachers", editors, h.Course.AssignTeacher)
	}

	courseTeachers := authed.Group("/course-teachers", editors)
	{
		courseTeachers.PATCH("/:id", h.CourseTeacher.UpdateRole)
		courseTeachers.DELETE("/:id", h.CourseTeacher.Remove)
	}

	topics := authed.Group("/topics")
	{
		topics.GET("/:id/lessons", h.Lesson.ListByTopic)
		topics.POST("", editors, h.Topic.Create)
		topics.PATCH("/:id", editors, h.Topic.Update)
		topics.DELETE("/:id", editors, h.Topic.Delete)
	}

	lessons := authed.Group("/lessons", editors)
	{
		lessons.POST("", h.Lesson.Create)
		lessons.PATCH("/:id", h.Lesson.Update)
		lessons.DELETE("/:id", h.Lesson.Delete)
	}

	materials := authed.Group("/materials")
	{
		materials.GET("/:id/download-link", h.Material.DownloadLink)
		materials.POST("", editors, h.Material.Create)
		materials.POST("/upload", editors, h.Material.Upload)
		materials.DELETE("/:id", editors, h.Material.Delete)
	}

	authed.GET("/academic-years", h.AcademicYear.List)

	return r
}
