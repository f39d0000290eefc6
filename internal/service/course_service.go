package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseSearchFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	Facets(ctx context.Context) (*models.CourseFacets, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.AcademicYear, error)
}

type courseTeacherRepository interface {
	ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.CourseTeacherDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseTeacherDetail, error)
	Create(ctx context.Context, assignment *models.CourseTeacher) error
	UpdateRole(ctx context.Context, id string, role models.TeacherRole) error
	Delete(ctx context.Context, id string) error
}

type staffReader interface {
	FindRefByID(ctx context.Context, id string) (*models.StaffRef, error)
}

type topicLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Topic, error)
}

type lessonBatchLister interface {
	ListByTopicIDs(ctx context.Context, topicIDs []string) ([]models.Lesson, error)
}

// CreateCourseRequest captures fields for creating courses.
type CreateCourseRequest struct {
	SubjectID          string   `json:"subject_id" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Code               string   `json:"code" validate:"required,max=20"`
	Description        *string  `json:"description"`
	AcademicYearID     *string  `json:"academic_year_id"`
	GradeLevel         int      `json:"grade_level" validate:"required,min=1,max=12"`
	Credits            int      `json:"credits" validate:"min=1"`
	DurationWeeks      int      `json:"duration_weeks" validate:"min=1"`
	IsMandatory        bool     `json:"is_mandatory"`
	Prerequisites      []string `json:"prerequisites"`
	LearningObjectives []string `json:"learning_objectives"`
	SyllabusURL        *string  `json:"syllabus_url" validate:"omitempty,url"`
	IsActive           *bool    `json:"is_active"`
}

// UpdateCourseRequest is a partial patch; nil fields keep their current value.
// An empty AcademicYearID clears the academic year.
type UpdateCourseRequest struct {
	SubjectID          *string   `json:"subject_id"`
	Name               *string   `json:"name"`
	Code               *string   `json:"code"`
	Description        *string   `json:"description"`
	AcademicYearID     *string   `json:"academic_year_id"`
	GradeLevel         *int      `json:"grade_level"`
	Credits            *int      `json:"credits"`
	DurationWeeks      *int      `json:"duration_weeks"`
	IsMandatory        *bool     `json:"is_mandatory"`
	Prerequisites      *[]string `json:"prerequisites"`
	LearningObjectives *[]string `json:"learning_objectives"`
	SyllabusURL        *string   `json:"syllabus_url"`
	IsActive           *bool     `json:"is_active"`
}

// IsEmpty reports whether the patch changes nothing.
func (r UpdateCourseRequest) IsEmpty() bool {
	return r.SubjectID == nil && r.Name == nil && r.Code == nil && r.Description == nil && r.AcademicYearID == nil &&
		r.GradeLevel == nil && r.Credits == nil && r.DurationWeeks == nil && r.IsMandatory == nil &&
		r.Prerequisites == nil && r.LearningObjectives == nil && r.SyllabusURL == nil && r.IsActive == nil
}

// AssignTeacherRequest links a staff member to a course.
type AssignTeacherRequest struct {
	StaffID string             `json:"staff_id" validate:"required"`
	Role    models.TeacherRole `json:"role" validate:"required,oneof=primary assistant substitute"`
}

// UpdateTeacherRoleRequest changes the role of an existing assignment.
type UpdateTeacherRoleRequest struct {
	Role models.TeacherRole `json:"role" validate:"required,oneof=primary assistant substitute"`
}

// CourseServiceParams groups constructor dependencies.
type CourseServiceParams struct {
	Courses       courseRepository
	Subjects      subjectReader
	AcademicYears academicYearReader
	Teachers      courseTeacherRepository
	Staff         staffReader
	Topics        topicLister
	Lessons       lessonBatchLister
	Cache         *CacheService
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// CourseService serves course reads with their embedded relations and guards
// course and teacher-assignment writes.
type CourseService struct {
	courses   courseRepository
	subjects  subjectReader
	years     academicYearReader
	teachers  courseTeacherRepository
	staff     staffReader
	topics    topicLister
	lessons   lessonBatchLister
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	hooks     catalogHooks
}

// NewCourseService constructs a CourseService.
func NewCourseService(params CourseServiceParams) *CourseService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:   params.Courses,
		subjects:  params.Subjects,
		years:     params.AcademicYears,
		teachers:  params.Teachers,
		staff:     params.Staff,
		topics:    params.Topics,
		lessons:   params.Lessons,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		hooks:     catalogHooks{cache: params.Cache, metrics: params.Metrics, logger: logger},
	}
}

// List returns every course ordered by grade level then name. The boolean
// reports a cache hit.
func (s *CourseService) List(ctx context.Context) ([]models.CourseView, bool, error) {
	return s.Search(ctx, models.CourseSearchFilter{})
}

// Search narrows List by the filter. A zero filter returns exactly what List returns.
func (s *CourseService) Search(ctx context.Context, filter models.CourseSearchFilter) ([]models.CourseView, bool, error) {
	key := courseListCacheKey(filter)
	var cached []models.CourseView
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	courses, err := s.courses.List(ctx, filter)
	s.metrics.ObserveDBQuery("list_courses", time.Since(start))
	if err != nil {
		s.logger.Error("list courses", zap.Error(err))
		return nil, false, appErrors.Backend(err, "failed to list courses")
	}

	views, err := s.embed(ctx, courses)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, views, 0)
	return views, false, nil
}

// Get returns one course with its relations, ordered topics and lessons, and summary.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	views, err := s.embed(ctx, []models.Course{*course})
	if err != nil {
		return nil, err
	}

	topics, err := s.topics.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list course topics")
	}
	withLessons, err := attachLessons(ctx, s.lessons, topics)
	if err != nil {
		return nil, err
	}

	detail := &models.CourseDetail{CourseView: views[0], Topics: withLessons}
	detail.Summary = summarize(detail)
	return detail, nil
}

// Facets returns the distinct departments and grade levels present in the catalog.
func (s *CourseService) Facets(ctx context.Context) (*models.CourseFacets, bool, error) {
	key := catalogCacheKey("courses", "facets")
	var cached models.CourseFacets
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	facets, err := s.courses.Facets(ctx)
	if err != nil {
		return nil, false, appErrors.Backend(err, "failed to load course facets")
	}
	s.cache.Set(ctx, key, facets, 0)
	return facets, false, nil
}

// Create validates references and persists a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.Name = strings.TrimSpace(req.Name)
	req.AcademicYearID = optionalText(req.AcademicYearID)
	req.SyllabusURL = optionalText(req.SyllabusURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	if blankCode(req.Code) {
		return nil, appErrors.Validation("course code must not be blank")
	}

	if err := s.ensureSubject(ctx, req.SubjectID); err != nil {
		return nil, err
	}
	if err := s.ensureAcademicYear(ctx, req.AcademicYearID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}

	course := &models.Course{
		SubjectID:          req.SubjectID,
		Name:               req.Name,
		Code:               req.Code,
		Description:        optionalText(req.Description),
		AcademicYearID:     req.AcademicYearID,
		GradeLevel:         req.GradeLevel,
		Credits:            req.Credits,
		DurationWeeks:      req.DurationWeeks,
		IsMandatory:        req.IsMandatory,
		Prerequisites:      textArray(req.Prerequisites),
		LearningObjectives: textArray(req.LearningObjectives),
		SyllabusURL:        req.SyllabusURL,
		IsActive:           boolOr(req.IsActive, true),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Backend(err, "failed to create course")
	}
	s.hooks.mutated(ctx, "course", "create", course.ID)
	return course, nil
}

// Update merges the patch onto the stored course and re-validates the result,
// including a changed subject or academic year reference.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if req.IsEmpty() {
		return course, nil
	}

	current := *course
	applyCoursePatch(course, req)

	merged := CreateCourseRequest{
		SubjectID:     course.SubjectID,
		Name:          course.Name,
		Code:          course.Code,
		GradeLevel:    course.GradeLevel,
		Credits:       course.Credits,
		DurationWeeks: course.DurationWeeks,
		SyllabusURL:   course.SyllabusURL,
	}
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	if blankCode(course.Code) {
		return nil, appErrors.Validation("course code must not be blank")
	}
	if course.SubjectID != current.SubjectID {
		if err := s.ensureSubject(ctx, course.SubjectID); err != nil {
			return nil, err
		}
	}
	if req.AcademicYearID != nil {
		if err := s.ensureAcademicYear(ctx, course.AcademicYearID); err != nil {
			return nil, err
		}
	}
	if !strings.EqualFold(course.Code, current.Code) {
		if err := s.ensureUniqueCode(ctx, course.Code, id); err != nil {
			return nil, err
		}
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, lookupError(err, "course not found", "failed to update course")
	}
	s.hooks.mutated(ctx, "course", "update", id)
	return course, nil
}

// Delete removes a course. Topics, teacher assignments and materials stay in place.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		return lookupError(err, "course not found", "failed to delete course")
	}
	s.hooks.mutated(ctx, "course", "delete", id)
	return nil
}

// AssignTeacher links a staff member to a course. The same staff member may hold
// several assignments on one course.
func (s *CourseService) AssignTeacher(ctx context.Context, courseID string, req AssignTeacherRequest) (*models.CourseTeacherDetail, error) {
	req.StaffID = strings.TrimSpace(req.StaffID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher assignment payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	staff, err := s.staff.FindRefByID(ctx, req.StaffID)
	if err != nil {
		return nil, referenceError(err, "staff member does not exist", "failed to load staff member")
	}

	assignment := &models.CourseTeacher{CourseID: courseID, StaffID: req.StaffID, Role: req.Role}
	if err := s.teachers.Create(ctx, assignment); err != nil {
		return nil, appErrors.Backend(err, "failed to assign teacher")
	}
	s.hooks.mutated(ctx, "course_teacher", "create", assignment.ID)
	return &models.CourseTeacherDetail{CourseTeacher: *assignment, Staff: *staff}, nil
}

// UpdateTeacherRole changes the role of an assignment.
func (s *CourseService) UpdateTeacherRole(ctx context.Context, id string, req UpdateTeacherRoleRequest) (*models.CourseTeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher role")
	}
	if err := s.teachers.UpdateRole(ctx, id, req.Role); err != nil {
		return nil, lookupError(err, "teacher assignment not found", "failed to update teacher role")
	}
	s.hooks.mutated(ctx, "course_teacher", "update", id)

	detail, err := s.teachers.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher assignment not found", "failed to load teacher assignment")
	}
	return detail, nil
}

// RemoveTeacher deletes an assignment.
func (s *CourseService) RemoveTeacher(ctx context.Context, id string) error {
	if err := s.teachers.Delete(ctx, id); err != nil {
		return lookupError(err, "teacher assignment not found", "failed to remove teacher")
	}
	s.hooks.mutated(ctx, "course_teacher", "delete", id)
	return nil
}

// embed joins subjects, academic years and teachers onto courses by foreign key,
// one batch query per relation. Order of courses is preserved.
func (s *CourseService) embed(ctx context.Context, courses []models.Course) ([]models.CourseView, error) {
	views := make([]models.CourseView, 0, len(courses))
	if len(courses) == 0 {
		return views, nil
	}

	var subjectIDs, yearIDs, courseIDs []string
	seenSubject := map[string]struct{}{}
	seenYear := map[string]struct{}{}
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
		if _, ok := seenSubject[c.SubjectID]; !ok {
			seenSubject[c.SubjectID] = struct{}{}
			subjectIDs = append(subjectIDs, c.SubjectID)
		}
		if c.AcademicYearID != nil {
			if _, ok := seenYear[*c.AcademicYearID]; !ok {
				seenYear[*c.AcademicYearID] = struct{}{}
				yearIDs = append(yearIDs, *c.AcademicYearID)
			}
		}
	}

	var (
		subjects []models.Subject
		years    []models.AcademicYear
		teachers []models.CourseTeacherDetail
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if subjects, err = s.subjects.ListByIDs(gctx, subjectIDs); err != nil {
			return appErrors.Backend(err, "failed to load course subjects")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if years, err = s.years.ListByIDs(gctx, yearIDs); err != nil {
			return appErrors.Backend(err, "failed to load course academic years")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if teachers, err = s.teachers.ListByCourseIDs(gctx, courseIDs); err != nil {
			return appErrors.Backend(err, "failed to load course teachers")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	subjectByID := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		subjectByID[subject.ID] = subject
	}
	yearNames := make(map[string]string, len(years))
	for _, year := range years {
		yearNames[year.ID] = year.Name
	}
	teachersByCourse := make(map[string][]models.CourseTeacherDetail)
	for _, teacher := range teachers {
		teachersByCourse[teacher.CourseID] = append(teachersByCourse[teacher.CourseID], teacher)
	}

	for _, course := range courses {
		if course.Prerequisites == nil {
			course.Prerequisites = textArray(nil)
		}
		if course.LearningObjectives == nil {
			course.LearningObjectives = textArray(nil)
		}
		view := models.CourseView{Course: course, Teachers: teachersByCourse[course.ID]}
		if view.Teachers == nil {
			view.Teachers = []models.CourseTeacherDetail{}
		}
		if subject, ok := subjectByID[course.SubjectID]; ok {
			view.Subject = &subject
		}
		if course.AcademicYearID != nil {
			if name, ok := yearNames[*course.AcademicYearID]; ok {
				view.AcademicYear = &models.AcademicYearRef{Name: name}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *CourseService) ensureSubject(ctx context.Context, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		return referenceError(err, "subject does not exist", "failed to load subject")
	}
	return nil
}

func (s *CourseService) ensureAcademicYear(ctx context.Context, yearID *string) error {
	if yearID == nil {
		return nil
	}
	if _, err := s.years.FindByID(ctx, *yearID); err != nil {
		return referenceError(err, "academic year does not exist", "failed to load academic year")
	}
	return nil
}

func (s *CourseService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.courses.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Backend(err, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	return nil
}

func applyCoursePatch(course *models.Course, req UpdateCourseRequest) {
	if req.SubjectID != nil {
		course.SubjectID = strings.TrimSpace(*req.SubjectID)
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		course.Code = *req.Code
	}
	if req.Description != nil {
		course.Description = optionalText(req.Description)
	}
	if req.AcademicYearID != nil {
		course.AcademicYearID = optionalText(req.AcademicYearID)
	}
	if req.GradeLevel != nil {
		course.GradeLevel = *req.GradeLevel
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.DurationWeeks != nil {
		course.DurationWeeks = *req.DurationWeeks
	}
	if req.IsMandatory != nil {
		course.IsMandatory = *req.IsMandatory
	}
	if req.Prerequisites != nil {
		course.Prerequisites = textArray(*req.Prerequisites)
	}
	if req.LearningObjectives != nil {
		course.LearningObjectives = textArray(*req.LearningObjectives)
	}
	if req.SyllabusURL != nil {
		course.SyllabusURL = optionalText(req.SyllabusURL)
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
}

func summarize(detail *models.CourseDetail) models.CourseSummary {
	summary := models.CourseSummary{TopicCount: len(detail.Topics), TeacherCount: len(detail.Teachers)}
	for _, topic := range detail.Topics {
		summary.LessonCount += len(topic.Lessons)
		summary.TotalHours += topic.DurationHours
	}
	return summary
}

// attachLessons groups lessons under their topics, keeping both orders.
func attachLessons(ctx context.Context, lessons lessonBatchLister, topics []models.Topic) ([]models.TopicWithLessons, error) {
	result := make([]models.TopicWithLessons, 0, len(topics))
	if len(topics) == 0 {
		return result, nil
	}
	ids := make([]string, len(topics))
	for i, topic := range topics {
		ids[i] = topic.ID
	}
	rows, err := lessons.ListByTopicIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list topic lessons")
	}
	byTopic := make(map[string][]models.Lesson, len(topics))
	for _, lesson := range rows {
		byTopic[lesson.TopicID] = append(byTopic[lesson.TopicID], normalizeLesson(lesson))
	}
	for _, topic := range topics {
		items := byTopic[topic.ID]
		if items == nil {
			items = []models.Lesson{}
		}
		result = append(result, models.TopicWithLessons{Topic: topic, Lessons: items})
	}
	return result, nil
}

func normalizeLesson(lesson models.Lesson) models.Lesson {
	if lesson.LearningOutcomes == nil {
		lesson.LearningOutcomes = textArray(nil)
	}
	if lesson.MaterialsNeeded == nil {
		lesson.MaterialsNeeded = textArray(nil)
	}
	return lesson
}

func courseListCacheKey(filter models.CourseSearchFilter) string {
	if filter.IsZero() {
		return catalogCacheKey("courses", "all")
	}
	grade, department, mandatory := "*", "*", "*"
	if filter.GradeLevel != nil {
		grade = strconv.Itoa(*filter.GradeLevel)
	}
	if filter.Department != nil {
		department = *filter.Department
	}
	if filter.IsMandatory != nil {
		mandatory = strconv.FormatBool(*filter.IsMandatory)
	}
	return catalogCacheKey("courses", "q="+strings.ToLower(filter.Query), "grade="+grade, "dept="+department, "mandatory="+mandatory)
}
