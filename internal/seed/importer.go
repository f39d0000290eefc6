package seed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
)

type subjectCatalog interface {
	List(ctx context.Context) ([]models.Subject, bool, error)
	Create(ctx context.Context, req service.CreateSubjectRequest) (*models.Subject, error)
}

type courseCatalog interface {
	List(ctx context.Context) ([]models.CourseView, bool, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
}

type topicCreator interface {
	Create(ctx context.Context, req service.CreateTopicRequest) (*models.Topic, error)
}

type lessonCreator interface {
	Create(ctx context.Context, req service.CreateLessonRequest) (*models.Lesson, error)
}

// Result summarises an import run.
type Result struct {
	SubjectsCreated int `json:"subjects_created"`
	SubjectsReused  int `json:"subjects_reused"`
	CoursesCreated  int `json:"courses_created"`
	CoursesSkipped  int `json:"courses_skipped"`
	TopicsCreated   int `json:"topics_created"`
	LessonsCreated  int `json:"lessons_created"`
}

// Importer writes a Catalog through the catalog services so every record
// passes the same validation as API writes.
type Importer struct {
	subjects subjectCatalog
	courses  courseCatalog
	topics   topicCreator
	lessons  lessonCreator
	logger   *zap.Logger
}

// NewImporter constructs an Importer.
func NewImporter(subjects subjectCatalog, courses courseCatalog, topics topicCreator, lessons lessonCreator, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{subjects: subjects, courses: courses, topics: topics, lessons: lessons, logger: logger}
}

// Import creates the catalog's records. Subjects whose code already exists are
// reused; courses whose code already exists are skipped together with their
// topics, so re-running an import does not duplicate content. The first
// failing write aborts the run.
func (i *Importer) Import(ctx context.Context, catalog *Catalog) (*Result, error) {
	result := &Result{}
	if catalog == nil {
		return result, nil
	}

	existingSubjects, _, err := i.subjects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjectIDs := make(map[string]string, len(existingSubjects))
	for _, subject := range existingSubjects {
		subjectIDs[codeKey(subject.Code)] = subject.ID
	}

	existingCourses, _, err := i.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	courseCodes := make(map[string]struct{}, len(existingCourses))
	for _, course := range existingCourses {
		courseCodes[codeKey(course.Code)] = struct{}{}
	}

	for _, subject := range catalog.Subjects {
		subjectID, ok := subjectIDs[codeKey(subject.Code)]
		if ok {
			result.SubjectsReused++
		} else {
			created, err := i.subjects.Create(ctx, service.CreateSubjectRequest{
				Name:        subject.Name,
				Code:        subject.Code,
				Description: optional(subject.Description),
				GradeLevel:  subject.GradeLevel,
				Department:  subject.Department,
			})
			if err != nil {
				return result, fmt.Errorf("subject %s: %w", subject.Code, err)
			}
			subjectID = created.ID
			subjectIDs[codeKey(created.Code)] = subjectID
			result.SubjectsCreated++
		}

		for _, course := range subject.Courses {
			if _, exists := courseCodes[codeKey(course.Code)]; exists {
				i.logger.Info("course already present, skipping", zap.String("code", course.Code))
				result.CoursesSkipped++
				continue
			}
			if err := i.importCourse(ctx, subjectID, subject.GradeLevel, course, result); err != nil {
				return result, err
			}
			courseCodes[codeKey(course.Code)] = struct{}{}
		}
	}

	i.logger.Info("curriculum import finished",
		zap.Int("subjects_created", result.SubjectsCreated),
		zap.Int("courses_created", result.CoursesCreated),
		zap.Int("topics_created", result.TopicsCreated),
		zap.Int("lessons_created", result.LessonsCreated),
	)
	return result, nil
}

func (i *Importer) importCourse(ctx context.Context, subjectID string, subjectGrade int, course Course, result *Result) error {
	grade := course.GradeLevel
	if grade == 0 {
		grade = subjectGrade
	}
	created, err := i.courses.Create(ctx, service.CreateCourseRequest{
		SubjectID:          subjectID,
		Name:               course.Name,
		Code:               course.Code,
		Description:        optional(course.Description),
		GradeLevel:         grade,
		Credits:            course.Credits,
		DurationWeeks:      course.DurationWeeks,
		IsMandatory:        course.Mandatory,
		Prerequisites:      course.Prerequisites,
		LearningObjectives: course.LearningObjectives,
		SyllabusURL:        optional(course.SyllabusURL),
	})
	if err != nil {
		return fmt.Errorf("course %s: %w", course.Code, err)
	}
	result.CoursesCreated++

	for topicIdx, topic := range course.Topics {
		createdTopic, err := i.topics.Create(ctx, service.CreateTopicRequest{
			CourseID:      created.ID,
			Name:          topic.Name,
			Description:   optional(topic.Description),
			OrderIndex:    topicIdx + 1,
			DurationHours: topic.Hours,
		})
		if err != nil {
			return fmt.Errorf("course %s topic %q: %w", course.Code, topic.Name, err)
		}
		result.TopicsCreated++

		for lessonIdx, lesson := range topic.Lessons {
			_, err := i.lessons.Create(ctx, service.CreateLessonRequest{
				TopicID:          createdTopic.ID,
				Name:             lesson.Name,
				Description:      optional(lesson.Description),
				Content:          optional(lesson.Content),
				OrderIndex:       lessonIdx + 1,
				DurationMinutes:  lesson.Minutes,
				LearningOutcomes: lesson.LearningOutcomes,
				MaterialsNeeded:  lesson.MaterialsNeeded,
			})
			if err != nil {
				return fmt.Errorf("course %s lesson %q: %w", course.Code, lesson.Name, err)
			}
			result.LessonsCreated++
		}
	}
	return nil
}

func codeKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
