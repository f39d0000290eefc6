package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is a unit of instruction owned by exactly one Subject.
type Course struct {
	ID                 string         `db:"id" json:"id"`
	SubjectID          string         `db:"subject_id" json:"subject_id"`
	Name               string         `db:"name" json:"name"`
	Code               string         `db:"code" json:"code"`
	Description        *string        `db:"description" json:"description,omitempty"`
	AcademicYearID     *string        `db:"academic_year_id" json:"academic_year_id,omitempty"`
	GradeLevel         int            `db:"grade_level" json:"grade_level"`
	Credits            int            `db:"credits" json:"credits"`
	DurationWeeks      int            `db:"duration_weeks" json:"duration_weeks"`
	IsMandatory        bool           `db:"is_mandatory" json:"is_mandatory"`
	Prerequisites      pq.StringArray `db:"prerequisites" json:"prerequisites"`
	LearningObjectives pq.StringArray `db:"learning_objectives" json:"learning_objectives"`
	SyllabusURL        *string        `db:"syllabus_url" json:"syllabus_url,omitempty"`
	IsActive           bool           `db:"is_active" json:"is_active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// AcademicYearRef is the embedded academic year shown alongside a course.
type AcademicYearRef struct {
	Name string `json:"name"`
}

// CourseView is a course with its subject, academic year and teachers embedded.
// Subject is nil when the referenced subject no longer exists.
type CourseView struct {
	Course
	Subject      *Subject              `json:"subject"`
	AcademicYear *AcademicYearRef      `json:"academic_year,omitempty"`
	Teachers     []CourseTeacherDetail `json:"teachers"`
}

// CourseDetail is the single-course read: the list view plus ordered topics and
// a summary.
type CourseDetail struct {
	CourseView
	Topics  []TopicWithLessons `json:"topics"`
	Summary CourseSummary      `json:"summary"`
}

// CourseSummary aggregates the detail view counters.
type CourseSummary struct {
	TopicCount   int `json:"topic_count"`
	LessonCount  int `json:"lesson_count"`
	TeacherCount int `json:"teacher_count"`
	TotalHours   int `json:"total_hours"`
}

// CourseSearchFilter holds the optional course search predicates. Every set
// field must match; nil fields are ignored.
type CourseSearchFilter struct {
	Query       string
	GradeLevel  *int
	Department  *string
	IsMandatory *bool
}

// IsZero reports whether the filter selects every course.
func (f CourseSearchFilter) IsZero() bool {
	return f.Query == "" && f.GradeLevel == nil && f.Department == nil && f.IsMandatory == nil
}

// CourseFacets lists the distinct values the course list can be narrowed by.
type CourseFacets struct {
	Departments []string `json:"departments"`
	GradeLevels []int    `json:"grade_levels"`
}
