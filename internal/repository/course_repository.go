package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

const courseColumns = `c.id, c.subject_id, c.name, c.code, c.description, c.academic_year_id, c.grade_level, c.credits,
c.duration_weeks, c.is_mandatory, c.prerequisites, c.learning_objectives, c.syllabus_url, c.is_active, c.created_at, c.updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns the courses matching filter ordered by grade then name. A zero
// filter returns every course.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseSearchFilter) ([]models.Course, error) {
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.code ILIKE $%d OR COALESCE(c.description, '') ILIKE $%d)", n, n, n))
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
	}
	if filter.GradeLevel != nil {
		conditions = append(conditions, fmt.Sprintf("c.grade_level = $%d", len(args)+1))
		args = append(args, *filter.GradeLevel)
	}
	if filter.Department != nil {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM subjects s WHERE s.id = c.subject_id AND s.department = $%d)", len(args)+1))
		args = append(args, *filter.Department)
	}
	if filter.IsMandatory != nil {
		conditions = append(conditions, fmt.Sprintf("c.is_mandatory = $%d", len(args)+1))
		args = append(args, *filter.IsMandatory)
	}

	query := "SELECT " + courseColumns + " FROM courses c"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.grade_level ASC, c.name ASC, c.id ASC"

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses c WHERE c.id = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks uniqueness of course code.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, subject_id, name, code, description, academic_year_id, grade_level, credits, duration_weeks,
is_mandatory, prerequisites, learning_objectives, syllabus_url, is_active, created_at, updated_at)
VALUES (:id, :subject_id, :name, :code, :description, :academic_year_id, :grade_level, :credits, :duration_weeks,
:is_mandatory, :prerequisites, :learning_objectives, :syllabus_url, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET subject_id = :subject_id, name = :name, code = :code, description = :description,
academic_year_id = :academic_year_id, grade_level = :grade_level, credits = :credits, duration_weeks = :duration_weeks,
is_mandatory = :is_mandatory, prerequisites = :prerequisites, learning_objectives = :learning_objectives,
syllabus_url = :syllabus_url, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.NamedExecContext(ctx, query, course)
	}, "update course")
}

// Delete removes a course record. Topics, teachers and materials are left in place.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	}, "delete course")
}

// Facets returns the distinct departments of subjects that own courses and the
// distinct course grade levels, both sorted ascending.
func (r *CourseRepository) Facets(ctx context.Context) (*models.CourseFacets, error) {
	facets := &models.CourseFacets{Departments: []string{}, GradeLevels: []int{}}
	const departments = `SELECT DISTINCT s.department FROM courses c JOIN subjects s ON s.id = c.subject_id WHERE s.department <> '' ORDER BY s.department ASC`
	if err := r.db.SelectContext(ctx, &facets.Departments, departments); err != nil {
		return nil, fmt.Errorf("list course departments: %w", err)
	}
	const grades = `SELECT DISTINCT grade_level FROM courses ORDER BY grade_level ASC`
	if err := r.db.SelectContext(ctx, &facets.GradeLevels, grades); err != nil {
		return nil, fmt.Errorf("list course grade levels: %w", err)
	}
	return facets, nil
}
