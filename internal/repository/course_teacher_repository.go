package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

const courseTeacherDetailSelect = `SELECT ct.id, ct.course_id, ct.staff_id, ct.role, ct.assigned_at,
       COALESCE(st.id, ct.staff_id) AS "staff.id", COALESCE(st.first_name, '') AS "staff.first_name",
       COALESCE(st.last_name, '') AS "staff.last_name", COALESCE(st.employee_id, '') AS "staff.employee_id"
FROM course_teachers ct
LEFT JOIN staff st ON st.id = ct.staff_id`

// CourseTeacherRepository persists course-teacher assignments.
type CourseTeacherRepository struct {
	db *sqlx.DB
}

// NewCourseTeacherRepository constructs the repository.
func NewCourseTeacherRepository(db *sqlx.DB) *CourseTeacherRepository {
	return &CourseTeacherRepository{db: db}
}

// ListByCourseIDs returns the assignments of every listed course with the staff
// member embedded, oldest assignment first.
func (r *CourseTeacherRepository) ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.CourseTeacherDetail, error) {
	if len(courseIDs) == 0 {
		return []models.CourseTeacherDetail{}, nil
	}
	query := courseTeacherDetailSelect + `
WHERE ct.course_id = ANY($1)
ORDER BY ct.assigned_at ASC, ct.id ASC`
	teachers := []models.CourseTeacherDetail{}
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list course teachers: %w", err)
	}
	return teachers, nil
}

// FindDetailByID returns one assignment with its staff member or sql.ErrNoRows.
func (r *CourseTeacherRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseTeacherDetail, error) {
	query := courseTeacherDetailSelect + `
WHERE ct.id = $1`
	var teacher models.CourseTeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new assignment. Repeated course/staff pairs are allowed.
func (r *CourseTeacherRepository) Create(ctx context.Context, assignment *models.CourseTeacher) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_teachers (id, course_id, staff_id, role, assigned_at)
VALUES (:id, :course_id, :staff_id, :role, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create course teacher: %w", err)
	}
	return nil
}

// UpdateRole changes the role of an assignment; sql.ErrNoRows when missing.
func (r *CourseTeacherRepository) UpdateRole(ctx context.Context, id string, role models.TeacherRole) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `UPDATE course_teachers SET role = $1 WHERE id = $2`, role, id)
	}, "update course teacher role")
}

// Delete removes an assignment; sql.ErrNoRows when missing.
func (r *CourseTeacherRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM course_teachers WHERE id = $1`, id)
	}, "delete course teacher")
}
