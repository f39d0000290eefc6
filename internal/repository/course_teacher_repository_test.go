package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

func TestCourseTeacherRepositoryListByCourseIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "staff_id", "role", "assigned_at",
		"staff.id", "staff.first_name", "staff.last_name", "staff.employee_id"}).
		AddRow("ct1", "c1", "st1", "primary", now, "st1", "Ani", "Wijaya", "EMP-01").
		AddRow("ct2", "c1", "st2", "assistant", now.Add(time.Minute), "st2", "Budi", "Santoso", "EMP-02")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ct.course_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	teachers, err := repo.ListByCourseIDs(context.Background(), []string{"c1"})
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, models.TeacherRolePrimary, teachers[0].Role)
	assert.Equal(t, "Ani Wijaya", teachers[0].Staff.FullName())
	assert.Equal(t, "EMP-02", teachers[1].Staff.EmployeeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseTeacherRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseTeacherRepository(db)

	mock.ExpectExec("INSERT INTO course_teachers").
		WithArgs(sqlmock.AnyArg(), "c1", "st1", "primary", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.CourseTeacher{CourseID: "c1", StaffID: "st1", Role: models.TeacherRolePrimary}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.AssignedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseTeacherRepositoryUpdateRoleMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_teachers SET role = $1 WHERE id = $2")).
		WithArgs("substitute", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRole(context.Background(), "missing", models.TeacherRoleSubstitute)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
