package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

func courseRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(courseRowColumns).
		AddRow("c1", "s1", "Algebra I", "ALG1", nil, nil, 7, 3, 16, true, "{}", "{\"Understand variables\"}", nil, true, now, now)
}

func TestCourseRepositoryListWithoutFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`FROM courses c ORDER BY c\.grade_level ASC, c\.name ASC, c\.id ASC$`).
		WithoutArgs().
		WillReturnRows(courseRows())

	courses, err := repo.List(context.Background(), models.CourseSearchFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "ALG1", courses[0].Code)
	assert.Empty(t, courses[0].Prerequisites)
	assert.Equal(t, []string{"Understand variables"}, []string(courses[0].LearningObjectives))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	grade := 7
	department := "Academic"
	mandatory := true
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (c.name ILIKE $1 OR c.code ILIKE $1 OR COALESCE(c.description, '') ILIKE $1) AND c.grade_level = $2 AND EXISTS (SELECT 1 FROM subjects s WHERE s.id = c.subject_id AND s.department = $3) AND c.is_mandatory = $4 ORDER BY c.grade_level ASC, c.name ASC")).
		WithArgs(`%50\%\_off%`, 7, "Academic", true).
		WillReturnRows(courseRows())

	courses, err := repo.List(context.Background(), models.CourseSearchFilter{
		Query:       "50%_off",
		GradeLevel:  &grade,
		Department:  &department,
		IsMandatory: &mandatory,
	})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListKeepsQueryWhitespace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (c.name ILIKE $1 OR c.code ILIKE $1 OR COALESCE(c.description, '') ILIKE $1) ORDER BY")).
		WithArgs("% %").
		WillReturnRows(courseRows())

	_, err := repo.List(context.Background(), models.CourseSearchFilter{Query: " "})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "s1", "Algebra I", "ALG1", nil, nil, 7, 3, 16, true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{SubjectID: "s1", Name: "Algebra I", Code: "ALG1", GradeLevel: 7, Credits: 3, DurationWeeks: 16,
		IsMandatory: true, Prerequisites: []string{}, LearningObjectives: []string{"Understand variables"}, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 1))

	course := &models.Course{ID: "c1", SubjectID: "s1", Name: "Algebra I", Code: "ALG1", GradeLevel: 7, Credits: 4, DurationWeeks: 16}
	require.NoError(t, repo.Update(context.Background(), course))
	assert.False(t, course.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFacets(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT s.department FROM courses c JOIN subjects s")).
		WillReturnRows(sqlmock.NewRows([]string{"department"}).AddRow("Academic").AddRow("Arts"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT grade_level FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"grade_level"}).AddRow(7).AddRow(8))

	facets, err := repo.Facets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Academic", "Arts"}, facets.Departments)
	assert.Equal(t, []int{7, 8}, facets.GradeLevels)
	assert.NoError(t, mock.ExpectationsWereMet())
}
