package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var (
	subjectRowColumns = []string{"id", "name", "code", "description", "grade_level", "department", "is_active", "created_at", "updated_at"}
	courseRowColumns  = []string{"id", "subject_id", "name", "code", "description", "academic_year_id", "grade_level", "credits",
		"duration_weeks", "is_mandatory", "prerequisites", "learning_objectives", "syllabus_url", "is_active", "created_at", "updated_at"}
	lessonRowColumns = []string{"id", "topic_id", "name", "description", "content", "order_index", "duration_minutes",
		"learning_outcomes", "materials_needed", "is_active", "created_at", "updated_at"}
)
