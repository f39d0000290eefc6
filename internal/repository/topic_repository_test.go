package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicRepositoryListByCourseOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "name", "description", "order_index", "duration_hours", "is_active", "created_at", "updated_at"}).
		AddRow("t1", "c1", "Linear equations", nil, 1, 10, true, now, now).
		AddRow("t2", "c1", "Inequalities", nil, 2, 6, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM curriculum_topics WHERE course_id = $1 ORDER BY order_index ASC, created_at ASC, id ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	topics, err := repo.ListByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, 1, topics[0].OrderIndex)
	assert.Equal(t, 6, topics[1].DurationHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM curriculum_topics WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryDeleteFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM curriculum_topics WHERE id = $1")).
		WithArgs("t1").
		WillReturnError(sql.ErrConnDone)

	err := repo.Delete(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "delete topic")
	assert.NoError(t, mock.ExpectationsWereMet())
}
