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

const lessonColumns = `id, topic_id, name, description, content, order_index, duration_minutes, learning_outcomes,
materials_needed, is_active, created_at, updated_at`

const lessonOrder = " ORDER BY order_index ASC, created_at ASC, id ASC"

// LessonRepository handles persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new repository instance.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByTopic returns the topic's lessons by order_index, ties in insertion order.
func (r *LessonRepository) ListByTopic(ctx context.Context, topicID string) ([]models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE topic_id = $1" + lessonOrder
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, query, topicID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListByTopicIDs returns the lessons of several topics in the same order as
// ListByTopic; callers group them by TopicID.
func (r *LessonRepository) ListByTopicIDs(ctx context.Context, topicIDs []string) ([]models.Lesson, error) {
	if len(topicIDs) == 0 {
		return []models.Lesson{}, nil
	}
	query := "SELECT " + lessonColumns + " FROM lessons WHERE topic_id = ANY($1)" + lessonOrder
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, query, pq.Array(topicIDs)); err != nil {
		return nil, fmt.Errorf("list lessons by topics: %w", err)
	}
	return lessons, nil
}

// FindByID returns a lesson by id or sql.ErrNoRows.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE id = $1"
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create persists a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, topic_id, name, description, content, order_index, duration_minutes, learning_outcomes,
materials_needed, is_active, created_at, updated_at)
VALUES (:id, :topic_id, :name, :description, :content, :order_index, :duration_minutes, :learning_outcomes,
:materials_needed, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET topic_id = :topic_id, name = :name, description = :description, content = :content,
order_index = :order_index, duration_minutes = :duration_minutes, learning_outcomes = :learning_outcomes,
materials_needed = :materials_needed, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.NamedExecContext(ctx, query, lesson)
	}, "update lesson")
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	}, "delete lesson")
}
