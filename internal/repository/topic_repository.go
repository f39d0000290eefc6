package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

const topicColumns = "id, course_id, name, description, order_index, duration_hours, is_active, created_at, updated_at"

// TopicRepository handles persistence for curriculum topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository instance.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// ListByCourse returns the course's topics by order_index, ties in insertion order.
func (r *TopicRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Topic, error) {
	query := "SELECT " + topicColumns + " FROM curriculum_topics WHERE course_id = $1 ORDER BY order_index ASC, created_at ASC, id ASC"
	topics := []models.Topic{}
	if err := r.db.SelectContext(ctx, &topics, query, courseID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// FindByID returns a topic by id or sql.ErrNoRows.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	query := "SELECT " + topicColumns + " FROM curriculum_topics WHERE id = $1"
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Create persists a new topic.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	topic.UpdatedAt = now

	const query = `INSERT INTO curriculum_topics (id, course_id, name, description, order_index, duration_hours, is_active, created_at, updated_at)
VALUES (:id, :course_id, :name, :description, :order_index, :duration_hours, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the topic.
func (r *TopicRepository) Update(ctx context.Context, topic *models.Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	const query = `UPDATE curriculum_topics SET course_id = :course_id, name = :name, description = :description,
order_index = :order_index, duration_hours = :duration_hours, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.NamedExecContext(ctx, query, topic)
	}, "update topic")
}

// Delete removes a topic; its lessons are left in place.
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM curriculum_topics WHERE id = $1`, id)
	}, "delete topic")
}
