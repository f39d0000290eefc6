package models

import (
	"time"

	"github.com/lib/pq"
)

// Lesson is the smallest schedulable unit of content within a topic.
type Lesson struct {
	ID               string         `db:"id" json:"id"`
	TopicID          string         `db:"topic_id" json:"topic_id"`
	Name             string         `db:"name" json:"name"`
	Description      *string        `db:"description" json:"description,omitempty"`
	Content          *string        `db:"content" json:"content,omitempty"`
	OrderIndex       int            `db:"order_index" json:"order_index"`
	DurationMinutes  int            `db:"duration_minutes" json:"duration_minutes"`
	LearningOutcomes pq.StringArray `db:"learning_outcomes" json:"learning_outcomes"`
	MaterialsNeeded  pq.StringArray `db:"materials_needed" json:"materials_needed"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
