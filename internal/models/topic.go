package models

import "time"

// Topic is an ordered subdivision of a course.
type Topic struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	Name          string    `db:"name" json:"name"`
	Description   *string   `db:"description" json:"description,omitempty"`
	OrderIndex    int       `db:"order_index" json:"order_index"`
	DurationHours int       `db:"duration_hours" json:"duration_hours"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TopicWithLessons embeds the topic's lessons in display order.
type TopicWithLessons struct {
	Topic
	Lessons []Lesson `json:"lessons"`
}
