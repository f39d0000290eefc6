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

const materialDetailSelect = `SELECT m.id, m.course_id, m.lesson_id, m.name, m.description, m.file_url, m.file_type, m.file_size,
       m.storage_key, m.uploaded_by, m.is_public, m.created_at, u.full_name AS uploader_name
FROM course_materials m
LEFT JOIN users u ON u.id = m.uploaded_by`

// MaterialRepository persists course materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// ListByCourse returns the course's materials newest first.
func (r *MaterialRepository) ListByCourse(ctx context.Context, courseID string) ([]models.MaterialDetail, error) {
	query := materialDetailSelect + `
WHERE m.course_id = $1
ORDER BY m.created_at DESC, m.id DESC`
	materials := []models.MaterialDetail{}
	if err := r.db.SelectContext(ctx, &materials, query, courseID); err != nil {
		return nil, fmt.Errorf("list course materials: %w", err)
	}
	return materials, nil
}

// FindByID returns a material with uploader name or sql.ErrNoRows.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.MaterialDetail, error) {
	query := materialDetailSelect + `
WHERE m.id = $1`
	var material models.MaterialDetail
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create inserts a new material.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_materials (id, course_id, lesson_id, name, description, file_url, file_type, file_size,
storage_key, uploaded_by, is_public, created_at)
VALUES (:id, :course_id, :lesson_id, :name, :description, :file_url, :file_type, :file_size,
:storage_key, :uploaded_by, :is_public, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create course material: %w", err)
	}
	return nil
}

// Delete removes a material row; sql.ErrNoRows when missing.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `DELETE FROM course_materials WHERE id = $1`, id)
	}, "delete course material")
}
