package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

const academicYearColumns = "id, name, start_date, end_date, is_current"

// AcademicYearRepository reads the academic year reference set.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns academic years, most recent first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years ORDER BY start_date DESC, name ASC"
	years := []models.AcademicYear{}
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// ListByIDs returns the academic years with the given identifiers.
func (r *AcademicYearRepository) ListByIDs(ctx context.Context, ids []string) ([]models.AcademicYear, error) {
	if len(ids) == 0 {
		return []models.AcademicYear{}, nil
	}
	query := "SELECT " + academicYearColumns + " FROM academic_years WHERE id = ANY($1)"
	years := []models.AcademicYear{}
	if err := r.db.SelectContext(ctx, &years, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list academic years by id: %w", err)
	}
	return years, nil
}

// FindByID returns an academic year or sql.ErrNoRows.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := "SELECT " + academicYearColumns + " FROM academic_years WHERE id = $1"
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}
