package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
)

// StaffRepository reads staff records referenced by course assignments.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindRefByID returns the staff member's display fields or sql.ErrNoRows.
func (r *StaffRepository) FindRefByID(ctx context.Context, id string) (*models.StaffRef, error) {
	const query = `SELECT id, first_name, last_name, employee_id FROM staff WHERE id = $1`
	var staff models.StaffRef
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}
