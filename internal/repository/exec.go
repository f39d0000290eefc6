package repository

import (
	"database/sql"
	"fmt"
)

// execAffectingOne runs a single-row write and reports sql.ErrNoRows when no
// row matched.
func execAffectingOne(exec func() (sql.Result, error), op string) error {
	result, err := exec()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
