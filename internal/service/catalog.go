package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

// catalogHooks runs the side effects shared by every catalog write.
type catalogHooks struct {
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

func (h catalogHooks) mutated(ctx context.Context, entity, op, id string) {
	h.cache.InvalidateCatalog(ctx)
	h.metrics.RecordMutation(entity, op)
	h.logger.Info("catalog mutation", zap.String("entity", entity), zap.String("op", op), zap.String("id", id))
}

// lookupError maps a FindByID failure: sql.ErrNoRows becomes NotFound, anything
// else is a backend failure.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(notFound)
	}
	return appErrors.Backend(err, failure)
}

// referenceError maps a lookup of a referenced parent: a missing row is a
// validation failure of the referencing record.
func referenceError(err error, invalid, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Validation(invalid)
	}
	return appErrors.Backend(err, failure)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// blankCode reports a code made only of whitespace. Codes are stored as given;
// uniqueness is checked case-insensitively by the repositories.
func blankCode(code string) bool {
	return strings.TrimSpace(code) == ""
}

// optionalText trims s and turns blanks into nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func textArray(values []string) pq.StringArray {
	out := make(pq.StringArray, len(values))
	copy(out, values)
	return out
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
