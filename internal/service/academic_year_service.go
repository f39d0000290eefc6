package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

type academicYearLister interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
}

// AcademicYearService lists the academic years offered on course forms.
type AcademicYearService struct {
	repo   academicYearLister
	cache  *CacheService
	logger *zap.Logger
}

// NewAcademicYearService constructs an AcademicYearService.
func NewAcademicYearService(repo academicYearLister, cache *CacheService, logger *zap.Logger) *AcademicYearService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, cache: cache, logger: logger}
}

// List returns academic years, most recent first.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, bool, error) {
	key := catalogCacheKey("academic_years")
	var cached []models.AcademicYear
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}
	years, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list academic years", zap.Error(err))
		return nil, false, appErrors.Backend(err, "failed to list academic years")
	}
	s.cache.Set(ctx, key, years, 0)
	return years, false, nil
}
