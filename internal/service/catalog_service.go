package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

type catalogStore interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
	ListCodes(ctx context.Context, group string) ([]models.CommonCode, error)
	Label(ctx context.Context, group, value string) (string, error)
}

// CatalogService serves branches and display codes, cached aggressively
// since the catalog changes rarely.
type CatalogService struct {
	repo     catalogStore
	cache    listCache
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewCatalogService builds a CatalogService.
func NewCatalogService(repo catalogStore, cache listCache, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, metrics: metrics, logger: logger, cacheTTL: cacheTTL}
}

// Branches returns all active branches.
func (s *CatalogService) Branches(ctx context.Context) ([]models.Branch, error) {
	const key = "catalog:branches"
	if s.cache != nil {
		var hit []models.Branch
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			s.metrics.RecordCacheOperation(true)
			return hit, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, branches, s.cacheTTL); err != nil {
			s.logger.Warn("branch cache write failed", zap.Error(err))
		}
	}
	return branches, nil
}

// Codes returns the display codes of one group.
func (s *CatalogService) Codes(ctx context.Context, group string) ([]models.CommonCode, error) {
	key := fmt.Sprintf("catalog:codes:%s", group)
	if s.cache != nil {
		var hit []models.CommonCode
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			s.metrics.RecordCacheOperation(true)
			return hit, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	codes, err := s.repo.ListCodes(ctx, group)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list codes")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, codes, s.cacheTTL); err != nil {
			s.logger.Warn("code cache write failed", zap.Error(err))
		}
	}
	return codes, nil
}

// Label resolves one code value to its display label.
func (s *CatalogService) Label(ctx context.Context, group, value string) (string, error) {
	return s.repo.Label(ctx, group, value)
}
