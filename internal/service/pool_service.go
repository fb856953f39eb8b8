package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

const poolCacheKey = "pool:info"

// PoolReader reads the staking pool's aggregate state.
type PoolReader interface {
	PoolInfo(ctx context.Context) (domain.PoolInfo, error)
}

// PoolService serves pool statistics through the projection cache.
type PoolService struct {
	reader PoolReader
	cache  domain.ProjectionCache
	logger *slog.Logger
}

// NewPoolService creates a PoolService. cache may be nil.
func NewPoolService(reader PoolReader, cache domain.ProjectionCache, logger *slog.Logger) *PoolService {
	return &PoolService{
		reader: reader,
		cache:  cache,
		logger: logger.With(slog.String("component", "pool_service")),
	}
}

// Info returns the pool statistics, from cache when fresh.
func (s *PoolService) Info(ctx context.Context) (domain.PoolInfo, error) {
	var info domain.PoolInfo
	if s.cache != nil {
		err := s.cache.Get(ctx, poolCacheKey, &info)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "pool cache get failed", slog.String("error", err.Error()))
		}
	}

	info, err := s.reader.PoolInfo(ctx)
	if err != nil {
		return domain.PoolInfo{}, fmt.Errorf("pool_service: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, poolCacheKey, info); err != nil {
			s.logger.WarnContext(ctx, "pool cache set failed", slog.String("error", err.Error()))
		}
	}
	return info, nil
}
