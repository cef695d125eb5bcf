package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/models"
)

// StatsService keeps the per-status counters the consoles display. Local
// counts are recomputed from the console snapshot on every read; platform
// aggregates come from the remote stats endpoint through a short-lived Redis
// cache that every mutation path invalidates.
type StatsService struct {
	gateway gateway.Service
	cache   *CacheService
	logger  *zap.Logger
}

// NewStatsService constructs the stats aggregator.
func NewStatsService(gw gateway.Service, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{gateway: gw, cache: cache, logger: logger}
}

// CountByStatus tallies records per status, seeding every status the
// descriptor knows about so empty buckets still report zero.
func CountByStatus(records []models.Record, desc models.KindDescriptor) map[models.Status]int {
	counts := make(map[models.Status]int, len(desc.Statuses))
	for _, status := range desc.Statuses {
		counts[status] = 0
	}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

// Platform returns the remote aggregates for the kind, served from cache when
// fresh. The second return value reports whether the cache was hit.
func (s *StatsService) Platform(ctx context.Context, kind models.Kind) (map[string]int, bool, error) {
	key := statsKey(kind)

	var cached map[string]int
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	stats, err := s.gateway.GetStats(ctx, kind)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, stats, 0); err != nil {
		s.logger.Warn("failed to cache platform stats", zap.String("kind", string(kind)), zap.Error(err))
	}
	return stats, false, nil
}

// Invalidate drops the cached aggregates for the kind. Transition, bulk, and
// import paths call this after every successful mutation.
func (s *StatsService) Invalidate(ctx context.Context, kind models.Kind) error {
	return s.cache.Invalidate(ctx, statsKey(kind))
}

func statsKey(kind models.Kind) string {
	return fmt.Sprintf("stats:%s", kind)
}
