package services

import (
	"context"

	"climbing-stats/internal/models"
	"climbing-stats/internal/repository"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

// StatisticsService serves published climb statistics
type StatisticsService struct {
	repo    repository.ClimbStatsRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.ClimbStatsRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetStatistics retrieves statistics with filtering
func (s *StatisticsService) GetStatistics(ctx context.Context, filter repository.StatisticsFilter) ([]*models.ClimbStatistics, int, error) {
	stats, total, err := s.repo.GetStatistics(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Debug(ctx, "[STATS_QUERY] Statistics retrieved", logging.Fields{
		"returned": len(stats),
		"total":    total,
	})
	return stats, total, nil
}

// GetStatistic retrieves a single (activity type, year, branch) row
func (s *StatisticsService) GetStatistic(ctx context.Context, activityType string, year int, branch string) (*models.ClimbStatistics, error) {
	return s.repo.GetStatistic(ctx, activityType, year, branch)
}

// ListActivityTypes returns the published activity types
func (s *StatisticsService) ListActivityTypes(ctx context.Context) ([]string, error) {
	return s.repo.ListActivityTypes(ctx)
}

// HealthCheck checks the backing store
func (s *StatisticsService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
