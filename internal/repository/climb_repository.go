package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"climbing-stats/internal/models"
	"climbing-stats/pkg/database"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

// ClimbStatsRepository provides data access for published summary statistics
type ClimbStatsRepository interface {
	UpsertStatisticsBatch(ctx context.Context, stats []*models.ClimbStatistics) error
	GetStatistics(ctx context.Context, filter StatisticsFilter) ([]*models.ClimbStatistics, int, error)
	GetStatistic(ctx context.Context, activityType string, year int, branch string) (*models.ClimbStatistics, error)
	ListActivityTypes(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// StatisticsFilter defines filters for querying statistics
type StatisticsFilter struct {
	ActivityType *string
	Branch       *string
	Year         *int
	Limit        int
	Offset       int
}

const statisticsColumns = `id, activity_type, run_id, year, branch,
	       count_of_climbs, sum_total_registered_participants,
	       sum_successful_registered_participants, success_ratio,
	       created_at, updated_at`

const upsertStatisticsQuery = `
	INSERT INTO climb_statistics (
		activity_type, run_id, year, branch,
		count_of_climbs, sum_total_registered_participants,
		sum_successful_registered_participants, success_ratio,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (activity_type, year, branch) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		count_of_climbs = EXCLUDED.count_of_climbs,
		sum_total_registered_participants = EXCLUDED.sum_total_registered_participants,
		sum_successful_registered_participants = EXCLUDED.sum_successful_registered_participants,
		success_ratio = EXCLUDED.success_ratio,
		updated_at = EXCLUDED.updated_at
`

// climbStatsRepository implements ClimbStatsRepository on PostgreSQL
type climbStatsRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClimbStatsRepository creates a new statistics repository
func NewClimbStatsRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ClimbStatsRepository {
	return &climbStatsRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertStatisticsBatch writes all rows in a single transaction, replacing
// rows with the same (activity_type, year, branch)
func (r *climbStatsRepository) UpsertStatisticsBatch(ctx context.Context, stats []*models.ClimbStatistics) error {
	if len(stats) == 0 {
		return nil
	}

	start := time.Now()
	err := r.db.WithTx(ctx, "upsert_statistics", func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, upsertStatisticsQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, s := range stats {
			if s.CreatedAt.IsZero() {
				s.CreatedAt = now
			}
			s.UpdatedAt = now

			_, err := stmt.ExecContext(ctx,
				s.ActivityType,
				s.RunID,
				s.Year,
				s.Branch,
				s.CountOfClimbs,
				s.SumTotalRegisteredParticipants,
				s.SumSuccessfulRegisteredParticipants,
				s.SuccessRatio,
				s.CreatedAt,
				s.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert %s %d %s: %w", s.ActivityType, s.Year, s.Branch, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.PublishedRows.Add(float64(len(stats)))
	r.logger.Debug(ctx, "[REPO_UPSERT_STATS] Batch upsert completed", logging.Fields{
		"count":       len(stats),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// GetStatistics retrieves statistics with filtering and pagination
func (r *climbStatsRepository) GetStatistics(ctx context.Context, filter StatisticsFilter) ([]*models.ClimbStatistics, int, error) {
	countQuery, query, args := buildStatisticsQuery(filter)

	var totalCount int
	if err := r.db.GetContext(ctx, "count_statistics", &totalCount, countQuery, args[:len(args)-2]...); err != nil {
		return nil, 0, fmt.Errorf("failed to count statistics: %w", err)
	}

	statistics := make([]*models.ClimbStatistics, 0)
	if err := r.db.SelectContext(ctx, "get_statistics", &statistics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get statistics: %w", err)
	}

	return statistics, totalCount, nil
}

// buildStatisticsQuery returns the count query, the page query and the page
// query arguments. The count query takes all but the last two arguments.
func buildStatisticsQuery(filter StatisticsFilter) (string, string, []interface{}) {
	var where []string
	args := []interface{}{}

	if filter.ActivityType != nil {
		args = append(args, *filter.ActivityType)
		where = append(where, fmt.Sprintf("activity_type = $%d", len(args)))
	}
	if filter.Branch != nil {
		args = append(args, *filter.Branch)
		where = append(where, fmt.Sprintf("branch = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		where = append(where, fmt.Sprintf("year = $%d", len(args)))
	}

	from := " FROM climb_statistics"
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	countQuery := "SELECT COUNT(*)" + from
	query := "SELECT " + statisticsColumns + from +
		" ORDER BY activity_type, branch, year" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	return countQuery, query, args
}

// GetStatistic retrieves the row of one (activity_type, year, branch)
func (r *climbStatsRepository) GetStatistic(ctx context.Context, activityType string, year int, branch string) (*models.ClimbStatistics, error) {
	query := "SELECT " + statisticsColumns + `
		FROM climb_statistics
		WHERE activity_type = $1 AND year = $2 AND branch = $3`

	var stat models.ClimbStatistics
	err := r.db.GetContext(ctx, "get_statistic", &stat, query, activityType, year, branch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "climb_statistics",
			ID:       fmt.Sprintf("%s:%d:%s", activityType, year, branch),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statistic: %w", err)
	}

	return &stat, nil
}

// ListActivityTypes returns the distinct activity types that have been published
func (r *climbStatsRepository) ListActivityTypes(ctx context.Context) ([]string, error) {
	types := make([]string, 0)
	err := r.db.SelectContext(ctx, "list_activity_types", &types,
		"SELECT DISTINCT activity_type FROM climb_statistics ORDER BY activity_type")
	if err != nil {
		return nil, fmt.Errorf("failed to list activity types: %w", err)
	}
	return types, nil
}

// HealthCheck performs a repository health check
func (r *climbStatsRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
