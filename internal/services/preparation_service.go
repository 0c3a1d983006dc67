package services

import (
	"context"
	"time"

	"climbing-stats/internal/models"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

// PreparationService joins raw trip rows with their activity type and builds
// the deduplicated record table the aggregator works on
type PreparationService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// PreparationResult contains preparation statistics
type PreparationResult struct {
	InputRows       int
	UnmappedRows    int
	DuplicateRows   int
	PreparedRecords int
	Duration        time.Duration
}

// NewPreparationService creates a new preparation service
func NewPreparationService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PreparationService {
	return &PreparationService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

type routeDay struct {
	route string
	date  time.Time
}

// Prepare inner-joins rows against mappings on activity, parses dates and
// participant counts, and keeps the first row of every (route, start_date).
// Any ParseError aborts preparation.
func (s *PreparationService) Prepare(ctx context.Context, rows []models.RawClimbRow, mappings []models.ActivityMapping) ([]models.ClimbRecord, *PreparationResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[PREPARE_START] Preparing climb records", logging.Fields{
		"input_rows": len(rows),
		"mappings":   len(mappings),
		"stage":      "PREPARE",
	})

	typeOf := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if _, exists := typeOf[m.Activity]; exists {
			s.logger.Warn(ctx, "[PREPARE_MAPPING_DUPLICATE] Activity mapped more than once, keeping first", logging.Fields{
				"activity": m.Activity,
				"ignored":  m.Type,
			})
			continue
		}
		typeOf[m.Activity] = m.Type
	}

	result := &PreparationResult{InputRows: len(rows)}
	records := make([]models.ClimbRecord, 0, len(rows))
	seen := make(map[routeDay]struct{}, len(rows))

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		row := &rows[i]
		activityType, ok := typeOf[row.Activity]
		if !ok {
			result.UnmappedRows++
			continue
		}

		record, err := row.ToClimbRecord(activityType)
		if err != nil {
			s.metrics.RecordReportError("parse_error")
			return nil, nil, err
		}

		key := routeDay{route: record.Route, date: record.StartDate}
		if _, dup := seen[key]; dup {
			result.DuplicateRows++
			s.logger.Debug(ctx, "[PREPARE_DUPLICATE] Dropping duplicate trip", logging.Fields{
				"row":        row.Row,
				"route":      record.Route,
				"start_date": record.StartDate.Format(models.StartDateLayout),
			})
			continue
		}
		seen[key] = struct{}{}

		records = append(records, *record)
	}

	result.PreparedRecords = len(records)
	result.Duration = time.Since(startTime)

	s.metrics.RecordsDroppedTotal.WithLabelValues("unmapped").Add(float64(result.UnmappedRows))
	s.metrics.RecordsDroppedTotal.WithLabelValues("duplicate").Add(float64(result.DuplicateRows))
	s.metrics.RecordsPrepared.Set(float64(result.PreparedRecords))
	s.metrics.StageDuration.WithLabelValues("prepare").Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[PREPARE_COMPLETE] Climb records prepared", logging.Fields{
		"input_rows":       result.InputRows,
		"unmapped_rows":    result.UnmappedRows,
		"duplicate_rows":   result.DuplicateRows,
		"prepared_records": result.PreparedRecords,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "PREPARE",
	})

	return records, result, nil
}
