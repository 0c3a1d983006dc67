package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"climbing-stats/internal/config"
	"climbing-stats/internal/export"
	"climbing-stats/internal/models"
	"climbing-stats/internal/workbook"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

// StatisticsPublisher receives the summary rows of a run
type StatisticsPublisher interface {
	UpsertStatisticsBatch(ctx context.Context, stats []*models.ClimbStatistics) error
}

// ReportService runs the whole report: load, prepare, aggregate per filter,
// write, and optionally publish
type ReportService struct {
	cfg       *config.Config
	prep      *PreparationService
	writer    *export.CSVWriter
	publisher StatisticsPublisher
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// FilterOutput describes one written summary file
type FilterOutput struct {
	Filter string
	Path   string
	Rows   []models.SummaryRow
}

// RunResult contains report statistics
type RunResult struct {
	RunID         string
	Preparation   *PreparationResult
	Outputs       []FilterOutput
	PublishedRows int
	Duration      time.Duration
}

// NewReportService creates a report service. publisher may be nil, in which
// case nothing is published.
func NewReportService(cfg *config.Config, publisher StatisticsPublisher, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ReportService {
	return &ReportService{
		cfg:       cfg,
		prep:      NewPreparationService(logger, metricsCollector),
		writer:    export.NewCSVWriter(),
		publisher: publisher,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Run executes one report. No output file is written unless loading,
// preparation and every aggregation succeed.
func (s *ReportService) Run(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, result.RunID)

	s.logger.Info(ctx, "[REPORT_START] Starting climbing report", logging.Fields{
		"workbook":   s.cfg.Input.WorkbookPath,
		"output_dir": s.cfg.Output.Dir,
		"filters":    len(s.cfg.Filters),
		"publish":    s.publisher != nil,
		"stage":      "INITIALIZATION",
	})

	rows, mappings, err := s.load(ctx)
	if err != nil {
		s.metrics.RecordReportError("load_error")
		return nil, err
	}

	records, prepResult, err := s.prep.Prepare(ctx, rows, mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare records: %w", err)
	}
	result.Preparation = prepResult

	summaries, err := s.aggregate(ctx, records)
	if err != nil {
		s.metrics.RecordReportError("aggregate_error")
		return nil, err
	}

	outputs, err := s.write(ctx, summaries)
	if err != nil {
		s.metrics.RecordReportError("write_error")
		return nil, err
	}
	result.Outputs = outputs

	if s.publisher != nil {
		published, err := s.publish(ctx, result.RunID, outputs)
		if err != nil {
			s.metrics.RecordReportError("publish_error")
			return nil, err
		}
		result.PublishedRows = published
	}

	result.Duration = time.Since(startTime)
	s.metrics.LastRunTimestamp.SetToCurrentTime()
	s.metrics.StageDuration.WithLabelValues("total").Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[REPORT_COMPLETE] Climbing report completed", logging.Fields{
		"prepared_records": prepResult.PreparedRecords,
		"files_written":    len(outputs),
		"published_rows":   result.PublishedRows,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			s.logger.Warn(ctx, "[REPORT_METRICS_WARNING] Failed to write metrics textfile", logging.Fields{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	return result, nil
}

// load reads the data and mapping sheets
func (s *ReportService) load(ctx context.Context) ([]models.RawClimbRow, []models.ActivityMapping, error) {
	timer := s.metrics.StageTimer("load")
	defer timer.ObserveDuration()

	reader, err := workbook.Open(s.cfg.Input.WorkbookPath)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	rows, err := reader.ReadClimbRows(s.cfg.Input.DataSheet)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordsLoadedTotal.WithLabelValues(s.cfg.Input.DataSheet).Add(float64(len(rows)))

	mappings, err := reader.ReadMappings(s.cfg.Input.MappingSheet)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordsLoadedTotal.WithLabelValues(s.cfg.Input.MappingSheet).Add(float64(len(mappings)))

	s.logger.Info(ctx, "[REPORT_LOADED] Workbook loaded", logging.Fields{
		"data_rows":    len(rows),
		"mapping_rows": len(mappings),
		"stage":        "LOAD",
	})

	return rows, mappings, nil
}

// aggregate runs the aggregator for every configured filter concurrently.
// The record slice is shared read-only between goroutines.
func (s *ReportService) aggregate(ctx context.Context, records []models.ClimbRecord) ([][]models.SummaryRow, error) {
	timer := s.metrics.StageTimer("aggregate")
	defer timer.ObserveDuration()

	summaries := make([][]models.SummaryRow, len(s.cfg.Filters))
	g, gctx := errgroup.WithContext(ctx)

	for i, filter := range s.cfg.Filters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = AggregateByYearBranch(records, filter.Type)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}

	for i, filter := range s.cfg.Filters {
		s.metrics.SummaryRows.WithLabelValues(filter.Type).Set(float64(len(summaries[i])))
		if len(summaries[i]) == 0 {
			s.logger.Warn(ctx, "[REPORT_EMPTY_FILTER] Filter produced no rows, writing header only", logging.Fields{
				"filter": filter.Type,
			})
		}
	}

	return summaries, nil
}

// write stores every summary under the output directory
func (s *ReportService) write(ctx context.Context, summaries [][]models.SummaryRow) ([]FilterOutput, error) {
	timer := s.metrics.StageTimer("write")
	defer timer.ObserveDuration()

	if err := os.MkdirAll(s.cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := make([]FilterOutput, 0, len(s.cfg.Filters))
	for i, filter := range s.cfg.Filters {
		path := filepath.Join(s.cfg.Output.Dir, filter.FileName)
		if err := s.writer.WriteSummary(path, summaries[i]); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}

		s.logger.Info(ctx, "[REPORT_FILE_WRITTEN] Summary written", logging.Fields{
			"filter": filter.Type,
			"path":   path,
			"rows":   len(summaries[i]),
			"stage":  "WRITE",
		})

		outputs = append(outputs, FilterOutput{
			Filter: filter.Type,
			Path:   path,
			Rows:   summaries[i],
		})
	}

	return outputs, nil
}

// publish upserts every output row under the run ID
func (s *ReportService) publish(ctx context.Context, runID string, outputs []FilterOutput) (int, error) {
	timer := s.metrics.StageTimer("publish")
	defer timer.ObserveDuration()

	var stats []*models.ClimbStatistics
	for _, out := range outputs {
		for _, row := range out.Rows {
			stats = append(stats, &models.ClimbStatistics{
				ActivityType: out.Filter,
				RunID:        runID,
				SummaryRow:   row,
			})
		}
	}

	if err := s.publisher.UpsertStatisticsBatch(ctx, stats); err != nil {
		return 0, fmt.Errorf("failed to publish statistics: %w", err)
	}

	s.logger.Info(ctx, "[REPORT_PUBLISHED] Statistics published", logging.Fields{
		"rows":  len(stats),
		"stage": "PUBLISH",
	})

	return len(stats), nil
}

// ErrorType classifies a Run error for exit reporting
func ErrorType(err error) string {
	var loadErr *models.LoadError
	var parseErr *models.ParseError
	switch {
	case errors.As(err, &loadErr):
		return "load_error"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal_error"
	}
}
