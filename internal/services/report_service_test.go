package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbing-stats/internal/config"
	"climbing-stats/internal/models"
	"climbing-stats/internal/workbook/workbooktest"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

type fakePublisher struct {
	stats []*models.ClimbStatistics
	err   error
}

func (f *fakePublisher) UpsertStatisticsBatch(ctx context.Context, stats []*models.ClimbStatistics) error {
	if f.err != nil {
		return f.err
	}
	f.stats = append(f.stats, stats...)
	return nil
}

func sampleWorkbook(t *testing.T) string {
	return workbooktest.Write(t,
		workbooktest.Trips(
			[]interface{}{"Ice climbing", "Polar Circus", "2020-01-15", "North", "Successful", 3},
			[]interface{}{"Ice climbing", "Weeping Wall", "2020-02-01", "North", "Failed", 2},
			// duplicate of the first trip
			[]interface{}{"Ice climbing", "Polar Circus", "2020-01-15", "North", "Failed", 7},
			[]interface{}{"Ice climbing", "Louise Falls", "2021-01-10", "South", "Failed", 4},
			[]interface{}{"Rock climbing", "Cobra", "2021-07-04", "South", "Successful", 2},
			[]interface{}{"Rock climbing", "Snake Dike", "2021-08-04", "North", "Successful", 1},
			[]interface{}{"Hiking", "Skyline", "2021-08-05", "North", "Successful", 9},
		),
		workbooktest.Mapping(
			[]interface{}{"Ice climbing", "Ice"},
			[]interface{}{"Ice cragging day", "Ice cragging"},
			[]interface{}{"Rock climbing", "Rock"},
		),
	)
}

func testConfig(t *testing.T, workbookPath string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Input.WorkbookPath = workbookPath
	cfg.Output.Dir = filepath.Join(t.TempDir(), "result")
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const header = "year,branch,count_of_climbs,sum_total_registered_participants,sum_successful_registered_participants,success_ratio\n"

func TestReportService_Run(t *testing.T) {
	cfg := testConfig(t, sampleWorkbook(t))
	m := metrics.NewCollector("climbstats")
	svc := NewReportService(cfg, nil, logging.NewNopLogger(), m)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 7, result.Preparation.InputRows)
	assert.Equal(t, 1, result.Preparation.UnmappedRows)
	assert.Equal(t, 1, result.Preparation.DuplicateRows)
	assert.Equal(t, 5, result.Preparation.PreparedRecords)
	require.Len(t, result.Outputs, 3)

	assert.Equal(t,
		header+"2020,North,2,7,4,0.57\n",
		readFile(t, filepath.Join(cfg.Output.Dir, "ice_climb_by_year_branch.csv")))
	assert.Equal(t,
		header,
		readFile(t, filepath.Join(cfg.Output.Dir, "ice_cragging_by_year_branch.csv")))
	assert.Equal(t,
		header+"2021,North,1,2,2,1.0\n2021,South,1,3,3,1.0\n",
		readFile(t, filepath.Join(cfg.Output.Dir, "rock_by_year_branch.csv")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SummaryRows.WithLabelValues("Ice")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SummaryRows.WithLabelValues("Rock")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RecordsLoadedTotal.WithLabelValues("data")))
}

func TestReportService_RunIsRepeatable(t *testing.T) {
	cfg := testConfig(t, sampleWorkbook(t))
	svc := NewReportService(cfg, nil, logging.NewNopLogger(), metrics.NewCollector("climbstats"))

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	before := readFile(t, first.Outputs[2].Path)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, before, readFile(t, second.Outputs[2].Path))
}

func TestReportService_Publish(t *testing.T) {
	cfg := testConfig(t, sampleWorkbook(t))
	pub := &fakePublisher{}
	svc := NewReportService(cfg, pub, logging.NewNopLogger(), metrics.NewCollector("climbstats"))

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.PublishedRows)
	require.Len(t, pub.stats, 3)
	for _, s := range pub.stats {
		assert.Equal(t, result.RunID, s.RunID)
	}
	assert.Equal(t, "Ice", pub.stats[0].ActivityType)
	assert.Equal(t, "Rock", pub.stats[1].ActivityType)
	assert.Equal(t, "North", pub.stats[1].Branch)
}

func TestReportService_PublishError(t *testing.T) {
	cfg := testConfig(t, sampleWorkbook(t))
	m := metrics.NewCollector("climbstats")
	svc := NewReportService(cfg, &fakePublisher{err: errors.New("connection refused")}, logging.NewNopLogger(), m)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportErrorsTotal.WithLabelValues("publish_error")))
}

func TestReportService_FatalErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		workbook func(t *testing.T) string
		wantType string
	}{
		{
			name: "missing workbook",
			workbook: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			wantType: "load_error",
		},
		{
			name: "missing mapping sheet",
			workbook: func(t *testing.T) string {
				return workbooktest.Write(t, workbooktest.Trips())
			},
			wantType: "load_error",
		},
		{
			name: "bad start date",
			workbook: func(t *testing.T) string {
				return workbooktest.Write(t,
					workbooktest.Trips(
						[]interface{}{"Ice climbing", "Polar Circus", "2020-01-15", "North", "Successful", 3},
						[]interface{}{"Ice climbing", "Weeping Wall", "01/02/2020", "North", "Failed", 2},
					),
					workbooktest.Mapping([]interface{}{"Ice climbing", "Ice"}),
				)
			},
			wantType: "parse_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.workbook(t))
			m := metrics.NewCollector("climbstats")
			svc := NewReportService(cfg, nil, logging.NewNopLogger(), m)

			result, err := svc.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantType, ErrorType(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportErrorsTotal.WithLabelValues(tt.wantType)))

			_, statErr := os.Stat(cfg.Output.Dir)
			assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
		})
	}
}

func TestReportService_MetricsTextfile(t *testing.T) {
	cfg := testConfig(t, sampleWorkbook(t))
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "climbstats.prom")
	svc := NewReportService(cfg, nil, logging.NewNopLogger(), metrics.NewCollector("climbstats"))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, readFile(t, cfg.Metrics.Textfile), `climbstats_records_prepared 5`)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "load_error", ErrorType(&models.LoadError{Kind: "sheet", Name: "data"}))
	assert.Equal(t, "parse_error", ErrorType(errors.Join(errors.New("wrap"), &models.ParseError{Field: "start_date"})))
	assert.Equal(t, "cancelled", ErrorType(context.Canceled))
	assert.Equal(t, "internal_error", ErrorType(errors.New("boom")))
}
