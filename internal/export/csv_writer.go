package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"climbing-stats/internal/models"
)

// SummaryHeader is the fixed column order of every summary file
var SummaryHeader = []string{
	"year",
	"branch",
	"count_of_climbs",
	"sum_total_registered_participants",
	"sum_successful_registered_participants",
	"success_ratio",
}

// CSVWriter writes summary tables as CSV files
type CSVWriter struct {
	// FileMode is applied to written files; zero means 0644
	FileMode os.FileMode
}

// NewCSVWriter creates a writer with default permissions
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{FileMode: 0644}
}

// WriteSummary writes rows to path. The file is replaced atomically so a
// reader never sees a partial table. An empty rows slice gives a header-only file.
func (w *CSVWriter) WriteSummary(path string, rows []models.SummaryRow) error {
	data, err := EncodeSummary(rows)
	if err != nil {
		return err
	}

	mode := w.FileMode
	if mode == 0 {
		mode = 0644
	}

	// Write atomically via temp file in the same directory
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// EncodeSummary renders rows in CSV form, header first
func EncodeSummary(rows []models.SummaryRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(SummaryHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		record := []string{
			strconv.Itoa(row.Year),
			row.Branch,
			strconv.Itoa(row.CountOfClimbs),
			strconv.Itoa(row.SumTotalRegisteredParticipants),
			strconv.Itoa(row.SumSuccessfulRegisteredParticipants),
			FormatFloat(row.SuccessRatio),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// FormatFloat renders f in its shortest form, keeping a decimal point on
// whole numbers ("1.0", "0.57")
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
