// Package workbook reads the climbing-trip workbook: a data sheet of trips
// and a mapping sheet from activity name to route type.
package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"climbing-stats/internal/models"
)

// Column names of the data sheet
const (
	ColActivity               = "activity"
	ColRoute                  = "route"
	ColStartDate              = "start_date"
	ColBranch                 = "branch"
	ColResult                 = "result"
	ColRegisteredParticipants = "registered_participants"
	ColType                   = "type"
)

var (
	dataColumns    = []string{ColActivity, ColRoute, ColStartDate, ColBranch, ColResult, ColRegisteredParticipants}
	mappingColumns = []string{ColActivity, ColType}
)

// Reader reads sheets from an open .xlsx workbook
type Reader struct {
	file *excelize.File
	path string
}

// Open opens the workbook at path. The caller must Close it.
func Open(path string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &models.LoadError{Kind: "workbook", Name: path, Err: err}
	}
	return &Reader{file: f, path: path}, nil
}

// Close releases the workbook
func (r *Reader) Close() error {
	return r.file.Close()
}

// Path returns the workbook path
func (r *Reader) Path() string {
	return r.path
}

// SheetNames lists the sheets in workbook order
func (r *Reader) SheetNames() []string {
	return r.file.GetSheetList()
}

// ReadClimbRows reads every trip row of the data sheet
func (r *Reader) ReadClimbRows(sheet string) ([]models.RawClimbRow, error) {
	t, err := r.readTable(sheet, dataColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]models.RawClimbRow, 0, len(t.rows))
	for i, cells := range t.rows {
		if isBlank(cells) {
			continue
		}
		rows = append(rows, models.RawClimbRow{
			Row:                    i + 2, // header is row 1
			Activity:               t.cell(cells, ColActivity),
			Route:                  t.cell(cells, ColRoute),
			StartDate:              t.cell(cells, ColStartDate),
			Branch:                 t.cell(cells, ColBranch),
			Result:                 t.cell(cells, ColResult),
			RegisteredParticipants: t.cell(cells, ColRegisteredParticipants),
		})
	}
	return rows, nil
}

// ReadMappings reads the activity to type mapping sheet
func (r *Reader) ReadMappings(sheet string) ([]models.ActivityMapping, error) {
	t, err := r.readTable(sheet, mappingColumns)
	if err != nil {
		return nil, err
	}

	mappings := make([]models.ActivityMapping, 0, len(t.rows))
	for _, cells := range t.rows {
		if isBlank(cells) {
			continue
		}
		mappings = append(mappings, models.ActivityMapping{
			Activity: t.cell(cells, ColActivity),
			Type:     t.cell(cells, ColType),
		})
	}
	return mappings, nil
}

// table is a sheet split into a header index and body rows
type table struct {
	index map[string]int
	rows  [][]string
}

// cell returns the named column of a row. excelize trims trailing empty
// cells, so short rows read as empty strings.
func (t *table) cell(cells []string, column string) string {
	i := t.index[column]
	if i >= len(cells) {
		return ""
	}
	return cells[i]
}

func (r *Reader) readTable(sheet string, required []string) (*table, error) {
	if !r.hasSheet(sheet) {
		return nil, &models.LoadError{
			Kind: "sheet",
			Name: sheet,
			Err:  fmt.Errorf("workbook %s has sheets %v", r.path, r.SheetNames()),
		}
	}

	rows, err := r.file.GetRows(sheet)
	if err != nil {
		return nil, &models.LoadError{Kind: "sheet", Name: sheet, Err: err}
	}

	if len(rows) == 0 {
		return nil, &models.LoadError{Kind: "column", Name: required[0], Err: fmt.Errorf("sheet %s is empty", sheet)}
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, &models.LoadError{
				Kind: "column",
				Name: col,
				Err:  fmt.Errorf("not found in sheet %s", sheet),
			}
		}
	}

	return &table{index: index, rows: rows[1:]}, nil
}

func (r *Reader) hasSheet(sheet string) bool {
	for _, name := range r.file.GetSheetList() {
		if name == sheet {
			return true
		}
	}
	return false
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
