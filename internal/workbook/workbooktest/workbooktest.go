// Package workbooktest builds .xlsx fixtures for tests.
package workbooktest

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named sheet; the first row is normally the header
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// DataHeader is the header row of a well-formed data sheet
var DataHeader = []interface{}{"activity", "route", "start_date", "branch", "result", "registered_participants"}

// MappingHeader is the header row of a well-formed mapping sheet
var MappingHeader = []interface{}{"activity", "type"}

// Write saves the sheets as a workbook in a temp dir and returns its path
func Write(t testing.TB, sheets ...Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %s: %v", s.Name, err)
		}

		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			row := row
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				t.Fatalf("set row %d of %s: %v", r+1, s.Name, err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "trips.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// Trips is shorthand for a data sheet with the standard header
func Trips(rows ...[]interface{}) Sheet {
	return Sheet{Name: "data", Rows: append([][]interface{}{DataHeader}, rows...)}
}

// Mapping is shorthand for a mapping sheet with the standard header
func Mapping(rows ...[]interface{}) Sheet {
	return Sheet{Name: "mapping", Rows: append([][]interface{}{MappingHeader}, rows...)}
}
