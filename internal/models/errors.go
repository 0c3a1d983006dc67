package models

import "fmt"

// LoadError represents a missing workbook, sheet or column.
// It is fatal: the run aborts before any output is written.
type LoadError struct {
	Kind string // "workbook", "sheet" or "column"
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s %q: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("failed to load %s %q", e.Kind, e.Name)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as a broken input file does not fix itself
func (e *LoadError) IsTransient() bool {
	return false
}

// ParseError represents a cell value that could not be converted
type ParseError struct {
	Field   string
	Value   string
	Row     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// IsTransient returns false as parse errors are permanent
func (e *ParseError) IsTransient() bool {
	return false
}
