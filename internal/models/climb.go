package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// StartDateLayout is the format of the start_date column in the data sheet
const StartDateLayout = "2006-01-02"

// ResultSuccessful is the result value that counts a climb as successful
const ResultSuccessful = "Successful"

// RawClimbRow represents a single row of the data sheet as read from the workbook.
// Used during preparation, before the activity type is known.
type RawClimbRow struct {
	Row                    int // 1-based sheet row, for error reporting
	Activity               string
	Route                  string
	StartDate              string
	Branch                 string
	Result                 string
	RegisteredParticipants string
}

// ActivityMapping maps a raw activity name onto a route type
type ActivityMapping struct {
	Activity string
	Type     string
}

// ClimbRecord is one prepared trip: joined with its type, dated and deduplicated
type ClimbRecord struct {
	Activity                string    `json:"activity"`
	Route                   string    `json:"route"`
	StartDate               time.Time `json:"start_date"`
	Year                    int       `json:"year"`
	Branch                  string    `json:"branch"`
	Type                    string    `json:"type"`
	Result                  string    `json:"result"`
	RegisteredParticipants  int       `json:"registered_participants"`
	ParticipantsPlusLeaders int       `json:"participants_plus_leaders"`
}

// Successful reports whether the trip result counts towards the success sums
func (c ClimbRecord) Successful() bool {
	return c.Result == ResultSuccessful
}

// SummaryRow is the per (year, branch) output of the aggregator
type SummaryRow struct {
	Year                                int     `json:"year" db:"year"`
	Branch                              string  `json:"branch" db:"branch"`
	CountOfClimbs                       int     `json:"count_of_climbs" db:"count_of_climbs"`
	SumTotalRegisteredParticipants      int     `json:"sum_total_registered_participants" db:"sum_total_registered_participants"`
	SumSuccessfulRegisteredParticipants int     `json:"sum_successful_registered_participants" db:"sum_successful_registered_participants"`
	SuccessRatio                        float64 `json:"success_ratio" db:"success_ratio"`
}

// ClimbStatistics is a summary row as published to the statistics store
type ClimbStatistics struct {
	ID           int64  `json:"id" db:"id"`
	ActivityType string `json:"activity_type" db:"activity_type"`
	RunID        string `json:"run_id" db:"run_id"`
	SummaryRow
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ToClimbRecord converts a raw row into a ClimbRecord of the given activity type.
// The start date must match StartDateLayout; there is no fallback format.
func (r *RawClimbRow) ToClimbRecord(activityType string) (*ClimbRecord, error) {
	startDate, err := time.Parse(StartDateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return nil, &ParseError{
			Field:   "start_date",
			Value:   r.StartDate,
			Row:     r.Row,
			Message: "invalid date format, expected YYYY-MM-DD",
		}
	}

	participants, err := parseParticipants(r.RegisteredParticipants)
	if err != nil {
		return nil, &ParseError{
			Field:   "registered_participants",
			Value:   r.RegisteredParticipants,
			Row:     r.Row,
			Message: err.Error(),
		}
	}

	return &ClimbRecord{
		Activity:                r.Activity,
		Route:                   r.Route,
		StartDate:               startDate,
		Year:                    startDate.Year(),
		Branch:                  r.Branch,
		Type:                    activityType,
		Result:                  r.Result,
		RegisteredParticipants:  participants,
		ParticipantsPlusLeaders: participants + 1,
	}, nil
}

// parseParticipants accepts whole numbers, including the "3.0" form that
// numeric spreadsheet cells are sometimes rendered as
func parseParticipants(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("registered participants is empty")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("registered participants must be non-negative, got %d", n)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("registered participants must be a whole number")
	}
	if f < 0 {
		return 0, fmt.Errorf("registered participants must be non-negative, got %v", f)
	}
	return int(f), nil
}
