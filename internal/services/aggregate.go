package services

import (
	"math"
	"sort"

	"climbing-stats/internal/models"
)

// yearBranch is the grouping key of the summary table
type yearBranch struct {
	year   int
	branch string
}

type groupTotals struct {
	count      int
	total      int
	successful int
	hasSuccess bool
}

// AggregateByYearBranch summarises the records of one activity type per
// (year, branch). Groups without a single successful climb are left out of the
// result. Rows are ordered by branch, then year.
func AggregateByYearBranch(records []models.ClimbRecord, filter string) []models.SummaryRow {
	groups := make(map[yearBranch]*groupTotals)

	for i := range records {
		rec := &records[i]
		if rec.Type != filter {
			continue
		}

		key := yearBranch{year: rec.Year, branch: rec.Branch}
		g, ok := groups[key]
		if !ok {
			g = &groupTotals{}
			groups[key] = g
		}

		g.count++
		g.total += rec.ParticipantsPlusLeaders
		if rec.Successful() {
			g.successful += rec.ParticipantsPlusLeaders
			g.hasSuccess = true
		}
	}

	rows := make([]models.SummaryRow, 0, len(groups))
	for key, g := range groups {
		// inner join with the successful subset
		if !g.hasSuccess {
			continue
		}
		rows = append(rows, models.SummaryRow{
			Year:                                key.year,
			Branch:                              key.branch,
			CountOfClimbs:                       g.count,
			SumTotalRegisteredParticipants:      g.total,
			SumSuccessfulRegisteredParticipants: g.successful,
			SuccessRatio:                        roundRatio(g.successful, g.total),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Branch != rows[j].Branch {
			return rows[i].Branch < rows[j].Branch
		}
		return rows[i].Year < rows[j].Year
	})

	return rows
}

// roundRatio rounds successful/total to two decimals, half away from zero
func roundRatio(successful, total int) float64 {
	return math.Round(float64(successful)/float64(total)*100) / 100
}
