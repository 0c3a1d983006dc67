package services

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbing-stats/internal/models"
)

func climb(year int, branch, typ, result string, participants int) models.ClimbRecord {
	return models.ClimbRecord{
		Year:                    year,
		Branch:                  branch,
		Type:                    typ,
		Result:                  result,
		RegisteredParticipants:  participants,
		ParticipantsPlusLeaders: participants + 1,
	}
}

func TestAggregateByYearBranch_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		records []models.ClimbRecord
		filter  string
		want    []models.SummaryRow
	}{
		{
			name: "mixed results in one group",
			records: []models.ClimbRecord{
				climb(2020, "North", "Ice", "Successful", 3),
				climb(2020, "North", "Ice", "Failed", 2),
			},
			filter: "Ice",
			want: []models.SummaryRow{{
				Year:                                2020,
				Branch:                              "North",
				CountOfClimbs:                       2,
				SumTotalRegisteredParticipants:      7,
				SumSuccessfulRegisteredParticipants: 4,
				SuccessRatio:                        0.57,
			}},
		},
		{
			name: "group without successes is dropped",
			records: []models.ClimbRecord{
				climb(2020, "North", "Ice", "Failed", 3),
				climb(2020, "North", "Ice", "Failed", 2),
			},
			filter: "Ice",
			want:   []models.SummaryRow{},
		},
		{
			name: "two branches sorted by name",
			records: []models.ClimbRecord{
				climb(2021, "South", "Rock", "Successful", 2),
				climb(2021, "North", "Rock", "Successful", 1),
			},
			filter: "Rock",
			want: []models.SummaryRow{
				{Year: 2021, Branch: "North", CountOfClimbs: 1, SumTotalRegisteredParticipants: 2, SumSuccessfulRegisteredParticipants: 2, SuccessRatio: 1.0},
				{Year: 2021, Branch: "South", CountOfClimbs: 1, SumTotalRegisteredParticipants: 3, SumSuccessfulRegisteredParticipants: 3, SuccessRatio: 1.0},
			},
		},
		{
			name: "filter is exact and case sensitive",
			records: []models.ClimbRecord{
				climb(2020, "North", "Ice cragging", "Successful", 1),
				climb(2020, "North", "ice", "Successful", 1),
			},
			filter: "Ice",
			want:   []models.SummaryRow{},
		},
		{
			name: "result match is exact",
			records: []models.ClimbRecord{
				climb(2020, "North", "Ice", "successful", 1),
				climb(2020, "North", "Ice", "Successful ", 1),
			},
			filter: "Ice",
			want:   []models.SummaryRow{},
		},
		{
			name:    "no records",
			records: nil,
			filter:  "Rock",
			want:    []models.SummaryRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateByYearBranch(tt.records, tt.filter)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateByYearBranch_SortsBranchThenYear(t *testing.T) {
	records := []models.ClimbRecord{
		climb(2022, "B", "Ice", "Successful", 0),
		climb(2019, "B", "Ice", "Successful", 0),
		climb(2023, "A", "Ice", "Successful", 0),
		climb(2018, "C", "Ice", "Successful", 0),
		climb(2020, "A", "Ice", "Successful", 0),
	}

	got := AggregateByYearBranch(records, "Ice")

	var keys []string
	for _, r := range got {
		keys = append(keys, r.Branch+"/"+strconv.Itoa(r.Year))
	}
	assert.Equal(t, []string{"A/2020", "A/2023", "B/2019", "B/2022", "C/2018"}, keys)
}

func TestAggregateByYearBranch_RoundsHalfAwayFromZero(t *testing.T) {
	// 1 successful participant slot out of 8 is 0.125
	records := []models.ClimbRecord{
		climb(2020, "North", "Ice", "Successful", 0),
		climb(2020, "North", "Ice", "Failed", 6),
	}

	got := AggregateByYearBranch(records, "Ice")
	require.Len(t, got, 1)
	assert.Equal(t, 0.13, got[0].SuccessRatio)
}

// TestAggregateByYearBranch_Properties checks the grouping invariants on
// randomly generated tables.
func TestAggregateByYearBranch_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	branches := []string{"North", "South", "East", "West"}
	types := []string{"Ice", "Ice cragging", "Rock"}
	results := []string{"Successful", "Failed", "Cancelled"}

	for iter := 0; iter < 50; iter++ {
		n := rng.Intn(200)
		records := make([]models.ClimbRecord, 0, n)
		for i := 0; i < n; i++ {
			records = append(records, climb(
				2013+rng.Intn(10),
				branches[rng.Intn(len(branches))],
				types[rng.Intn(len(types))],
				results[rng.Intn(len(results))],
				rng.Intn(12),
			))
		}

		for _, filter := range types {
			got := AggregateByYearBranch(records, filter)

			type key struct {
				year   int
				branch string
			}
			wantCount := map[key]int{}
			wantTotal := map[key]int{}
			wantSucc := map[key]int{}
			for _, r := range records {
				if r.Type != filter {
					continue
				}
				k := key{r.Year, r.Branch}
				wantCount[k]++
				wantTotal[k] += r.RegisteredParticipants + 1
				if r.Result == "Successful" {
					wantSucc[k] += r.RegisteredParticipants + 1
				}
			}

			seen := map[key]bool{}
			for i, row := range got {
				k := key{row.Year, row.Branch}
				require.False(t, seen[k], "duplicate group %v", k)
				seen[k] = true

				assert.Equal(t, wantCount[k], row.CountOfClimbs)
				assert.Equal(t, wantTotal[k], row.SumTotalRegisteredParticipants)
				assert.Equal(t, wantSucc[k], row.SumSuccessfulRegisteredParticipants)
				assert.LessOrEqual(t, row.SumSuccessfulRegisteredParticipants, row.SumTotalRegisteredParticipants)

				assert.Greater(t, row.SuccessRatio, 0.0)
				assert.LessOrEqual(t, row.SuccessRatio, 1.0)
				assert.Equal(t, math.Round(row.SuccessRatio*100)/100, row.SuccessRatio)

				if i > 0 {
					prev := got[i-1]
					ordered := prev.Branch < row.Branch || (prev.Branch == row.Branch && prev.Year < row.Year)
					assert.True(t, ordered, "rows %d and %d out of order", i-1, i)
				}
			}

			for k := range wantCount {
				if wantSucc[k] == 0 {
					assert.False(t, seen[k], "zero-success group %v emitted", k)
				} else {
					assert.True(t, seen[k], "group %v missing", k)
				}
			}

			assert.Equal(t, got, AggregateByYearBranch(records, filter))
		}
	}
}
