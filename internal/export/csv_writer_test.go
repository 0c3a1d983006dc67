package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbing-stats/internal/models"
)

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		0.57: "0.57",
		1.0:  "1.0",
		0.5:  "0.5",
		0.13: "0.13",
		0.1:  "0.1",
		2:    "2.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in), "FormatFloat(%v)", in)
	}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ice_climb_by_year_branch.csv")
	rows := []models.SummaryRow{
		{Year: 2020, Branch: "North", CountOfClimbs: 2, SumTotalRegisteredParticipants: 7, SumSuccessfulRegisteredParticipants: 4, SuccessRatio: 0.57},
		{Year: 2021, Branch: "Upper Valley, East", CountOfClimbs: 1, SumTotalRegisteredParticipants: 3, SumSuccessfulRegisteredParticipants: 3, SuccessRatio: 1},
	}

	require.NoError(t, NewCSVWriter().WriteSummary(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"year,branch,count_of_climbs,sum_total_registered_participants,sum_successful_registered_participants,success_ratio\n"+
			"2020,North,2,7,4,0.57\n"+
			"2021,\"Upper Valley, East\",1,3,3,1.0\n",
		string(data))
}

func TestWriteSummary_EmptyIsHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rock_by_year_branch.csv")

	require.NoError(t, NewCSVWriter().WriteSummary(path, []models.SummaryRow{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"year,branch,count_of_climbs,sum_total_registered_participants,sum_successful_registered_participants,success_ratio\n",
		string(data))
}

func TestWriteSummary_Idempotent(t *testing.T) {
	dir := t.TempDir()
	rows := []models.SummaryRow{
		{Year: 2019, Branch: "South", CountOfClimbs: 5, SumTotalRegisteredParticipants: 20, SumSuccessfulRegisteredParticipants: 9, SuccessRatio: 0.45},
	}

	w := NewCSVWriter()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, w.WriteSummary(first, rows))
	require.NoError(t, w.WriteSummary(second, rows))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteSummary_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, NewCSVWriter().WriteSummary(path, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriteSummary_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	assert.Error(t, NewCSVWriter().WriteSummary(path, nil))
}
