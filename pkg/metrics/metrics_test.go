package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide
	a := NewCollector("climbstats")
	b := NewCollector("climbstats")

	a.RecordsDroppedTotal.WithLabelValues("unmapped").Add(2)
	b.RecordsDroppedTotal.WithLabelValues("unmapped").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.RecordsDroppedTotal.WithLabelValues("unmapped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.RecordsDroppedTotal.WithLabelValues("unmapped")))
}

func TestCollector_Recorders(t *testing.T) {
	c := NewCollector("climbstats")

	c.RecordAPIRequest("/api/climbs/stats", "GET", "200")
	c.RecordAPIError("bad_request", "/api/climbs/stats")
	c.RecordReportError("load_error")
	c.RecordDBError("exec_error")
	c.UpdateDBConnectionPool(1, 2, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/climbs/stats", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("bad_request", "/api/climbs/stats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ReportErrorsTotal.WithLabelValues("load_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBErrorsTotal.WithLabelValues("exec_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))
}

func TestCollector_StageTimer(t *testing.T) {
	c := NewCollector("climbstats")

	d := c.StageTimer("aggregate").ObserveDuration()
	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StageDuration))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector("climbstats")
	c.SummaryRows.WithLabelValues("Ice").Set(4)

	path := filepath.Join(t.TempDir(), "climbstats.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `climbstats_summary_rows{activity_type="Ice"} 4`))
}
