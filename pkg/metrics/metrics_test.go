package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	return m.GetCounter().GetValue()
}

func TestInstrumentCountsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0644))
	src, ok := format.TryLoad(path)
	require.True(t, ok)

	m := treemodel.New(nil, nil)
	stop := Instrument(m)

	before := value(t, modelEventsTotal.WithLabelValues("inserted"))
	require.NoError(t, m.Import(src))
	assert.Equal(t, before+1, value(t, modelEventsTotal.WithLabelValues("inserted")))

	stop()
	require.NoError(t, m.Replace())
	assert.Equal(t, before+1, value(t, modelEventsTotal.WithLabelValues("inserted")))
}

func TestRecordersAndHandler(t *testing.T) {
	RecordRefresh(3, 10*time.Millisecond)
	SetDirtyNodes(2)
	RecordWatchEvent(false)
	assert.Equal(t, float64(2), value(t, dirtyNodes))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "dtree_dirty_nodes 2")
	assert.Contains(t, rec.Body.String(), `dtree_watch_events_total{result="ignored"}`)
}
