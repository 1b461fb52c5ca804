// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the summed counter or gauge values of a metric family.
func gathered(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				sum += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				sum += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				sum += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		return sum
	}
	return 0
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("update", time.Millisecond, true)
		m.RecordSearch("symbol", 3)
		m.RecordNavigation(false)
		m.RecordHighlights(4)
		m.RecordRequest("GET /ws", 200, time.Millisecond)
		m.RecordPropagated(2)
		m.RecordLoad(10)
		m.RecordWSConnection(1)
	})
}

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordMutation("update", time.Millisecond, true)
	m.RecordMutation("update", time.Millisecond, false)
	m.RecordSearch("symbol", 3)
	m.RecordSearch("text", -1)
	m.RecordPropagated(2)
	m.RecordPropagated(0)
	m.RecordHighlights(5)
	m.RecordLoad(12)
	m.RecordWSConnection(1)
	m.RecordWSConnection(1)
	m.RecordWSConnection(-1)

	assert.Equal(t, 2.0, gathered(t, m, "paper_reader_entity_mutations_total"))
	assert.Equal(t, 2.0, gathered(t, m, "paper_reader_searches_total"))
	assert.Equal(t, 1.0, gathered(t, m, "paper_reader_search_matches"))
	assert.Equal(t, 2.0, gathered(t, m, "paper_reader_propagated_edits_total"))
	assert.Equal(t, 5.0, gathered(t, m, "paper_reader_highlights_visible"))
	assert.Equal(t, 12.0, gathered(t, m, "paper_reader_entities_loaded"))
	assert.Equal(t, 1.0, gathered(t, m, "paper_reader_ws_connections"))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordRequest("GET /api/v0/papers", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paper_reader_http_requests_total{route="GET /api/v0/papers",status="2xx"} 1`)
}
