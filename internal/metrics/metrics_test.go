package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_DisabledIsNoop(t *testing.T) {
	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.Conflict("assign")
		nilMetrics.SubscriberAttached()
		New(false, "fireguard").StaleUpdate()
	})

	w := httptest.NewRecorder()
	New(false, "fireguard").Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New(true, "fireguard")

	m.Conflict("assign")
	m.Conflict("assign")
	m.Operation("assign", "ok")
	m.SubscriberAttached()
	m.SubscriberAttached()
	m.SubscriberDetached()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflicts.WithLabelValues("assign")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribers))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fireguard_cas_conflicts_total")
}
