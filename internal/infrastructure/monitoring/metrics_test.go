package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/engine"
)

var _ engine.Recorder = (*Metrics)(nil)

func TestEngineRecorder(t *testing.T) {
	m := NewMetrics()

	m.RebuildStarted(engine.TriggerEdit)
	m.RebuildStarted(engine.TriggerManual)
	m.RebuildFailed("commit")
	m.RebuildSkipped()
	m.LoadDuration(10 * time.Millisecond)
	m.LoadDuration(30 * time.Millisecond)
	m.ConsoleEvent("log")
	m.ConsoleEvent("error")
	m.MessageDropped("stale")
	m.LiveInstances(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rebuilds.WithLabelValues(engine.TriggerEdit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildFailures.WithLabelValues("commit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesDropped.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instances))

	s := m.Snapshot()
	assert.EqualValues(t, 2, s.Rebuilds)
	assert.EqualValues(t, 1, s.RebuildFailures)
	assert.EqualValues(t, 2, s.ConsoleEvents)
	assert.EqualValues(t, 1, s.DroppedMessages)
	assert.EqualValues(t, 1, s.LiveInstances)
	assert.InDelta(t, 0.02, s.AvgLoadSeconds, 1e-9)
}

func TestMetricsAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RebuildSkipped()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RebuildsSkipped))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/snippets/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "missing"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snippets/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/snippets/:id", "404")))
	assert.EqualValues(t, 2, m.Snapshot().TotalErrors)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "livebox_http_requests_total")
	assert.Contains(t, w.Body.String(), "livebox_uptime_seconds")
}

func TestTimer(t *testing.T) {
	m := NewMetrics()

	NewTimer(m, "snippets", "save").Stop(nil)
	NewTimer(m, "snippets", "save").Stop(errors.New("boom"))
	NewTimer(nil, "snippets", "save").Stop(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCalls.WithLabelValues("snippets", "save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCalls.WithLabelValues("snippets", "save", "error")))
}
