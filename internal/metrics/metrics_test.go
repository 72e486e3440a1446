package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	c := New()
	c.Discovered("minc", 2)
	c.Discovered("minc", 0)
	c.Failed("funarte", ReasonFetch)
	c.Filtered("minc", 5)
	c.ObserveRun(3*time.Second, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.discovered.WithLabelValues("minc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("funarte", ReasonFetch)))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.filtered.WithLabelValues("minc")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.lastNew))
}

func TestNilCollectorIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collector
	assert.NotPanics(t, func() {
		c.Discovered("x", 1)
		c.Failed("x", ReasonConfig)
		c.Filtered("x", 1)
		c.ObserveRun(time.Second, 1)
	})
	assert.Nil(t, c.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	c := New()
	c.Discovered("minc", 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `editais_discovered_total{source="minc"} 1`))
}
