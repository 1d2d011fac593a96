package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserversCountByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveMessage("core.wallet.summary", "ack", 20*time.Millisecond)
	m.ObserveMessage("core.wallet.summary", "ack", 10*time.Millisecond)
	m.ObserveMessage("core.wallet.summary", "requeue", time.Millisecond)
	m.ObserveRenewal("renewed")
	m.ObserveSweep(time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("core.wallet.summary", "ack")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("core.wallet.summary", "requeue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renewalsTotal.WithLabelValues("renewed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveRenewal("expired")
	second.ObserveRenewal("expired")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.renewalsTotal.WithLabelValues("expired")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage("x", "ack", time.Second)
		m.ObserveRenewal("renewed")
		m.ObserveSweep(time.Second)
	})
}

func TestHTTPMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := MustNew(prometheus.NewRegistry())
	router := gin.New()
	router.Use(m.HTTPMiddleware())
	router.GET("/v1/admin/membership/plans/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/v1/admin/membership/plans/a", "/v1/admin/membership/plans/b", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/admin/membership/plans/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}
