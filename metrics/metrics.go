package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "membersphere"

// Metrics exposes Prometheus collectors for the HTTP API, the queue worker
// and the renewal reconciler
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec
	renewalsTotal   *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry. The
// collectors are created once so repeated wiring does not panic.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg and panics on any registration
// error other than an identical collector already being present
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served, by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "messages_total",
				Help:      "Queue messages handled, by command and settlement outcome.",
			},
			[]string{"command", "outcome"},
		),
		messageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "message_duration_seconds",
				Help:      "Time spent handling one queue message.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		renewalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconciler",
				Name:      "renewals_total",
				Help:      "Due subscriptions processed by the reconciler, by outcome.",
			},
			[]string{"outcome"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reconciler",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of a full renewal sweep.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	m.httpRequests = register(reg, m.httpRequests).(*prometheus.CounterVec)
	m.messagesTotal = register(reg, m.messagesTotal).(*prometheus.CounterVec)
	m.messageDuration = register(reg, m.messageDuration).(*prometheus.HistogramVec)
	m.renewalsTotal = register(reg, m.renewalsTotal).(*prometheus.CounterVec)
	m.sweepDuration = register(reg, m.sweepDuration).(prometheus.Histogram)
	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector
		}
		panic(err)
	}
	return c
}

// ObserveMessage records one settled delivery
func (m *Metrics) ObserveMessage(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(command, outcome).Inc()
	m.messageDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveRenewal counts one reconciler decision
func (m *Metrics) ObserveRenewal(outcome string) {
	if m == nil {
		return
	}
	m.renewalsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweep records the duration of one sweep
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

// HTTPMiddleware counts requests by their route template
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
