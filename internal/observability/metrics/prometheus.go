package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound request counts and latency for /metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer)
}

func newHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mercado_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.requests = registerOrExisting(registerer, m.requests).(*prometheus.CounterVec)
	m.duration = registerOrExisting(registerer, m.duration).(*prometheus.HistogramVec)
	return m
}

// GinMiddleware observes every request once it has been handled.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := strings.ToUpper(c.Request.Method)
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// DuesMetrics are the Prometheus counters and morosity gauges of the engine.
type DuesMetrics struct {
	generated   *prometheus.CounterVec
	payments    *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	storeErrors *prometheus.CounterVec

	overdueCount   prometheus.Gauge
	percentOverdue prometheus.Gauge
	outstanding    prometheus.Gauge
	collectionRate prometheus.Gauge
	snapshotAt     prometheus.Gauge
}

var (
	duesMetricsOnce sync.Once
	duesMetrics     *DuesMetrics
)

// Dues returns the process-wide DuesMetrics registered on the default registry.
func Dues() *DuesMetrics {
	duesMetricsOnce.Do(func() {
		duesMetrics = NewDuesMetrics(prometheus.DefaultRegisterer)
	})
	return duesMetrics
}

// NewDuesMetrics registers the dues collectors on registerer.
func NewDuesMetrics(registerer prometheus.Registerer) *DuesMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &DuesMetrics{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_dues_generated_total",
			Help: "Due generation outcomes by mode (single, bulk) and outcome (created, skipped, failed).",
		}, []string{"mode", "outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_payments_recorded_total",
			Help: "Payments accepted by the store, by method.",
		}, []string{"method"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_payment_rejections_total",
			Help: "Payments rejected, by error code.",
		}, []string{"code"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercado_store_errors_total",
			Help: "Store calls that failed, by operation and error kind.",
		}, []string{"op", "kind"}),
		overdueCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercado_dues_overdue",
			Help: "Overdue dues in the latest morosity snapshot.",
		}),
		percentOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercado_dues_percent_overdue",
			Help: "Percentage of dues overdue in the latest morosity snapshot.",
		}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercado_dues_outstanding_amount",
			Help: "Outstanding balance in the latest morosity snapshot.",
		}),
		collectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercado_dues_collection_rate",
			Help: "Collected over billed, as a percentage, in the latest morosity snapshot.",
		}),
		snapshotAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercado_dues_snapshot_timestamp_seconds",
			Help: "Unix time of the latest successful morosity snapshot.",
		}),
	}

	m.generated = registerOrExisting(registerer, m.generated).(*prometheus.CounterVec)
	m.payments = registerOrExisting(registerer, m.payments).(*prometheus.CounterVec)
	m.rejections = registerOrExisting(registerer, m.rejections).(*prometheus.CounterVec)
	m.storeErrors = registerOrExisting(registerer, m.storeErrors).(*prometheus.CounterVec)
	m.overdueCount = registerOrExisting(registerer, m.overdueCount).(prometheus.Gauge)
	m.percentOverdue = registerOrExisting(registerer, m.percentOverdue).(prometheus.Gauge)
	m.outstanding = registerOrExisting(registerer, m.outstanding).(prometheus.Gauge)
	m.collectionRate = registerOrExisting(registerer, m.collectionRate).(prometheus.Gauge)
	m.snapshotAt = registerOrExisting(registerer, m.snapshotAt).(prometheus.Gauge)
	return m
}

func (m *DuesMetrics) Generated(mode, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.generated.WithLabelValues(mode, outcome).Add(float64(n))
}

func (m *DuesMetrics) PaymentRecorded(method string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
}

func (m *DuesMetrics) PaymentRejected(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}

func (m *DuesMetrics) StoreError(op, kind string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op, kind).Inc()
}

// Snapshot publishes a morosity snapshot taken at at.
func (m *DuesMetrics) Snapshot(overdue int, percentOverdue, outstanding, collectionRate float64, at time.Time) {
	if m == nil {
		return
	}
	m.overdueCount.Set(float64(overdue))
	m.percentOverdue.Set(percentOverdue)
	m.outstanding.Set(outstanding)
	m.collectionRate.Set(collectionRate)
	m.snapshotAt.Set(float64(at.Unix()))
}

func registerOrExisting(registerer prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
