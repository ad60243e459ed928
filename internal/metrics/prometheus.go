package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rpattn/testbed-analytics/internal/query"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreDuration   *prometheus.HistogramVec
	StoreErrors     *prometheus.CounterVec
	StoreUp         prometheus.Gauge
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_store_query_duration_seconds",
			Help:    "Store round-trip latency by operation and grain table.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "table"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_store_errors_total",
			Help: "Failed store round-trips by operation.",
		}, []string{"op"}),
		StoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analytics_store_up",
			Help: "1 when the last store probe succeeded.",
		}),
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.StoreDuration, m.StoreErrors, m.StoreUp)
}

// Store is an executor that can also be probed.
type Store interface {
	query.Executor
	Ping(ctx context.Context) error
}

// InstrumentedStore records latency and failures of every store call.
type InstrumentedStore struct {
	next    Store
	metrics *Metrics
}

// Instrument wraps next with store metrics.
func Instrument(next Store, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: m}
}

func (s *InstrumentedStore) Query(ctx context.Context, plan query.Plan) ([]query.Row, error) {
	start := time.Now()
	rows, err := s.next.Query(ctx, plan)
	s.observe("query", string(plan.Table), start, err)
	return rows, err
}

func (s *InstrumentedStore) Count(ctx context.Context, plan query.Plan) (int64, error) {
	start := time.Now()
	total, err := s.next.Count(ctx, plan)
	s.observe("count", string(plan.Table), start, err)
	return total, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", "", start, err)
	return err
}

func (s *InstrumentedStore) observe(op, table string, start time.Time, err error) {
	s.metrics.StoreDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
