package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of the API process.
type Metrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OrdersCreated  prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	StockConflicts prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers every collector on a fresh registry. The service name
// becomes the metric subsystem.
func New(service string) *Metrics {
	service = subsystem(service)
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelshop",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelshop",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modelshop",
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Orders committed by the creation pipeline.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelshop",
			Subsystem: service,
			Name:      "orders_rejected_total",
			Help:      "Order creations that failed, by pipeline stage.",
		}, []string{"stage"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modelshop",
			Subsystem: service,
			Name:      "stock_conflicts_total",
			Help:      "Conditional stock writes that lost a race and were retried.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersCreated, m.OrdersRejected, m.StockConflicts)
	return m
}

// subsystem maps a service name onto the metric name alphabet.
func subsystem(service string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, service)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// OrderCreated and the methods below are nil-safe so callers may run
// without metrics.
func (m *Metrics) OrderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) OrderRejected(stage string) {
	if m != nil {
		m.OrdersRejected.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) StockConflict() {
	if m != nil {
		m.StockConflicts.Inc()
	}
}
