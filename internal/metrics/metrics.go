package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
)

type Metrics struct {
	CartOperations      *prometheus.CounterVec
	CheckoutSubmissions *prometheus.CounterVec
	BackendLatencyMS    *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
}

// New registers the storefront collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	cartOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Total number of cart store operations.",
	}, []string{"operation", "mode", "result"})
	checkoutSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "submissions_total",
		Help:      "Total number of checkout submissions.",
	}, []string{"payment_method", "result"})
	backendLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_ms",
		Help:      "Backend REST request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"endpoint", "status"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of storefront HTTP requests.",
	}, []string{"method", "route", "status"})

	reg.MustRegister(cartOperations, checkoutSubmissions, backendLatency, httpRequests)
	return &Metrics{
		CartOperations:      cartOperations,
		CheckoutSubmissions: checkoutSubmissions,
		BackendLatencyMS:    backendLatency,
		HTTPRequests:        httpRequests,
	}
}

// Nil receivers are valid so collaborators can run without metrics.

func (m *Metrics) CartOperation(operation, mode string, err error) {
	if m == nil {
		return
	}
	m.CartOperations.WithLabelValues(operation, mode, result(err)).Inc()
}

func (m *Metrics) CartNoop(operation, mode string) {
	if m == nil {
		return
	}
	m.CartOperations.WithLabelValues(operation, mode, ResultNoop).Inc()
}

func (m *Metrics) CheckoutSubmission(paymentMethod string, err error) {
	if m == nil {
		return
	}
	m.CheckoutSubmissions.WithLabelValues(paymentMethod, result(err)).Inc()
}

func (m *Metrics) BackendRequest(endpoint, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendLatencyMS.WithLabelValues(endpoint, status).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
