package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters.
type Metrics struct {
	cycles            prometheus.Counter
	salesFetched      prometheus.Counter
	notificationsSent prometheus.Counter
	duplicatesSkipped prometheus.Counter
	rateLimited       prometheus.Counter
	errors            prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			cycles: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_cycles_total",
				Help: "Total number of polling cycles completed",
			}),
			salesFetched: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_sales_fetched_total",
				Help: "Total number of logical sale transactions fetched",
			}),
			notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_notifications_sent_total",
				Help: "Total number of notifications published to the channel",
			}),
			duplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_duplicates_skipped_total",
				Help: "Total number of sales skipped as already seen",
			}),
			rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_rate_limited_total",
				Help: "Total number of rate-limited marketplace fetches",
			}),
			errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sweepwatch_errors_total",
				Help: "Total number of errors encountered",
			}),
		}
		prometheus.MustRegister(
			metrics.cycles,
			metrics.salesFetched,
			metrics.notificationsSent,
			metrics.duplicatesSkipped,
			metrics.rateLimited,
			metrics.errors,
		)
	})
	return metrics
}

// Cycles increments the completed-cycle counter.
func (m *Metrics) Cycles() {
	if m != nil {
		m.cycles.Inc()
	}
}

// SalesFetched adds fetched sale transactions.
func (m *Metrics) SalesFetched(n int) {
	if m != nil && n > 0 {
		m.salesFetched.Add(float64(n))
	}
}

// NotificationsSent increments the published-notification counter.
func (m *Metrics) NotificationsSent() {
	if m != nil {
		m.notificationsSent.Inc()
	}
}

// DuplicatesSkipped increments the dedup-skip counter.
func (m *Metrics) DuplicatesSkipped() {
	if m != nil {
		m.duplicatesSkipped.Inc()
	}
}

// RateLimited increments the rate-limited-fetch counter.
func (m *Metrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

// Errors increments the errors counter.
func (m *Metrics) Errors() {
	if m != nil {
		m.errors.Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
