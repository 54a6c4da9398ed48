// Package metrics exposes Prometheus instrumentation for the booking
// platform. All observation methods are safe to call on a nil receiver so
// callers never have to guard instrumentation behind nil checks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BookingMetrics counts bookings, payment transitions, sent emails and
// webhook handling latency.
type BookingMetrics struct {
	registry *prometheus.Registry

	bookingsTotal   *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
	emailsTotal     *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
}

// New creates a BookingMetrics backed by its own registry.
func New() *BookingMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &BookingMetrics{
		registry: reg,
		bookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_appointments_total",
			Help: "Appointments created, by payment method and outcome.",
		}, []string{"method", "outcome"}),
		paymentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_payments_total",
			Help: "Payment state transitions, by method and outcome.",
		}, []string{"method", "outcome"}),
		emailsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_emails_total",
			Help: "Transactional emails attempted, by category and status.",
		}, []string{"category", "status"}),
		webhookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_webhook_duration_seconds",
			Help:    "Time spent handling provider webhooks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}

// ObserveBooking records an appointment creation outcome.
func (m *BookingMetrics) ObserveBooking(method, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(method, outcome).Inc()
}

// ObservePayment records a payment state transition.
func (m *BookingMetrics) ObservePayment(method, outcome string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveEmail records an email send attempt.
func (m *BookingMetrics) ObserveEmail(category, status string) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(category, status).Inc()
}

// ObserveWebhook records webhook handling latency in seconds.
func (m *BookingMetrics) ObserveWebhook(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookDuration.WithLabelValues(provider).Observe(seconds)
}

// Handler returns the scrape endpoint for this registry. On a nil receiver it
// returns a handler that serves an empty exposition.
func (m *BookingMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
