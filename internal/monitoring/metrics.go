// Package monitoring exposes prometheus metrics for the API. Metrics
// are registered through promauto on the default registry and served
// by promhttp on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rovify_logins_total",
			Help: "Login attempts by auth method and outcome",
		},
		[]string{"method", "outcome"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rovify_tickets_issued_total",
			Help: "Tickets issued by payment method",
		},
		[]string{"payment_method"},
	)

	purchasesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rovify_purchases_rejected_total",
			Help: "Rejected purchase attempts by reason",
		},
		[]string{"reason"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rovify_purchase_duration_seconds",
			Help:    "Wall time of the ticket purchase transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	eventViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rovify_event_views_total",
			Help: "Event detail page views",
		},
	)
)

// LoginSucceeded records a successful login for an auth method.
func LoginSucceeded(method string) { loginsTotal.WithLabelValues(method, "success").Inc() }

// LoginFailed records a failed login for an auth method.
func LoginFailed(method string) { loginsTotal.WithLabelValues(method, "failure").Inc() }

// TicketIssued records a completed ticket purchase.
func TicketIssued(paymentMethod string) { ticketsIssued.WithLabelValues(paymentMethod).Inc() }

// PurchaseRejected records a purchase attempt that failed a business
// rule (not_sellable, sold_out, quota).
func PurchaseRejected(reason string) { purchasesRejected.WithLabelValues(reason).Inc() }

// ObservePurchase records how long a purchase transaction took.
func ObservePurchase(seconds float64) { purchaseDuration.Observe(seconds) }

// EventViewed records a detail-page view.
func EventViewed() { eventViews.Inc() }
