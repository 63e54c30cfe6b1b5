package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order placement and payment gateway activity.
type CheckoutMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	orders          *prometheus.CounterVec
	payments        *prometheus.CounterVec
	refunds         *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements",
		Help: "Payment settlements by result.",
	}, []string{"result"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_refunds",
		Help: "Refund attempts by result.",
	}, []string{"result"})
	reg.MustRegister(gatewayDuration, orders, payments, refunds)
	return &CheckoutMetrics{
		gatewayDuration: gatewayDuration,
		orders:          orders,
		payments:        payments,
		refunds:         refunds,
	}
}

// ObserveGateway records the duration of one gateway call.
func (c *CheckoutMetrics) ObserveGateway(operation string, duration time.Duration) {
	if c == nil || c.gatewayDuration == nil {
		return
	}
	c.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncOrder increments the checkout counter for the given result.
func (c *CheckoutMetrics) IncOrder(result string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncPayment increments the settlement counter for the given result.
func (c *CheckoutMetrics) IncPayment(result string) {
	if c == nil || c.payments == nil {
		return
	}
	c.payments.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncRefund increments the refund counter for the given result.
func (c *CheckoutMetrics) IncRefund(result string) {
	if c == nil || c.refunds == nil {
		return
	}
	c.refunds.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
