package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order placement outcomes and inventory side effects.
type OrderMetrics struct {
	placed           *prometheus.CounterVec
	placeDuration    *prometheus.HistogramVec
	decrementFailure *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	customersCreated prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted, by entry channel.",
	}, []string{"channel"})
	placeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_place_duration_seconds",
		Help:    "Time spent placing an order, including inventory updates.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	decrementFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_decrement_failures_total",
		Help: "Inventory decrements that were skipped after an order was placed.",
	}, []string{"reason"})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Order status updates, by target status.",
	}, []string{"status"})
	customersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "customers_created_total",
		Help: "Customers created on first order for an email.",
	})
	reg.MustRegister(placed, placeDuration, decrementFailure, statusChanges, customersCreated)
	return &OrderMetrics{
		placed:           placed,
		placeDuration:    placeDuration,
		decrementFailure: decrementFailure,
		statusChanges:    statusChanges,
		customersCreated: customersCreated,
	}
}

// ObservePlaced counts a persisted order and its placement latency.
func (m *OrderMetrics) ObservePlaced(channel string, duration time.Duration) {
	if m == nil || m.placed == nil {
		return
	}
	channel = normalizeLabel(channel)
	m.placed.WithLabelValues(channel).Inc()
	m.placeDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// IncDecrementFailure counts an inventory decrement that did not apply.
func (m *OrderMetrics) IncDecrementFailure(reason string) {
	if m == nil || m.decrementFailure == nil {
		return
	}
	m.decrementFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncStatusChange counts a status written through an order update.
func (m *OrderMetrics) IncStatusChange(status string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCustomerCreated counts a customer record created during placement.
func (m *OrderMetrics) IncCustomerCreated() {
	if m == nil || m.customersCreated == nil {
		return
	}
	m.customersCreated.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
