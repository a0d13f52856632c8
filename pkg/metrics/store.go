package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records request-path counters for the storefront.
type StoreMetrics struct {
	cartMutations  *prometheus.CounterVec
	ordersCreated  *prometheus.CounterVec
	webhookResults *prometheus.CounterVec
}

// NewStoreMetrics registers the storefront metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart line item mutations by operation.",
	}, []string{"operation"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders assembled, by source.",
	}, []string{"source"})
	webhookResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_results_total",
		Help: "Payment gateway webhook outcomes.",
	}, []string{"result"})
	reg.MustRegister(cartMutations, ordersCreated, webhookResults)
	return &StoreMetrics{
		cartMutations:  cartMutations,
		ordersCreated:  ordersCreated,
		webhookResults: webhookResults,
	}
}

// IncCartMutation increments the mutation counter for the named operation.
func (s *StoreMetrics) IncCartMutation(operation string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncOrderCreated increments the order counter for the named source.
func (s *StoreMetrics) IncOrderCreated(source string) {
	if s == nil || s.ordersCreated == nil {
		return
	}
	s.ordersCreated.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncWebhookResult increments the webhook outcome counter.
func (s *StoreMetrics) IncWebhookResult(result string) {
	if s == nil || s.webhookResults == nil {
		return
	}
	s.webhookResults.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
