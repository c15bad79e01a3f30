package metrics

import "github.com/prometheus/client_golang/prometheus"

// FulfillmentMetrics counts admin status transitions.
type FulfillmentMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_transitions_rejected_total",
		Help: "Order status transitions rejected by the state machine.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions, rejected)
	return &FulfillmentMetrics{transitions: transitions, rejected: rejected}
}

// IncTransition counts an applied transition.
func (f *FulfillmentMetrics) IncTransition(from, to string) {
	if f == nil || f.transitions == nil {
		return
	}
	f.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncRejected counts a disallowed transition.
func (f *FulfillmentMetrics) IncRejected(from, to string) {
	if f == nil || f.rejected == nil {
		return
	}
	f.rejected.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
