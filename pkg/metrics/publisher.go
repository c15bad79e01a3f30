package metrics

import "github.com/prometheus/client_golang/prometheus"

// PublisherMetrics tracks outbox publishing.
type PublisherMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewPublisherMetrics registers the outbox publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"event_type", "terminal"})
	reg.MustRegister(published, failed)
	return &PublisherMetrics{published: published, failed: failed}
}

// IncPublished counts a delivered event.
func (p *PublisherMetrics) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed counts a failed publish; terminal failures will not be retried.
func (p *PublisherMetrics) IncFailed(eventType string, terminal bool) {
	if p == nil || p.failed == nil {
		return
	}
	label := "false"
	if terminal {
		label = "true"
	}
	p.failed.WithLabelValues(normalizeLabel(eventType), label).Inc()
}
