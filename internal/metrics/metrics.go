// Package metrics counts import outcomes and link decisions.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes.
const (
	OutcomeRejected  = "rejected"
	OutcomeDropped   = "dropped"
	OutcomeDuplicate = "duplicate"
	OutcomeStored    = "stored"
)

// Metrics holds the counters of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	messages *prometheus.CounterVec
	links    *prometheus.CounterVec
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsflow",
			Name:      "messages_total",
			Help:      "Messages read during import by outcome.",
		}, []string{"outcome"}),
		links: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsflow",
			Name:      "links_total",
			Help:      "Link decisions applied by rule.",
		}, []string{"rule"}),
	}
}

// MessageN counts n messages with the given outcome.
func (m *Metrics) MessageN(outcome string, n int) {
	if n > 0 {
		m.messages.WithLabelValues(outcome).Add(float64(n))
	}
}

// LinkApplied counts one applied link rule.
func (m *Metrics) LinkApplied(rule string) {
	m.links.WithLabelValues(rule).Inc()
}

// WriteTextfile writes all counters to path in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
