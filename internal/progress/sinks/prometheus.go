package sinks

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
)

// PrometheusSink exports crawl log volume as Prometheus counters, partitioned
// by event kind.
type PrometheusSink struct {
	events *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_log_events_total",
			Help: "Crawl log entries emitted, partitioned by kind.",
		}, []string{"kind"}),
	}
	if err := reg.Register(s.events); err != nil {
		return nil, err
	}
	return s, nil
}

// Consume bumps the per-kind counters.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.events.WithLabelValues(string(evt.Kind)).Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
