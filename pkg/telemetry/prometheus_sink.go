package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignitergo/connectors/connectors"
)

// PrometheusSink exposes per-event-type counters, labeled by connector, so
// a host can scrape connector health without parsing logs.
type PrometheusSink struct {
	events *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewPrometheusSink registers its metrics on reg (pass
// prometheus.DefaultRegisterer for the global registry).
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	sink := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "connectors",
			Name:      "events_total",
			Help:      "Total connector events emitted, by connector and event type.",
		}, []string{"connector", "event_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "connectors",
			Name:      "errors_total",
			Help:      "Total connector errors emitted, by connector.",
		}, []string{"connector"}),
	}
	reg.MustRegister(sink.events, sink.errors)
	return sink
}

func (s *PrometheusSink) Emit(evt connectors.Event) {
	s.events.WithLabelValues(evt.Connector, string(evt.Type)).Inc()
	if evt.Err != nil {
		s.errors.WithLabelValues(evt.Connector).Inc()
	}
}
