package integration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_event_count",
		Help: "The number of published events (per integration and event type).",
	}, []string{"integration", "event"})

	ee = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_event_error_count",
		Help: "The number of events that failed to publish (per integration and event type).",
	}, []string{"integration", "event"})

	tc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_tx_request_count",
		Help: "The number of received tx requests (per integration).",
	}, []string{"integration"})
)

// EventCounter returns the published events counter.
func EventCounter(integration, event string) prometheus.Counter {
	return ec.With(prometheus.Labels{"integration": integration, "event": event})
}

// EventErrorCounter returns the failed events counter.
func EventErrorCounter(integration, event string) prometheus.Counter {
	return ee.With(prometheus.Labels{"integration": integration, "event": event})
}

// TXRequestCounter returns the received tx requests counter.
func TXRequestCounter(integration string) prometheus.Counter {
	return tc.With(prometheus.Labels{"integration": integration})
}
