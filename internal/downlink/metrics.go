package downlink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "downlink_packet_count",
		Help: "The number of transmitted packets (per channel).",
	}, []string{"channel"})

	dec = promauto.NewCounter(prometheus.CounterOpts{
		Name: "downlink_packet_error_count",
		Help: "The number of tx requests that failed to be transmitted.",
	})
)

func downlinkPacketCounter(channel string) prometheus.Counter {
	return dc.With(prometheus.Labels{"channel": channel})
}

func downlinkPacketErrorCounter() prometheus.Counter {
	return dec
}
