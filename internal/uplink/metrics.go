package uplink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uplink_packet_count",
		Help: "The number of handled uplink packets (per result).",
	}, []string{"result"})

	ufce = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uplink_packet_error_count",
		Help: "The number of uplink packets that failed to be processed.",
	})

	rssi = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uplink_rssi",
		Help:    "The RSSI of the decrypted uplink packets.",
		Buckets: prometheus.LinearBuckets(-140, 10, 12),
	})

	snr = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uplink_snr",
		Help:    "The SNR of the decrypted uplink packets.",
		Buckets: prometheus.LinearBuckets(-20, 2.5, 14),
	})
)

// uplink results
const (
	resultParseError     = "parse_error"
	resultOwnPacket      = "own_packet"
	resultDuplicate      = "duplicate"
	resultUnknownChannel = "unknown_channel"
	resultDecrypted      = "decrypted"
)

func uplinkPacketCounter(result string) prometheus.Counter {
	return uc.With(prometheus.Labels{"result": result})
}

func uplinkPacketErrorCounter() prometheus.Counter {
	return ufce
}
