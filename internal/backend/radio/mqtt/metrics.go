package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_mqtt_event_count",
		Help: "The number of received events by the MQTT radio backend (per event type).",
	}, []string{"event"})

	cc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_mqtt_command_count",
		Help: "The number of published commands by the MQTT radio backend (per command).",
	}, []string{"command"})

	dc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_mqtt_uplink_dropped_count",
		Help: "The number of uplink frames dropped by the MQTT radio backend (per reason).",
	}, []string{"reason"})

	mqttc = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radio_mqtt_connect_count",
		Help: "The number of times the MQTT radio backend connected to the MQTT broker.",
	})

	mqttd = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radio_mqtt_disconnect_count",
		Help: "The number of times the MQTT radio backend disconnected from the MQTT broker.",
	})
)

func mqttEventCounter(e string) prometheus.Counter {
	return ec.With(prometheus.Labels{"event": e})
}

func mqttCommandCounter(c string) prometheus.Counter {
	return cc.With(prometheus.Labels{"command": c})
}

func uplinkDroppedCounter(r string) prometheus.Counter {
	return dc.With(prometheus.Labels{"reason": r})
}

func mqttConnectCounter() prometheus.Counter {
	return mqttc
}

func mqttDisconnectCounter() prometheus.Counter {
	return mqttd
}
