// Package integration defines the interface of the integrations that
// receive the uplink events and deliver transmit requests.
package integration

import (
	"bytes"
	"context"
	"text/template"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
)

var integration Integration

// GetIntegration returns the integration.
func GetIntegration() Integration {
	return integration
}

// SetIntegration sets the given integration.
func SetIntegration(i Integration) {
	integration = i
}

// Integration is the interface of an integration.
type Integration interface {
	SendUplinkEvent(context.Context, models.UplinkEvent) error // send the given uplink event
	TXRequestChan() chan models.TXRequest                      // channel containing the tx requests, nil when not supported
	Close() error                                              // close the integration
}

// EventTemplateContext holds the fields available to the topic and
// routing-key templates of the integrations.
type EventTemplateContext struct {
	ChannelName string
	Sender      packet.NodeID
	Destination packet.NodeID
	PortNum     payload.PortNum
	EventType   string
}

// ExecuteEventTemplate executes the given template for the uplink event.
func ExecuteEventTemplate(t *template.Template, evt models.UplinkEvent) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := t.Execute(buf, EventTemplateContext{
		ChannelName: evt.ChannelName,
		Sender:      evt.Sender,
		Destination: evt.Destination,
		PortNum:     evt.Data.PortNum,
		EventType:   "up",
	}); err != nil {
		return "", errors.Wrap(err, "execute template error")
	}
	return buf.String(), nil
}
