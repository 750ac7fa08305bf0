// Package azureservicebus implements an Azure Service Bus integration.
package azureservicebus

import (
	"context"
	"encoding/json"
	"time"

	servicebus "github.com/Azure/azure-service-bus-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

const integrationName = "azure_service_bus"

// publish modes
const (
	PublishModeTopic = "topic"
	PublishModeQueue = "queue"
)

type sendFunc func(ctx context.Context, msg *servicebus.Message) error
type closeFunc func(ctx context.Context) error

// Integration implements an Azure Service Bus integration.
type Integration struct {
	send  sendFunc
	close closeFunc
}

// New creates a new Azure Service Bus integration.
func New(c config.Config) (*Integration, error) {
	conf := c.Integration.AzureServiceBus

	ns, err := servicebus.NewNamespace(servicebus.NamespaceWithConnectionString(conf.ConnectionString))
	if err != nil {
		return nil, errors.Wrap(err, "integration/azure_service_bus: new namespace error")
	}

	var i Integration

	switch conf.PublishMode {
	case PublishModeTopic:
		t, err := ns.NewTopic(conf.PublishName)
		if err != nil {
			return nil, errors.Wrap(err, "integration/azure_service_bus: new topic client error")
		}
		i.send = func(ctx context.Context, msg *servicebus.Message) error {
			return t.Send(ctx, msg)
		}
		i.close = t.Close
	case PublishModeQueue:
		q, err := ns.NewQueue(conf.PublishName)
		if err != nil {
			return nil, errors.Wrap(err, "integration/azure_service_bus: new queue client error")
		}
		i.send = func(ctx context.Context, msg *servicebus.Message) error {
			return q.Send(ctx, msg)
		}
		i.close = q.Close
	default:
		return nil, errors.Errorf("integration/azure_service_bus: invalid publish mode: %s", conf.PublishMode)
	}

	log.WithFields(log.Fields{
		"mode": conf.PublishMode,
		"name": conf.PublishName,
	}).Info("integration/azure_service_bus: integration configured")

	return &i, nil
}

// SendUplinkEvent publishes the uplink event as JSON.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	start := time.Now()

	msg, err := newMessage(evt)
	if err != nil {
		return err
	}

	if err := i.send(ctx, msg); err != nil {
		integration.EventErrorCounter(integrationName, "up").Inc()
		return errors.Wrap(err, "integration/azure_service_bus: send message error")
	}

	integration.EventCounter(integrationName, "up").Inc()

	log.WithFields(log.Fields{
		"duration": time.Since(start),
		"channel":  evt.ChannelName,
		"sender":   evt.Sender,
	}).Info("integration/azure_service_bus: uplink event published")

	return nil
}

func newMessage(evt models.UplinkEvent) (*servicebus.Message, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, errors.Wrap(err, "integration/azure_service_bus: marshal event error")
	}

	msg := servicebus.NewMessage(b)
	msg.ContentType = "application/json"
	msg.UserProperties = map[string]interface{}{
		"event":   "up",
		"channel": evt.ChannelName,
		"sender":  evt.Sender.String(),
	}

	return msg, nil
}

// TXRequestChan returns nil, the Azure Service Bus integration is
// publish-only.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return nil
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/azure_service_bus: closing integration")
	return i.close(context.Background())
}
