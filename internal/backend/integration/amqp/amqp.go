// Package amqp implements an AMQP integration publishing uplink events to
// the amq.topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"text/template"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

const (
	integrationName = "amqp"
	exchange        = "amq.topic"
)

// Integration implements an AMQP integration.
type Integration struct {
	chPool     *pool
	routingKey *template.Template
}

// New creates a new AMQP integration.
func New(c config.Config) (*Integration, error) {
	conf := c.Integration.AMQP

	var i Integration
	var err error

	i.routingKey, err = template.New("event").Parse(conf.EventRoutingKeyTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "integration/amqp: parse event routing-key template error")
	}

	log.Info("integration/amqp: connecting to AMQP server")
	i.chPool, err = newPool(10, conf.URL)
	if err != nil {
		return nil, errors.Wrap(err, "integration/amqp: new amqp channel pool error")
	}

	return &i, nil
}

// SendUplinkEvent publishes the uplink event as JSON.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	routingKey, err := integration.ExecuteEventTemplate(i.routingKey, evt)
	if err != nil {
		return errors.Wrap(err, "integration/amqp: routing-key error")
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "integration/amqp: marshal event error")
	}

	ch, err := i.chPool.get()
	if err != nil {
		return errors.Wrap(err, "integration/amqp: get amqp channel from pool error")
	}
	defer ch.close()

	err = ch.ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        b,
		},
	)
	if err != nil {
		ch.markUnusable()
		integration.EventErrorCounter(integrationName, "up").Inc()
		return errors.Wrap(err, "integration/amqp: publish event error")
	}

	integration.EventCounter(integrationName, "up").Inc()

	log.WithFields(log.Fields{
		"routing_key": routingKey,
	}).Info("integration/amqp: uplink event published")

	return nil
}

// TXRequestChan returns nil, the AMQP integration is publish-only.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return nil
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/amqp: closing integration")
	return i.chPool.close()
}
