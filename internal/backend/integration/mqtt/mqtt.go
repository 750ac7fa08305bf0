// Package mqtt implements a MQTT integration publishing uplink events as
// JSON and receiving transmit requests.
package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"text/template"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/tls"
)

const integrationName = "mqtt"

// Integration implements a MQTT integration.
type Integration struct {
	wg sync.WaitGroup

	conn          paho.Client
	eventTemplate *template.Template
	txTopic       string
	qos           uint8
	retain        bool
	txRequestChan chan models.TXRequest
}

// New creates a new MQTT integration.
func New(c config.Config) (*Integration, error) {
	conf := c.Integration.MQTT

	i := Integration{
		txTopic:       conf.TXRequestTopic,
		qos:           conf.QOS,
		retain:        conf.RetainEvents,
		txRequestChan: make(chan models.TXRequest),
	}

	var err error
	i.eventTemplate, err = template.New("event").Parse(conf.EventTopicTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: parse event topic template error")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	opts.SetClientID(conf.ClientID)
	opts.SetOnConnectHandler(i.onConnected)
	opts.SetConnectionLostHandler(i.onConnectionLost)

	tlsconfig, err := tls.ClientConfig(conf.CACert, conf.TLSCert, conf.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "integration/mqtt: load certificate files error")
	}
	if tlsconfig != nil {
		opts.SetTLSConfig(tlsconfig)
	}

	log.WithField("server", conf.Server).Info("integration/mqtt: connecting to mqtt broker")
	i.conn = paho.NewClient(opts)
	for {
		if token := i.conn.Connect(); token.Wait() && token.Error() != nil {
			log.Errorf("integration/mqtt: connecting to mqtt broker failed, will retry in 2s: %s", token.Error())
			time.Sleep(2 * time.Second)
		} else {
			break
		}
	}

	return &i, nil
}

// SendUplinkEvent publishes the uplink event as JSON.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	topic, err := integration.ExecuteEventTemplate(i.eventTemplate, evt)
	if err != nil {
		return errors.Wrap(err, "integration/mqtt: event topic error")
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "integration/mqtt: marshal event error")
	}

	log.WithFields(log.Fields{
		"topic": topic,
		"qos":   i.qos,
	}).Info("integration/mqtt: publishing uplink event")

	token := i.conn.Publish(topic, i.qos, i.retain, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		integration.EventErrorCounter(integrationName, "up").Inc()
		return errors.Wrap(err, "integration/mqtt: publish uplink event error")
	}

	integration.EventCounter(integrationName, "up").Inc()
	return nil
}

// TXRequestChan returns the tx request channel.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return i.txRequestChan
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/mqtt: closing integration")

	if i.txTopic != "" {
		log.WithField("topic", i.txTopic).Info("integration/mqtt: unsubscribing from tx topic")
		if token := i.conn.Unsubscribe(i.txTopic); token.Wait() && token.Error() != nil {
			return errors.Wrapf(token.Error(), "integration/mqtt: unsubscribe from %s error", i.txTopic)
		}
	}

	i.wg.Wait()
	close(i.txRequestChan)
	i.conn.Disconnect(250)
	return nil
}

func (i *Integration) txRequestHandler(c paho.Client, msg paho.Message) {
	i.wg.Add(1)
	defer i.wg.Done()

	req, err := parseTXRequest(msg.Topic(), msg.Payload())
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"topic":   msg.Topic(),
			"payload": string(msg.Payload()),
		}).Error("integration/mqtt: invalid tx request")
		return
	}

	integration.TXRequestCounter(integrationName).Inc()
	log.WithFields(log.Fields{
		"topic":   msg.Topic(),
		"channel": req.ChannelName,
	}).Info("integration/mqtt: tx request received")

	i.txRequestChan <- req
}

// parseTXRequest decodes the tx request. When the request does not name
// a channel, the second topic level is used
// (e.g. meshtastic/LongFast/tx).
func parseTXRequest(topic string, b []byte) (models.TXRequest, error) {
	var req models.TXRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return req, errors.Wrap(err, "unmarshal json error")
	}

	if req.ChannelName == "" {
		levels := strings.Split(topic, "/")
		if len(levels) < 3 {
			return req, errors.New("channel name missing")
		}
		req.ChannelName = levels[1]
	}

	return req, nil
}

func (i *Integration) onConnected(c paho.Client) {
	log.Info("integration/mqtt: connected to mqtt server")

	if i.txTopic == "" {
		return
	}

	for {
		log.WithFields(log.Fields{
			"topic": i.txTopic,
			"qos":   i.qos,
		}).Info("integration/mqtt: subscribing to tx topic")
		if token := c.Subscribe(i.txTopic, i.qos, i.txRequestHandler); token.Wait() && token.Error() != nil {
			log.WithFields(log.Fields{
				"topic": i.txTopic,
				"qos":   i.qos,
			}).Errorf("integration/mqtt: subscribe error: %s", token.Error())
			time.Sleep(time.Second)
			continue
		}
		break
	}
}

func (i *Integration) onConnectionLost(c paho.Client, reason error) {
	log.Errorf("integration/mqtt: mqtt connection error: %s", reason)
}
