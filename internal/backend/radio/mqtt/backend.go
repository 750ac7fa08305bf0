// Package mqtt implements a radio backend using ChirpStack Gateway Bridge
// compatible LoRa gateways connected through a MQTT broker.
package mqtt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/brocaar/chirpstack-api/go/v3/gw"
	"github.com/brocaar/lorawan"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio/marshaler"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
	"github.com/theverygaming/meshtastic-bridge/internal/tls"
)

const uplinkLockKeyTempl = "meshtastic:radio:mqtt:uplink:lock:%s:%s"

// Backend implements a MQTT radio backend.
type Backend struct {
	sync.RWMutex

	wg     sync.WaitGroup
	closed bool

	conn            paho.Client
	redisClient     redis.UniversalClient
	commandTemplate *template.Template
	rxPacketChan    chan models.RXPacket

	eventTopic string
	qos        uint8
	lockTTL    time.Duration
	settings   models.RadioSettings

	gatewayMarshaler map[lorawan.EUI64]marshaler.Type
	lastGatewayID    *lorawan.EUI64
}

// NewBackend creates a new Backend.
func NewBackend(c config.Config) (*Backend, error) {
	conf := c.Radio.Backend.MQTT

	b := Backend{
		rxPacketChan:     make(chan models.RXPacket),
		gatewayMarshaler: make(map[lorawan.EUI64]marshaler.Type),
		redisClient:      storage.RedisClient(),
		eventTopic:       conf.EventTopic,
		qos:              conf.QOS,
		lockTTL:          conf.LockTTL,
		settings:         radio.SettingsFromConfig(c),
	}

	var err error
	b.commandTemplate, err = template.New("command").Parse(conf.CommandTopicTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "radio/mqtt: parse command topic template error")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	opts.SetClientID(conf.ClientID)
	opts.SetOnConnectHandler(b.onConnected)
	opts.SetConnectionLostHandler(b.onConnectionLost)
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsconfig, err := tls.ClientConfig(conf.CACert, conf.TLSCert, conf.TLSKey)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"ca_cert":  conf.CACert,
			"tls_cert": conf.TLSCert,
			"tls_key":  conf.TLSKey,
		}).Fatal("radio/mqtt: error loading mqtt certificate files")
	}
	if tlsconfig != nil {
		opts.SetTLSConfig(tlsconfig)
	}

	log.WithField("server", conf.Server).Info("radio/mqtt: connecting to mqtt broker")
	b.conn = paho.NewClient(opts)
	for {
		if token := b.conn.Connect(); token.Wait() && token.Error() != nil {
			log.Errorf("radio/mqtt: connecting to mqtt broker failed, will retry in 2s: %s", token.Error())
			time.Sleep(2 * time.Second)
		} else {
			break
		}
	}

	return &b, nil
}

// Close closes the backend.
// Note that this closes the backend one-way (radio to bridge).
// This makes it possible to perform a graceful shutdown (e.g. when there are
// still packets to send).
func (b *Backend) Close() error {
	log.Info("radio/mqtt: closing backend")

	b.Lock()
	b.closed = true
	b.Unlock()

	log.WithField("topic", b.eventTopic).Info("radio/mqtt: unsubscribing from event topic")
	if token := b.conn.Unsubscribe(b.eventTopic); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "radio/mqtt: unsubscribe from %s error", b.eventTopic)
	}

	log.Info("radio/mqtt: handling last messages")
	b.wg.Wait()
	close(b.rxPacketChan)
	return nil
}

// RXPacketChan returns the received frames channel.
func (b *Backend) RXPacketChan() chan models.RXPacket {
	return b.rxPacketChan
}

// SendTXPacket publishes the given frame as downlink command to the gateway
// selected by the packet source, or to the last gateway that received a
// frame when no source is given.
func (b *Backend) SendTXPacket(ctx context.Context, pkt models.TXPacket) error {
	gatewayID, err := b.selectGateway(pkt.Source)
	if err != nil {
		return err
	}

	downlinkID, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "new uuid error")
	}

	df := newDownlinkFrame(gatewayID, downlinkID[:], pkt.Data, b.settings)

	bb, err := marshaler.MarshalDownlinkFrame(b.getGatewayMarshaler(gatewayID), df)
	if err != nil {
		return errors.Wrap(err, "radio/mqtt: marshal downlink frame error")
	}

	topic := bytes.NewBuffer(nil)
	if err := b.commandTemplate.Execute(topic, struct {
		GatewayID   lorawan.EUI64
		CommandType string
	}{gatewayID, "down"}); err != nil {
		return errors.Wrap(err, "radio/mqtt: execute command topic template error")
	}

	log.WithFields(log.Fields{
		"topic":       topic.String(),
		"qos":         b.qos,
		"downlink_id": downlinkID,
	}).Info("radio/mqtt: publishing downlink frame")

	mqttCommandCounter("down").Inc()

	token := b.conn.Publish(topic.String(), b.qos, false, bb)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "radio/mqtt: publish downlink frame error")
	}

	return nil
}

func (b *Backend) selectGateway(source string) (lorawan.EUI64, error) {
	var gatewayID lorawan.EUI64

	if source != "" {
		if err := gatewayID.UnmarshalText([]byte(source)); err != nil {
			return gatewayID, errors.Wrap(err, "radio/mqtt: invalid gateway id")
		}
		return gatewayID, nil
	}

	b.RLock()
	defer b.RUnlock()

	if b.lastGatewayID == nil {
		return gatewayID, radio.ErrNoRadio
	}
	return *b.lastGatewayID, nil
}

func (b *Backend) eventHandler(c paho.Client, msg paho.Message) {
	b.wg.Add(1)
	defer b.wg.Done()

	switch {
	case strings.HasSuffix(msg.Topic(), "/up"):
		mqttEventCounter("up").Inc()
		b.handleUplinkFrame(msg)
	case strings.HasSuffix(msg.Topic(), "/ack"):
		mqttEventCounter("ack").Inc()
		b.handleDownlinkTXAck(msg)
	default:
		log.WithField("topic", msg.Topic()).Debug("radio/mqtt: ignoring event")
	}
}

func (b *Backend) handleUplinkFrame(msg paho.Message) {
	var uplinkFrame gw.UplinkFrame
	t, err := marshaler.UnmarshalUplinkFrame(msg.Payload(), &uplinkFrame)
	if err != nil {
		log.WithFields(log.Fields{
			"data_base64": base64.StdEncoding.EncodeToString(msg.Payload()),
		}).WithError(err).Error("radio/mqtt: unmarshal uplink frame error")
		return
	}

	rxPacket, err := uplinkFrameToRXPacket(&uplinkFrame, b.settings)
	if err != nil {
		uplinkDroppedCounter(dropReason(err)).Inc()
		log.WithFields(log.Fields{
			"data_base64": base64.StdEncoding.EncodeToString(msg.Payload()),
			"reason":      err,
		}).Debug("radio/mqtt: uplink frame ignored")
		return
	}

	var gatewayID lorawan.EUI64
	copy(gatewayID[:], uplinkFrame.RxInfo.GatewayId)
	b.setGatewayMarshaler(gatewayID, t)

	// Since with MQTT all subscribers will receive the uplink messages sent
	// by all the gateways, the first instance receiving the message must lock it,
	// so that other instances can ignore the same message (from the same gw).
	key := storage.GetRedisKey(uplinkLockKeyTempl, gatewayID, hex.EncodeToString(uplinkFrame.PhyPayload))
	set, err := b.redisClient.SetNX(context.Background(), key, "lock", b.lockTTL).Result()
	if err != nil {
		log.WithError(err).Error("radio/mqtt: acquire uplink payload lock error")
		return
	}
	if !set {
		// the payload is already being processed by an other instance
		return
	}

	b.RLock()
	closed := b.closed
	b.RUnlock()
	if closed {
		return
	}

	log.WithField("gateway_id", gatewayID).Info("radio/mqtt: uplink frame received")
	b.rxPacketChan <- rxPacket
}

func (b *Backend) handleDownlinkTXAck(msg paho.Message) {
	var ack gw.DownlinkTXAck
	t, err := marshaler.UnmarshalDownlinkTXAck(msg.Payload(), &ack)
	if err != nil {
		log.WithFields(log.Fields{
			"data_base64": base64.StdEncoding.EncodeToString(msg.Payload()),
		}).WithError(err).Error("radio/mqtt: unmarshal downlink tx ack error")
		return
	}

	var gatewayID lorawan.EUI64
	copy(gatewayID[:], ack.GatewayId)
	b.setGatewayMarshaler(gatewayID, t)

	var downlinkID uuid.UUID
	copy(downlinkID[:], ack.DownlinkId)

	logFields := log.Fields{
		"gateway_id":  gatewayID,
		"downlink_id": downlinkID,
	}

	if err := txAckError(&ack); err != nil {
		log.WithFields(logFields).WithError(err).Warning("radio/mqtt: downlink frame was not transmitted")
		return
	}

	log.WithFields(logFields).Info("radio/mqtt: downlink tx acknowledgement received")
}

func (b *Backend) onConnected(c paho.Client) {
	mqttConnectCounter().Inc()
	log.Info("radio/mqtt: connected to mqtt server")

	for {
		log.WithFields(log.Fields{
			"topic": b.eventTopic,
			"qos":   b.qos,
		}).Info("radio/mqtt: subscribing to gateway event topic")
		if token := c.Subscribe(b.eventTopic, b.qos, b.eventHandler); token.Wait() && token.Error() != nil {
			log.WithFields(log.Fields{
				"topic": b.eventTopic,
				"qos":   b.qos,
			}).Errorf("radio/mqtt: subscribe error: %s", token.Error())
			time.Sleep(time.Second)
			continue
		}
		break
	}
}

func (b *Backend) onConnectionLost(c paho.Client, reason error) {
	mqttDisconnectCounter().Inc()
	log.Errorf("radio/mqtt: mqtt connection error: %s", reason)
}

func (b *Backend) setGatewayMarshaler(gatewayID lorawan.EUI64, t marshaler.Type) {
	b.Lock()
	defer b.Unlock()

	b.gatewayMarshaler[gatewayID] = t
	b.lastGatewayID = &gatewayID
}

func (b *Backend) getGatewayMarshaler(gatewayID lorawan.EUI64) marshaler.Type {
	b.RLock()
	defer b.RUnlock()

	return b.gatewayMarshaler[gatewayID]
}
