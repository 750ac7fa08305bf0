// Package tcpmodem implements a radio backend using a LoRa modem that
// exchanges newline separated JSON messages over TCP.
package tcpmodem

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// errors
var (
	ErrDisconnected = errors.New("modem disconnected")
	ErrTXTimeout    = errors.New("timeout waiting for tx acknowledgement")
)

type txAck struct {
	success bool
	reason  string
}

// Backend implements the TCP modem radio backend.
type Backend struct {
	sync.Mutex

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	dial           func(ctx context.Context) (net.Conn, error)
	reconnectDelay time.Duration
	txTimeout      time.Duration
	settings       models.RadioSettings

	rxPacketChan chan models.RXPacket

	conn    net.Conn
	nextID  uint32
	pending map[uint32]chan txAck
	meta    Meta
}

// NewBackend creates a new Backend and starts connecting to the modem.
func NewBackend(c config.Config) (*Backend, error) {
	conf := c.Radio.Backend.TCPModem
	if conf.Server == "" {
		return nil, errors.New("radio/tcpmodem: server must be set")
	}

	dialer := net.Dialer{
		Timeout: 10 * time.Second,
	}

	b := newBackend(func(ctx context.Context) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", conf.Server)
	}, conf.ReconnectDelay, conf.TXTimeout, radio.SettingsFromConfig(c))

	log.WithField("server", conf.Server).Info("radio/tcpmodem: connecting to modem")

	return b, nil
}

func newBackend(dial func(ctx context.Context) (net.Conn, error), reconnectDelay, txTimeout time.Duration, s models.RadioSettings) *Backend {
	if reconnectDelay == 0 {
		reconnectDelay = 2 * time.Second
	}
	if txTimeout == 0 {
		txTimeout = 15 * time.Second
	}

	b := Backend{
		dial:           dial,
		reconnectDelay: reconnectDelay,
		txTimeout:      txTimeout,
		settings:       s,
		rxPacketChan:   make(chan models.RXPacket),
		pending:        make(map[uint32]chan txAck),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	b.wg.Add(1)
	go b.run()

	return &b
}

// Close closes the connection to the modem.
func (b *Backend) Close() error {
	log.Info("radio/tcpmodem: closing backend")

	b.cancel()

	b.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.Unlock()

	b.wg.Wait()
	close(b.rxPacketChan)
	return nil
}

// RXPacketChan returns the received frames channel.
func (b *Backend) RXPacketChan() chan models.RXPacket {
	return b.rxPacketChan
}

// Meta returns the capabilities last reported by the modem.
func (b *Backend) Meta() Meta {
	b.Lock()
	defer b.Unlock()
	return b.meta
}

// SendTXPacket sends the given frame to the modem and waits for the
// transmission to be acknowledged.
func (b *Backend) SendTXPacket(ctx context.Context, pkt models.TXPacket) error {
	b.Lock()
	if b.conn == nil {
		b.Unlock()
		return radio.ErrNoRadio
	}

	b.nextID++
	id := b.nextID
	ackChan := make(chan txAck, 1)
	b.pending[id] = ackChan

	err := b.writeMessage(packetTXMessage{
		Type: typePacketTX,
		ID:   id,
		Data: pkt.Data,
	})
	b.Unlock()

	defer func() {
		b.Lock()
		delete(b.pending, id)
		b.Unlock()
	}()

	if err != nil {
		return errors.Wrap(err, "radio/tcpmodem: write packet error")
	}

	log.WithFields(log.Fields{
		"id":   id,
		"size": len(pkt.Data),
	}).Info("radio/tcpmodem: packet sent to modem")

	timer := time.NewTimer(b.txTimeout)
	defer timer.Stop()

	select {
	case ack, ok := <-ackChan:
		if !ok {
			return ErrDisconnected
		}
		if !ack.success {
			return errors.Errorf("radio/tcpmodem: transmission failed: %s", ack.reason)
		}
		return nil
	case <-timer.C:
		return ErrTXTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return ErrDisconnected
	}
}

func (b *Backend) run() {
	defer b.wg.Done()

	for {
		conn, err := b.dial(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			log.WithError(err).Errorf("radio/tcpmodem: connecting to modem failed, will retry in %s", b.reconnectDelay)
		} else {
			if err := b.handleConn(conn); err != nil && b.ctx.Err() == nil {
				log.WithError(err).Errorf("radio/tcpmodem: modem connection error, will reconnect in %s", b.reconnectDelay)
			}
		}

		select {
		case <-b.ctx.Done():
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *Backend) handleConn(conn net.Conn) error {
	b.Lock()
	if b.ctx.Err() != nil {
		b.Unlock()
		conn.Close()
		return nil
	}
	b.conn = conn
	err := b.writeMessage(newSettingsMessage(b.settings))
	if err == nil {
		err = b.writeMessage(metaQMessage{Type: typeMetaQ})
	}
	b.Unlock()

	defer b.disconnect(conn)

	if err != nil {
		return errors.Wrap(err, "write settings error")
	}

	log.Info("radio/tcpmodem: connected to modem")

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		b.handleLine(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return ErrDisconnected
}

func (b *Backend) disconnect(conn net.Conn) {
	conn.Close()

	b.Lock()
	defer b.Unlock()

	b.conn = nil
	for id, ackChan := range b.pending {
		close(ackChan)
		delete(b.pending, id)
	}
}

func (b *Backend) handleLine(line []byte) {
	var msg inMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		log.WithField("line", string(line)).Warning("radio/tcpmodem: ignoring non-json line")
		return
	}

	switch msg.Type {
	case typePacketRX:
		rx := models.RXPacket{
			Data:       msg.Data,
			RSSI:       int16(msg.RSSI),
			SNR:        float32(msg.SNR),
			FreqError:  int32(msg.FreqError),
			Frequency:  b.settings.Frequency,
			ReceivedAt: time.Now(),
		}

		log.WithFields(log.Fields{
			"rssi": rx.RSSI,
			"snr":  rx.SNR,
			"size": len(rx.Data),
		}).Info("radio/tcpmodem: packet received")

		select {
		case b.rxPacketChan <- rx:
		case <-b.ctx.Done():
		}
	case typeTXAck:
		b.Lock()
		ackChan, ok := b.pending[msg.ID]
		if ok {
			delete(b.pending, msg.ID)
		}
		b.Unlock()

		if !ok {
			log.WithField("id", msg.ID).Warning("radio/tcpmodem: tx acknowledgement for unknown id")
			return
		}
		ackChan <- txAck{success: msg.Success, reason: msg.Reason}
	case typeMeta:
		b.Lock()
		b.meta = Meta{
			GainMax:    msg.GainMax,
			TXPowerMax: msg.TXPowerMax,
		}
		b.Unlock()

		log.WithFields(log.Fields{
			"gain_max":     msg.GainMax,
			"tx_power_max": msg.TXPowerMax,
		}).Info("radio/tcpmodem: modem meta-data received")
	case "":
		log.WithField("applied", string(line)).Info("radio/tcpmodem: modem settings applied")
	default:
		log.WithField("type", msg.Type).Debug("radio/tcpmodem: ignoring message")
	}
}

// writeMessage must be called with the lock held.
func (b *Backend) writeMessage(msg interface{}) error {
	if b.conn == nil {
		return ErrDisconnected
	}

	bb, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal json error")
	}

	_, err = b.conn.Write(append(bb, '\n'))
	return err
}
