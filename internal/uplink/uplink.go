// Package uplink handles the frames received by the radio backend.
package uplink

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio"
	"github.com/theverygaming/meshtastic-bridge/internal/channels"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/crypto"
	"github.com/theverygaming/meshtastic-bridge/internal/framelog"
	"github.com/theverygaming/meshtastic-bridge/internal/logging"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

var (
	nodeID         packet.NodeID
	counter        = crypto.Ctr32BE
	dedupTTL       = time.Minute * 10
	snrHistorySize = 20
)

// Setup configures the uplink handling.
func Setup(c config.Config) error {
	ctr, err := crypto.ParseCounter(c.Meshtastic.CounterMode)
	if err != nil {
		return errors.Wrap(err, "parse counter mode error")
	}

	counter = ctr
	nodeID = packet.NodeID(c.Meshtastic.NodeID)

	if c.Meshtastic.DeduplicationTTL != 0 {
		dedupTTL = c.Meshtastic.DeduplicationTTL
	}
	if c.Meshtastic.SNRHistorySize != 0 {
		snrHistorySize = c.Meshtastic.SNRHistorySize
	}

	return nil
}

// Server represents a server handling the received frames.
type Server struct {
	wg sync.WaitGroup
}

// NewServer creates a new server.
func NewServer() *Server {
	return &Server{}
}

// Start starts the server.
func (s *Server) Start() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		HandleRXPackets(&s.wg)
	}()
	return nil
}

// Stop waits for the server to complete the pending packets. At this
// stage the radio backend must already been closed.
func (s *Server) Stop() error {
	log.Info("uplink: waiting for pending actions to complete")
	s.wg.Wait()
	return nil
}

// HandleRXPackets consumes the frames received by the radio backend and
// handles them in a separate go-routine. Errors are logged.
func HandleRXPackets(wg *sync.WaitGroup) {
	if radio.Backend() == nil {
		return
	}

	for rxPacket := range radio.Backend().RXPacketChan() {
		wg.Add(1)
		go func(rxPacket models.RXPacket) {
			defer wg.Done()

			ctx, err := logging.NewContext(context.Background())
			if err != nil {
				log.WithError(err).Error("uplink: new context error")
				return
			}

			if err := HandleRXPacket(ctx, rxPacket); err != nil {
				uplinkPacketErrorCounter().Inc()
				logging.Logger(ctx).WithError(err).WithFields(log.Fields{
					"data_hex": hex.EncodeToString(rxPacket.Data),
					"source":   rxPacket.Source,
				}).Error("uplink: processing rx packet error")
			}
		}(rxPacket)
	}
}

// HandleRXPacket handles a single received frame.
func HandleRXPacket(ctx context.Context, rxPacket models.RXPacket) error {
	pkt, err := packet.ParsePacket(rxPacket.Data)
	if err != nil {
		uplinkPacketCounter(resultParseError).Inc()
		return errors.Wrap(err, "parse packet error")
	}

	logging.AddFields(ctx, log.Fields{
		"sender":       pkt.Sender,
		"packet_id":    pkt.PacketID,
		"channel_hash": pkt.ChannelHash,
	})
	logger := logging.Logger(ctx)

	if pkt.Sender == nodeID {
		uplinkPacketCounter(resultOwnPacket).Inc()
		logger.Debug("uplink: ignoring packet sent by local node")
		return nil
	}

	first, err := storage.MarkPacketSeen(ctx, pkt.Sender, pkt.PacketID, dedupTTL)
	if err != nil {
		return errors.Wrap(err, "mark packet seen error")
	}
	if !first {
		uplinkPacketCounter(resultDuplicate).Inc()
		logger.Debug("uplink: ignoring duplicate packet")
		return nil
	}

	rxInfo := models.RXInfo{
		Source:     rxPacket.Source,
		Frequency:  rxPacket.Frequency,
		RSSI:       rxPacket.RSSI,
		SNR:        rxPacket.SNR,
		FreqError:  rxPacket.FreqError,
		ReceivedAt: rxPacket.ReceivedAt,
	}
	if rxInfo.ReceivedAt.IsZero() {
		rxInfo.ReceivedAt = time.Now()
	}

	ch, data, ok := decryptPacket(channels.Registry(), counter, pkt)

	frameLog := framelog.UplinkFrameLog{
		Header:  pkt.Header,
		Payload: pkt.Payload,
		RXInfo:  rxInfo,
	}
	if ok {
		frameLog.ChannelName = ch.Name
	}
	if err := framelog.LogUplinkFrame(ctx, frameLog); err != nil {
		logger.WithError(err).Error("uplink: log uplink frame error")
	}

	if !ok {
		uplinkPacketCounter(resultUnknownChannel).Inc()
		logger.Info("uplink: no channel could decrypt the packet")
		return nil
	}

	uplinkPacketCounter(resultDecrypted).Inc()
	rssi.Observe(float64(rxPacket.RSSI))
	snr.Observe(float64(rxPacket.SNR))

	logger.WithFields(log.Fields{
		"channel":  ch.Name,
		"port_num": data.PortNum,
		"rssi":     rxPacket.RSSI,
		"snr":      rxPacket.SNR,
	}).Info("uplink: packet received")

	if err := updateNode(ctx, pkt, ch.Name, rxInfo); err != nil {
		logger.WithError(err).Error("uplink: update node error")
	}

	if integration.GetIntegration() == nil {
		return nil
	}

	evt := models.UplinkEvent{
		ChannelName: ch.Name,
		Encrypted:   ch.Encrypted(),
		Destination: pkt.Destination,
		Sender:      pkt.Sender,
		PacketID:    pkt.PacketID,
		HopLimit:    pkt.HopLimit,
		HopStart:    pkt.HopStart,
		HopsAway:    pkt.HopsAway(),
		WantAck:     pkt.WantAck,
		ViaMQTT:     pkt.ViaMQTT,
		ChannelHash: pkt.ChannelHash,
		NextHop:     pkt.NextHop,
		RelayNode:   pkt.RelayNode,
		Data:        data,
		RXInfo:      rxInfo,
	}

	if err := integration.GetIntegration().SendUplinkEvent(ctx, evt); err != nil {
		return errors.Wrap(err, "send uplink event error")
	}

	return nil
}

func updateNode(ctx context.Context, pkt packet.Packet, channelName string, rxInfo models.RXInfo) error {
	if err := storage.AddNodeSNR(ctx, pkt.Sender, rxInfo.SNR, snrHistorySize); err != nil {
		return errors.Wrap(err, "add node snr error")
	}

	stats, err := storage.GetNodeSNRStats(ctx, pkt.Sender)
	if err != nil {
		return errors.Wrap(err, "get node snr stats error")
	}

	return storage.UpsertNodeRXInfo(ctx, storage.DB(), storage.NodeRXInfo{
		NodeID:      pkt.Sender,
		ChannelName: channelName,
		RSSI:        rxInfo.RSSI,
		SNR:         rxInfo.SNR,
		FreqError:   rxInfo.FreqError,
		HopsAway:    pkt.HopsAway(),
		ReceivedAt:  rxInfo.ReceivedAt,
		SNRStats:    stats,
	})
}
