// Package downlink transmits the payloads requested by the integration.
package downlink

import (
	"context"
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

// ErrUnknownChannel is returned when the requested channel does not exist.
var ErrUnknownChannel = errors.New("unknown channel")

var (
	nodeID   packet.NodeID
	counter  = crypto.Ctr32BE
	hopLimit uint8 = 3
	dedupTTL       = time.Minute * 10
)

// Setup configures the downlink.
func Setup(c config.Config) error {
	ctr, err := crypto.ParseCounter(c.Meshtastic.CounterMode)
	if err != nil {
		return errors.Wrap(err, "parse counter mode error")
	}

	if c.Meshtastic.HopLimit > packet.MaxHops {
		return errors.Errorf("hop_limit must be <= %d", packet.MaxHops)
	}

	counter = ctr
	nodeID = packet.NodeID(c.Meshtastic.NodeID)

	if c.Meshtastic.HopLimit != 0 {
		hopLimit = c.Meshtastic.HopLimit
	}
	if c.Meshtastic.DeduplicationTTL != 0 {
		dedupTTL = c.Meshtastic.DeduplicationTTL
	}

	return nil
}

// Send transmits the given tx request and returns the packet id.
func Send(ctx context.Context, req models.TXRequest) (uint32, error) {
	ch, ok := channels.Registry().Get(req.ChannelName)
	if !ok {
		return 0, errors.Wrap(ErrUnknownChannel, req.ChannelName)
	}

	data, err := requestData(req)
	if err != nil {
		return 0, err
	}

	if radio.Backend() == nil {
		return 0, radio.ErrNoRadio
	}

	packetID, err := newPacketID()
	if err != nil {
		return 0, errors.Wrap(err, "new packet id error")
	}

	header := packet.Header{
		Destination: packet.BroadcastNodeID,
		Sender:      nodeID,
		PacketID:    packetID,
		HopLimit:    hopLimit,
		HopStart:    hopLimit,
		WantAck:     req.WantAck,
	}
	if req.Destination != nil {
		header.Destination = *req.Destination
	}
	if req.HopLimit != nil {
		header.HopLimit = *req.HopLimit
		header.HopStart = *req.HopLimit
	}

	pkt := buildPacket(ch, counter, header, data)
	b, err := pkt.MarshalBinary()
	if err != nil {
		return 0, errors.Wrap(err, "marshal packet error")
	}

	// the rebroadcasts of our own packet must not be handled as uplink
	if _, err := storage.MarkPacketSeen(ctx, nodeID, packetID, dedupTTL); err != nil {
		return 0, errors.Wrap(err, "mark packet seen error")
	}

	if err := radio.Backend().SendTXPacket(ctx, models.TXPacket{Data: b}); err != nil {
		return 0, errors.Wrap(err, "send tx packet error")
	}

	downlinkPacketCounter(ch.Name).Inc()

	if err := framelog.LogDownlinkFrame(ctx, framelog.DownlinkFrameLog{
		Header:      pkt.Header,
		Payload:     pkt.Payload,
		ChannelName: ch.Name,
		SentAt:      time.Now(),
	}); err != nil {
		logging.Logger(ctx).WithError(err).Error("downlink: log downlink frame error")
	}

	logging.Logger(ctx).WithFields(log.Fields{
		"channel":     ch.Name,
		"packet_id":   packetID,
		"destination": header.Destination,
		"port_num":    data.PortNum,
	}).Info("downlink: packet sent")

	return packetID, nil
}

// Server handles the tx requests of the integration.
type Server struct {
	wg sync.WaitGroup
}

// NewServer creates a new server.
func NewServer() *Server {
	return &Server{}
}

// Start starts the server.
func (s *Server) Start() error {
	if integration.GetIntegration() == nil {
		return nil
	}

	txRequests := integration.GetIntegration().TXRequestChan()
	if txRequests == nil {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for req := range txRequests {
			s.wg.Add(1)
			go func(req models.TXRequest) {
				defer s.wg.Done()
				handleTXRequest(req)
			}(req)
		}
	}()

	return nil
}

// Stop waits for the pending tx requests to complete. At this stage the
// integration must already been closed.
func (s *Server) Stop() error {
	s.wg.Wait()
	return nil
}

func handleTXRequest(req models.TXRequest) {
	ctx, err := logging.NewContext(context.Background())
	if err != nil {
		log.WithError(err).Error("downlink: new context error")
		return
	}

	if _, err := Send(ctx, req); err != nil {
		downlinkPacketErrorCounter().Inc()
		logging.Logger(ctx).WithError(err).WithField("channel", req.ChannelName).Error("downlink: handle tx request error")
	}
}
