package downlink

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/crypto"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
)

// ErrInvalidRequest is returned when the tx request has no content.
var ErrInvalidRequest = errors.New("invalid tx request")

// newPacketID returns a random non-zero packet id.
func newPacketID() (uint32, error) {
	var b [4]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, errors.Wrap(err, "read random bytes error")
		}
		if id := binary.LittleEndian.Uint32(b[:]); id != 0 {
			return id, nil
		}
	}
}

// requestData returns the Data envelope for the tx request. A text
// message takes precedence over the raw payload.
func requestData(req models.TXRequest) (payload.Data, error) {
	if req.Text != "" {
		return payload.Data{
			PortNum: payload.TextMessagePort,
			Payload: []byte(req.Text),
		}, nil
	}

	if req.PortNum == 0 {
		return payload.Data{}, errors.Wrap(ErrInvalidRequest, "text or port number must be set")
	}

	return payload.Data{
		PortNum: req.PortNum,
		Payload: req.Payload,
	}, nil
}

// buildPacket returns the packet for the given channel and data, with
// the payload encrypted when the channel has a key.
func buildPacket(ch channel.Channel, counter crypto.Counter, header packet.Header, data payload.Data) packet.Packet {
	header.ChannelHash = ch.Hash

	b := data.Marshal()
	if ch.Encrypted() {
		crypto.NewWithCounter(ch.Key, header.PacketID, uint32(header.Sender), counter).Apply(b)
	}

	return packet.Packet{
		Header:  header,
		Payload: b,
	}
}
