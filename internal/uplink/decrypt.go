package uplink

import (
	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/crypto"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
)

// decryptPacket tries the candidate channels for the channel hash of the
// packet. The first channel for which the payload decodes as Data
// envelope is returned.
func decryptPacket(resolver channel.Resolver, counter crypto.Counter, pkt packet.Packet) (channel.Channel, payload.Data, bool) {
	buf := make([]byte, len(pkt.Payload))

	for _, ch := range resolver.Candidates(pkt.ChannelHash) {
		b := pkt.Payload
		if ch.Encrypted() {
			crypto.NewWithCounter(ch.Key, pkt.PacketID, uint32(pkt.Sender), counter).XORKeyStream(buf, pkt.Payload)
			b = buf
		}

		data, err := payload.Unmarshal(b)
		if err != nil {
			continue
		}

		return ch, data, true
	}

	return channel.Channel{}, payload.Data{}, false
}
