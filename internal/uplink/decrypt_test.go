package uplink

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/crypto"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
)

const firmwareCiphertext = "7d7fa9491ad139f4f9f3575b83054da6db2c25a882255fa47e919fff39"

func firmwarePacket() packet.Packet {
	b, err := hex.DecodeString(firmwareCiphertext)
	if err != nil {
		panic(err)
	}

	return packet.Packet{
		Header: packet.Header{
			Destination: packet.BroadcastNodeID,
			Sender:      0x11223344,
			PacketID:    0xfb3eb15f,
			HopLimit:    3,
			HopStart:    3,
			ChannelHash: 0x08,
		},
		Payload: b,
	}
}

func TestDecryptPacket(t *testing.T) {
	longFast, err := channel.New("LongFast", "AQ==")
	require.NoError(t, err)

	// same hash as LongFast, different key
	collision, err := channel.FromKey("LongFaqs", append(make([]byte, 15), 0x07))
	require.NoError(t, err)

	cleartext, err := channel.New("Clear", "AA==")
	require.NoError(t, err)

	clearData := payload.Data{
		PortNum: payload.TextMessagePort,
		Payload: []byte("hi"),
	}

	tests := []struct {
		Name            string
		Channels        []channel.Channel
		Packet          packet.Packet
		ExpectedOK      bool
		ExpectedChannel string
		ExpectedData    payload.Data
	}{
		{
			Name:            "default channel",
			Channels:        []channel.Channel{longFast},
			Packet:          firmwarePacket(),
			ExpectedOK:      true,
			ExpectedChannel: "LongFast",
			ExpectedData: payload.Data{
				PortNum: payload.TextMessagePort,
				Payload: []byte("Hello from Waveshare USB!"),
			},
		},
		{
			Name:            "colliding channel is tried first",
			Channels:        []channel.Channel{collision, longFast},
			Packet:          firmwarePacket(),
			ExpectedOK:      true,
			ExpectedChannel: "LongFast",
			ExpectedData: payload.Data{
				PortNum: payload.TextMessagePort,
				Payload: []byte("Hello from Waveshare USB!"),
			},
		},
		{
			Name:     "only the colliding channel",
			Channels: []channel.Channel{collision},
			Packet:   firmwarePacket(),
		},
		{
			Name:     "unknown hash",
			Channels: []channel.Channel{longFast},
			Packet: func() packet.Packet {
				p := firmwarePacket()
				p.ChannelHash = 0x42
				return p
			}(),
		},
		{
			Name:     "cleartext channel",
			Channels: []channel.Channel{longFast, cleartext},
			Packet: packet.Packet{
				Header: packet.Header{
					Destination: packet.BroadcastNodeID,
					Sender:      0x11223344,
					PacketID:    1,
					ChannelHash: cleartext.Hash,
				},
				Payload: clearData.Marshal(),
			},
			ExpectedOK:      true,
			ExpectedChannel: "Clear",
			ExpectedData:    clearData,
		},
	}

	for _, tst := range tests {
		t.Run(tst.Name, func(t *testing.T) {
			assert := require.New(t)

			set, err := channel.NewSet(tst.Channels...)
			assert.NoError(err)

			ch, data, ok := decryptPacket(set, crypto.Ctr32BE, tst.Packet)
			assert.Equal(tst.ExpectedOK, ok)
			if !ok {
				return
			}

			assert.Equal(tst.ExpectedChannel, ch.Name)
			assert.Equal(tst.ExpectedData, data)
		})
	}
}

func TestDecryptPacketKeepsPayload(t *testing.T) {
	assert := require.New(t)

	longFast, err := channel.New("LongFast", "AQ==")
	assert.NoError(err)
	set, err := channel.NewSet(longFast)
	assert.NoError(err)

	pkt := firmwarePacket()
	_, _, ok := decryptPacket(set, crypto.Ctr32BE, pkt)
	assert.True(ok)
	assert.Equal(firmwareCiphertext, hex.EncodeToString(pkt.Payload))
}
