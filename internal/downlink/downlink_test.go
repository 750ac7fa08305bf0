package downlink

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio"
	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/channels"
	"github.com/theverygaming/meshtastic-bridge/internal/crypto"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
	"github.com/theverygaming/meshtastic-bridge/internal/test"
)

type DownlinkTestSuite struct {
	suite.Suite

	radio       *test.RadioBackend
	integration *test.Integration
}

func (ts *DownlinkTestSuite) SetupSuite() {
	assert := ts.Require()

	conf := test.GetConfig()
	conf.Meshtastic.Channels = append(conf.Meshtastic.Channels, struct {
		Name string `mapstructure:"name"`
		PSK  string `mapstructure:"psk"`
	}{Name: "LongFast", PSK: "AQ=="})

	assert.NoError(storage.Setup(conf))
	assert.NoError(Setup(conf))
	assert.NoError(channels.Setup(context.Background(), conf))
}

func (ts *DownlinkTestSuite) SetupTest() {
	assert := ts.Require()
	assert.NoError(storage.RedisClient().FlushAll(context.Background()).Err())

	ts.radio = test.NewRadioBackend()
	radio.SetBackend(ts.radio)

	ts.integration = test.NewIntegration()
	integration.SetIntegration(ts.integration)
}

func (ts *DownlinkTestSuite) TestSend() {
	assert := ts.Require()
	ctx := context.Background()

	dest := packet.NodeID(0x11223344)
	hopLimit := uint8(5)

	id, err := Send(ctx, models.TXRequest{
		ChannelName: "LongFast",
		Destination: &dest,
		Text:        "hello mesh",
		WantAck:     true,
		HopLimit:    &hopLimit,
	})
	assert.NoError(err)
	assert.NotEqual(uint32(0), id)

	txPacket := <-ts.radio.TXPacketChan
	pkt, err := packet.ParsePacket(txPacket.Data)
	assert.NoError(err)

	assert.Equal(dest, pkt.Destination)
	assert.Equal(packet.NodeID(0xdeadbeef), pkt.Sender)
	assert.Equal(id, pkt.PacketID)
	assert.Equal(uint8(5), pkt.HopLimit)
	assert.Equal(uint8(5), pkt.HopStart)
	assert.True(pkt.WantAck)
	assert.Equal(uint8(0x08), pkt.ChannelHash)

	crypto.NewWithCounter(channel.DefaultKey(), pkt.PacketID, uint32(pkt.Sender), crypto.Ctr32BE).Apply(pkt.Payload)
	data, err := payload.Unmarshal(pkt.Payload)
	assert.NoError(err)
	assert.Equal(payload.TextMessagePort, data.PortNum)
	assert.Equal([]byte("hello mesh"), data.Payload)

	// the packet id is marked as seen
	first, err := storage.MarkPacketSeen(ctx, 0xdeadbeef, id, time.Minute)
	assert.NoError(err)
	assert.False(first)
}

func (ts *DownlinkTestSuite) TestSendDefaults() {
	assert := ts.Require()

	_, err := Send(context.Background(), models.TXRequest{
		ChannelName: "LongFast",
		PortNum:     67,
		Payload:     []byte{1, 2, 3},
	})
	assert.NoError(err)

	txPacket := <-ts.radio.TXPacketChan
	pkt, err := packet.ParsePacket(txPacket.Data)
	assert.NoError(err)
	assert.Equal(packet.BroadcastNodeID, pkt.Destination)
	assert.Equal(uint8(3), pkt.HopLimit)
	assert.Equal(uint8(3), pkt.HopStart)
	assert.False(pkt.WantAck)
}

func (ts *DownlinkTestSuite) TestSendErrors() {
	assert := ts.Require()
	ctx := context.Background()

	_, err := Send(ctx, models.TXRequest{ChannelName: "Unknown", Text: "hi"})
	assert.Equal(ErrUnknownChannel, errors.Cause(err))

	hopLimit := uint8(8)
	_, err = Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: "hi", HopLimit: &hopLimit})
	assert.Equal(packet.ErrFieldOutOfRange, errors.Cause(err))

	_, err = Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: string(make([]byte, packet.MaxPayloadSize))})
	assert.Equal(packet.ErrPayloadTooLarge, errors.Cause(err))

	ts.radio.SendTXPacketError = errors.New("radio busy")
	_, err = Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: "hi"})
	assert.EqualError(err, "send tx packet error: radio busy")

	radio.SetBackend(nil)
	_, err = Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: "hi"})
	assert.Equal(radio.ErrNoRadio, err)
}

func (ts *DownlinkTestSuite) TestRejectedRequestIsNotMarkedSeen() {
	assert := ts.Require()
	ctx := context.Background()

	hopLimit := uint8(8)
	_, err := Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: "hi", HopLimit: &hopLimit})
	assert.Equal(packet.ErrFieldOutOfRange, errors.Cause(err))

	_, err = Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: string(make([]byte, packet.MaxPayloadSize))})
	assert.Equal(packet.ErrPayloadTooLarge, errors.Cause(err))

	keys, err := storage.RedisClient().Keys(ctx, "*").Result()
	assert.NoError(err)
	assert.Len(keys, 0)

	id, err := Send(ctx, models.TXRequest{ChannelName: "LongFast", Text: "hi"})
	assert.NoError(err)

	first, err := storage.MarkPacketSeen(ctx, nodeID, id, time.Minute)
	assert.NoError(err)
	assert.False(first)
}

func (ts *DownlinkTestSuite) TestServer() {
	assert := ts.Require()

	s := NewServer()
	assert.NoError(s.Start())

	ts.integration.TXRequestChan() <- models.TXRequest{
		ChannelName: "LongFast",
		Text:        "from integration",
	}

	select {
	case <-ts.radio.TXPacketChan:
	case <-time.After(5 * time.Second):
		assert.Fail("timeout waiting for tx packet")
	}

	assert.NoError(ts.integration.Close())
	assert.NoError(s.Stop())
}

func TestDownlink(t *testing.T) {
	if !test.StorageAvailable() {
		t.Skip("TEST_POSTGRES_DSN and TEST_REDIS_URL must be set")
	}

	suite.Run(t, new(DownlinkTestSuite))
}
