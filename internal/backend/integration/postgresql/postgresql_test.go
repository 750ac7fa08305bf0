package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
	"github.com/theverygaming/meshtastic-bridge/internal/test"
)

var _ integration.Integration = &Integration{}

type IntegrationTestSuite struct {
	suite.Suite

	tx *sqlx.Tx
}

func (ts *IntegrationTestSuite) SetupSuite() {
	assert := ts.Require()
	conf := test.GetConfig()
	assert.NoError(storage.Setup(conf))
	assert.NoError(storage.MigrateDown(storage.DB()))
	assert.NoError(storage.MigrateUp(storage.DB()))
}

func (ts *IntegrationTestSuite) SetupTest() {
	var err error
	ts.tx, err = storage.DB().Beginx()
	ts.Require().NoError(err)
}

func (ts *IntegrationTestSuite) TearDownTest() {
	ts.Require().NoError(ts.tx.Rollback())
}

func (ts *IntegrationTestSuite) TestSendUplinkEvent() {
	assert := ts.Require()

	i := New(ts.tx)
	now := time.Now().Round(time.Millisecond).UTC()

	evt := models.UplinkEvent{
		ChannelName: "LongFast",
		Encrypted:   true,
		Destination: packet.BroadcastNodeID,
		Sender:      packet.NodeID(0x1234abcd),
		PacketID:    0xdeadbeef,
		HopLimit:    2,
		HopStart:    3,
		Data: payload.Data{
			PortNum: payload.TextMessagePort,
			Payload: []byte("hello"),
		},
		RXInfo: models.RXInfo{
			Source:     "0102030405060708",
			RSSI:       -100,
			SNR:        5.5,
			ReceivedAt: now,
		},
	}
	assert.NoError(i.SendUplinkEvent(context.Background(), evt))

	var row struct {
		ChannelName string    `db:"channel_name"`
		Sender      int64     `db:"sender"`
		Destination int64     `db:"destination"`
		PacketID    int64     `db:"packet_id"`
		PortNum     int64     `db:"port_num"`
		Payload     []byte    `db:"payload"`
		RSSI        int16     `db:"rssi"`
		SNR         float32   `db:"snr"`
		ReceivedAt  time.Time `db:"received_at"`
	}
	assert.NoError(sqlx.Get(ts.tx, &row, `
		select channel_name, sender, destination, packet_id, port_num, payload, rssi, snr, received_at
		from event_up`))

	assert.Equal("LongFast", row.ChannelName)
	assert.Equal(int64(0x1234abcd), row.Sender)
	assert.Equal(int64(0xffffffff), row.Destination)
	assert.Equal(int64(0xdeadbeef), row.PacketID)
	assert.Equal(int64(1), row.PortNum)
	assert.Equal([]byte("hello"), row.Payload)
	assert.Equal(int16(-100), row.RSSI)
	assert.Equal(float32(5.5), row.SNR)
	assert.True(now.Equal(row.ReceivedAt))
}

func TestIntegration(t *testing.T) {
	if !test.StorageAvailable() {
		t.Skip("TEST_POSTGRES_DSN and TEST_REDIS_URL must be set")
	}

	suite.Run(t, new(IntegrationTestSuite))
}
