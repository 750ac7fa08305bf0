package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theverygaming/meshtastic-bridge/internal/packet"
)

func (ts *StorageTestSuite) TestNode() {
	ctx := context.Background()
	nodeID := packet.NodeID(0x1234abcd)
	first := time.Now().Add(-time.Minute).Round(time.Second)

	ts.T().Run("Upsert new", func(t *testing.T) {
		assert := require.New(t)

		assert.NoError(UpsertNodeRXInfo(ctx, ts.Tx(), NodeRXInfo{
			NodeID:      nodeID,
			ChannelName: "LongFast",
			RSSI:        -80,
			SNR:         7.5,
			FreqError:   120,
			HopsAway:    0,
			ReceivedAt:  first,
			SNRStats:    SNRStats{Count: 1, Mean: 7.5},
		}))

		n, err := GetNode(ctx, ts.Tx(), nodeID)
		assert.NoError(err)
		assert.Equal(nodeID, n.NodeID)
		assert.Equal(int64(1), n.PacketCount)
		assert.Equal(int16(-80), n.LastRSSI)
		assert.Equal(float32(7.5), n.LastSNR)
		assert.Equal(int32(120), n.LastFreqError)
		assert.Equal(int16(0), n.LastHopsAway)
		assert.Equal("LongFast", n.LastChannelName)
		assert.True(first.Equal(n.FirstSeenAt))
	})

	ts.T().Run("Upsert existing", func(t *testing.T) {
		assert := require.New(t)

		last := time.Now().Round(time.Second)
		assert.NoError(UpsertNodeRXInfo(ctx, ts.Tx(), NodeRXInfo{
			NodeID:      nodeID,
			ChannelName: "MediumSlow",
			RSSI:        -100,
			SNR:         -2.5,
			HopsAway:    2,
			ReceivedAt:  last,
			SNRStats:    SNRStats{Count: 2, Mean: 2.5, StdDev: 7.0710678118654755},
		}))

		n, err := GetNode(ctx, ts.Tx(), nodeID)
		assert.NoError(err)
		assert.Equal(int64(2), n.PacketCount)
		assert.Equal("MediumSlow", n.LastChannelName)
		assert.Equal(int16(2), n.LastHopsAway)
		assert.Equal(2.5, n.SNRMean)
		assert.True(first.Equal(n.FirstSeenAt))
		assert.True(last.Equal(n.LastSeenAt))
	})

	ts.T().Run("GetNodes", func(t *testing.T) {
		assert := require.New(t)

		other := packet.NodeID(0x00000001)
		assert.NoError(UpsertNodeRXInfo(ctx, ts.Tx(), NodeRXInfo{
			NodeID:     other,
			ReceivedAt: first.Add(-time.Hour),
		}))

		count, err := GetNodeCount(ctx, ts.Tx())
		assert.NoError(err)
		assert.Equal(2, count)

		nodes, err := GetNodes(ctx, ts.Tx(), 10, 0)
		assert.NoError(err)
		assert.Len(nodes, 2)
		assert.Equal(nodeID, nodes[0].NodeID)
		assert.Equal(other, nodes[1].NodeID)

		nodes, err = GetNodes(ctx, ts.Tx(), 10, 1)
		assert.NoError(err)
		assert.Len(nodes, 1)
	})

	ts.T().Run("Delete", func(t *testing.T) {
		assert := require.New(t)

		assert.NoError(DeleteNode(ctx, ts.Tx(), nodeID))
		assert.Equal(ErrDoesNotExist, DeleteNode(ctx, ts.Tx(), nodeID))

		_, err := GetNode(ctx, ts.Tx(), nodeID)
		assert.Equal(ErrDoesNotExist, err)
	})
}
