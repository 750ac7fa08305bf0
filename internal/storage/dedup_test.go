package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theverygaming/meshtastic-bridge/internal/packet"
)

func (ts *StorageTestSuite) TestMarkPacketSeen() {
	assert := require.New(ts.T())
	ctx := context.Background()

	first, err := MarkPacketSeen(ctx, packet.NodeID(0x11223344), 1, time.Minute)
	assert.NoError(err)
	assert.True(first)

	first, err = MarkPacketSeen(ctx, packet.NodeID(0x11223344), 1, time.Minute)
	assert.NoError(err)
	assert.False(first)

	// same packet id, other sender
	first, err = MarkPacketSeen(ctx, packet.NodeID(0x11223345), 1, time.Minute)
	assert.NoError(err)
	assert.True(first)
}

func (ts *StorageTestSuite) TestNodeSNR() {
	assert := require.New(ts.T())
	ctx := context.Background()
	nodeID := packet.NodeID(0xcafe)

	stats, err := GetNodeSNRStats(ctx, nodeID)
	assert.NoError(err)
	assert.Equal(SNRStats{}, stats)

	for _, snr := range []float32{100, 2, 4, 6} {
		assert.NoError(AddNodeSNR(ctx, nodeID, snr, 3))
	}

	stats, err = GetNodeSNRStats(ctx, nodeID)
	assert.NoError(err)
	assert.Equal(3, stats.Count)
	assert.InDelta(4, stats.Mean, 1e-9)
	assert.InDelta(2, stats.StdDev, 1e-9)
}
