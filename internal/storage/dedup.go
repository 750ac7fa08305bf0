package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/packet"
)

const packetSeenKeyTempl = "meshtastic:packet:%s:%08x"

// MarkPacketSeen marks the (sender, packet id) pair as seen for the given
// ttl. It returns false when the pair was already marked.
func MarkPacketSeen(ctx context.Context, sender packet.NodeID, packetID uint32, ttl time.Duration) (bool, error) {
	key := GetRedisKey(packetSeenKeyTempl, sender, packetID)

	set, err := RedisClient().SetNX(ctx, key, "lock", ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "set packet seen error")
	}

	return set, nil
}
