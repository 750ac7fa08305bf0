package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/theverygaming/meshtastic-bridge/internal/packet"
)

const (
	nodeSNRKeyTempl = "meshtastic:node:%s:snr"
	nodeSNRTTL      = time.Hour * 24 * 7
)

// SNRStats contains the statistics of the last SNR readings of a node.
type SNRStats struct {
	Count  int
	Mean   float64
	StdDev float64
}

// AddNodeSNR stores the given SNR reading, keeping the last size readings.
func AddNodeSNR(ctx context.Context, nodeID packet.NodeID, snr float32, size int) error {
	if size < 1 {
		size = 1
	}

	key := GetRedisKey(nodeSNRKeyTempl, nodeID)

	pipe := RedisClient().TxPipeline()
	pipe.LPush(ctx, key, strconv.FormatFloat(float64(snr), 'f', -1, 32))
	pipe.LTrim(ctx, key, 0, int64(size-1))
	pipe.PExpire(ctx, key, nodeSNRTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "add node snr error")
	}

	return nil
}

// GetNodeSNRStats returns the statistics of the stored SNR readings.
func GetNodeSNRStats(ctx context.Context, nodeID packet.NodeID) (SNRStats, error) {
	key := GetRedisKey(nodeSNRKeyTempl, nodeID)

	vals, err := RedisClient().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return SNRStats{}, errors.Wrap(err, "read node snr error")
	}

	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return SNRStats{}, errors.Wrap(err, "parse snr error")
		}
		xs = append(xs, f)
	}

	return snrStats(xs), nil
}

func snrStats(xs []float64) SNRStats {
	switch len(xs) {
	case 0:
		return SNRStats{}
	case 1:
		return SNRStats{Count: 1, Mean: xs[0]}
	}

	mean, std := stat.MeanStdDev(xs, nil)
	return SNRStats{
		Count:  len(xs),
		Mean:   mean,
		StdDev: std,
	}
}
