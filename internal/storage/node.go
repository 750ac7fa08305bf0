package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/logging"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
)

// Node contains what is known about a node that was heard.
type Node struct {
	NodeID          packet.NodeID `db:"node_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
	FirstSeenAt     time.Time     `db:"first_seen_at"`
	LastSeenAt      time.Time     `db:"last_seen_at"`
	LastChannelName string        `db:"last_channel_name"`
	LastRSSI        int16         `db:"last_rssi"`
	LastSNR         float32       `db:"last_snr"`
	LastFreqError   int32         `db:"last_freq_error"`
	LastHopsAway    int16         `db:"last_hops_away"`
	PacketCount     int64         `db:"packet_count"`
	SNRMean         float64       `db:"snr_mean"`
	SNRStdDev       float64       `db:"snr_std_dev"`
}

// NodeRXInfo contains the reception details of a single packet.
type NodeRXInfo struct {
	NodeID      packet.NodeID
	ChannelName string
	RSSI        int16
	SNR         float32
	FreqError   int32
	HopsAway    int
	ReceivedAt  time.Time
	SNRStats    SNRStats
}

// UpsertNodeRXInfo creates or updates the node record with the given
// reception details and increments its packet counter.
func UpsertNodeRXInfo(ctx context.Context, db sqlx.ExecerContext, rx NodeRXInfo) error {
	if rx.ReceivedAt.IsZero() {
		rx.ReceivedAt = time.Now()
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		insert into node (
			node_id,
			created_at,
			updated_at,
			first_seen_at,
			last_seen_at,
			last_channel_name,
			last_rssi,
			last_snr,
			last_freq_error,
			last_hops_away,
			packet_count,
			snr_mean,
			snr_std_dev
		) values ($1, $2, $2, $3, $3, $4, $5, $6, $7, $8, 1, $9, $10)
		on conflict (node_id) do update set
			updated_at = $2,
			last_seen_at = $3,
			last_channel_name = $4,
			last_rssi = $5,
			last_snr = $6,
			last_freq_error = $7,
			last_hops_away = $8,
			packet_count = node.packet_count + 1,
			snr_mean = $9,
			snr_std_dev = $10`,
		int64(rx.NodeID),
		now,
		rx.ReceivedAt,
		rx.ChannelName,
		rx.RSSI,
		rx.SNR,
		rx.FreqError,
		rx.HopsAway,
		rx.SNRStats.Mean,
		rx.SNRStats.StdDev,
	)
	if err != nil {
		return handlePSQLError(err, "upsert error")
	}

	log.WithFields(log.Fields{
		"node_id": rx.NodeID,
		"ctx_id":  ctx.Value(logging.ContextIDKey),
	}).Debug("storage: node rx-info updated")

	return nil
}

// GetNode returns the node for the given node id.
func GetNode(ctx context.Context, db sqlx.QueryerContext, nodeID packet.NodeID) (Node, error) {
	var n Node
	if err := sqlx.GetContext(ctx, db, &n, "select * from node where node_id = $1", int64(nodeID)); err != nil {
		return n, handlePSQLError(err, "select error")
	}
	return n, nil
}

// GetNodes returns the nodes, most recently seen first.
func GetNodes(ctx context.Context, db sqlx.QueryerContext, limit, offset int) ([]Node, error) {
	var nodes []Node
	err := sqlx.SelectContext(ctx, db, &nodes, `
		select *
		from node
		order by last_seen_at desc, node_id
		limit $1 offset $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, handlePSQLError(err, "select error")
	}
	return nodes, nil
}

// GetNodeCount returns the number of nodes.
func GetNodeCount(ctx context.Context, db sqlx.QueryerContext) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, db, &count, "select count(*) from node"); err != nil {
		return 0, handlePSQLError(err, "select error")
	}
	return count, nil
}

// DeleteNode deletes the node with the given node id.
func DeleteNode(ctx context.Context, db sqlx.ExecerContext, nodeID packet.NodeID) error {
	res, err := db.ExecContext(ctx, "delete from node where node_id = $1", int64(nodeID))
	if err != nil {
		return handlePSQLError(err, "delete error")
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected error")
	}
	if ra == 0 {
		return ErrDoesNotExist
	}

	log.WithFields(log.Fields{
		"node_id": nodeID,
		"ctx_id":  ctx.Value(logging.ContextIDKey),
	}).Info("storage: node deleted")

	return nil
}
