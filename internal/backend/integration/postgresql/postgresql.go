// Package postgresql implements an integration which stores the uplink
// events in the event_up table.
package postgresql

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

const integrationName = "postgresql"

// Integration implements a PostgreSQL integration.
type Integration struct {
	db sqlx.ExecerContext
}

// New creates a new PostgreSQL integration using the given database.
func New(db sqlx.ExecerContext) *Integration {
	return &Integration{db: db}
}

// SendUplinkEvent stores the uplink event.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	id, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "new uuid error")
	}

	receivedAt := evt.RXInfo.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err = i.db.ExecContext(ctx, `
		insert into event_up (
			id,
			received_at,
			channel_name,
			encrypted,
			sender,
			destination,
			packet_id,
			hop_limit,
			hop_start,
			want_ack,
			via_mqtt,
			port_num,
			payload,
			rssi,
			snr,
			source
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id,
		receivedAt,
		evt.ChannelName,
		evt.Encrypted,
		int64(evt.Sender),
		int64(evt.Destination),
		int64(evt.PacketID),
		int16(evt.HopLimit),
		int16(evt.HopStart),
		evt.WantAck,
		evt.ViaMQTT,
		int64(evt.Data.PortNum),
		nonNil(evt.Data.Payload),
		evt.RXInfo.RSSI,
		evt.RXInfo.SNR,
		evt.RXInfo.Source,
	)
	if err != nil {
		integration.EventErrorCounter(integrationName, "up").Inc()
		return errors.Wrap(err, "integration/postgresql: insert event error")
	}

	integration.EventCounter(integrationName, "up").Inc()

	log.WithFields(log.Fields{
		"id":      id,
		"channel": evt.ChannelName,
		"sender":  evt.Sender,
	}).Info("integration/postgresql: uplink event stored")

	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// TXRequestChan returns nil.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return nil
}

// Close is a no-op, the database is owned by the storage package.
func (i *Integration) Close() error {
	return nil
}
