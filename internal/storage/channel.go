package storage

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/logging"
)

// Channel represents a stored channel. A nil Key is a cleartext channel.
type Channel struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Name      string    `db:"name"`
	Hash      uint8     `db:"hash"`
	Key       []byte    `db:"key_wrapped"`
}

// Validate validates the channel data and sets the channel hash.
func (c *Channel) Validate() error {
	ch, err := channel.FromKey(c.Name, c.Key)
	if err != nil {
		return err
	}
	c.Hash = ch.Hash
	return nil
}

// ToChannel returns the channel.Channel for the stored channel.
func (c Channel) ToChannel() (channel.Channel, error) {
	return channel.FromKey(c.Name, c.Key)
}

// CreateChannel creates the given channel.
func CreateChannel(ctx context.Context, db sqlx.ExecerContext, c *Channel) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "validate error")
	}

	if c.ID == uuid.Nil {
		var err error
		c.ID, err = uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "new uuid v4 error")
		}
	}

	wrapped, err := wrapKey(c.Key)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = db.ExecContext(ctx, `
		insert into channel (
			id,
			created_at,
			updated_at,
			name,
			hash,
			key_wrapped
		) values ($1, $2, $3, $4, $5, $6)`,
		c.ID,
		now,
		now,
		c.Name,
		int(c.Hash),
		wrapped,
	)
	if err != nil {
		return handlePSQLError(err, "insert error")
	}

	c.CreatedAt = now
	c.UpdatedAt = now

	log.WithFields(log.Fields{
		"id":     c.ID,
		"name":   c.Name,
		"hash":   c.Hash,
		"ctx_id": ctx.Value(logging.ContextIDKey),
	}).Info("storage: channel created")

	return nil
}

// GetChannel returns the channel for the given id.
func GetChannel(ctx context.Context, db sqlx.QueryerContext, id uuid.UUID) (Channel, error) {
	var c Channel
	if err := sqlx.GetContext(ctx, db, &c, "select * from channel where id = $1", id); err != nil {
		return c, handlePSQLError(err, "select error")
	}
	return c, unwrapChannelKey(&c)
}

// GetChannelByName returns the channel for the given name.
func GetChannelByName(ctx context.Context, db sqlx.QueryerContext, name string) (Channel, error) {
	var c Channel
	if err := sqlx.GetContext(ctx, db, &c, "select * from channel where name = $1", name); err != nil {
		return c, handlePSQLError(err, "select error")
	}
	return c, unwrapChannelKey(&c)
}

// GetChannels returns all channels ordered by name.
func GetChannels(ctx context.Context, db sqlx.QueryerContext) ([]Channel, error) {
	var channels []Channel
	if err := sqlx.SelectContext(ctx, db, &channels, "select * from channel order by name"); err != nil {
		return nil, handlePSQLError(err, "select error")
	}

	for i := range channels {
		if err := unwrapChannelKey(&channels[i]); err != nil {
			return nil, err
		}
	}

	return channels, nil
}

// GetChannelsForHash returns the channels matching the given channel hash.
func GetChannelsForHash(ctx context.Context, db sqlx.QueryerContext, hash uint8) ([]Channel, error) {
	var channels []Channel
	if err := sqlx.SelectContext(ctx, db, &channels, "select * from channel where hash = $1 order by name", int(hash)); err != nil {
		return nil, handlePSQLError(err, "select error")
	}

	for i := range channels {
		if err := unwrapChannelKey(&channels[i]); err != nil {
			return nil, err
		}
	}

	return channels, nil
}

// UpdateChannel updates the given channel.
func UpdateChannel(ctx context.Context, db sqlx.ExecerContext, c *Channel) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "validate error")
	}

	wrapped, err := wrapKey(c.Key)
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := db.ExecContext(ctx, `
		update channel set
			updated_at = $2,
			name = $3,
			hash = $4,
			key_wrapped = $5
		where id = $1`,
		c.ID,
		now,
		c.Name,
		int(c.Hash),
		wrapped,
	)
	if err != nil {
		return handlePSQLError(err, "update error")
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected error")
	}
	if ra == 0 {
		return ErrDoesNotExist
	}

	c.UpdatedAt = now

	log.WithFields(log.Fields{
		"id":     c.ID,
		"name":   c.Name,
		"ctx_id": ctx.Value(logging.ContextIDKey),
	}).Info("storage: channel updated")

	return nil
}

// DeleteChannel deletes the channel with the given id.
func DeleteChannel(ctx context.Context, db sqlx.ExecerContext, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, "delete from channel where id = $1", id)
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
		"id":     id,
		"ctx_id": ctx.Value(logging.ContextIDKey),
	}).Info("storage: channel deleted")

	return nil
}

func unwrapChannelKey(c *Channel) error {
	key, err := unwrapKey(c.Key)
	if err != nil {
		return errors.Wrapf(err, "channel %s", c.Name)
	}
	c.Key = key
	return nil
}
