package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
)

func (ts *StorageTestSuite) TestChannel() {
	assert := require.New(ts.T())
	ctx := context.Background()

	ts.T().Run("Create", func(t *testing.T) {
		assert := require.New(t)

		c := Channel{
			Name: "LongFast",
			Key:  channel.DefaultKey(),
		}
		assert.NoError(CreateChannel(ctx, ts.Tx(), &c))
		assert.NotEqual(uuid.Nil, c.ID)
		assert.Equal(uint8(0x08), c.Hash)

		c.CreatedAt = c.CreatedAt.Round(time.Millisecond).UTC()
		c.UpdatedAt = c.UpdatedAt.Round(time.Millisecond).UTC()

		t.Run("Get", func(t *testing.T) {
			assert := require.New(t)

			cGet, err := GetChannel(ctx, ts.Tx(), c.ID)
			assert.NoError(err)

			cGet.CreatedAt = cGet.CreatedAt.Round(time.Millisecond).UTC()
			cGet.UpdatedAt = cGet.UpdatedAt.Round(time.Millisecond).UTC()
			assert.Equal(c, cGet)
		})

		t.Run("Key is stored wrapped", func(t *testing.T) {
			assert := require.New(t)

			var b []byte
			assert.NoError(ts.Tx().Get(&b, "select key_wrapped from channel where id = $1", c.ID))
			assert.Len(b, 24)
			assert.NotEqual(channel.DefaultKey(), b[:16])
		})

		t.Run("GetByName", func(t *testing.T) {
			assert := require.New(t)

			cGet, err := GetChannelByName(ctx, ts.Tx(), "LongFast")
			assert.NoError(err)
			assert.Equal(c.ID, cGet.ID)
			assert.Equal(channel.DefaultKey(), cGet.Key)

			ch, err := cGet.ToChannel()
			assert.NoError(err)
			assert.Equal(uint8(0x08), ch.Hash)
		})

		t.Run("Duplicate name", func(t *testing.T) {
			assert := require.New(t)

			// run in a savepoint as the error aborts the transaction
			_, err := ts.Tx().Exec("savepoint duplicate")
			assert.NoError(err)

			dup := Channel{Name: "LongFast"}
			assert.Equal(ErrAlreadyExists, CreateChannel(ctx, ts.Tx(), &dup))

			_, err = ts.Tx().Exec("rollback to savepoint duplicate")
			assert.NoError(err)
		})

		t.Run("Cleartext channel", func(t *testing.T) {
			assert := require.New(t)

			clear := Channel{Name: "Open"}
			assert.NoError(CreateChannel(ctx, ts.Tx(), &clear))

			cGet, err := GetChannel(ctx, ts.Tx(), clear.ID)
			assert.NoError(err)
			assert.Nil(cGet.Key)

			channels, err := GetChannels(ctx, ts.Tx())
			assert.NoError(err)
			assert.Len(channels, 2)
			assert.Equal("LongFast", channels[0].Name)
			assert.Equal("Open", channels[1].Name)

			assert.NoError(DeleteChannel(ctx, ts.Tx(), clear.ID))
		})

		t.Run("Invalid key", func(t *testing.T) {
			assert := require.New(t)

			bad := Channel{Name: "Bad", Key: []byte{1, 2, 3}}
			assert.Error(CreateChannel(ctx, ts.Tx(), &bad))
		})

		t.Run("GetForHash", func(t *testing.T) {
			assert := require.New(t)

			channels, err := GetChannelsForHash(ctx, ts.Tx(), 0x08)
			assert.NoError(err)
			assert.Len(channels, 1)
			assert.Equal(c.ID, channels[0].ID)

			channels, err = GetChannelsForHash(ctx, ts.Tx(), 0x09)
			assert.NoError(err)
			assert.Len(channels, 0)
		})

		t.Run("Update", func(t *testing.T) {
			assert := require.New(t)

			key, err := channel.DeriveKey("AQ==")
			assert.NoError(err)

			c.Name = "MediumSlow"
			c.Key = key
			assert.NoError(UpdateChannel(ctx, ts.Tx(), &c))
			assert.Equal(uint8(0x18), c.Hash)

			cGet, err := GetChannel(ctx, ts.Tx(), c.ID)
			assert.NoError(err)
			assert.Equal("MediumSlow", cGet.Name)
			assert.Equal(uint8(0x18), cGet.Hash)
			assert.Equal(key, cGet.Key)
		})

		t.Run("Delete", func(t *testing.T) {
			assert := require.New(t)

			assert.NoError(DeleteChannel(ctx, ts.Tx(), c.ID))
			assert.Equal(ErrDoesNotExist, DeleteChannel(ctx, ts.Tx(), c.ID))

			_, err := GetChannel(ctx, ts.Tx(), c.ID)
			assert.Equal(ErrDoesNotExist, err)
		})
	})

	ts.T().Run("Update unknown", func(t *testing.T) {
		c := Channel{ID: uuid.Must(uuid.NewV4()), Name: "Unknown"}
		assert.Equal(ErrDoesNotExist, UpdateChannel(ctx, ts.Tx(), &c))
	})
}
