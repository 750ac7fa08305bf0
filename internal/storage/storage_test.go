package storage

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/theverygaming/meshtastic-bridge/internal/test"
)

type StorageTestSuite struct {
	suite.Suite

	tx *sqlx.Tx
}

func (ts *StorageTestSuite) SetupSuite() {
	assert := ts.Require()

	conf := test.GetConfig()
	conf.Meshtastic.KEK = "000102030405060708090a0b0c0d0e0f"
	assert.NoError(Setup(conf))
	assert.NoError(MigrateDown(DB()))
	assert.NoError(MigrateUp(DB()))
}

func (ts *StorageTestSuite) SetupTest() {
	assert := ts.Require()

	var err error
	ts.tx, err = DB().Beginx()
	assert.NoError(err)
	assert.NoError(RedisClient().FlushAll(context.Background()).Err())
}

func (ts *StorageTestSuite) TearDownTest() {
	if err := ts.tx.Rollback(); err != nil {
		panic(err)
	}
}

func (ts *StorageTestSuite) Tx() *sqlx.Tx {
	return ts.tx
}

func TestStorage(t *testing.T) {
	if !test.StorageAvailable() {
		t.Skip("TEST_POSTGRES_DSN and TEST_REDIS_URL must be set")
	}

	suite.Run(t, new(StorageTestSuite))
}
