// Package test contains helpers and test doubles used by the package
// tests.
package test

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/config"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// GetConfig returns the test configuration. The Redis and PostgreSQL
// settings can be overridden using the TEST_REDIS_URL and TEST_POSTGRES_DSN
// environment variables.
func GetConfig() config.Config {
	log.SetLevel(log.FatalLevel)

	var c config.Config

	c.Redis.Servers = []string{"localhost:6379"}
	c.Redis.KeyPrefix = "test:"
	c.PostgreSQL.DSN = "postgres://localhost/meshtastic_bridge_test?sslmode=disable"
	c.PostgreSQL.Automigrate = true

	if v := os.Getenv("TEST_REDIS_URL"); v != "" {
		c.Redis.Servers = nil
		c.Redis.URL = v
	}

	if v := os.Getenv("TEST_POSTGRES_DSN"); v != "" {
		c.PostgreSQL.DSN = v
	}

	c.Meshtastic.NodeID = 0xdeadbeef
	c.Meshtastic.CounterMode = "ctr32be"
	c.Meshtastic.HopLimit = 3
	c.Meshtastic.DeduplicationTTL = time.Minute
	c.Meshtastic.SNRHistorySize = 10

	c.Radio.Modem.Frequency = 869525000
	c.Radio.Modem.Bandwidth = 250000
	c.Radio.Modem.SpreadingFactor = 11
	c.Radio.Modem.CodingRate = 5
	c.Radio.Modem.PreambleLength = 16
	c.Radio.Modem.SyncWord = 0x2b
	c.Radio.Modem.TXPower = 14
	c.Radio.Modem.CRC = true

	return c
}

// StorageAvailable returns true when the tests were started with a
// PostgreSQL and Redis environment to test against.
func StorageAvailable() bool {
	return os.Getenv("TEST_POSTGRES_DSN") != "" && os.Getenv("TEST_REDIS_URL") != ""
}
