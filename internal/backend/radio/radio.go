// Package radio defines the interface of the radio backends that deliver
// received frames and transmit frames.
package radio

import (
	"context"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// ErrNoRadio is returned when no radio is available for transmission.
var ErrNoRadio = errors.New("no radio available for transmission")

var backend Radio

// Backend returns the radio backend.
func Backend() Radio {
	return backend
}

// SetBackend sets the given radio backend.
func SetBackend(b Radio) {
	backend = b
}

// Radio is the interface of a radio backend.
type Radio interface {
	SendTXPacket(context.Context, models.TXPacket) error // send the given frame
	RXPacketChan() chan models.RXPacket                  // channel containing the received frames
	Close() error                                        // close the radio backend
}

// SettingsFromConfig returns the modem settings of the given configuration.
func SettingsFromConfig(c config.Config) models.RadioSettings {
	m := c.Radio.Modem
	return models.RadioSettings{
		Frequency:           m.Frequency,
		Bandwidth:           m.Bandwidth,
		SpreadingFactor:     m.SpreadingFactor,
		CodingRate:          m.CodingRate,
		PreambleLength:      m.PreambleLength,
		SyncWord:            m.SyncWord,
		TXPower:             m.TXPower,
		Gain:                m.Gain,
		CRC:                 m.CRC,
		InvertIQ:            m.InvertIQ,
		LowDataRateOptimize: m.LowDataRateOptimize,
	}
}
