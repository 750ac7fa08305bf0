package tcpmodem

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// message types
const (
	typeSettings = "settings"
	typeMetaQ    = "metaQ"
	typeMeta     = "meta"
	typePacketRX = "packetRx"
	typePacketTX = "packetTx"
	typeTXAck    = "txAck"
)

// byteArray is encoded as JSON array of numbers instead of base64.
type byteArray []byte

// MarshalJSON implements json.Marshaler.
func (b byteArray) MarshalJSON() ([]byte, error) {
	out := make([]uint16, len(b))
	for i := range b {
		out[i] = uint16(b[i])
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *byteArray) UnmarshalJSON(data []byte) error {
	var in []uint16
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	out := make([]byte, len(in))
	for i, v := range in {
		if v > 0xff {
			return errors.Errorf("byte value out of range: %d", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

type settingsMessage struct {
	Type                string `json:"type"`
	Receive             bool   `json:"receive"`
	Gain                int    `json:"gain"`
	Frequency           int    `json:"frequency"`
	SpreadingFactor     int    `json:"spreadingFactor"`
	SignalBandwidth     int    `json:"signalBandwidth"`
	CodingRate4         int    `json:"codingRate4"`
	PreambleLength      int    `json:"preambleLength"`
	SyncWord            int    `json:"syncWord"`
	TXPower             int    `json:"txPower"`
	CRC                 bool   `json:"CRC"`
	InvertIQ            bool   `json:"invertIQ"`
	LowDataRateOptimize bool   `json:"lowDataRateOptimize"`
}

func newSettingsMessage(s models.RadioSettings) settingsMessage {
	return settingsMessage{
		Type:                typeSettings,
		Receive:             true,
		Gain:                s.Gain,
		Frequency:           s.Frequency,
		SpreadingFactor:     s.SpreadingFactor,
		SignalBandwidth:     s.Bandwidth,
		CodingRate4:         s.CodingRate,
		PreambleLength:      s.PreambleLength,
		SyncWord:            s.SyncWord,
		TXPower:             s.TXPower,
		CRC:                 s.CRC,
		InvertIQ:            s.InvertIQ,
		LowDataRateOptimize: s.LowDataRateOptimize,
	}
}

type metaQMessage struct {
	Type string `json:"type"`
}

type packetTXMessage struct {
	Type string    `json:"type"`
	ID   uint32    `json:"id"`
	Data byteArray `json:"data"`
}

// inMessage contains the union of the messages sent by the modem. The
// settings response is the only message without type.
type inMessage struct {
	Type string `json:"type"`

	// packetRx
	RSSI      float64   `json:"rssi"`
	SNR       float64   `json:"snr"`
	FreqError float64   `json:"freqError"`
	Data      byteArray `json:"data"`

	// txAck
	ID      uint32 `json:"id"`
	Success bool   `json:"success"`
	Reason  string `json:"reason"`

	// meta
	GainMax    int `json:"gainMax"`
	TXPowerMax int `json:"txPowerMax"`
}

// Meta contains the capabilities reported by the modem.
type Meta struct {
	GainMax    int
	TXPowerMax int
}
