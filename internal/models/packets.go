package models

import (
	"time"

	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/payload"
)

// RXPacket contains a received frame together with its link metrics.
type RXPacket struct {
	Data      []byte
	SNR       float32
	RSSI      int16
	FreqError int32

	// Source identifies the receiving radio (e.g. gateway id).
	Source     string
	Frequency  int
	ReceivedAt time.Time
}

// TXPacket contains a frame to transmit.
type TXPacket struct {
	Data []byte

	// Source selects the radio to transmit with, empty selects the last
	// radio that received a frame.
	Source string
}

// UplinkEvent contains a received and decrypted packet.
type UplinkEvent struct {
	ChannelName string        `json:"channelName"`
	Encrypted   bool          `json:"encrypted"`
	Destination packet.NodeID `json:"destination"`
	Sender      packet.NodeID `json:"sender"`
	PacketID    uint32        `json:"packetID"`
	HopLimit    uint8         `json:"hopLimit"`
	HopStart    uint8         `json:"hopStart"`
	HopsAway    int           `json:"hopsAway"`
	WantAck     bool          `json:"wantAck"`
	ViaMQTT     bool          `json:"viaMQTT"`
	ChannelHash uint8         `json:"channelHash"`
	NextHop     uint8         `json:"nextHop"`
	RelayNode   uint8         `json:"relayNode"`
	Data        payload.Data  `json:"data"`
	RXInfo      RXInfo        `json:"rxInfo"`
}

// RXInfo contains the link metrics of an uplink event.
type RXInfo struct {
	Source     string    `json:"source,omitempty"`
	Frequency  int       `json:"frequency,omitempty"`
	RSSI       int16     `json:"rssi"`
	SNR        float32   `json:"snr"`
	FreqError  int32     `json:"freqError"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// TXRequest contains a request to transmit a payload on a channel.
type TXRequest struct {
	ChannelName string          `json:"channelName"`
	Destination *packet.NodeID  `json:"destination,omitempty"`
	PortNum     payload.PortNum `json:"portNum,omitempty"`
	Payload     []byte          `json:"payload,omitempty"`
	Text        string          `json:"text,omitempty"`
	WantAck     bool            `json:"wantAck,omitempty"`
	HopLimit    *uint8          `json:"hopLimit,omitempty"`
}

// RadioSettings contains the modem parameters used for receiving and
// transmitting.
type RadioSettings struct {
	Frequency           int  `json:"frequency"`
	Bandwidth           int  `json:"bandwidth"`
	SpreadingFactor     int  `json:"spreadingFactor"`
	CodingRate          int  `json:"codingRate"`
	PreambleLength      int  `json:"preambleLength"`
	SyncWord            int  `json:"syncWord"`
	TXPower             int  `json:"txPower"`
	Gain                int  `json:"gain"`
	CRC                 bool `json:"crc"`
	InvertIQ            bool `json:"invertIQ"`
	LowDataRateOptimize bool `json:"lowDataRateOptimize"`
}
