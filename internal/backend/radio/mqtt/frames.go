package mqtt

import (
	"fmt"
	"time"

	"github.com/brocaar/chirpstack-api/go/v3/common"
	"github.com/brocaar/chirpstack-api/go/v3/gw"
	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// reasons for ignoring an uplink frame
var (
	errNoTXInfo           = errors.New("tx_info must not be nil")
	errNoRXInfo           = errors.New("rx_info must not be nil")
	errNotLoRa            = errors.New("not a lora frame")
	errBadCRC             = errors.New("bad crc")
	errModulationMismatch = errors.New("modulation parameters do not match modem settings")
)

func dropReason(err error) string {
	switch err {
	case errNotLoRa:
		return "not_lora"
	case errBadCRC:
		return "bad_crc"
	case errModulationMismatch:
		return "modulation_mismatch"
	default:
		return "invalid"
	}
}

// uplinkFrameToRXPacket converts the uplink frame into a RXPacket. Frames
// not matching the spreading factor or bandwidth of the given settings are
// rejected, a zero setting matches any value.
func uplinkFrameToRXPacket(uf *gw.UplinkFrame, s models.RadioSettings) (models.RXPacket, error) {
	var rx models.RXPacket

	if uf.GetTxInfo() == nil {
		return rx, errNoTXInfo
	}
	if uf.GetRxInfo() == nil {
		return rx, errNoRXInfo
	}

	if uf.TxInfo.Modulation != common.Modulation_LORA {
		return rx, errNotLoRa
	}
	if uf.RxInfo.CrcStatus == gw.CRCStatus_BAD_CRC {
		return rx, errBadCRC
	}

	if modInfo := uf.TxInfo.GetLoraModulationInfo(); modInfo != nil {
		if s.SpreadingFactor != 0 && int(modInfo.SpreadingFactor) != s.SpreadingFactor {
			return rx, errModulationMismatch
		}
		if s.Bandwidth != 0 && int(modInfo.Bandwidth)*1000 != s.Bandwidth {
			return rx, errModulationMismatch
		}
	}

	var gatewayID lorawan.EUI64
	copy(gatewayID[:], uf.RxInfo.GatewayId)

	rx = models.RXPacket{
		Data:       uf.PhyPayload,
		SNR:        float32(uf.RxInfo.LoraSnr),
		RSSI:       int16(uf.RxInfo.Rssi),
		Source:     gatewayID.String(),
		Frequency:  int(uf.TxInfo.Frequency),
		ReceivedAt: time.Now(),
	}

	if t := uf.RxInfo.GetTime(); t != nil {
		rx.ReceivedAt = t.AsTime()
	}

	return rx, nil
}

// newDownlinkFrame returns the downlink frame for transmitting b
// immediately with the given settings.
func newDownlinkFrame(gatewayID lorawan.EUI64, downlinkID []byte, b []byte, s models.RadioSettings) *gw.DownlinkFrame {
	return &gw.DownlinkFrame{
		DownlinkId: downlinkID,
		GatewayId:  gatewayID[:],
		Items: []*gw.DownlinkFrameItem{
			{
				PhyPayload: b,
				TxInfo: &gw.DownlinkTXInfo{
					Frequency:  uint32(s.Frequency),
					Power:      int32(s.TXPower),
					Modulation: common.Modulation_LORA,
					ModulationInfo: &gw.DownlinkTXInfo_LoraModulationInfo{
						LoraModulationInfo: &gw.LoRaModulationInfo{
							Bandwidth:             uint32(s.Bandwidth / 1000),
							SpreadingFactor:       uint32(s.SpreadingFactor),
							CodeRate:              fmt.Sprintf("4/%d", s.CodingRate),
							PolarizationInversion: s.InvertIQ,
						},
					},
					Timing: gw.DownlinkTiming_IMMEDIATELY,
					TimingInfo: &gw.DownlinkTXInfo_ImmediatelyTimingInfo{
						ImmediatelyTimingInfo: &gw.ImmediatelyTimingInfo{},
					},
				},
			},
		},
	}
}

// txAckError returns the error of the given ack, or nil when the frame was
// transmitted.
func txAckError(ack *gw.DownlinkTXAck) error {
	if ack.Error != "" {
		return errors.New(ack.Error)
	}

	for _, item := range ack.Items {
		if item.GetStatus() != gw.TxAckStatus_OK {
			return errors.New(item.GetStatus().String())
		}
	}

	return nil
}
