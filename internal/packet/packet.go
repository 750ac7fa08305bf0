package packet

import (
	"github.com/pkg/errors"
)

// MaxPayloadSize defines the max payload size (max LoRa frame size
// minus the header).
const MaxPayloadSize = 255 - HeaderSize

// ErrPayloadTooLarge is returned when the payload does not fit in a
// single LoRa frame.
var ErrPayloadTooLarge = errors.New("payload too large")

// Packet contains the header and the (encrypted) payload of a frame.
type Packet struct {
	Header
	Payload []byte
}

// ParsePacket decodes the header and returns the remaining bytes as
// payload. The payload is copied. Frames larger than a single LoRa frame
// return ErrPayloadTooLarge.
func ParsePacket(b []byte) (Packet, error) {
	h, n, err := Parse(b)
	if err != nil {
		return Packet{}, err
	}

	if l := len(b) - n; l > MaxPayloadSize {
		return Packet{}, errors.Wrapf(ErrPayloadTooLarge, "max %d bytes, got %d", MaxPayloadSize, l)
	}

	payload := make([]byte, len(b)-n)
	copy(payload, b[n:])

	return Packet{
		Header:  h,
		Payload: payload,
	}, nil
}

// MarshalBinary encodes the packet into a single frame.
func (p Packet) MarshalBinary() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "max %d bytes, got %d", MaxPayloadSize, len(p.Payload))
	}

	b, err := p.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return append(b, p.Payload...), nil
}

// UnmarshalBinary decodes the packet from b.
func (p *Packet) UnmarshalBinary(b []byte) error {
	out, err := ParsePacket(b)
	if err != nil {
		return err
	}
	*p = out
	return nil
}
