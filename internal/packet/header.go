// Package packet implements the on-air Meshtastic packet header.
package packet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize defines the size of the packet header in bytes.
const HeaderSize = 16

// MaxHops defines the max value of the hop-limit and hop-start fields.
const MaxHops = 7

// flags byte layout
const (
	flagHopLimitMask  = 0x07
	flagWantAck       = 0x08
	flagViaMQTT       = 0x10
	flagHopStartShift = 5
	flagHopStartMask  = 0x07
)

// errors
var (
	ErrTruncatedInput  = errors.New("truncated input")
	ErrFieldOutOfRange = errors.New("field out of range")
)

// Header contains the fixed-size header which precedes every
// (encrypted) payload.
type Header struct {
	Destination NodeID
	Sender      NodeID
	PacketID    uint32
	HopLimit    uint8
	HopStart    uint8
	WantAck     bool
	ViaMQTT     bool
	ChannelHash uint8
	NextHop     uint8
	RelayNode   uint8
}

// Parse decodes the header from the first HeaderSize bytes of b.
// It returns the header and the number of bytes consumed.
func Parse(b []byte) (Header, int, error) {
	var h Header

	if len(b) < HeaderSize {
		return h, 0, errors.Wrapf(ErrTruncatedInput, "%d bytes expected, got %d", HeaderSize, len(b))
	}

	h.Destination = NodeID(binary.LittleEndian.Uint32(b[0:4]))
	h.Sender = NodeID(binary.LittleEndian.Uint32(b[4:8]))
	h.PacketID = binary.LittleEndian.Uint32(b[8:12])

	flags := b[12]
	h.HopLimit = flags & flagHopLimitMask
	h.WantAck = flags&flagWantAck != 0
	h.ViaMQTT = flags&flagViaMQTT != 0
	h.HopStart = (flags >> flagHopStartShift) & flagHopStartMask

	h.ChannelHash = b[13]
	h.NextHop = b[14]
	h.RelayNode = b[15]

	return h, HeaderSize, nil
}

// Validate validates the header fields.
func (h Header) Validate() error {
	if h.HopLimit > MaxHops {
		return errors.Wrapf(ErrFieldOutOfRange, "hop_limit %d exceeds %d", h.HopLimit, MaxHops)
	}
	if h.HopStart > MaxHops {
		return errors.Wrapf(ErrFieldOutOfRange, "hop_start %d exceeds %d", h.HopStart, MaxHops)
	}
	return nil
}

// Flags returns the packed flags byte.
func (h Header) Flags() uint8 {
	flags := h.HopLimit & flagHopLimitMask
	if h.WantAck {
		flags |= flagWantAck
	}
	if h.ViaMQTT {
		flags |= flagViaMQTT
	}
	flags |= (h.HopStart & flagHopStartMask) << flagHopStartShift
	return flags
}

// HopsAway returns the number of hops the packet travelled, or -1 when
// this can't be determined (older firmware does not set hop_start).
func (h Header) HopsAway() int {
	if h.HopStart == 0 || h.HopLimit > h.HopStart {
		return -1
	}
	return int(h.HopStart - h.HopLimit)
}

// MarshalBinary encodes the header into its 16 byte wire representation.
func (h Header) MarshalBinary() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Destination))
	binary.LittleEndian.PutUint32(b[4:8], uint32(h.Sender))
	binary.LittleEndian.PutUint32(b[8:12], h.PacketID)
	b[12] = h.Flags()
	b[13] = h.ChannelHash
	b[14] = h.NextHop
	b[15] = h.RelayNode

	return b, nil
}

// UnmarshalBinary decodes the header from b.
func (h *Header) UnmarshalBinary(b []byte) error {
	out, _, err := Parse(b)
	if err != nil {
		return err
	}
	*h = out
	return nil
}
