// Package payload decodes and encodes the Data envelope carried in the
// decrypted packet payload. The content of the envelope payload is not
// interpreted.
package payload

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidData is returned when the payload is not a valid Data
// envelope. After decryption with the wrong key this is the expected
// outcome.
var ErrInvalidData = errors.New("invalid data envelope")

// TextMessagePort is the port number of plain text messages.
const TextMessagePort PortNum = 1

// PortNum identifies the application the payload belongs to.
type PortNum uint32

// field numbers
const (
	fieldPortNum      protowire.Number = 1
	fieldPayload      protowire.Number = 2
	fieldWantResponse protowire.Number = 3
	fieldDest         protowire.Number = 4
	fieldSource       protowire.Number = 5
	fieldRequestID    protowire.Number = 6
	fieldReplyID      protowire.Number = 7
	fieldEmoji        protowire.Number = 8
	fieldBitfield     protowire.Number = 9
)

// Data is the envelope of a decrypted payload.
type Data struct {
	PortNum      PortNum `json:"portNum"`
	Payload      []byte  `json:"payload"`
	WantResponse bool    `json:"wantResponse,omitempty"`
	Dest         uint32  `json:"dest,omitempty"`
	Source       uint32  `json:"source,omitempty"`
	RequestID    uint32  `json:"requestID,omitempty"`
	ReplyID      uint32  `json:"replyID,omitempty"`
	Emoji        uint32  `json:"emoji,omitempty"`
	Bitfield     *uint32 `json:"bitfield,omitempty"`
}

// Unmarshal decodes the Data envelope. A zero or missing port number is
// an error.
func Unmarshal(b []byte) (Data, error) {
	var d Data

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return d, errors.Wrap(ErrInvalidData, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch num {
		case fieldPortNum, fieldWantResponse, fieldBitfield:
			if typ != protowire.VarintType {
				return d, errors.Wrapf(ErrInvalidData, "field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return d, errors.Wrap(ErrInvalidData, protowire.ParseError(n).Error())
			}
			b = b[n:]

			switch num {
			case fieldPortNum:
				if v > 0xffffffff {
					return d, errors.Wrap(ErrInvalidData, "portnum out of range")
				}
				d.PortNum = PortNum(v)
			case fieldWantResponse:
				d.WantResponse = protowire.DecodeBool(v)
			case fieldBitfield:
				bf := uint32(v)
				d.Bitfield = &bf
			}
		case fieldPayload:
			if typ != protowire.BytesType {
				return d, errors.Wrapf(ErrInvalidData, "field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return d, errors.Wrap(ErrInvalidData, protowire.ParseError(n).Error())
			}
			b = b[n:]
			d.Payload = append([]byte{}, v...)
		case fieldDest, fieldSource, fieldRequestID, fieldReplyID, fieldEmoji:
			if typ != protowire.Fixed32Type {
				return d, errors.Wrapf(ErrInvalidData, "field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return d, errors.Wrap(ErrInvalidData, protowire.ParseError(n).Error())
			}
			b = b[n:]

			switch num {
			case fieldDest:
				d.Dest = v
			case fieldSource:
				d.Source = v
			case fieldRequestID:
				d.RequestID = v
			case fieldReplyID:
				d.ReplyID = v
			case fieldEmoji:
				d.Emoji = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return d, errors.Wrap(ErrInvalidData, protowire.ParseError(n).Error())
			}
			b = b[n:]
		}
	}

	if d.PortNum == 0 {
		return d, errors.Wrap(ErrInvalidData, "missing portnum")
	}

	return d, nil
}

// Marshal encodes the Data envelope.
func (d Data) Marshal() []byte {
	var b []byte

	if d.PortNum != 0 {
		b = protowire.AppendTag(b, fieldPortNum, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.PortNum))
	}
	if len(d.Payload) != 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, d.Payload)
	}
	if d.WantResponse {
		b = protowire.AppendTag(b, fieldWantResponse, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}

	for _, f := range []struct {
		num protowire.Number
		v   uint32
	}{
		{fieldDest, d.Dest},
		{fieldSource, d.Source},
		{fieldRequestID, d.RequestID},
		{fieldReplyID, d.ReplyID},
		{fieldEmoji, d.Emoji},
	} {
		if f.v != 0 {
			b = protowire.AppendTag(b, f.num, protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, f.v)
		}
	}

	if d.Bitfield != nil {
		b = protowire.AppendTag(b, fieldBitfield, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*d.Bitfield))
	}

	return b
}
