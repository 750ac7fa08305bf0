// Package marshaler detects and implements the encoding of the gateway
// frames (Protobuf or JSON).
package marshaler

import (
	"bytes"
	"strings"

	"github.com/brocaar/chirpstack-api/go/v3/gw"
	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
)

// Type defines the marshaler type.
type Type int

// Marshaler types.
const (
	Protobuf Type = iota
	JSON
)

// String implements fmt.Stringer.
func (t Type) String() string {
	if t == JSON {
		return "json"
	}
	return "protobuf"
}

func detect(b []byte) Type {
	if strings.Contains(string(b), `"gatewayID"`) {
		return JSON
	}
	return Protobuf
}

func unmarshal(b []byte, msg proto.Message) (Type, error) {
	t := detect(b)

	switch t {
	case JSON:
		m := jsonpb.Unmarshaler{
			AllowUnknownFields: true,
		}
		return t, m.Unmarshal(bytes.NewReader(b), msg)
	default:
		return t, proto.Unmarshal(b, msg)
	}
}

func marshal(t Type, msg proto.Message) ([]byte, error) {
	switch t {
	case JSON:
		m := &jsonpb.Marshaler{
			EmitDefaults: true,
		}
		str, err := m.MarshalToString(msg)
		return []byte(str), err
	default:
		return proto.Marshal(msg)
	}
}

// UnmarshalUplinkFrame unmarshals an UplinkFrame.
func UnmarshalUplinkFrame(b []byte, uf *gw.UplinkFrame) (Type, error) {
	return unmarshal(b, uf)
}

// UnmarshalDownlinkTXAck unmarshals a DownlinkTXAck.
func UnmarshalDownlinkTXAck(b []byte, ack *gw.DownlinkTXAck) (Type, error) {
	return unmarshal(b, ack)
}

// MarshalDownlinkFrame marshals the given DownlinkFrame.
func MarshalDownlinkFrame(t Type, df *gw.DownlinkFrame) ([]byte, error) {
	return marshal(t, df)
}
