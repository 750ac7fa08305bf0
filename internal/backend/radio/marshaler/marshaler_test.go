package marshaler

import (
	"testing"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/brocaar/chirpstack-api/go/v3/common"
	"github.com/brocaar/chirpstack-api/go/v3/gw"
)

func testUplinkFrame() *gw.UplinkFrame {
	return &gw.UplinkFrame{
		PhyPayload: []byte{1, 2, 3, 4},
		TxInfo: &gw.UplinkTXInfo{
			Frequency:  869525000,
			Modulation: common.Modulation_LORA,
			ModulationInfo: &gw.UplinkTXInfo_LoraModulationInfo{
				LoraModulationInfo: &gw.LoRaModulationInfo{
					Bandwidth:       250,
					SpreadingFactor: 11,
					CodeRate:        "4/5",
				},
			},
		},
		RxInfo: &gw.UplinkRXInfo{
			GatewayId: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			Rssi:      -110,
			LoraSnr:   -3.5,
		},
	}
}

func TestUnmarshalUplinkFrame(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		assert := require.New(t)

		in := testUplinkFrame()
		m := jsonpb.Marshaler{}
		str, err := m.MarshalToString(in)
		assert.NoError(err)

		var out gw.UplinkFrame
		typ, err := UnmarshalUplinkFrame([]byte(str), &out)
		assert.NoError(err)
		assert.Equal(JSON, typ)
		assert.True(proto.Equal(in, &out))
	})

	t.Run("Protobuf", func(t *testing.T) {
		assert := require.New(t)

		in := testUplinkFrame()
		b, err := proto.Marshal(in)
		assert.NoError(err)

		var out gw.UplinkFrame
		typ, err := UnmarshalUplinkFrame(b, &out)
		assert.NoError(err)
		assert.Equal(Protobuf, typ)
		assert.True(proto.Equal(in, &out))
	})
}

func TestUnmarshalDownlinkTXAck(t *testing.T) {
	assert := require.New(t)

	in := gw.DownlinkTXAck{
		GatewayId:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
		DownlinkId: []byte{1, 2, 3},
		Error:      "COLLISION_PACKET",
	}
	m := jsonpb.Marshaler{}
	str, err := m.MarshalToString(&in)
	assert.NoError(err)

	var out gw.DownlinkTXAck
	typ, err := UnmarshalDownlinkTXAck([]byte(str), &out)
	assert.NoError(err)
	assert.Equal(JSON, typ)
	assert.True(proto.Equal(&in, &out))
}

func TestMarshalDownlinkFrame(t *testing.T) {
	in := gw.DownlinkFrame{
		GatewayId:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
		DownlinkId: []byte{1, 2, 3},
		Items: []*gw.DownlinkFrameItem{
			{
				PhyPayload: []byte{1, 2, 3},
				TxInfo: &gw.DownlinkTXInfo{
					Frequency: 869525000,
					Power:     14,
				},
			},
		},
	}

	for _, typ := range []Type{JSON, Protobuf} {
		t.Run(typ.String(), func(t *testing.T) {
			assert := require.New(t)

			b, err := MarshalDownlinkFrame(typ, &in)
			assert.NoError(err)

			var out gw.DownlinkFrame
			if typ == JSON {
				assert.Contains(string(b), `"gatewayID"`)
				assert.NoError(jsonpb.UnmarshalString(string(b), &out))
			} else {
				assert.NoError(proto.Unmarshal(b, &out))
			}
			assert.True(proto.Equal(&in, &out))
		})
	}
}
