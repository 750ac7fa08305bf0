package packet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNodeID(t *testing.T) {
	tests := []struct {
		In       string
		Expected NodeID
		Error    bool
	}{
		{In: "!aabbccdd", Expected: 0xaabbccdd},
		{In: "0x11223344", Expected: 0x11223344},
		{In: "287454020", Expected: 0x11223344},
		{In: " !ffffffff ", Expected: BroadcastNodeID},
		{In: "!1ffffffff", Error: true},
		{In: "node", Error: true},
		{In: "", Error: true},
	}

	for _, tst := range tests {
		t.Run(tst.In, func(t *testing.T) {
			assert := require.New(t)

			id, err := ParseNodeID(tst.In)
			if tst.Error {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tst.Expected, id)
		})
	}
}

func TestNodeIDJSON(t *testing.T) {
	assert := require.New(t)

	in := struct {
		Node NodeID `json:"node"`
	}{
		Node: 0x0000abcd,
	}

	b, err := json.Marshal(in)
	assert.NoError(err)
	assert.Equal(`{"node":"!0000abcd"}`, string(b))

	in.Node = 0
	assert.NoError(json.Unmarshal(b, &in))
	assert.Equal(NodeID(0xabcd), in.Node)
}
