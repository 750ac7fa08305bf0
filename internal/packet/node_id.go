package packet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BroadcastNodeID is the destination of packets addressed to all nodes.
const BroadcastNodeID NodeID = 0xffffffff

// NodeID represents a 32 bit node number.
type NodeID uint32

// String implements fmt.Stringer using the "!aabbccdd" notation.
func (n NodeID) String() string {
	return fmt.Sprintf("!%08x", uint32(n))
}

// IsBroadcast returns true when the node id is the broadcast address.
func (n NodeID) IsBroadcast() bool {
	return n == BroadcastNodeID
}

// MarshalText implements encoding.TextMarshaler.
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NodeID) UnmarshalText(text []byte) error {
	id, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*n = id
	return nil
}

// ParseNodeID parses a node id in "!aabbccdd", "0xaabbccdd" or decimal
// notation.
func ParseNodeID(s string) (NodeID, error) {
	s = strings.TrimSpace(s)

	var (
		i   uint64
		err error
	)

	switch {
	case strings.HasPrefix(s, "!"):
		i, err = strconv.ParseUint(s[1:], 16, 32)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		i, err = strconv.ParseUint(s[2:], 16, 32)
	default:
		i, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "parse node id %q error", s)
	}

	return NodeID(i), nil
}
