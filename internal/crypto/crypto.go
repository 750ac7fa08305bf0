// Package crypto implements the AES-CTR payload encryption. The same
// operation encrypts and decrypts.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrLengthMismatch is returned when the source and destination buffers
// differ in length.
var ErrLengthMismatch = errors.New("length mismatch")

// Variant defines the cipher variant.
type Variant int

// Available variants.
const (
	AES128CTR Variant = iota
	AES256CTR
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case AES128CTR:
		return "AES128CTR"
	case AES256CTR:
		return "AES256CTR"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Counter defines how the 32 bit block counter is stored in the counter
// block.
type Counter int

// Available counter flavours.
const (
	// Ctr32LE increments bytes 0-3 as little-endian integer. It is the
	// default of New.
	Ctr32LE Counter = iota
	// Ctr32BE increments bytes 12-15 as big-endian integer. This is the
	// flavour of the deployed firmware and the bridge default
	// (meshtastic.counter_mode "ctr32be"). Both flavours produce the same
	// first keystream block.
	Ctr32BE
)

// String implements fmt.Stringer.
func (c Counter) String() string {
	switch c {
	case Ctr32LE:
		return "ctr32le"
	case Ctr32BE:
		return "ctr32be"
	default:
		return fmt.Sprintf("Counter(%d)", int(c))
	}
}

// ParseCounter parses the counter flavour by name.
func ParseCounter(s string) (Counter, error) {
	switch strings.ToLower(s) {
	case "ctr32le":
		return Ctr32LE, nil
	case "ctr32be":
		return Ctr32BE, nil
	default:
		return 0, fmt.Errorf("unknown counter mode: %s", s)
	}
}

// Nonce returns the initial counter block for the given packet id and
// sender: the packet id as 64 bit little-endian integer followed by the
// sender as 32 bit little-endian integer, the remaining bytes are zero.
func Nonce(packetID, sender uint32) [aes.BlockSize]byte {
	var nonce [aes.BlockSize]byte
	binary.LittleEndian.PutUint64(nonce[0:8], uint64(packetID))
	binary.LittleEndian.PutUint32(nonce[8:12], sender)
	return nonce
}

// Stream holds the keystream of a single packet. It must not be re-used
// for other packets and is not safe for concurrent use.
type Stream struct {
	variant Variant
	counter Counter
	block   cipher.Block
	ctr     [aes.BlockSize]byte
	ks      [aes.BlockSize]byte
	pos     int
}

// New returns a Stream using the Ctr32LE counter. The key must be 16
// (AES-128) or 32 (AES-256) bytes, any other key size panics.
func New(key []byte, packetID, sender uint32) *Stream {
	return NewWithCounter(key, packetID, sender, Ctr32LE)
}

// NewWithCounter returns a Stream using the given counter flavour. The key
// must be 16 or 32 bytes, any other key size panics.
func NewWithCounter(key []byte, packetID, sender uint32, counter Counter) *Stream {
	var variant Variant
	switch len(key) {
	case 16:
		variant = AES128CTR
	case 32:
		variant = AES256CTR
	default:
		panic(fmt.Sprintf("crypto: invalid key size %d", len(key)))
	}

	if counter != Ctr32LE && counter != Ctr32BE {
		panic(fmt.Sprintf("crypto: invalid counter %d", int(counter)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		panic("crypto: " + err.Error())
	}

	return &Stream{
		variant: variant,
		counter: counter,
		block:   block,
		ctr:     Nonce(packetID, sender),
		pos:     aes.BlockSize,
	}
}

// Variant returns the cipher variant.
func (s *Stream) Variant() Variant {
	return s.variant
}

// Apply XORs buf in place with the keystream.
func (s *Stream) Apply(buf []byte) {
	s.XORKeyStream(buf, buf)
}

// ApplyTo XORs src with the keystream and writes the result to dst.
func (s *Stream) ApplyTo(dst, src []byte) error {
	if len(dst) != len(src) {
		return errors.Wrapf(ErrLengthMismatch, "src %d bytes, dst %d bytes", len(src), len(dst))
	}
	s.XORKeyStream(dst, src)
	return nil
}

// XORKeyStream implements cipher.Stream.
func (s *Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypto: output smaller than input")
	}

	for i := range src {
		if s.pos == aes.BlockSize {
			s.refill()
		}
		dst[i] = src[i] ^ s.ks[s.pos]
		s.pos++
	}
}

func (s *Stream) refill() {
	s.block.Encrypt(s.ks[:], s.ctr[:])
	s.pos = 0

	switch s.counter {
	case Ctr32LE:
		binary.LittleEndian.PutUint32(s.ctr[0:4], binary.LittleEndian.Uint32(s.ctr[0:4])+1)
	case Ctr32BE:
		binary.BigEndian.PutUint32(s.ctr[12:16], binary.BigEndian.Uint32(s.ctr[12:16])+1)
	}
}
