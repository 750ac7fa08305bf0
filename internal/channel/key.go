package channel

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPSK holds the well-known default channel key.
const DefaultPSK = "\xd4\xf1\xbb\x3a\x20\x29\x07\x59\xf0\xbc\xff\xab\xcf\x4e\x69\x01"

// key sizes
const (
	AES128KeySize = 16
	AES256KeySize = 32
)

// errors
var (
	ErrInvalidEncoding      = errors.New("invalid psk encoding")
	ErrEmptyPSK             = errors.New("empty psk")
	ErrUnsupportedKeyLength = errors.New("unsupported key length")
)

// DefaultKey returns a copy of the default channel key.
func DefaultKey() []byte {
	return []byte(DefaultPSK)
}

// DeriveKey returns the AES key for the given base64 encoded psk.
// A nil key without error means the channel is not encrypted.
//
// A single byte psk selects a variant of the default key (1 is the default
// key itself, 0 disables encryption). Shorter keys are zero-padded on the
// left to 16 or 32 bytes.
func DeriveKey(psk string) ([]byte, error) {
	b, err := decodePSK(psk)
	if err != nil {
		return nil, err
	}

	switch l := len(b); {
	case l == 0:
		return nil, ErrEmptyPSK
	case l == 1:
		if b[0] == 0 {
			return nil, nil
		}
		key := DefaultKey()
		key[len(key)-1] += b[0] - 1
		return key, nil
	case l == AES128KeySize || l == AES256KeySize:
		return b, nil
	case l < AES128KeySize:
		return padLeft(b, AES128KeySize), nil
	case l < AES256KeySize:
		return padLeft(b, AES256KeySize), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedKeyLength, "%d bytes", l)
	}
}

// EncodeKey returns the base64 psk notation of the given key. A nil key
// is encoded as the single zero byte psk.
func EncodeKey(key []byte) string {
	if key == nil {
		return base64.StdEncoding.EncodeToString([]byte{0})
	}
	return base64.StdEncoding.EncodeToString(key)
}

// decodePSK decodes the psk as canonical standard base64. Non-zero
// trailing bits and line breaks are rejected.
func decodePSK(psk string) ([]byte, error) {
	if strings.ContainsAny(psk, "\r\n") {
		return nil, errors.Wrap(ErrInvalidEncoding, "psk contains line breaks")
	}

	b, err := base64.StdEncoding.Strict().DecodeString(psk)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	return b, nil
}

func padLeft(b []byte, size int) []byte {
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
