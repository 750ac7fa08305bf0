// Package channel implements the channel hash, the psk to key derivation
// and the lookup of channels by their hash.
package channel

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Channel defines a named channel and its key.
type Channel struct {
	Name string
	Key  []byte
	Hash uint8
}

// New returns a Channel for the given name and base64 encoded psk.
func New(name, psk string) (Channel, error) {
	key, err := DeriveKey(psk)
	if err != nil {
		return Channel{}, errors.Wrapf(err, "channel %s", name)
	}

	if raw, err := decodePSK(psk); err == nil {
		if l := len(raw); l > 1 && l != AES128KeySize && l != AES256KeySize {
			log.WithFields(log.Fields{
				"channel":  name,
				"psk_size": l,
				"key_size": len(key),
			}).Warning("channel: psk is zero-padded to the next key size")
		}
	}

	return FromKey(name, key)
}

// FromKey returns a Channel for the given name and key. A nil key
// returns a cleartext channel.
func FromKey(name string, key []byte) (Channel, error) {
	if key != nil && len(key) != AES128KeySize && len(key) != AES256KeySize {
		return Channel{}, errors.Wrapf(ErrUnsupportedKeyLength, "channel %s: %d bytes", name, len(key))
	}

	return Channel{
		Name: name,
		Key:  key,
		Hash: Hash(name, key),
	}, nil
}

// Encrypted returns true when the channel payloads are encrypted.
func (c Channel) Encrypted() bool {
	return c.Key != nil
}

// PSK returns the base64 encoded key.
func (c Channel) PSK() string {
	return EncodeKey(c.Key)
}
