package storage

import (
	"crypto/aes"
	"encoding/hex"

	keywrap "github.com/NickBall/go-aes-key-wrap"
	"github.com/pkg/errors"
)

// key wrap adds one 8 byte block to the wrapped key
const keyWrapOverhead = 8

func setKEK(s string) error {
	if s == "" {
		kek = nil
		return nil
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrap(ErrInvalidKEK, err.Error())
	}

	switch len(b) {
	case 16, 24, 32:
	default:
		return ErrInvalidKEK
	}

	kek = b
	return nil
}

// wrapKey wraps the given channel key with the configured KEK. Without
// KEK the key is returned as-is.
func wrapKey(key []byte) ([]byte, error) {
	if key == nil || kek == nil {
		return key, nil
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "new cipher error")
	}

	b, err := keywrap.Wrap(block, key)
	if err != nil {
		return nil, errors.Wrap(err, "wrap key error")
	}
	return b, nil
}

// unwrapKey reverts wrapKey. Stored keys of 16 or 32 bytes were stored
// without KEK and are returned as-is.
func unwrapKey(b []byte) ([]byte, error) {
	switch len(b) {
	case 0:
		return nil, nil
	case 16, 32:
		return b, nil
	case 16 + keyWrapOverhead, 32 + keyWrapOverhead:
	default:
		return nil, errors.Errorf("invalid stored key length: %d", len(b))
	}

	if kek == nil {
		return nil, errors.New("stored key is wrapped but no kek is configured")
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "new cipher error")
	}

	key, err := keywrap.Unwrap(block, b)
	if err != nil {
		return nil, errors.Wrap(err, "unwrap key error")
	}
	return key, nil
}
