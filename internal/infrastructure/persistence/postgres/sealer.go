package postgres

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// ══════════════════════════════════════════════════════════════════════════════
// SECRET SEALER
// ══════════════════════════════════════════════════════════════════════════════

// SealerKeySize is the required key length for the secretbox cipher.
const SealerKeySize = 32

var (
	// ErrInvalidSealerKey indicates the key is not exactly 32 bytes.
	ErrInvalidSealerKey = errors.New("sealer key must be 32 bytes")
	// ErrSealedValueCorrupt indicates the stored value failed to open.
	ErrSealedValueCorrupt = errors.New("sealed value corrupt or wrong key")
)

// Sealer encrypts secrets at rest with NaCl secretbox. The nonce is
// prepended to the ciphertext and the whole blob is base64-encoded so it
// fits in a TEXT column.
type Sealer struct {
	key [SealerKeySize]byte
}

// NewSealer creates a sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != SealerKeySize {
		return nil, ErrInvalidSealerKey
	}
	s := &Sealer{}
	copy(s.key[:], key)
	return s, nil
}

// Seal encrypts plaintext. An empty plaintext seals to an empty string so
// an unset secret stays visibly unset in the database.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealedValueCorrupt
	}
	if len(raw) < 24 {
		return "", ErrSealedValueCorrupt
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedValueCorrupt
	}
	return string(plaintext), nil
}
