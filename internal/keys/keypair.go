// Package keys owns the NaCl key material used to seal hidden messages and
// the Cipher built on it.
//
// Messages are encrypted as anonymous sealed boxes to the configured public
// key, so only the holder of the matching private key can read them.
package keys

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"framecloak/internal/services"
)

// KeySize is the length in bytes of both halves of a key pair.
const KeySize = 32

// KeyPair is a Curve25519 key pair.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// Generate creates a new random key pair.
func Generate() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "keys", "generate", "generate key pair", err)
	}
	return &KeyPair{Public: *pub, Private: *priv}, nil
}

// FromPrivate derives the key pair for an existing private key.
func FromPrivate(private [KeySize]byte) (*KeyPair, error) {
	if isZero(private) {
		return nil, services.Wrap(services.ErrInput, "keys", "derive", "private key is all zeros", nil)
	}
	pub, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "keys", "derive", "derive public key", err)
	}
	kp := &KeyPair{Private: private}
	copy(kp.Public[:], pub)
	return kp, nil
}

// PublicHex returns the public key hex encoded.
func (k *KeyPair) PublicHex() string {
	return hex.EncodeToString(k.Public[:])
}

// Fingerprint returns a short identifier for the public key.
func (k *KeyPair) Fingerprint() string {
	return k.PublicHex()[:16]
}

// Validate checks that the public half matches the private half.
func (k *KeyPair) Validate() error {
	derived, err := FromPrivate(k.Private)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(derived.Public[:], k.Public[:]) != 1 {
		return services.Wrap(services.ErrConfiguration, "keys", "validate", "public key does not match private key", nil)
	}
	return nil
}

func decodeKey(text string) ([KeySize]byte, error) {
	var out [KeySize]byte
	raw, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return out, fmt.Errorf("decode hex: %w", err)
	}
	if len(raw) != KeySize {
		return out, fmt.Errorf("expected %d bytes, got %d", KeySize, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func isZero(key [KeySize]byte) bool {
	var acc byte
	for _, b := range key {
		acc |= b
	}
	return acc == 0
}
