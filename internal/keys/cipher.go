package keys

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/nacl/box"

	"framecloak/internal/services"
)

// ErrDecryption marks ciphertext that could not be opened.
var ErrDecryption = services.ErrDecryption

// Cipher seals messages to the provider's public key. Ciphertext is standard
// base64 and therefore never contains a comma.
type Cipher struct {
	provider Provider
}

// NewCipher returns a Cipher using provider's key pair.
func NewCipher(provider Provider) *Cipher {
	return &Cipher{provider: provider}
}

// Encrypt seals plaintext. Empty input yields empty ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", nil
	}
	kp, err := c.provider.KeyPair()
	if err != nil {
		return "", err
	}
	sealed, err := box.SealAnonymous(nil, plaintext, &kp.Public, rand.Reader)
	if err != nil {
		return "", services.Wrap(services.ErrCollaborator, "keys", "encrypt", "seal message", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt. Malformed or foreign
// ciphertext is reported as ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	if ciphertext == "" {
		return []byte{}, nil
	}
	kp, err := c.provider.KeyPair()
	if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, services.Wrap(ErrDecryption, "keys", "decrypt", "ciphertext is not base64", err)
	}
	if len(sealed) < box.AnonymousOverhead {
		return nil, services.Wrap(ErrDecryption, "keys", "decrypt", "ciphertext too short", nil)
	}
	plain, ok := box.OpenAnonymous(nil, sealed, &kp.Public, &kp.Private)
	if !ok {
		return nil, services.Wrap(ErrDecryption, "keys", "decrypt", "message authentication failed", nil)
	}
	return plain, nil
}
