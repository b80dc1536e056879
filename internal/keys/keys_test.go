package keys

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framecloak/internal/services"
)

func mustGenerate(t *testing.T) *KeyPair {
	t.Helper()
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	return kp
}

func TestCipherRoundTrip(t *testing.T) {
	c := NewCipher(Static{Pair: mustGenerate(t)})
	ct, err := c.Encrypt([]byte("meet at dawn"))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if strings.Contains(ct, ",") {
		t.Fatalf("ciphertext must not contain a comma: %q", ct)
	}
	plain, err := c.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if string(plain) != "meet at dawn" {
		t.Fatalf("expected plaintext to round trip, got %q", plain)
	}
}

func TestCipherEmpty(t *testing.T) {
	c := NewCipher(Static{})
	ct, err := c.Encrypt(nil)
	if err != nil || ct != "" {
		t.Fatalf("expected empty ciphertext without key lookup, got %q err=%v", ct, err)
	}
}

func TestDecryptFailures(t *testing.T) {
	c := NewCipher(Static{Pair: mustGenerate(t)})
	other := NewCipher(Static{Pair: mustGenerate(t)})
	foreign, err := other.Encrypt([]byte("not yours"))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	for name, input := range map[string]string{
		"not base64": "%%%",
		"too short":  "AAAA",
		"wrong key":  foreign,
		"truncated":  foreign[:len(foreign)-8],
	} {
		if _, err := c.Decrypt(input); !errors.Is(err, ErrDecryption) {
			t.Fatalf("%s: expected ErrDecryption, got %v", name, err)
		}
	}
}

func TestFromPrivateMatchesGenerate(t *testing.T) {
	kp := mustGenerate(t)
	derived, err := FromPrivate(kp.Private)
	if err != nil {
		t.Fatalf("FromPrivate returned error: %v", err)
	}
	if derived.Public != kp.Public {
		t.Fatal("expected derived public key to match generated one")
	}
	if _, err := FromPrivate([KeySize]byte{}); err == nil {
		t.Fatal("expected error for zero key")
	}
}

func TestFileStoreEnsureIsIdempotent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "keys"))

	first, created, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if !created {
		t.Fatal("expected first Ensure to create keys")
	}
	second, created, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if created || second.Public != first.Public {
		t.Fatal("expected second Ensure to reuse existing keys")
	}

	info, err := os.Stat(filepath.Join(store.Dir(), privateFile))
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected private key mode 0600, got %o", perm)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestFileStoreRejectsMismatchedPair(t *testing.T) {
	dir := t.TempDir()
	a, b := mustGenerate(t), mustGenerate(t)
	if err := os.WriteFile(filepath.Join(dir, privateFile), []byte(hex.EncodeToString(a.Private[:])), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, publicFile), []byte(b.PublicHex()), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(dir).Load(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for mismatched pair, got %v", err)
	}
}

func TestFileStoreRotateArchives(t *testing.T) {
	store := NewFileStore(t.TempDir())
	original, _, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	sealed, err := NewCipher(store).Encrypt([]byte("before rotation"))
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	rotated, archived, err := store.Rotate()
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if rotated.Public == original.Public {
		t.Fatal("expected rotation to produce a new key")
	}
	if archived == "" {
		t.Fatal("expected previous keys to be archived")
	}

	archives, err := store.ListArchives()
	if err != nil || len(archives) != 1 {
		t.Fatalf("expected one archive, got %v err=%v", archives, err)
	}
	old := NewFileStore(archives[0])
	plain, err := NewCipher(old).Decrypt(sealed)
	if err != nil || string(plain) != "before rotation" {
		t.Fatalf("expected archived key to open old message, got %q err=%v", plain, err)
	}
	if _, err := NewCipher(store).Decrypt(sealed); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected new key to reject old message, got %v", err)
	}
}
