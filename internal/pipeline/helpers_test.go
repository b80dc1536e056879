package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"framecloak/internal/chunking"
	"framecloak/internal/frames"
	"framecloak/internal/stego"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.zip")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp video: %v", err)
	}
	return path
}

// embedLegacy writes ciphertext chunks into the leading frames of dir without
// a metadata frame and returns the frame count.
func embedLegacy(t *testing.T, dir, ciphertext string, count int) int {
	t.Helper()
	seq, err := frames.OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir returned error: %v", err)
	}
	embedder := stego.New()
	for i, chunk := range chunking.Split(ciphertext, chunking.DefaultParts) {
		img, err := seq.Load(i)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		stamped, err := embedder.Embed(img, chunk)
		if err != nil {
			t.Fatalf("Embed returned error: %v", err)
		}
		if err := seq.Store(i, stamped); err != nil {
			t.Fatalf("Store returned error: %v", err)
		}
	}
	return count
}
