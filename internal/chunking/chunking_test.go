package chunking

import (
	"math/rand"
	"strings"
	"testing"
)

func TestSplitEvenLength(t *testing.T) {
	got := Split("abcdefghij", 5)
	want := []string{"ab", "cd", "ef", "gh", "ij"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d (%q)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitShortLastChunk(t *testing.T) {
	got := Split("abcdefghijk", 3)
	want := []string{"abcd", "efgh", "ijk"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSplitFewerChunksThanParts(t *testing.T) {
	// ceil(11/10) = 2, so only six chunks are produced.
	got := Split("abcdefghijk", 10)
	if len(got) != 6 {
		t.Fatalf("expected 6 chunks, got %d (%q)", len(got), got)
	}
	if got[5] != "k" {
		t.Fatalf("expected trailing chunk %q, got %q", "k", got[5])
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("", DefaultParts); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %q", got)
	}
}

func TestSplitClampsParts(t *testing.T) {
	for _, parts := range []int{0, -3} {
		got := Split("payload", parts)
		if len(got) != 1 || got[0] != "payload" {
			t.Fatalf("parts=%d: expected single chunk, got %q", parts, got)
		}
	}
}

func TestSplitRoundTripAndBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(300)
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(buf)
		parts := 1 + rng.Intn(25)

		chunks := Split(text, parts)
		if joined := strings.Join(chunks, ""); joined != text {
			t.Fatalf("round trip failed for len=%d parts=%d", n, parts)
		}
		if len(chunks) > parts {
			t.Fatalf("len=%d parts=%d produced %d chunks", n, parts, len(chunks))
		}
		for i, chunk := range chunks {
			if chunk == "" {
				t.Fatalf("len=%d parts=%d: chunk %d empty", n, parts, i)
			}
			if i < len(chunks)-1 && len(chunk) != len(chunks[0]) {
				t.Fatalf("len=%d parts=%d: chunk %d has length %d, want %d", n, parts, i, len(chunk), len(chunks[0]))
			}
		}
	}
}
