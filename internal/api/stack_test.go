package api

import (
	"context"
	"errors"
	"testing"

	"framecloak/internal/logging"
	"framecloak/internal/services"
	"framecloak/internal/testsupport"
)

func TestStackRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	container := &testsupport.ZipContainer{}
	stack, err := NewStack(cfg, logging.NewNop(), WithContainer(container))
	if err != nil {
		t.Fatalf("NewStack returned error: %v", err)
	}
	t.Cleanup(func() { _ = stack.Close() })

	ctx := context.Background()
	video := testsupport.MakeVideo(t, 16, 48, 32)

	if _, err := stack.Service.Encode(ctx, EncodeRequest{Video: video, Text: "hi"}); !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected missing keys to fail encode, got %v", err)
	}
	if _, err := stack.PublicKey(ctx); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error before keys exist, got %v", err)
	}

	if _, _, err := stack.Keys.Ensure(); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	enc, err := stack.Service.Encode(ctx, EncodeRequest{Video: video, Text: "meet at the pier"})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	dec, err := stack.Service.Decode(ctx, DecodeRequest{Video: enc.Video})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !dec.Found || !dec.Decrypted || dec.Message != "meet at the pier" {
		t.Fatalf("unexpected decode response %+v", dec)
	}

	pk, err := stack.PublicKey(ctx)
	if err != nil {
		t.Fatalf("PublicKey returned error: %v", err)
	}
	if len(pk.PublicKey) != 64 || len(pk.Fingerprint) != 16 {
		t.Fatalf("unexpected public key response %+v", pk)
	}

	history, err := stack.History.List(ctx, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(history))
	}
	if history[2].Status != "failed" {
		t.Fatalf("expected oldest entry to be the failed encode, got %+v", history[2])
	}
}
