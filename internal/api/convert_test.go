package api

import (
	"testing"
	"time"

	"framecloak/internal/deps"
	"framecloak/internal/journal"
	"framecloak/internal/pipeline"
)

func TestFromJournalEntry(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &journal.Entry{
		ID:         "run-1",
		Kind:       journal.KindDecode,
		Status:     journal.StatusSucceeded,
		Strategy:   "metadata",
		Found:      true,
		Decrypted:  true,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
	dto := FromJournalEntry(entry)
	if dto.StartedAt != "2026-03-01T12:00:00.000Z" || dto.FinishedAt != "2026-03-01T12:00:01.500Z" {
		t.Fatalf("unexpected timestamps %q / %q", dto.StartedAt, dto.FinishedAt)
	}
	if dto.DurationMS != 1500 || dto.Kind != "decode" || dto.Status != "succeeded" {
		t.Fatalf("unexpected dto %+v", dto)
	}

	running := FromJournalEntry(&journal.Entry{ID: "run-2", StartedAt: started})
	if running.FinishedAt != "" {
		t.Fatalf("expected empty finish time for running entry, got %q", running.FinishedAt)
	}
	if got := FromJournalEntries([]*journal.Entry{entry, nil}); len(got) != 1 {
		t.Fatalf("expected nil entries skipped, got %d", len(got))
	}
}

func TestFromEncodeResultNeverNilIndices(t *testing.T) {
	dto := FromEncodeResult(pipeline.EncodeResult{Video: []byte("abc"), MetadataFrame: 4})
	if dto.Indices == nil || dto.OutputBytes != 3 || dto.MetadataFrame != 4 {
		t.Fatalf("unexpected summary %+v", dto)
	}
}

func TestFromDependencyStatuses(t *testing.T) {
	out := FromDependencyStatuses([]deps.Status{
		{Name: "FFmpeg", Command: "ffmpeg", Available: true, Path: "/usr/bin/ffmpeg"},
		{Name: "FFprobe", Command: "ffprobe", Optional: true, Detail: "binary \"ffprobe\" not found"},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(out))
	}
	if out[0].Path != "/usr/bin/ffmpeg" || !out[0].Available {
		t.Fatalf("unexpected first status %+v", out[0])
	}
	if !out[1].Optional || out[1].Detail == "" {
		t.Fatalf("unexpected second status %+v", out[1])
	}
}
