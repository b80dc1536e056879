package api

import (
	"time"

	"framecloak/internal/deps"
	"framecloak/internal/journal"
	"framecloak/internal/pipeline"
)

// FromEncodeResult converts a pipeline encode result into its summary DTO.
func FromEncodeResult(res pipeline.EncodeResult) EncodeResponse {
	indices := res.Indices
	if indices == nil {
		indices = []int{}
	}
	return EncodeResponse{
		Frames:        res.FrameCount,
		Chunks:        res.ChunkCount,
		Indices:       indices,
		Dropped:       res.Dropped,
		MetadataFrame: res.MetadataFrame,
		OutputBytes:   len(res.Video),
	}
}

// FromDecodeResult converts a pipeline decode result into its DTO.
func FromDecodeResult(res pipeline.DecodeResult) DecodeResponse {
	return DecodeResponse{
		Found:         res.Found,
		Message:       res.Message,
		Decrypted:     res.Decrypted,
		Strategy:      res.Strategy,
		MetadataFrame: res.MetadataFrame,
		Frames:        res.Frames,
		Recovered:     res.Recovered,
	}
}

// FromJournalEntry converts a journal entry into its DTO.
func FromJournalEntry(e *journal.Entry) HistoryEntry {
	if e == nil {
		return HistoryEntry{}
	}
	dto := HistoryEntry{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Status:       string(e.Status),
		Source:       e.Source,
		RequestID:    e.RequestID,
		Frames:       e.Frames,
		Chunks:       e.Chunks,
		Dropped:      e.Dropped,
		Strategy:     e.Strategy,
		Found:        e.Found,
		Decrypted:    e.Decrypted,
		BytesIn:      e.BytesIn,
		BytesOut:     e.BytesOut,
		ErrorKind:    e.ErrorKind,
		ErrorMessage: e.ErrorMessage,
		StartedAt:    formatTime(e.StartedAt),
		FinishedAt:   formatTime(e.FinishedAt),
		DurationMS:   e.Duration().Milliseconds(),
	}
	return dto
}

// FromJournalEntries converts a slice of journal entries.
func FromJournalEntries(entries []*journal.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, FromJournalEntry(e))
	}
	return out
}

// FromDependencyStatuses converts dependency check results.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Path:        s.Path,
			Detail:      s.Detail,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
