package api

import (
	"context"

	"framecloak/internal/journal"
)

// HistoryReader abstracts journal queries needed for history views.
type HistoryReader interface {
	List(ctx context.Context, limit int, kinds ...journal.Kind) ([]*journal.Entry, error)
}

// HistoryService exposes read-only journal operations returning DTOs.
type HistoryService struct {
	store HistoryReader
}

// NewHistoryService constructs a HistoryService around the provided reader.
func NewHistoryService(store HistoryReader) *HistoryService {
	if store == nil {
		return nil
	}
	return &HistoryService{store: store}
}

// List returns recent entries, newest first.
func (s *HistoryService) List(ctx context.Context, limit int, kinds ...journal.Kind) ([]HistoryEntry, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	entries, err := s.store.List(ctx, limit, kinds...)
	if err != nil {
		return nil, err
	}
	return FromJournalEntries(entries), nil
}

// ParseKind maps a filter value to a journal kind. An empty value matches all kinds.
func ParseKind(value string) ([]journal.Kind, bool) {
	switch value {
	case "", "all":
		return nil, true
	case string(journal.KindEncode):
		return []journal.Kind{journal.KindEncode}, true
	case string(journal.KindDecode):
		return []journal.Kind{journal.KindDecode}, true
	default:
		return nil, false
	}
}
