// Package api is the service layer shared by the CLI and the HTTP server.
//
// # Key Types
//
// Service: validates requests, runs the encode/decode pipeline, and records
// every run in the operation journal.
//
// HistoryService: read-only access to journal entries as DTOs.
//
// DecodeResponse, HistoryEntry, DependencyStatus: transport representations
// returned by the HTTP API and rendered by the CLI.
//
// # Converters
//
// FromDecodeResult: pipeline.DecodeResult -> DecodeResponse.
//
// FromJournalEntry: journal.Entry -> HistoryEntry.
//
// FromDependencyStatuses: deps.Status -> DependencyStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Journal failures never fail a run; they are logged as warnings.
package api
