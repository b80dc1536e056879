// Package services defines shared utilities consumed by the encode/decode
// pipeline, the service layer and the HTTP server.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, operation names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent journal kinds and HTTP status codes.
//
// Use these helpers when wiring new pipeline stages so operational behaviour
// (error handling, observability) stays uniform across the repository.
package services
