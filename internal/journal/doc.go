// Package journal records every encode and decode run in a SQLite database.
//
// Entries are opened with Begin when a run starts and closed with Finish when
// it succeeds or fails, so an entry left in StatusRunning marks a run that
// was interrupted. The journal stores counts and outcomes only; messages,
// ciphertext and video bytes are never persisted.
package journal
