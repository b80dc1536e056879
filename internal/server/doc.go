// Package server exposes the encode and decode operations over HTTP.
//
// Routes:
//
//	GET  /health           liveness probe
//	POST /api/encode       multipart video + text, responds with the output video
//	POST /api/decode       multipart video, responds with a JSON DecodeResponse
//	GET  /api/history      recent journal entries (?limit=, ?kind=)
//	GET  /api/keys/public  public key and fingerprint
//
// Every response carries an X-Request-ID header; the same id is attached to
// the request context so logs and journal entries can be correlated. Run
// holds a lock file so only one server uses a state directory at a time.
package server
