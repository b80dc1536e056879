// Package preflight provides readiness checks for the binaries, directories
// and key material framecloak depends on.
//
// These checks run in two contexts:
//   - The API server calls RunAll at start-up and refuses to serve when a
//     required check fails.
//   - The CLI "framecloak status" command renders every result, including the
//     reachability of a running server.
package preflight
