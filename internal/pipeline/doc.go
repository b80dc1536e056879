// Package pipeline orchestrates the covert channel end to end.
//
// Encode extracts a video's frames into a private session, encrypts the
// message, splits the ciphertext into chunks, embeds chunk i into frame i,
// appends a metadata frame listing the carrier indices and reassembles a
// lossless video. Decode reverses the process: it locates the metadata frame
// near the end of the video (falling back to a fixed leading range for older
// videos), reveals each listed frame, joins the chunks in frame order and
// decrypts the result according to the configured decode mode.
//
// Cryptography, embedding and container handling are supplied through the
// Cipher, Embedder and Container interfaces.
package pipeline
