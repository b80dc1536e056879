// Package chunking splits ciphertext into the ordered, roughly equal-sized
// pieces that are spread across video frames.
package chunking

// DefaultParts is the number of chunks a ciphertext is split into when the
// caller does not configure one.
const DefaultParts = 10

// Split partitions ciphertext into at most parts contiguous chunks of
// ceil(len/parts) bytes each; only the last chunk may be shorter. Joining the
// result in order yields the input exactly. An empty ciphertext yields no
// chunks, and parts below 1 is treated as 1.
func Split(ciphertext string, parts int) []string {
	if ciphertext == "" {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	size := (len(ciphertext) + parts - 1) / parts

	chunks := make([]string, 0, parts)
	for start := 0; start < len(ciphertext); start += size {
		end := min(start+size, len(ciphertext))
		chunks = append(chunks, ciphertext[start:end])
	}
	return chunks
}
