// Package metadata writes and locates the self-describing record that tells a
// decoder which frames carry ciphertext chunks.
package metadata

import (
	"image"
	"strconv"
	"strings"

	"framecloak/internal/frames"
	"framecloak/internal/services"
)

// Separator joins record entries.
const Separator = ","

// Record lists the frame indices carrying chunks, in chunk order.
type Record []int

// String serializes the record as comma-joined decimal indices. Records with
// fewer than two entries keep a trailing separator so the text is always
// recognizable as a record.
func (r Record) String() string {
	parts := make([]string, len(r))
	for i, idx := range r {
		parts[i] = strconv.Itoa(idx)
	}
	text := strings.Join(parts, Separator)
	if len(r) < 2 {
		text += Separator
	}
	return text
}

// Parse decodes revealed text into a Record. Text without a separator, or with
// any non-empty field that is not a non-negative integer, is rejected.
func Parse(text string) (Record, bool) {
	if !strings.Contains(text, Separator) {
		return nil, false
	}
	rec := Record{}
	for _, field := range strings.Split(text, Separator) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 {
			return nil, false
		}
		rec = append(rec, idx)
	}
	return rec, true
}

// Embedder hides text in a frame.
type Embedder interface {
	Embed(img image.Image, text string) (image.Image, error)
}

// Revealer recovers text hidden in a frame.
type Revealer interface {
	Reveal(img image.Image) (string, bool, error)
}

// AppendFrame embeds rec into a copy of frame 0 and appends it to seq as the
// new last frame, returning its index.
func AppendFrame(seq frames.Sequence, rec Record, embedder Embedder) (int, error) {
	if seq.Len() == 0 {
		return 0, services.Wrap(services.ErrInput, "metadata", "append", "sequence has no frames", nil)
	}
	carrier, err := seq.Load(0)
	if err != nil {
		return 0, services.Wrap(services.ErrCollaborator, "metadata", "append", "load carrier frame", err)
	}
	stamped, err := embedder.Embed(carrier, rec.String())
	if err != nil {
		return 0, services.Wrap(services.ErrCollaborator, "metadata", "append", "embed record", err)
	}
	idx, err := seq.Append(stamped)
	if err != nil {
		return 0, services.Wrap(services.ErrCollaborator, "metadata", "append", "write metadata frame", err)
	}
	return idx, nil
}
