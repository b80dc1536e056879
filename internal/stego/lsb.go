// Package stego hides short text payloads in the least significant bits of a
// single frame using github.com/auyer/steganography.
//
// The library stores a length header followed by the message bytes. The
// message itself is framed as:
//
//	magic "FC" | version | payload | CRC-32 (IEEE)
//
// so that Reveal can tell a carrier frame from an untouched one.
package stego

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/draw"
	"image/png"

	"github.com/auyer/steganography"

	"framecloak/internal/services"
)

const (
	version = 1
	// sizeHeader is the length prefix the library writes ahead of a message.
	sizeHeader = 4
	overhead   = 2 + 1 + crc32.Size
)

var magic = [2]byte{'F', 'C'}

// LSB implements text embedding and reveal over image frames.
type LSB struct{}

// New returns an LSB embedder.
func New() LSB { return LSB{} }

// Capacity reports how many payload bytes fit in a frame of the given bounds.
func Capacity(bounds image.Rectangle) int {
	if rawBytes(bounds) <= sizeHeader {
		return 0
	}
	carrier := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	return max(0, int(steganography.MaxEncodeSize(carrier))-overhead)
}

// rawBytes is the number of whole bytes the RGB low bits of a frame can hold.
func rawBytes(bounds image.Rectangle) int {
	return bounds.Dx() * bounds.Dy() * 3 / 8
}

// Embed returns a copy of img carrying text. The input image is not modified.
func (LSB) Embed(img image.Image, text string) (image.Image, error) {
	if img == nil {
		return nil, services.Wrap(services.ErrInput, "stego", "embed", "nil frame", nil)
	}
	out := toNRGBA(img)
	capacity := Capacity(out.Bounds())
	if len(text) > capacity {
		return nil, services.Wrap(
			services.ErrCapacity,
			"stego",
			"embed",
			fmt.Sprintf("payload of %d bytes exceeds frame capacity of %d bytes", len(text), capacity),
			nil,
		)
	}

	message := make([]byte, 0, overhead+len(text))
	message = append(message, magic[0], magic[1], version)
	message = append(message, text...)
	message = binary.BigEndian.AppendUint32(message, crc32.ChecksumIEEE([]byte(text)))

	var buf bytes.Buffer
	if err := steganography.EncodeNRGBA(&buf, out, message); err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "stego", "embed", "encode carrier", err)
	}
	encoded, err := png.Decode(&buf)
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "stego", "embed", "decode carrier", err)
	}
	return encoded, nil
}

// Reveal extracts the payload embedded in img. ok is false when the frame
// carries no valid payload.
func (LSB) Reveal(img image.Image) (string, bool, error) {
	if img == nil {
		return "", false, services.Wrap(services.ErrInput, "stego", "reveal", "nil frame", nil)
	}
	src := toNRGBA(img)
	if Capacity(src.Bounds()) == 0 {
		return "", false, nil
	}

	size := steganography.GetMessageSizeFromImage(src)
	if size < overhead || size > steganography.MaxEncodeSize(src) {
		return "", false, nil
	}
	message := steganography.Decode(size, src)
	if len(message) != int(size) {
		return "", false, nil
	}
	if message[0] != magic[0] || message[1] != magic[1] || message[2] != version {
		return "", false, nil
	}
	payload := message[3 : len(message)-crc32.Size]
	sum := binary.BigEndian.Uint32(message[len(message)-crc32.Size:])
	if crc32.ChecksumIEEE(payload) != sum {
		return "", false, nil
	}
	return string(payload), true, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
