// Package frames manages the numbered PNG frame sequence a video is
// extracted into.
package frames

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"framecloak/internal/services"
)

// Pattern is the ffmpeg image2 pattern matching FileName.
const Pattern = "frame-%06d.png"

// FileName returns the file name of the frame at index.
func FileName(index int) string {
	return fmt.Sprintf(Pattern, index)
}

// Source exposes a read-only view of an ordered frame sequence.
type Source interface {
	Len() int
	Load(index int) (image.Image, error)
}

// Sequence is a frame Source that can be rewritten and extended.
type Sequence interface {
	Source
	Store(index int, img image.Image) error
	Append(img image.Image) (int, error)
}

// Dir is a Sequence backed by a directory of PNG files named FileName(0..n-1).
type Dir struct {
	path  string
	count int
}

// OpenDir counts the contiguous frames present in path starting at index 0.
func OpenDir(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "frames", "open", "frame directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrInput, "frames", "open", path+" is not a directory", nil)
	}
	d := &Dir{path: path}
	for {
		_, err := os.Stat(filepath.Join(path, FileName(d.count)))
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrCollaborator, "frames", "open", "stat frame", err)
		}
		d.count++
	}
	return d, nil
}

// Path returns the backing directory.
func (d *Dir) Path() string { return d.path }

// Len returns the number of frames.
func (d *Dir) Len() int { return d.count }

// Load decodes the frame at index.
func (d *Dir) Load(index int) (image.Image, error) {
	if index < 0 || index >= d.count {
		return nil, services.Wrap(services.ErrInput, "frames", "load", fmt.Sprintf("frame %d out of range [0,%d)", index, d.count), nil)
	}
	f, err := os.Open(filepath.Join(d.path, FileName(index)))
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "frames", "load", "open frame", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "frames", "load", fmt.Sprintf("decode frame %d", index), err)
	}
	return img, nil
}

// Store overwrites the frame at index.
func (d *Dir) Store(index int, img image.Image) error {
	if index < 0 || index >= d.count {
		return services.Wrap(services.ErrInput, "frames", "store", fmt.Sprintf("frame %d out of range [0,%d)", index, d.count), nil)
	}
	return d.write(index, img)
}

// Append writes img as the new last frame and returns its index.
func (d *Dir) Append(img image.Image) (int, error) {
	index := d.count
	if err := d.write(index, img); err != nil {
		return 0, err
	}
	d.count++
	return index, nil
}

func (d *Dir) write(index int, img image.Image) error {
	target := filepath.Join(d.path, FileName(index))
	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrCollaborator, "frames", "write", "create frame", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrCollaborator, "frames", "write", fmt.Sprintf("encode frame %d", index), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrCollaborator, "frames", "write", "close frame", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrCollaborator, "frames", "write", "rename frame", err)
	}
	return nil
}

// Memory is an in-memory Sequence.
type Memory struct {
	Frames []image.Image
}

// NewMemory wraps the given frames.
func NewMemory(frames ...image.Image) *Memory {
	return &Memory{Frames: frames}
}

func (m *Memory) Len() int { return len(m.Frames) }

func (m *Memory) Load(index int) (image.Image, error) {
	if index < 0 || index >= len(m.Frames) {
		return nil, services.Wrap(services.ErrInput, "frames", "load", fmt.Sprintf("frame %d out of range [0,%d)", index, len(m.Frames)), nil)
	}
	return m.Frames[index], nil
}

func (m *Memory) Store(index int, img image.Image) error {
	if index < 0 || index >= len(m.Frames) {
		return services.Wrap(services.ErrInput, "frames", "store", fmt.Sprintf("frame %d out of range [0,%d)", index, len(m.Frames)), nil)
	}
	m.Frames[index] = img
	return nil
}

func (m *Memory) Append(img image.Image) (int, error) {
	m.Frames = append(m.Frames, img)
	return len(m.Frames) - 1, nil
}
