package testsupport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"framecloak/internal/frames"
)

// MakeVideo returns a fake video: a zip archive of n distinct w×h PNG frames
// understood by ZipContainer.
func MakeVideo(t testing.TB, n, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < n; i++ {
		f, err := zw.Create(frames.FileName(i))
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if err := png.Encode(f, frames.Gradient(w, h, i)); err != nil {
			t.Fatalf("png encode: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// FrameCount returns how many frames a ZipContainer video holds.
func FrameCount(t testing.TB, video []byte) int {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(video), int64(len(video)))
	if err != nil {
		t.Fatalf("open zip video: %v", err)
	}
	return len(zr.File)
}

// ZipContainer is a stand-in for the ffmpeg container. Videos are zip
// archives of frame PNGs, so pipeline tests run without external tools.
type ZipContainer struct {
	mu sync.Mutex
	// ExtractErr and AssembleErr, when set, are returned by the matching call.
	ExtractErr  error
	AssembleErr error
	// Extracted and Assembled count successful calls.
	Extracted int
	Assembled int
	// FrameDirs records the frame directories seen by Extract.
	FrameDirs []string
}

// Extract unpacks the archive at videoPath into frameDir.
func (z *ZipContainer) Extract(_ context.Context, videoPath, frameDir string) (int, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.FrameDirs = append(z.FrameDirs, frameDir)
	if z.ExtractErr != nil {
		return 0, z.ExtractErr
	}
	zr, err := zip.OpenReader(videoPath)
	if err != nil {
		return 0, fmt.Errorf("not a test video: %w", err)
	}
	defer zr.Close()

	count := 0
	for _, file := range zr.File {
		name := filepath.Base(file.Name)
		if !strings.HasPrefix(name, "frame-") {
			continue
		}
		if err := extractFile(file, filepath.Join(frameDir, name)); err != nil {
			return 0, err
		}
		count++
	}
	z.Extracted++
	return count, nil
}

// Assemble packs frames 0..frameCount-1 from frameDir into outputPath.
func (z *ZipContainer) Assemble(_ context.Context, frameDir string, frameCount int, _ string, outputPath string) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.AssembleErr != nil {
		return z.AssembleErr
	}
	if frameCount <= 0 {
		return errors.New("no frames to assemble")
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	names := make([]string, frameCount)
	for i := range names {
		names[i] = frames.FileName(i)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(frameDir, name))
		if err != nil {
			return err
		}
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	z.Assembled++
	return out.Close()
}

func extractFile(file *zip.File, target string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
