package ffmpeg

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"framecloak/internal/frames"
	"framecloak/internal/media/ffprobe"
	"framecloak/internal/services"
)

func TestExtractArgs(t *testing.T) {
	args := ExtractArgs("/tmp/in.mp4", "/tmp/frames")
	if got := args[len(args)-1]; got != "/tmp/frames/frame-%06d.png" {
		t.Fatalf("unexpected output pattern %q", got)
	}
	for _, want := range [][2]string{{"-i", "/tmp/in.mp4"}, {"-start_number", "0"}, {"-pix_fmt", "rgb24"}, {"-map", "0:v:0"}} {
		if !hasPair(args, want[0], want[1]) {
			t.Fatalf("expected %s %s in %v", want[0], want[1], args)
		}
	}
}

func TestAssembleArgsLossless(t *testing.T) {
	args := AssembleArgs(AssembleRequest{
		FrameDir:   "/tmp/frames",
		FrameCount: 11,
		FrameRate:  "30000/1001",
		OutputPath: "/tmp/out.mkv",
	})
	for _, want := range [][2]string{
		{"-framerate", "30000/1001"},
		{"-c:v", "ffv1"},
		{"-pix_fmt", "bgr0"},
		{"-frames:v", "11"},
		{"-f", "matroska"},
	} {
		if !hasPair(args, want[0], want[1]) {
			t.Fatalf("expected %s %s in %v", want[0], want[1], args)
		}
	}
	if slices.Contains(args, "-c:a") {
		t.Fatalf("expected no audio mapping, got %v", args)
	}
}

func TestAssembleArgsWithAudio(t *testing.T) {
	args := AssembleArgs(AssembleRequest{
		FrameDir:      "/tmp/frames",
		FrameCount:    3,
		ReferencePath: "/tmp/in.mp4",
		OutputPath:    "/tmp/out.mkv",
		KeepAudio:     true,
	})
	if !hasPair(args, "-framerate", DefaultFrameRate) {
		t.Fatalf("expected default frame rate, got %v", args)
	}
	if !hasPair(args, "-map", "1:a?") || !hasPair(args, "-c:a", "copy") {
		t.Fatalf("expected audio copy from reference, got %v", args)
	}
}

func TestExtractCountsFrames(t *testing.T) {
	c := New()
	c.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		pattern := args[len(args)-1]
		for i := 0; i < 4; i++ {
			f, err := os.Create(strings.Replace(pattern, "%06d", frameNumber(i), 1))
			if err != nil {
				return err
			}
			if err := png.Encode(f, frames.Gradient(2, 2, i)); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
		return nil
	})

	n, err := c.Extract(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "frames"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 frames, got %d", n)
	}
}

func TestExtractFailureIsExternalTool(t *testing.T) {
	c := New()
	c.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	_, err := c.Extract(context.Background(), "in.mp4", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestAssembleUsesProbedRate(t *testing.T) {
	var captured []string
	c := New(WithKeepAudio(true))
	c.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{CodecType: "video", RFrameRate: "24000/1001"},
			{CodecType: "audio"},
		}}, nil
	}
	c.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		captured = args
		return nil
	})

	if err := c.Assemble(context.Background(), "/tmp/frames", 5, "/tmp/in.mp4", "/tmp/out.mkv"); err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if !hasPair(captured, "-framerate", "24000/1001") {
		t.Fatalf("expected probed frame rate, got %v", captured)
	}
	if !hasPair(captured, "-map", "1:a?") {
		t.Fatalf("expected audio mapping, got %v", captured)
	}
}

func TestAssembleProbeFailureFallsBack(t *testing.T) {
	var captured []string
	c := New(WithKeepAudio(true))
	c.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("no ffprobe")
	}
	c.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		captured = args
		return nil
	})
	if err := c.Assemble(context.Background(), "/tmp/frames", 2, "/tmp/in.mp4", "/tmp/out.mkv"); err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if !hasPair(captured, "-framerate", DefaultFrameRate) || slices.Contains(captured, "-c:a") {
		t.Fatalf("expected default rate without audio, got %v", captured)
	}
}

func TestAssembleRejectsEmpty(t *testing.T) {
	err := New().Assemble(context.Background(), "/tmp/frames", 0, "in", "out")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func frameNumber(i int) string {
	name := frames.FileName(i)
	return strings.TrimSuffix(strings.TrimPrefix(name, "frame-"), ".png")
}
