package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"framecloak/internal/frames"
	"framecloak/internal/logging"
	"framecloak/internal/media/ffprobe"
	"framecloak/internal/services"
)

// DefaultFrameRate is used when the reference video reports no usable rate.
const DefaultFrameRate = "25/1"

type commandRunner func(ctx context.Context, name string, args ...string) error

type prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Container implements frame extraction and assembly with ffmpeg.
type Container struct {
	ffmpegBinary  string
	ffprobeBinary string
	keepAudio     bool
	logger        *slog.Logger
	run           commandRunner
	probe         prober
}

// Option customizes a Container.
type Option func(*Container)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(c *Container) {
		if strings.TrimSpace(ffmpegBinary) != "" {
			c.ffmpegBinary = strings.TrimSpace(ffmpegBinary)
		}
		if strings.TrimSpace(ffprobeBinary) != "" {
			c.ffprobeBinary = strings.TrimSpace(ffprobeBinary)
		}
	}
}

// WithKeepAudio copies audio streams from the reference video into the output.
func WithKeepAudio(keep bool) Option {
	return func(c *Container) { c.keepAudio = keep }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) { c.logger = logging.NewComponentLogger(logger, "ffmpeg") }
}

// New constructs a Container.
func New(opts ...Option) *Container {
	c := &Container{
		ffmpegBinary:  "ffmpeg",
		ffprobeBinary: "ffprobe",
		logger:        logging.NewNop(),
		run:           defaultCommandRunner,
		probe:         ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Container) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Extract writes every frame of the first video stream in videoPath into
// frameDir and returns how many were written.
func (c *Container) Extract(ctx context.Context, videoPath, frameDir string) (int, error) {
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrCollaborator, "ffmpeg", "extract", "create frame directory", err)
	}
	args := ExtractArgs(videoPath, frameDir)
	c.logger.Debug("extracting frames",
		logging.String("input", videoPath),
		logging.String("frame_dir", frameDir),
	)
	if err := c.run(ctx, c.ffmpegBinary, args...); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffmpeg", "extract", "frame extraction failed", err)
	}
	seq, err := frames.OpenDir(frameDir)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("frames extracted", logging.Int("frames", seq.Len()))
	return seq.Len(), nil
}

// Assemble encodes frames 0..frameCount-1 from frameDir into outputPath,
// taking the frame rate (and optionally audio) from referencePath.
func (c *Container) Assemble(ctx context.Context, frameDir string, frameCount int, referencePath, outputPath string) error {
	if frameCount <= 0 {
		return services.Wrap(services.ErrInput, "ffmpeg", "assemble", "no frames to assemble", nil)
	}
	rate := DefaultFrameRate
	withAudio := false
	probe, err := c.probe(ctx, c.ffprobeBinary, referencePath)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "reference probe failed; using default frame rate", "probe_failed",
			logging.String(logging.FieldErrorHint, "check ffprobe_binary in config"),
			logging.String(logging.FieldImpact, "output frame rate may differ from the input"),
			logging.String("frame_rate", DefaultFrameRate),
			logging.Error(err),
		)
	} else {
		if r, ok := probe.FrameRate(); ok {
			rate = r
		}
		withAudio = c.keepAudio && probe.AudioStreamCount() > 0
	}

	args := AssembleArgs(AssembleRequest{
		FrameDir:      frameDir,
		FrameCount:    frameCount,
		FrameRate:     rate,
		ReferencePath: referencePath,
		OutputPath:    outputPath,
		KeepAudio:     withAudio,
	})
	c.logger.Debug("assembling video",
		logging.String("output", outputPath),
		logging.Int("frames", frameCount),
		logging.String("frame_rate", rate),
		logging.Bool("audio", withAudio),
	)
	if err := c.run(ctx, c.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "assemble", "video assembly failed", err)
	}
	return nil
}

// ExtractArgs builds the ffmpeg arguments for frame extraction.
func ExtractArgs(videoPath, frameDir string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-v", "error", "-y",
		"-i", videoPath,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-pix_fmt", "rgb24",
		"-start_number", "0",
		filepath.Join(frameDir, frames.Pattern),
	}
}

// AssembleRequest describes one assembly invocation.
type AssembleRequest struct {
	FrameDir      string
	FrameCount    int
	FrameRate     string
	ReferencePath string
	OutputPath    string
	KeepAudio     bool
}

// AssembleArgs builds the ffmpeg arguments for lossless assembly.
func AssembleArgs(req AssembleRequest) []string {
	rate := strings.TrimSpace(req.FrameRate)
	if rate == "" {
		rate = DefaultFrameRate
	}
	args := []string{
		"-hide_banner", "-nostdin", "-v", "error", "-y",
		"-framerate", rate,
		"-start_number", "0",
		"-i", filepath.Join(req.FrameDir, frames.Pattern),
	}
	if req.KeepAudio {
		args = append(args, "-i", req.ReferencePath, "-map", "0:v:0", "-map", "1:a?", "-c:a", "copy")
	}
	args = append(args,
		"-frames:v", fmt.Sprint(req.FrameCount),
		"-c:v", "ffv1",
		"-level", "3",
		"-pix_fmt", "bgr0",
		"-f", "matroska",
		req.OutputPath,
	)
	return args
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
