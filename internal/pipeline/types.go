package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"

	"framecloak/internal/allocation"
	"framecloak/internal/chunking"
	"framecloak/internal/config"
	"framecloak/internal/metadata"
)

// Cipher encrypts plaintext to printable ciphertext and back. Decrypt failures
// caused by bad ciphertext must wrap services.ErrDecryption.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Embedder hides text in, and recovers text from, a single frame.
type Embedder interface {
	Embed(img image.Image, text string) (image.Image, error)
	Reveal(img image.Image) (string, bool, error)
}

// Container converts between a video file and a directory of numbered frames.
type Container interface {
	Extract(ctx context.Context, videoPath, frameDir string) (int, error)
	Assemble(ctx context.Context, frameDir string, frameCount int, referencePath, outputPath string) error
}

// DecodeMode selects how Decode treats the reassembled ciphertext.
type DecodeMode string

const (
	// DecodeAuto decrypts and falls back to the raw text when decryption fails.
	DecodeAuto DecodeMode = "auto"
	// DecodeStrict decrypts and reports decryption failure as an error.
	DecodeStrict DecodeMode = "strict"
	// DecodeRaw returns the reassembled text without decrypting.
	DecodeRaw DecodeMode = "raw"
)

// ParseDecodeMode maps a configuration value to a DecodeMode.
func ParseDecodeMode(value string) (DecodeMode, error) {
	switch mode := DecodeMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return DecodeAuto, nil
	case DecodeAuto, DecodeStrict, DecodeRaw:
		return mode, nil
	default:
		return DecodeAuto, fmt.Errorf("unknown decode mode %q", value)
	}
}

// Options tunes the covert channel.
type Options struct {
	PartCount      int
	MetadataWindow int
	FallbackFrames int
	Overflow       allocation.Policy
	DecodeMode     DecodeMode
}

// DefaultOptions returns the historical channel parameters with overflow
// rejected.
func DefaultOptions() Options {
	return Options{
		PartCount:      chunking.DefaultParts,
		MetadataWindow: metadata.DefaultWindow,
		FallbackFrames: metadata.DefaultFallbackFrames,
		Overflow:       allocation.PolicyReject,
		DecodeMode:     DecodeAuto,
	}
}

// OptionsFromConfig reads the [covert] section.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	policy, err := allocation.ParsePolicy(cfg.Covert.OverflowPolicy)
	if err != nil {
		return opts, err
	}
	mode, err := ParseDecodeMode(cfg.Covert.DecodeMode)
	if err != nil {
		return opts, err
	}
	if cfg.Covert.PartCount > 0 {
		opts.PartCount = cfg.Covert.PartCount
	}
	if cfg.Covert.MetadataWindow > 0 {
		opts.MetadataWindow = cfg.Covert.MetadataWindow
	}
	if cfg.Covert.FallbackFrames > 0 {
		opts.FallbackFrames = cfg.Covert.FallbackFrames
	}
	opts.Overflow = policy
	opts.DecodeMode = mode
	return opts, nil
}

// EncodeResult describes a finished encode.
type EncodeResult struct {
	// Video is the assembled output container.
	Video []byte
	// FrameCount is the number of content frames extracted from the input;
	// the output carries one more, the metadata frame.
	FrameCount    int
	ChunkCount    int
	Indices       []int
	Dropped       int
	MetadataFrame int
	CiphertextLen int
}

// DecodeResult describes a finished decode.
type DecodeResult struct {
	Found         bool
	Message       string
	Decrypted     bool
	Strategy      string
	MetadataFrame int
	Frames        int
	Recovered     int
}
