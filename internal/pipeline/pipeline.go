package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"framecloak/internal/allocation"
	"framecloak/internal/chunking"
	"framecloak/internal/frames"
	"framecloak/internal/logging"
	"framecloak/internal/metadata"
	"framecloak/internal/services"
	"framecloak/internal/session"
)

// Pipeline states, logged as the stage field.
const (
	StageStart            = "start"
	StageFramesExtracted  = "frames_extracted"
	StageEncrypted        = "encrypted"
	StageChunked          = "chunked"
	StageEmbedded         = "embedded"
	StageMetadataAppended = "metadata_appended"
	StageVideoAssembled   = "video_assembled"
	StageResolved         = "resolved"
	StageRevealed         = "revealed"
	StageDone             = "done"
)

// Pipeline runs encodes and decodes. It holds no per-run state and is safe for
// concurrent use; each run owns its own session.
type Pipeline struct {
	cipher    Cipher
	embedder  Embedder
	container Container
	sessions  *session.Manager
	opts      Options
	logger    *slog.Logger
}

// New constructs a Pipeline.
func New(cipher Cipher, embedder Embedder, container Container, sessions *session.Manager, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if cipher == nil || embedder == nil || container == nil || sessions == nil {
		return nil, errors.New("pipeline requires cipher, embedder, container, and session manager")
	}
	if opts.PartCount <= 0 {
		opts.PartCount = chunking.DefaultParts
	}
	if opts.MetadataWindow <= 0 {
		opts.MetadataWindow = metadata.DefaultWindow
	}
	if opts.FallbackFrames <= 0 {
		opts.FallbackFrames = metadata.DefaultFallbackFrames
	}
	if opts.DecodeMode == "" {
		opts.DecodeMode = DecodeAuto
	}
	return &Pipeline{
		cipher:    cipher,
		embedder:  embedder,
		container: container,
		sessions:  sessions,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Options returns the channel parameters in effect.
func (p *Pipeline) Options() Options { return p.opts }

// Encode hides plaintext in video and returns the assembled output. An empty
// plaintext produces a video whose metadata record is empty.
func (p *Pipeline) Encode(ctx context.Context, video []byte, plaintext string) (EncodeResult, error) {
	if len(video) == 0 {
		return EncodeResult{}, services.Wrap(services.ErrInput, "encode", "validate", "video is empty", nil)
	}

	sess, seq, ctx, logger, err := p.open(ctx, "encode", video)
	if err != nil {
		return EncodeResult{}, err
	}
	defer sess.Close()

	ciphertext := ""
	if plaintext != "" {
		ciphertext, err = p.cipher.Encrypt([]byte(plaintext))
		if err != nil {
			return EncodeResult{}, services.Wrap(services.ErrCollaborator, "encode", "encrypt", "encrypt message", err)
		}
	}
	p.state(logger, StageEncrypted, logging.Int("ciphertext_len", len(ciphertext)))

	chunks := chunking.Split(ciphertext, p.opts.PartCount)
	p.state(logger, StageChunked, logging.Int("chunks", len(chunks)))

	frameCount := seq.Len()
	plan, err := allocation.Allocate(chunks, frameCount, p.opts.Overflow)
	if err != nil {
		return EncodeResult{}, err
	}
	if plan.Dropped > 0 {
		logging.WarnWithContext(logger, "video has fewer frames than chunks; trailing chunks dropped", "chunks_truncated",
			logging.Int("chunks", len(chunks)),
			logging.Int("frames", frameCount),
			logging.Int("dropped", plan.Dropped),
			logging.String(logging.FieldErrorHint, "use a longer video or lower covert.part_count"),
			logging.String(logging.FieldImpact, "the hidden message cannot be fully recovered"),
		)
	}
	for _, a := range plan.Assignments {
		if err := p.embedChunk(seq, a); err != nil {
			return EncodeResult{}, err
		}
	}
	p.state(logger, StageEmbedded, logging.Int("frames_used", len(plan.Assignments)))

	indices := plan.Indices()
	metaFrame, err := metadata.AppendFrame(seq, metadata.Record(indices), p.embedder)
	if err != nil {
		return EncodeResult{}, services.Wrap(services.ErrCollaborator, "encode", "metadata", "append metadata frame", err)
	}
	p.state(logger, StageMetadataAppended, logging.Int("metadata_frame", metaFrame))

	if err := p.container.Assemble(ctx, sess.FrameDir(), seq.Len(), sess.InputPath(), sess.OutputPath()); err != nil {
		return EncodeResult{}, services.Wrap(services.ErrExternalTool, "encode", "assemble", "assemble output video", err)
	}
	output, err := sess.ReadOutput()
	if err != nil {
		return EncodeResult{}, err
	}
	p.state(logger, StageVideoAssembled, logging.Int("output_bytes", len(output)))

	result := EncodeResult{
		Video:         output,
		FrameCount:    frameCount,
		ChunkCount:    len(chunks),
		Indices:       indices,
		Dropped:       plan.Dropped,
		MetadataFrame: metaFrame,
		CiphertextLen: len(ciphertext),
	}
	p.state(logger, StageDone)
	return result, nil
}

// Decode recovers the message hidden in video. A video without any hidden
// text yields Found=false and no error.
func (p *Pipeline) Decode(ctx context.Context, video []byte) (DecodeResult, error) {
	if len(video) == 0 {
		return DecodeResult{}, services.Wrap(services.ErrInput, "decode", "validate", "video is empty", nil)
	}

	sess, seq, _, logger, err := p.open(ctx, "decode", video)
	if err != nil {
		return DecodeResult{}, err
	}
	defer sess.Close()

	frameCount := seq.Len()
	lookup := metadata.NewLookup(p.opts.MetadataWindow, p.opts.FallbackFrames)
	res, err := lookup.Resolve(seq, p.embedder)
	if err != nil {
		return DecodeResult{}, err
	}
	if res.Strategy == metadata.StrategyFallback {
		logging.WarnWithContext(logger, "no metadata frame found; scanning default frame range", "metadata_not_found",
			logging.Int("window", p.opts.MetadataWindow),
			logging.Int("fallback_frames", p.opts.FallbackFrames),
			logging.String(logging.FieldErrorHint, "video may predate metadata frames or carry no message"),
			logging.String(logging.FieldImpact, "recovered text may be incomplete"),
		)
	}
	p.state(logger, StageResolved,
		logging.String("strategy", res.Strategy),
		logging.Int("candidates", len(res.Indices)),
		logging.Int("metadata_frame", res.MetadataFrame),
	)

	recovered := make(map[int]string, len(res.Indices))
	for _, idx := range res.Indices {
		if idx < 0 || idx >= frameCount {
			continue
		}
		img, err := seq.Load(idx)
		if err != nil {
			logger.Debug("skipping unreadable frame", logging.Int("frame", idx), logging.Error(err))
			continue
		}
		text, ok, err := p.embedder.Reveal(img)
		if err != nil || !ok || text == "" {
			continue
		}
		recovered[idx] = text
	}
	joined := reassemble(recovered)
	p.state(logger, StageRevealed, logging.Int("recovered", len(recovered)), logging.Int("text_len", len(joined)))

	result := DecodeResult{
		Strategy:      res.Strategy,
		MetadataFrame: res.MetadataFrame,
		Frames:        frameCount,
		Recovered:     len(recovered),
	}
	if joined == "" {
		p.state(logger, StageDone, logging.Bool("found", false))
		return result, nil
	}
	result.Found = true

	switch p.opts.DecodeMode {
	case DecodeRaw:
		result.Message = joined
	case DecodeStrict:
		plain, err := p.cipher.Decrypt(joined)
		if err != nil {
			marker := services.ErrCollaborator
			if errors.Is(err, services.ErrDecryption) {
				marker = services.ErrDecryption
			}
			return DecodeResult{}, services.Wrap(marker, "decode", "decrypt", "decrypt recovered text", err)
		}
		result.Message = string(plain)
		result.Decrypted = true
	default:
		plain, err := p.cipher.Decrypt(joined)
		switch {
		case err == nil:
			result.Message = string(plain)
			result.Decrypted = true
		case errors.Is(err, services.ErrDecryption):
			logging.WarnWithContext(logger, "decryption failed; returning raw recovered text", "decrypt_fallback",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "message may be unencrypted, truncated or sealed to another key"),
				logging.String(logging.FieldImpact, "caller receives undecrypted text"),
			)
			result.Message = joined
		default:
			return DecodeResult{}, services.Wrap(services.ErrCollaborator, "decode", "decrypt", "decrypt recovered text", err)
		}
	}
	p.state(logger, StageDone, logging.Bool("found", true), logging.Bool("decrypted", result.Decrypted))
	return result, nil
}

// open creates a session, stores the input and extracts its frames.
func (p *Pipeline) open(ctx context.Context, op string, video []byte) (*session.Session, *frames.Dir, context.Context, *slog.Logger, error) {
	sess, err := p.sessions.Create()
	if err != nil {
		return nil, nil, ctx, nil, err
	}
	ctx = services.WithSessionID(ctx, sess.ID)
	ctx = services.WithOperation(ctx, op)
	logger := logging.WithContext(ctx, p.logger)
	p.state(logger, StageStart, logging.Int("input_bytes", len(video)))

	fail := func(err error) (*session.Session, *frames.Dir, context.Context, *slog.Logger, error) {
		_ = sess.Close()
		return nil, nil, ctx, nil, err
	}
	if err := sess.WriteInput(video); err != nil {
		return fail(err)
	}
	count, err := p.container.Extract(ctx, sess.InputPath(), sess.FrameDir())
	if err != nil {
		return fail(services.Wrap(services.ErrExternalTool, op, "extract", "extract frames", err))
	}
	if count == 0 {
		return fail(services.Wrap(services.ErrInput, op, "extract", "video contains no frames", nil))
	}
	seq, err := frames.OpenDir(sess.FrameDir())
	if err != nil {
		return fail(err)
	}
	if seq.Len() != count {
		return fail(services.Wrap(services.ErrCollaborator, op, "extract",
			fmt.Sprintf("container reported %d frames but %d were written", count, seq.Len()), nil))
	}
	p.state(logger, StageFramesExtracted, logging.Int("frames", count))
	return sess, seq, ctx, logger, nil
}

func (p *Pipeline) embedChunk(seq frames.Sequence, a allocation.Assignment) error {
	img, err := seq.Load(a.Frame)
	if err != nil {
		return err
	}
	stamped, err := p.embedder.Embed(img, a.Chunk)
	if err != nil {
		return services.Wrap(services.ErrCollaborator, "encode", "embed", fmt.Sprintf("embed chunk into frame %d", a.Frame), err)
	}
	return seq.Store(a.Frame, stamped)
}

func (p *Pipeline) state(logger *slog.Logger, stage string, attrs ...logging.Attr) {
	attrs = append([]logging.Attr{logging.String(logging.FieldStage, stage)}, attrs...)
	logger.Debug("pipeline state", logging.Args(attrs...)...)
}

// reassemble joins recovered chunks in ascending frame order.
func reassemble(chunks map[int]string) string {
	indices := make([]int, 0, len(chunks))
	for idx := range chunks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	var b strings.Builder
	for _, idx := range indices {
		b.WriteString(chunks[idx])
	}
	return b.String()
}
