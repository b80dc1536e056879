package api

import (
	"context"
	"fmt"
	"log/slog"

	"framecloak/internal/journal"
	"framecloak/internal/logging"
	"framecloak/internal/pipeline"
	"framecloak/internal/services"
)

// Runner executes pipeline operations.
type Runner interface {
	Encode(ctx context.Context, video []byte, plaintext string) (pipeline.EncodeResult, error)
	Decode(ctx context.Context, video []byte) (pipeline.DecodeResult, error)
}

// Recorder persists run outcomes.
type Recorder interface {
	Begin(ctx context.Context, kind journal.Kind, source, requestID string, bytesIn int64) (*journal.Entry, error)
	Finish(ctx context.Context, entry *journal.Entry) error
}

// Service validates requests and runs them through the pipeline.
type Service struct {
	runner   Runner
	recorder Recorder
	maxBytes int64
	logger   *slog.Logger
}

// NewService constructs a Service. recorder may be nil to skip journaling;
// maxBytes <= 0 disables the size check.
func NewService(runner Runner, recorder Recorder, maxBytes int64, logger *slog.Logger) *Service {
	return &Service{
		runner:   runner,
		recorder: recorder,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "service"),
	}
}

// Encode hides req.Text in req.Video.
func (s *Service) Encode(ctx context.Context, req EncodeRequest) (pipeline.EncodeResult, error) {
	if err := s.validateVideo("encode", req.Video); err != nil {
		return pipeline.EncodeResult{}, err
	}
	if req.Text == "" {
		return pipeline.EncodeResult{}, services.Wrap(services.ErrInput, "encode", "validate", "text is required", nil)
	}

	ctx = services.WithOperation(ctx, string(journal.KindEncode))
	logger := logging.WithContext(ctx, s.logger)
	entry := s.begin(ctx, logger, journal.KindEncode, req.Source, len(req.Video))

	res, err := s.runner.Encode(ctx, req.Video, req.Text)
	if entry != nil {
		entry.Frames = res.FrameCount
		entry.Chunks = res.ChunkCount
		entry.Dropped = res.Dropped
		entry.BytesOut = int64(len(res.Video))
		s.finish(ctx, logger, entry, err)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "encode failed", "encode_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return pipeline.EncodeResult{}, err
	}
	logger.Info("encode complete",
		logging.Int("frames", res.FrameCount),
		logging.Int("chunks", res.ChunkCount),
		logging.Int("dropped", res.Dropped),
		logging.Int64("output_bytes", int64(len(res.Video))),
		logging.String(logging.FieldEventType, "encode_complete"),
	)
	return res, nil
}

// Decode recovers the message hidden in req.Video.
func (s *Service) Decode(ctx context.Context, req DecodeRequest) (DecodeResponse, error) {
	if err := s.validateVideo("decode", req.Video); err != nil {
		return DecodeResponse{}, err
	}

	ctx = services.WithOperation(ctx, string(journal.KindDecode))
	logger := logging.WithContext(ctx, s.logger)
	entry := s.begin(ctx, logger, journal.KindDecode, req.Source, len(req.Video))

	res, err := s.runner.Decode(ctx, req.Video)
	if entry != nil {
		entry.Frames = res.Frames
		entry.Chunks = res.Recovered
		entry.Strategy = res.Strategy
		entry.Found = res.Found
		entry.Decrypted = res.Decrypted
		s.finish(ctx, logger, entry, err)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "decode failed", "decode_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return DecodeResponse{}, err
	}
	logger.Info("decode complete",
		logging.Bool("found", res.Found),
		logging.Bool("decrypted", res.Decrypted),
		logging.String("strategy", res.Strategy),
		logging.Int("recovered", res.Recovered),
		logging.String(logging.FieldEventType, "decode_complete"),
	)
	return FromDecodeResult(res), nil
}

func (s *Service) validateVideo(op string, video []byte) error {
	if len(video) == 0 {
		return services.Wrap(services.ErrInput, op, "validate", "video is required", nil)
	}
	if s.maxBytes > 0 && int64(len(video)) > s.maxBytes {
		return services.Wrap(services.ErrInput, op, "validate",
			fmt.Sprintf("video of %d bytes exceeds the %d byte limit", len(video), s.maxBytes), nil)
	}
	return nil
}

func (s *Service) begin(ctx context.Context, logger *slog.Logger, kind journal.Kind, source string, bytesIn int) *journal.Entry {
	if s.recorder == nil {
		return nil
	}
	requestID, _ := services.RequestIDFromContext(ctx)
	entry, err := s.recorder.Begin(ctx, kind, source, requestID, int64(bytesIn))
	if err != nil {
		logging.WarnWithContext(logger, "journal begin failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "run will be missing from history"),
		)
		return nil
	}
	return entry
}

func (s *Service) finish(ctx context.Context, logger *slog.Logger, entry *journal.Entry, runErr error) {
	if runErr != nil {
		entry.Status = journal.StatusFailed
		entry.ErrorKind = services.Kind(runErr)
		entry.ErrorMessage = runErr.Error()
	} else {
		entry.Status = journal.StatusSucceeded
	}
	if err := s.recorder.Finish(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "journal finish failed", "journal_write_failed",
			logging.Error(err),
			logging.String("run_id", entry.ID),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "run stays marked running in history"),
		)
	}
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "input":
		return "check the uploaded video and text"
	case "capacity":
		return "use a longer or larger video, or set covert.overflow_policy = \"truncate\""
	case "decryption":
		return "message was sealed to a different key or is incomplete"
	case "external_tool":
		return "run framecloak status to verify ffmpeg"
	case "configuration":
		return "run framecloak config validate and framecloak keys init"
	default:
		return "check logs for details"
	}
}
