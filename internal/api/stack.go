package api

import (
	"context"
	"fmt"
	"log/slog"

	"framecloak/internal/config"
	"framecloak/internal/journal"
	"framecloak/internal/keys"
	"framecloak/internal/media/ffmpeg"
	"framecloak/internal/pipeline"
	"framecloak/internal/session"
	"framecloak/internal/stego"
)

// Stack bundles the long-lived collaborators built from configuration.
type Stack struct {
	Config   *config.Config
	Keys     *keys.FileStore
	Journal  *journal.Store
	Pipeline *pipeline.Pipeline
	Service  *Service
	History  *HistoryService
}

// StackOption customizes stack construction.
type StackOption func(*stackOptions)

type stackOptions struct {
	container pipeline.Container
}

// WithContainer replaces the ffmpeg-backed container.
func WithContainer(c pipeline.Container) StackOption {
	return func(o *stackOptions) { o.container = c }
}

// NewStack opens the journal and wires the pipeline for cfg.
func NewStack(cfg *config.Config, logger *slog.Logger, opts ...StackOption) (*Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	var o stackOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.container == nil {
		o.container = ffmpeg.New(
			ffmpeg.WithBinaries(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary),
			ffmpeg.WithKeepAudio(cfg.Media.KeepAudio),
			ffmpeg.WithLogger(logger),
		)
	}
	pipeOpts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store := keys.NewFileStore(cfg.Paths.KeyDir)
	cipher := keys.NewCipher(store)
	sessions := session.NewManager(cfg.Paths.WorkDir, logger)
	pipe, err := pipeline.New(cipher, stego.New(), o.container, sessions, pipeOpts, logger)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &Stack{
		Config:   cfg,
		Keys:     store,
		Journal:  j,
		Pipeline: pipe,
		Service:  NewService(pipe, j, cfg.MaxUploadBytes(), logger),
		History:  NewHistoryService(j),
	}, nil
}

// PublicKey reports the key incoming messages are sealed to.
func (s *Stack) PublicKey(context.Context) (PublicKeyResponse, error) {
	kp, err := s.Keys.KeyPair()
	if err != nil {
		return PublicKeyResponse{}, err
	}
	return PublicKeyResponse{PublicKey: kp.PublicHex(), Fingerprint: kp.Fingerprint()}, nil
}

// Close releases the journal.
func (s *Stack) Close() error {
	if s == nil || s.Journal == nil {
		return nil
	}
	return s.Journal.Close()
}
