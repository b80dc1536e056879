// Package session manages the ephemeral working directories owned by a single
// encode or decode run.
//
// Each session lives under the configured work directory in a directory named
// by a random UUID. Callers must Close the session on every exit path; stale
// sessions left behind by a crashed process are reclaimed by CleanStale.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"framecloak/internal/fileutil"
	"framecloak/internal/logging"
	"framecloak/internal/services"
)

const (
	inputName  = "input.video"
	outputName = "output.mkv"
	framesDir  = "frames"
)

// Manager creates sessions under a root directory.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager returns a Manager rooted at dir.
func NewManager(dir string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   strings.TrimSpace(dir),
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

// Root returns the work directory sessions are created in.
func (m *Manager) Root() string { return m.root }

// Create makes a new, empty session directory.
func (m *Manager) Create() (*Session, error) {
	if m.root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "session", "create", "work directory not configured", nil)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "create", "create work directory", err)
	}
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "session", "create", "create session directory", err)
	}
	if err := os.Mkdir(filepath.Join(dir, framesDir), 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, services.Wrap(services.ErrCollaborator, "session", "create", "create frame directory", err)
	}
	m.logger.Debug("session created", logging.String(logging.FieldSessionID, id), logging.String("path", dir))
	return &Session{ID: id, Dir: dir, logger: m.logger}, nil
}

// Session is one run's private working directory.
type Session struct {
	ID     string
	Dir    string
	logger *slog.Logger
	closed bool
}

// InputPath is where the uploaded video is written.
func (s *Session) InputPath() string { return filepath.Join(s.Dir, inputName) }

// OutputPath is where the assembled video is written.
func (s *Session) OutputPath() string { return filepath.Join(s.Dir, outputName) }

// FrameDir holds the extracted frame sequence.
func (s *Session) FrameDir() string { return filepath.Join(s.Dir, framesDir) }

// WriteInput stores the video bytes as the session input.
func (s *Session) WriteInput(video []byte) error {
	if err := fileutil.WriteFileAtomic(s.InputPath(), video, 0o600); err != nil {
		return services.Wrap(services.ErrCollaborator, "session", "write input", "store uploaded video", err)
	}
	return nil
}

// ReadOutput returns the assembled video bytes.
func (s *Session) ReadOutput() ([]byte, error) {
	data, err := os.ReadFile(s.OutputPath())
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "session", "read output", "read assembled video", err)
	}
	return data, nil
}

// Close removes the session directory. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if err := os.RemoveAll(s.Dir); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove session directory", "session_cleanup_failed",
			logging.String(logging.FieldSessionID, s.ID),
			logging.String("path", s.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until stale cleanup runs"),
		)
		return fmt.Errorf("remove session %s: %w", s.ID, err)
	}
	s.logger.Debug("session removed", logging.String(logging.FieldSessionID, s.ID))
	return nil
}
