package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"framecloak/internal/config"
	"framecloak/internal/deps"
	"framecloak/internal/logging"
	"framecloak/internal/preflight"
	"framecloak/internal/services"
	"framecloak/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API and enforces single-instance execution per
// state directory.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	lock   *flock.Flock
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// New constructs a server. history may be nil.
func New(cfg *config.Config, ops Operations, history HistoryLister, keys KeySource, logger *slog.Logger) (*Server, error) {
	if cfg == nil || ops == nil || keys == nil {
		return nil, errors.New("server requires config, operations and key source")
	}
	logger = logging.NewComponentLogger(logger, "api-server")
	h := &handlers{
		ops:      ops,
		history:  history,
		keys:     keys,
		maxBytes: cfg.MaxUploadBytes(),
		logger:   logger,
	}
	token := strings.TrimSpace(cfg.Server.Token)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/encode", authMiddleware(token, h.handleEncode))
	mux.HandleFunc("/api/decode", authMiddleware(token, h.handleDecode))
	mux.HandleFunc("/api/history", authMiddleware(token, h.handleHistory))
	mux.HandleFunc("/api/keys/public", h.handlePublicKey)

	var handler http.Handler = mux
	handler = timeoutMiddleware(cfg.RequestTimeout(), handler)
	handler = corsMiddleware(cfg.Server.AllowedOrigins, handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		cfg:    cfg,
		logger: logger,
		lock:   flock.New(cfg.ServerLockPath()),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Addr returns the bound listener address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start acquires the instance lock, runs start-up checks and begins serving.
// The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("server already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "server", "lock",
			"another framecloak server is already using "+s.cfg.Paths.StateDir, nil)
	}

	if err := s.checkStartup(ctx); err != nil {
		_ = s.lock.Unlock()
		return err
	}

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lock.Path()),
		logging.Bool("auth", strings.TrimSpace(s.cfg.Server.Token) != ""),
	)
	return nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop shuts the HTTP server down and releases the instance lock.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release server lock", logging.Error(err))
	}
	s.listener = nil
	s.running = false
	s.logger.Info("api server stopped")
}

func (s *Server) checkStartup(ctx context.Context) error {
	if missing := deps.Missing(preflight.CheckSystemDeps(ctx, s.cfg)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, m.Command)
		}
		return services.Wrap(services.ErrConfiguration, "server", "dependencies",
			"missing required binaries: "+strings.Join(names, ", "), nil)
	}

	for _, r := range preflight.Failed(preflight.RunAll(ctx, s.cfg)) {
		logging.WarnWithContext(s.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "requests may fail until this is resolved"),
		)
	}

	result := session.CleanStale(ctx, s.cfg.Paths.WorkDir, s.cfg.StaleSessionAge(), s.logger)
	if len(result.Removed) > 0 {
		s.logger.Info("removed stale sessions", logging.Int("count", len(result.Removed)))
	}
	return nil
}
