package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"skillgap/internal/analysis"
	"skillgap/internal/config"
	"skillgap/internal/observability"
)

const (
	shutdownTimeout              = 30 * time.Second
	observabilityShutdownTimeout = 5 * time.Second
)

// Start serves the API until ctx is cancelled, then drains in-flight requests
func (s *Server) Start(ctx context.Context) error {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(s.AppConfig, s.Version), s.AppConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			s.Logger.LogError(err, "Failed to shutdown observability")
		}
	}()
	defer s.releaseResources()

	if s.Engine == nil {
		if s.Engine, err = analysis.Build(s.AppConfig, om, s.Logger); err != nil {
			return fmt.Errorf("failed to build analysis engine: %w", err)
		}
	}
	if err := s.startPromptWatcher(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	s.writeServerInfo(os.Stdout)
	return s.serve(ctx, s.newHTTPServer(om), ln)
}

func (s *Server) newHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Handler:           om.HTTPMiddleware()(s.setupRoutes(om)),
		ReadHeaderTimeout: s.ReadTimeout,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// serve runs srv on ln and shuts it down when ctx ends. It does not release
// the server's other resources.
func (s *Server) serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", "address", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down HTTP server", "reason", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown timed out, closing connections")
		return srv.Close()
	}
	s.Logger.Info("Server shutdown completed")
	return nil
}

// startPromptWatcher reloads prompt files on change when server.watchPrompts is set
func (s *Server) startPromptWatcher() error {
	if s.AppConfig == nil || !s.AppConfig.Server.WatchPrompts {
		return nil
	}
	files := s.AppConfig.PromptFiles()
	if len(files) == 0 {
		s.Logger.Info("Prompt reload requested but no prompt files are configured")
		return nil
	}

	s.PromptWatcher = config.NewPromptWatcher(s.AppConfig.Prompts(), files, 0, s.Logger)
	if err := s.PromptWatcher.Start(); err != nil {
		return fmt.Errorf("failed to start prompt watcher: %w", err)
	}
	return nil
}

// releaseResources stops the prompt watcher, the rate limiter and the AI clients
func (s *Server) releaseResources() {
	if s.PromptWatcher != nil {
		if err := s.PromptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	if s.Engine != nil {
		if err := s.Engine.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close AI services")
		}
	}
}
