package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pagesmith/pagesmith/internal/core/generator"
	"github.com/pagesmith/pagesmith/internal/shell/api"
	"github.com/pagesmith/pagesmith/internal/shell/github"
	"github.com/pagesmith/pagesmith/internal/shell/notifier"
	"github.com/pagesmith/pagesmith/internal/shell/store"
	"github.com/pagesmith/pagesmith/internal/shell/workflow"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 3
)

// =============================================================================
// Server
// =============================================================================

// Server represents the pagesmith application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	runner     *workflow.Runner
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitConfigError,
		}
	}

	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// GitHub client and publisher
	client := github.NewClient(github.Config{
		BaseURL:        cfg.GitHub.BaseURL,
		Token:          cfg.GitHub.Token,
		Username:       cfg.GitHub.Username,
		RequestTimeout: cfg.GitHub.RequestTimeout,
		RetryMax:       cfg.GitHub.RetryMax,
	}, logger)

	publisherConfig := github.DefaultPublisherConfig()
	publisherConfig.LivenessAttempts = cfg.Workflow.LivenessAttempts
	publisherConfig.LivenessInterval = cfg.Workflow.LivenessInterval
	publisher := github.NewPublisher(client, publisherConfig, logger)

	// Evaluator notifier
	not := notifier.New(notifier.Config{
		AttemptTimeout: cfg.Notify.AttemptTimeout,
	}, logger)

	// Deployment workflow runner
	runner := workflow.NewRunner(s, generator.New(cfg.GitHub.Username), publisher, not, workflow.Config{
		Workers:   cfg.Workflow.Workers,
		QueueSize: cfg.Workflow.QueueSize,
	}, logger)

	// HTTP handler
	handler := api.NewHandler(s, runner, api.Credentials{
		Email:  cfg.Auth.Email,
		Secret: cfg.Auth.Secret,
	}, Version, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		runner:     runner,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	s.runner.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting new requests first, then the workers behind them.
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.runner.Stop()

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
