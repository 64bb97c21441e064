package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server wraps the API http.Server with its route table and middleware
// chain.
type Server struct {
	server *http.Server
	log    *zap.Logger
}

// NewServer builds the full route table and wraps it in the standard
// middleware chain.
func NewServer(cfg ServerConfig, log *zap.Logger) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	SetLogger(log)

	mux := http.NewServeMux()
	RegisterHandlers(mux)
	RegisterPredictHandlers(mux)
	RegisterUserHandlers(mux)
	RegisterFeatureHandlers(mux)
	RegisterTrainingHandlers(mux)

	handler := Chain(
		RecoveryMiddleware,
		LoggerMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
		TimeoutMiddleware(cfg.Timeout),
		RequestSizeMiddleware(cfg.MaxBodyBytes),
	)(mux)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout + 5*time.Second,
			IdleTimeout:  2 * cfg.Timeout,
		},
		log: log,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}
