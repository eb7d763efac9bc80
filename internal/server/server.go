// Package server exposes the delivery dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/metrics"
)

// Config holds server configuration
type Config struct {
	// Addr is the listen address (default ":8080")
	Addr string

	// MaxBodyBytes caps request bodies (default 25 MiB)
	MaxBodyBytes int64

	// AllowedOrigins lists CORS origins; empty or "*" allows any
	AllowedOrigins []string

	// Release switches gin to release mode
	Release bool
}

// Notifier notifies one tier of trusted contacts.
type Notifier interface {
	NotifyTier(ctx context.Context, req alert.Request) (*alert.Outcome, error)
}

// Dependencies bundles external dependencies for injection
type Dependencies struct {
	Notifier Notifier
	Metrics  *metrics.Metrics // optional
	Logger   *zap.Logger
}

// Server serves the tier notification endpoint.
type Server struct {
	addr         string
	router       *gin.Engine
	httpServer   *http.Server
	httpListener net.Listener
	logger       *zap.Logger
	serveErr     chan error
}

// New creates a server. Does not start listening - call Start() for that.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Notifier == nil {
		return nil, fmt.Errorf("server requires a tier notifier")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 25 << 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recovery(logger))
	router.Use(requestID())
	router.Use(cors(cfg.AllowedOrigins))
	router.Use(accessLog(logger))
	router.Use(observe(deps.Metrics))

	h := &handler{notifier: deps.Notifier, logger: logger}

	router.GET("/healthz", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/alerts", limitBody(cfg.MaxBodyBytes), h.notifyTier)
	}

	return &Server{
		addr:   cfg.Addr,
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:   logger,
		serveErr: make(chan error, 1),
	}, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening. Non-blocking - the server runs in a goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP listen: %w", err)
	}
	s.httpListener = listener

	// Update addr with actual address (important for ephemeral ports)
	s.addr = listener.Addr().String()
	s.logger.Info("listening", zap.String("addr", s.addr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", zap.Error(err))
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	return nil
}

// Err yields a serve failure, or closes after a clean shutdown.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// Stop performs graceful shutdown, waiting for in-flight notifications
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s *Server) Addr() string {
	return s.addr
}
