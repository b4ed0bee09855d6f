// Package handlers provides the HTTP server for the onboarding service,
// bridging the transport layer and business logic and translating between
// JSON payloads and domain models.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thkuo/onboarding/internal/onboarding/auth"
	"go.uber.org/zap"
)

// Server wraps the gin engine in an http.Server with graceful shutdown.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer constructs a Server listening on the given port. Mutating
// routes are grouped behind the JWT middleware.
func NewServer(port int, jwtSecret string, logger *zap.Logger, handler *OnboardingHandler) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/v1")
	protected := engine.Group("/v1")
	protected.Use(auth.Middleware(jwtSecret))
	handler.RegisterRoutes(v1, protected)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: engine,
		},
		logger: logger.Named("http_server"),
	}
}

// Start runs the HTTP server, returning on the first error.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
