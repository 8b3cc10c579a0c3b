package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gsainfoteam/chatbot-be/engine/chat"
	"github.com/gsainfoteam/chatbot-be/pkg/config"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// ChatService processes one chat turn against a frame sink.
type ChatService interface {
	HandleChat(ctx context.Context, req chat.Request, sink chat.Sink) error
}

// HealthChecker reports a dependency's liveness.
type HealthChecker func(ctx context.Context) error

// Server is the HTTP surface of the chatbot backend.
type Server struct {
	config   config.ServerConfig
	chat     ChatService
	verifier SessionVerifier
	checks   map[string]HealthChecker
	log      logger.Logger
}

func New(cfg config.ServerConfig, chatService ChatService, verifier SessionVerifier, log logger.Logger) *Server {
	return &Server{
		config:   cfg,
		chat:     chatService,
		verifier: verifier,
		checks:   make(map[string]HealthChecker),
		log:      log,
	}
}

// RegisterHealthCheck adds a named dependency probe to /healthz.
func (s *Server) RegisterHealthCheck(name string, check HealthChecker) {
	s.checks[name] = check
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.log))
	r.Use(CORSMiddleware(s.config.AllowedOrigins))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(s.verifier))
	api.POST("/chat/stream", s.handleChatStream)
	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
