package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fpsos/fpsbot/internal/infra/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type ServerConfig struct {
	Addr    string
	GinMode string
	Secret  string
}

type Server struct {
	engine *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(cfg ServerConfig, handler *Handler, limiter ratelimit.Limiter, logger *zap.Logger) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), Logger(logger), Metrics(handler.metrics))

	engine.GET("/health", handler.Health)
	engine.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
	engine.POST("/calendly", RateLimit(limiter, handler.metrics), handler.Calendly)

	api := engine.Group("/api")
	api.Use(Auth(cfg.Secret))
	{
		api.GET("/status", handler.Status)
		api.GET("/status/stream", handler.StatusStream)
		api.POST("/trigger-diagnostic", handler.TriggerDiagnostic)
		api.POST("/bookings/:id/complete", handler.CompleteBooking)
	}

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control plane listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("control plane shutdown incomplete", zap.Error(err))
	}
	return nil
}
