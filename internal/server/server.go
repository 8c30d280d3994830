// Package server exposes the webhook and chart query API over gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"strategy-alerts/internal/config"
	"strategy-alerts/internal/metrics"
	"strategy-alerts/internal/service"
	"strategy-alerts/internal/version"
)

// Server wires HTTP routes to the service.
type Server struct {
	engine  *gin.Engine
	svc     *service.Service
	metrics *metrics.Metrics
	cfg     config.HTTPConfig
	logger  zerolog.Logger

	metricsPath string
}

// New builds the router. m may be nil, which disables /metrics.
func New(cfg *config.Config, svc *service.Service, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	s := &Server{
		engine:  gin.New(),
		svc:     svc,
		metrics: m,
		cfg:     cfg.HTTP,
		logger:  logger.With().Str("component", "http").Logger(),
	}
	if cfg.Metrics.Enabled && m != nil {
		s.metricsPath = cfg.Metrics.Path
		if s.metricsPath == "" {
			s.metricsPath = "/metrics"
		}
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	if cfg.HTTP.MaxBodyBytes > 0 {
		s.engine.Use(limitBody(cfg.HTTP.MaxBodyBytes))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	if s.metricsPath != "" {
		s.engine.GET(s.metricsPath, gin.WrapH(s.metrics.Handler()))
	}

	alerts := s.engine.Group("/alerts")
	alerts.POST("/create/:secret", s.handleIngest)
	alerts.POST("/bind_key", s.handleBindKey)
	alerts.GET("/strategy_names", s.handleStrategyNames)

	s.engine.GET("/keys/:secret", s.handleResolveKey)

	data := s.engine.Group("/data")
	data.GET("", s.handleListAlerts)
	data.GET("/:id", s.handleGetAlert)
	data.DELETE("/:id", s.handleDeleteAlert)
	data.GET("/strategy-names/all", s.handleStrategyNames)
	data.POST("/chart/filters", s.handleChart)
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "alertdesk", "version": version.Version})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
