// Package api exposes the evaluation pipeline over HTTP: device
// configuration CRUD, an evaluate endpoint, health and Prometheus
// metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mikem1017/macallan-rf-perf-tool/engine"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/observability"
	"github.com/mikem1017/macallan-rf-perf-tool/store"
)

const gracefulShutdownTimeout = 10 * time.Second

// Config carries server settings.
type Config struct {
	Addr string
}

// Server binds the HTTP surface to the store and the evaluation runner.
type Server struct {
	Echo *echo.Echo

	cfg       Config
	store     *store.Store
	runner    *engine.Runner
	collector *observability.EvaluationCollector
	log       logging.Logger
}

// New constructs the server and registers all routes.
func New(cfg Config, st *store.Store, runner *engine.Runner, collector *observability.EvaluationCollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		Echo:      e,
		cfg:       cfg,
		store:     st,
		runner:    runner,
		collector: collector,
		log:       log,
	}
	s.bind()
	return s
}

func (s *Server) bind() {
	s.Echo.GET("/healthz", s.health)
	if s.collector != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.collector.Handler()))
	}

	v1 := s.Echo.Group("/api/v1")
	v1.GET("/duts", s.listDuts)
	v1.GET("/duts/:name", s.getDut)
	v1.PUT("/duts", s.saveDut)
	v1.DELETE("/duts/:name", s.deleteDut)
	v1.POST("/evaluate", s.evaluate)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info(ctx, "http server listening", logging.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	return s.Echo.Shutdown(shutdownCtx)
}
