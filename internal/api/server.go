// Package api serves the alert engine over HTTP: the v2 JSON API used by the
// dashboard and the Prometheus metrics endpoint.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apiv2 "github.com/sensordash/alertd/internal/api/v2"
	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	bodyLimit         = "1M"
)

// Server owns the echo instance and its listener.
type Server struct {
	echo     *echo.Echo
	settings conf.WebServerSettings
	log      logger.Logger

	// API is the registered v2 controller.
	API *apiv2.Controller

	mu   sync.Mutex
	addr net.Addr
}

// NewServer builds the router. metricsHandler is mounted at /metrics when
// non-nil.
func NewServer(settings conf.WebServerSettings, deps apiv2.Dependencies, metricsHandler http.Handler, log logger.Logger) *Server {
	log = log.Module("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			log.Debug("request", fields...)
			return nil
		},
	}))

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	if deps.ReadingsRate == 0 {
		deps.ReadingsRate = settings.ReadingsRate
	}
	if deps.ReadingsBurst == 0 {
		deps.ReadingsBurst = settings.ReadingsBurst
	}
	if deps.Logger == nil {
		deps.Logger = log
	}

	return &Server{
		echo:     e,
		settings: settings,
		log:      log,
		API:      apiv2.New(e, deps),
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Addr returns the bound address once Run is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.settings.Listen)
	if err != nil {
		return errors.Newf("failed to listen on %s: %w", s.settings.Listen, err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("listen", s.settings.Listen).
			Build()
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	// Requests inherit ctx so long-lived streams end when shutdown starts.
	srv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).Component("api").Category(errors.CategoryNetwork).Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http server shutdown failed", logger.Error(err))
		return err
	}
	<-errCh
	s.log.Info("http server stopped")
	return nil
}
