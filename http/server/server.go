// Package server exposes the daemon's health and pipeline status over HTTP.
package server

import (
	"context"
	"errors"
	"net"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/dropsync/meta"
	"github.com/rise-and-shine/dropsync/observability/logger"
)

// Status is the body of GET /status.
type Status struct {
	Service       string                    `json:"service"`
	Version       string                    `json:"version"`
	Authenticated bool                      `json:"authenticated"`
	Pending       int                       `json:"pending"`
	Paths         map[string]string         `json:"paths"`
	Stats         map[string]map[string]any `json:"stats"`
}

// StatusFunc reports the current pipeline state.
type StatusFunc func() Status

// HTTPServer serves /health and /status.
type HTTPServer struct {
	cfg    Config
	router *fiber.App
	logger logger.Logger
}

// NewHTTPServer creates a server reporting status from fn.
func NewHTTPServer(cfg Config, fn StatusFunc) *HTTPServer {
	router := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          customErrorHandler(cfg.HideErrorDetails),
		DisableStartupMessage: true,
	})

	log := logger.Named("server")
	applyMiddlewares(router, []Middleware{loggerMW(log), recoveryMW()})

	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	router.Get("/status", func(c *fiber.Ctx) error {
		s := fn()
		s.Service = meta.GetServiceName()
		s.Version = meta.GetServiceVersion()
		return c.JSON(s)
	})

	return &HTTPServer{cfg: cfg, router: router, logger: log}
}

// App returns the underlying router.
func (s *HTTPServer) App() *fiber.App {
	return s.router
}

// Run listens until ctx is done, then shuts the server down.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"address": s.cfg.Address()}))
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.router.Listener(ln)
	}()
	s.logger.With("address", ln.Addr().String()).Info("[server]: status server started")

	select {
	case err := <-errCh:
		return errx.Wrap(err)
	case <-ctx.Done():
	}

	if err := s.router.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errx.Wrap(err)
	}
	return nil
}
