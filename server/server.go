// Package server hosts the chat-turn core and its operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/verdant/ai/metrics"
	"github.com/hrygo/verdant/internal/profile"
	"github.com/hrygo/verdant/store"
)

// historySweepInterval is how often idle sessions are evicted.
const historySweepInterval = 5 * time.Minute

// Server serves /healthz and /metrics and owns the chat components.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Chat    *ChatComponents

	echoServer *echo.Echo
	exporter   *metrics.PrometheusExporter
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer assembles the server. The chat core is built here so that
// metrics recorded by turns land in the served registry.
func NewServer(_ context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	chatComponents, err := NewChat(p, st, exporter)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Profile:  p,
		Store:    st,
		Chat:     chatComponents,
		exporter: exporter,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	s.echoServer = e

	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.Profile.Version,
		"sessions": s.Chat.History.Sessions(),
	})
}

// Start begins listening and runs background maintenance. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.echoServer.Listener = listener

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "error", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.sweepHistory(ctx)
	}()
	return nil
}

func (s *Server) sweepHistory(ctx context.Context) {
	ticker := time.NewTicker(historySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Chat.History.CleanupExpired(); n > 0 {
				slog.Debug("evicted idle chat sessions", "count", n)
			}
		}
	}
}

// Shutdown stops the HTTP server and background work, then closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server stopped properly")
}
