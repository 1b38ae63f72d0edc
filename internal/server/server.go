// Package server binds the listening socket, forwards every request to the
// rendering engine, and coordinates signal-driven graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-render-host/internal/engine"
	"github.com/sirosfoundation/go-render-host/pkg/config"
	"github.com/sirosfoundation/go-render-host/pkg/middleware"
)

// Manager owns the HTTP server lifecycle: engine warm-up, socket bind, the
// accept loop, and the shutdown coordinator.
type Manager struct {
	cfg    *config.Config
	eng    engine.Engine
	logger *zap.Logger

	tracker     *Tracker
	coordinator *Coordinator
	httpServer  *http.Server
	listener    net.Listener
}

// NewManager creates a manager for the given configuration and engine.
func NewManager(cfg *config.Config, eng engine.Engine, logger *zap.Logger) *Manager {
	tracker := NewTracker()
	return &Manager{
		cfg:         cfg,
		eng:         eng,
		logger:      logger,
		tracker:     tracker,
		coordinator: NewCoordinator(tracker, cfg.Server.GraceDuration(), logger),
	}
}

// Coordinator returns the shutdown coordinator, for wiring a custom shutdown
// trigger in tests.
func (m *Manager) Coordinator() *Coordinator {
	return m.coordinator
}

// Addr returns the bound listener address. Only valid after Start.
func (m *Manager) Addr() net.Addr {
	return m.listener.Addr()
}

// Start warms up the engine, binds the listening socket, and begins serving.
// Engine preparation completes before any connection is accepted; a prepare
// or bind failure is returned to the caller, which treats it as fatal.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.eng.Prepare(ctx); err != nil {
		return fmt.Errorf("engine prepare: %w", err)
	}

	router := m.buildRouter()

	m.httpServer = &http.Server{
		Handler: router,
		// The grace period is the only timeout this layer imposes on a
		// request; the engine's render time is unbounded here.
		IdleTimeout: m.cfg.Server.KeepAliveDuration(),
	}

	addr := m.cfg.Server.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	m.listener = listener

	m.coordinator.stopAccepting = func() {
		// Closing the listener stops new connections; requests already
		// accepted run to completion. Disabling keep-alives makes idle
		// persistent connections wind down during the drain.
		_ = listener.Close()
		m.httpServer.SetKeepAlivesEnabled(false)
	}
	m.coordinator.forceClose = func() {
		_ = m.httpServer.Close()
	}

	go func() {
		m.logger.Info("Listening",
			zap.String("address", listener.Addr().String()),
			zap.String("mode", m.cfg.Server.Mode()),
		)
		err := m.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			m.coordinator.ReportStartupError(err)
		}
	}()

	return nil
}

// Wait blocks until shutdown completes and returns the process exit code.
func (m *Manager) Wait() int {
	return m.coordinator.Wait()
}

// buildRouter creates the router with common middleware. There is no route
// table: every method and path falls through to the engine dispatch.
func (m *Manager) buildRouter() *gin.Engine {
	if m.cfg.Server.Mode() == config.ModeDevelopment {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(m.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     m.cfg.CORS.AllowedOrigins,
		AllowMethods:     m.cfg.CORS.AllowedMethods,
		AllowHeaders:     m.cfg.CORS.AllowedHeaders,
		ExposeHeaders:    m.cfg.CORS.ExposedHeaders,
		AllowCredentials: m.cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(m.cfg.CORS.MaxAge) * time.Second,
	}))
	router.Use(m.trackInFlight())

	router.NoRoute(m.dispatch)

	return router
}
