package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-render-host/internal/engine"
	"github.com/sirosfoundation/go-render-host/internal/server"
	"github.com/sirosfoundation/go-render-host/pkg/config"
	"github.com/sirosfoundation/go-render-host/pkg/logging"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting render host",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("mode", cfg.Server.Mode()),
		zap.String("address", cfg.Server.Address()),
	)

	eng := engine.NewStatic(cfg.Engine.ArtifactDir)

	mgr := server.NewManager(cfg, eng, logger)

	// Engine warm-up and socket bind. Neither is retried: a bind conflict
	// or a missing build artifact needs operator action, not a retry loop.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = mgr.Start(ctx)
	cancel()
	if err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	// Block until a termination signal drives the drain, then exit with the
	// coordinator's verdict: 0 on a clean drain, non-zero when the grace
	// period expired with requests still in flight.
	code := mgr.Wait()
	_ = logger.Sync()
	os.Exit(code)
}
