package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/carepulse-dev/carepulse/internal/config"
	"github.com/carepulse-dev/carepulse/internal/logger"
	"github.com/carepulse-dev/carepulse/internal/server"
	"github.com/carepulse-dev/carepulse/internal/telemetry"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	shutdownTracing := telemetry.Setup(context.Background(), cfg.Telemetry, log)
	flushTraces := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}

	// Create server
	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Str("env", cfg.Env).Msg("Starting CarePulse web server...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		flushTraces()
		os.Exit(1)
	}
	flushTraces()
}
