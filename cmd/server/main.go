package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/server/internal/config"
	"github.com/driftwatch/server/internal/logger"
	"github.com/driftwatch/server/internal/server"
)

func main() {
	logger.Setup(logger.EnvConfig())

	log.Info().Msg("Starting Driftwatch MCP Server")

	cfg := config.FromEnv()

	// Create server with cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	// Handle graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		log.Info().Msgf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Wait for server to complete
	<-srv.Done()
	log.Info().Msg("Driftwatch MCP Server shutdown complete")
}
