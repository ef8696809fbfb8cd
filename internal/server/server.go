// Package server wires the sync engine to its MCP surface
package server

import (
	"context"
	gosync "sync"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/server/internal/config"
	"github.com/driftwatch/server/internal/handlers"
	"github.com/driftwatch/server/internal/resources"
	"github.com/driftwatch/server/internal/store"
	syncengine "github.com/driftwatch/server/internal/sync"
	"github.com/driftwatch/server/internal/token"
	"github.com/driftwatch/server/internal/watch"
	"github.com/driftwatch/server/pkg/mcp"
)

// Server manages the MCP server instance and the engine behind it
type Server struct {
	mcpServer   *mcp.Server
	store       *store.OS
	coordinator *syncengine.Coordinator
	doneCh      chan struct{}
	stopOnce    gosync.Once
}

// NewServer creates the engine and its MCP surface from the configuration
func NewServer(cfg config.Config) (*Server, error) {
	osStore, err := store.NewOS(cfg.RootDir)
	if err != nil {
		return nil, err
	}

	manager := watch.NewManager(osStore, watch.ManagerOptions{
		PollInterval: cfg.PollInterval,
		ForcePolling: cfg.ForcePolling,
	})
	tokens := token.NewRegistry(cfg.TokenTTL, cfg.TokenSweep)
	coordinator := syncengine.NewCoordinator(osStore, manager, tokens, syncengine.Options{
		DebounceWindow: cfg.DebounceWindow,
	})

	srv := &Server{
		mcpServer:   mcp.NewServer("driftwatch-sync", "0.1.0"),
		store:       osStore,
		coordinator: coordinator,
		doneCh:      make(chan struct{}),
	}

	srv.registerComponents()
	srv.logEngineEvents()

	return srv, nil
}

// registerComponents registers all MCP tools and resources
func (s *Server) registerComponents() {
	handlers.RegisterSyncTools(s.mcpServer.Inner(), s.coordinator, s.store)
	resources.RegisterFileResources(s.mcpServer.Inner(), s.coordinator)

	log.Info().Msg("All MCP components registered")
}

// logEngineEvents subscribes a logging handler to every engine event stream
// so divergence is visible in the server log even with no client attached.
func (s *Server) logEngineEvents() {
	s.coordinator.On(syncengine.EventExternalChange, func(ev syncengine.Event) {
		log.Info().Str("path", ev.Path).Time("mtime", ev.NewMtime).Msg("External change detected")
	})
	s.coordinator.On(syncengine.EventConflict, func(ev syncengine.Event) {
		log.Warn().Str("path", ev.Path).Msg("Sync conflict detected")
	})
	s.coordinator.On(syncengine.EventReloaded, func(ev syncengine.Event) {
		log.Info().Str("path", ev.Path).Msg("File auto-reloaded from store")
	})
	s.coordinator.On(syncengine.EventDeleted, func(ev syncengine.Event) {
		log.Warn().Str("path", ev.Path).Msg("Tracked file deleted from store")
	})
	s.coordinator.On(syncengine.EventSynced, func(ev syncengine.Event) {
		log.Debug().Str("path", ev.Path).Msg("Self-write confirmed")
	})
}

// Start begins serving and monitors the context for cancellation
func (s *Server) Start(ctx context.Context) error {
	s.mcpServer.Start()

	go func() {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context canceled, stopping server")
		case err := <-s.mcpServer.Err():
			if err != nil {
				log.Error().Err(err).Msg("Transport failed, stopping server")
			}
		}
		s.Stop()
	}()

	log.Info().Msg("Driftwatch MCP server started")
	return nil
}

// Stop halts the engine and signals completion. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping server...")
		s.coordinator.Dispose()
		close(s.doneCh)
	})
}

// Done returns a channel that's closed when the server has shut down
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}
