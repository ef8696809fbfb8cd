// Copyright Ricardo Oliveira 2025.
// SPDX-License-Identifier: MPL-2.0

// Package mcp wraps the MCP-Go library behind a small surface so the rest of
// the server does not depend on its types directly.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Server wraps an MCP-Go server bound to the stdio transport.
type Server struct {
	inner *server.MCPServer
	errCh chan error
}

// NewServer creates a named MCP server instance.
func NewServer(name, version string) *Server {
	inner := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)
	return &Server{
		inner: inner,
		errCh: make(chan error, 1),
	}
}

// Inner exposes the underlying MCP-Go server for tool and resource
// registration.
func (s *Server) Inner() *server.MCPServer {
	return s.inner
}

// Start serves the stdio transport on a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := server.ServeStdio(s.inner); err != nil {
			log.Error().Err(err).Msg("MCP stdio transport stopped")
			s.errCh <- err
		}
		close(s.errCh)
	}()
}

// Err returns a channel that yields the transport error, if any, and closes
// when serving stops.
func (s *Server) Err() <-chan error {
	return s.errCh
}
