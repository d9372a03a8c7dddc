// Package mcp exposes the debug core as Model Context Protocol tools over
// stdio. Tool handlers translate JSON parameters into core operations and
// render the results as text blocks; failures come back as isError
// results, never as protocol-level errors.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/config"
	"github.com/jdimcp/jdi-mcp/internal/debug"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
	"github.com/jdimcp/jdi-mcp/internal/version"
)

// Server wraps the MCP server with the debug session it drives.
type Server struct {
	mcpServer *server.MCPServer
	session   *debug.Session
	config    *config.Config
	log       *logrus.Entry
}

// NewServer creates a JDI-MCP server around one debug session.
func NewServer(cfg *config.Config, adapter jdi.Adapter, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	mcpServer := server.NewMCPServer(
		"jdi-mcp",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer: mcpServer,
		session:   debug.NewSession(cfg, adapter, log),
		config:    cfg,
		log:       log.WithField("component", "mcp"),
	}

	s.registerTools()
	return s
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close tears the session down.
func (s *Server) Close() {
	s.session.Disconnect()
}

// Session returns the underlying debug session.
func (s *Server) Session() *debug.Session {
	return s.session
}
