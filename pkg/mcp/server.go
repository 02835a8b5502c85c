package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/device/schema"
)

// Server wraps the MCP server with receiver control tools
type Server struct {
	mcpServer *server.MCPServer
	bridge    *bridge.Bridge
	validator *schema.Validator
}

// NewServer creates a new MCP server for receiver control
func NewServer(b *bridge.Bridge, validator *schema.Validator) *Server {
	s := &Server{
		bridge:    b,
		validator: validator,
	}

	s.mcpServer = server.NewMCPServer(
		"onkyo-bridge",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
