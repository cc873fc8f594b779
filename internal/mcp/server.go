package mcpserver

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"rite/internal/service"
)

// Server is the MCP server for rite. It exposes the processes of a loaded
// description as tools, resources and prompts so AI agents can inspect,
// preview and run them.
type Server struct {
	mcp       *server.MCPServer
	pipelines *service.PipelineService
	readOnly  bool
}

// Deps holds everything the server needs from the CLI layer.
type Deps struct {
	Pipelines *service.PipelineService
	Version   string
	// ReadOnly leaves out tools that run exporters.
	ReadOnly bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{pipelines: deps.Pipelines, readOnly: deps.ReadOnly}

	s.mcp = server.NewMCPServer(
		"rite-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerProcessTools()
	s.registerModelTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCP returns the underlying server, for transports other than stdio.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}
