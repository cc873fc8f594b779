package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	processesURI  = "rite://processes"
	componentsURI = "rite://components"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		processesURI,
		"Processes",
		mcp.WithResourceDescription("Processes of the loaded description"),
		mcp.WithMIMEType("application/json"),
	), s.handleProcessesResource)

	s.mcp.AddResource(mcp.NewResource(
		componentsURI,
		"Components",
		mcp.WithResourceDescription("Registered importers, transformers and exporters"),
		mcp.WithMIMEType("application/json"),
	), s.handleComponentsResource)
}

func (s *Server) handleProcessesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	processes, err := s.pipelines.ListProcesses()
	if err != nil {
		return nil, err
	}
	return jsonResource(processesURI, processes)
}

func (s *Server) handleComponentsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(componentsURI, s.pipelines.ListComponents())
}
