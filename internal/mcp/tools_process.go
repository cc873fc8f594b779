package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"rite/internal/etl"
)

func (s *Server) registerProcessTools() {
	s.mcp.AddTool(mcp.NewTool("list_processes",
		mcp.WithDescription("List the processes of the loaded description with their components, triggers and last run status"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListProcesses)

	s.mcp.AddTool(mcp.NewTool("list_components",
		mcp.WithDescription("List the registered importers, transformers and exporters with their configuration keys"),
		mcp.WithString("kind", mcp.Description("Only list one kind: importer, transformer or exporter")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListComponents)

	s.mcp.AddTool(mcp.NewTool("preview_process",
		mcp.WithDescription("Import and transform the first records of a process without exporting anything"),
		mcp.WithString("processId", mcp.Description("Process ID"), mcp.Required()),
		mcp.WithNumber("maxRecords", mcp.Description("How many records to return (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handlePreviewProcess)

	s.mcp.AddTool(mcp.NewTool("run_history",
		mcp.WithDescription("List recent runs, newest first"),
		mcp.WithString("processId", mcp.Description("Process ID (optional, defaults to all processes)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleRunHistory)

	if s.readOnly {
		return
	}
	s.mcp.AddTool(mcp.NewTool("run_process",
		mcp.WithDescription("🛑 DESTRUCTIVE: Run a process. Exporters may overwrite files, tables or objects."),
		mcp.WithString("processId", mcp.Description("Process ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunProcess)
}

func (s *Server) handleListProcesses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processes, err := s.pipelines.ListProcesses()
	if err != nil {
		return nil, err
	}
	return jsonResult(processes)
}

func (s *Server) handleListComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := etl.ComponentKind(req.GetString("kind", ""))
	switch kind {
	case "", etl.KindImporter, etl.KindTransformer, etl.KindExporter:
	default:
		return nil, fmt.Errorf("unknown component kind %q", kind)
	}

	var out []etl.ComponentSpec
	for _, c := range s.pipelines.ListComponents() {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return jsonResult(out)
}

func (s *Server) handlePreviewProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("processId", "")
	if id == "" {
		return nil, fmt.Errorf("processId is required")
	}
	preview, err := s.pipelines.Preview(ctx, id, req.GetInt("maxRecords", 10))
	if err != nil {
		return nil, fmt.Errorf("preview process: %w", err)
	}
	return jsonResult(preview)
}

func (s *Server) handleRunHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := s.pipelines.ListRunLogs(req.GetString("processId", ""), req.GetInt("limit", 20))
	if err != nil {
		return nil, err
	}
	return jsonResult(logs)
}

func (s *Server) handleRunProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("processId", "")
	if id == "" {
		return nil, fmt.Errorf("processId is required")
	}
	result, err := s.pipelines.RunProcess(ctx, id)
	if result == nil {
		return nil, fmt.Errorf("run process: %w", err)
	}
	// A failed run still has counters worth returning.
	res, jerr := jsonResult(result)
	if jerr != nil {
		return nil, jerr
	}
	res.IsError = err != nil
	return res, nil
}
