package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("design_process",
		mcp.WithPromptDescription("Guide through writing a new process for the description file"),
		mcp.WithArgument("source",
			mcp.ArgumentDescription("Where the records come from (e.g. a CSV file, a Postgres table, an HTTP API)"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("Where the records go"),
			mcp.RequiredArgument(),
		),
	), s.handleDesignProcessPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("diagnose_run",
		mcp.WithPromptDescription("Investigate why a process failed"),
		mcp.WithArgument("processId",
			mcp.ArgumentDescription("Process ID"),
			mcp.RequiredArgument(),
		),
	), s.handleDiagnoseRunPrompt)
}

func (s *Server) handleDesignProcessPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	source := req.Params.Arguments["source"]
	target := req.Params.Arguments["target"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design a process from %s to %s", source, target),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Write a rite process that moves records from %s to %s.

Steps:
1. Call list_components with kind=importer and pick the importer that reads %s. Note its required configuration keys.
2. Call list_components with kind=exporter and pick the exporter that writes %s.
3. Add transformers (list_components kind=transformer) only where the records need reshaping.
4. Write the <process> element: <importer name="..."><configuration><config key="..." value="..."/></configuration></importer>, then <transformers> and <exporters>.
5. Use ${VAR} or ${VAR:default} for secrets and paths instead of literal values.
6. After the file is saved, call preview_process to check the records before running it.`, source, target, source, target),
				},
			},
		},
	}, nil
}

func (s *Server) handleDiagnoseRunPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["processId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Diagnose process %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Process %q has been failing.

1. Call run_history with processId=%q and read the error of the latest runs.
2. Call list_processes to see its components.
3. Call preview_process to see whether the importer and transformers still produce records.
4. Explain the most likely cause and the configuration change that fixes it.`, id, id),
				},
			},
		},
	}, nil
}
