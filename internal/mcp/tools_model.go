package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"rite/internal/etl"
	"rite/internal/model"
)

func (s *Server) registerModelTools() {
	s.mcp.AddTool(mcp.NewTool("infer_record",
		mcp.WithDescription("Show how a JSON object becomes a typed record: the display form and the inferred type of every field"),
		mcp.WithString("json", mcp.Description("A JSON object"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleInferRecord)
}

func (s *Server) handleInferRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("json", "")
	v, err := model.ParseJSON([]byte(text))
	if err != nil {
		return nil, err
	}
	rec, ok := v.Record()
	if !ok {
		return nil, fmt.Errorf("json must be an object, got %s", v.Kind())
	}
	return jsonResult(map[string]any{
		"display": rec.String(),
		"schema":  etl.SchemaOf(rec),
	})
}
