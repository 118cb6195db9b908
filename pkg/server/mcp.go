package server

import (
	"context"
	"encoding/json"

	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// mcpInput is the envelope every bridged tool accepts: the tool's own
// arguments plus the per-call fields the dispatcher context needs. The
// model loop fills these from the conversation it is driving.
type mcpInput struct {
	Args        json.RawMessage `json:"args,omitempty"`
	UserID      string          `json:"user_id"`
	TurnID      string          `json:"turn_id"`
	Utterance   string          `json:"utterance,omitempty"`
	DefaultUnit string          `json:"default_unit,omitempty"`
	TZOffsetMin int             `json:"tz_offset_min,omitempty"`
}

// BridgeTools exposes every registered dispatcher tool as an MCP tool.
// The MCP handler routes through Dispatch, so the model loop gets the
// same never-throws contract as any other caller; blocks ride along as
// JSON text content next to the model-facing payload.
func (s *Server) BridgeTools(descriptions map[string]string) {
	for _, name := range s.registry.Names() {
		tool := &mcp.Tool{
			Name:        name,
			Description: descriptions[name],
		}
		mcp.AddTool(&s.Server, tool, s.bridgeHandler(name))
	}
}

func (s *Server) bridgeHandler(name string) func(context.Context, *mcp.CallToolRequest, mcpInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input mcpInput) (*mcp.CallToolResult, any, error) {
		if input.UserID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "user_id is required"}},
				IsError: true,
			}, json.RawMessage(`{"status":"error","message":"user_id is required"}`), nil
		}
		tc := &tools.Context{
			Store:       s.storage,
			Ledger:      s.ledger,
			UserID:      input.UserID,
			TurnID:      input.TurnID,
			DefaultUnit: input.DefaultUnit,
			TZOffsetMin: input.TZOffsetMin,
			Utterance:   input.Utterance,
			Logger:      s.logger,
		}

		result := s.registry.Dispatch(ctx, name, input.Args, tc, nil)

		blocksJSON, _ := json.Marshal(result.Blocks)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: result.Summary},
				&mcp.TextContent{Text: string(blocksJSON)},
			},
		}, json.RawMessage(result.ModelOutput()), nil
	}
}
