package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voralis/formpilot/regflow"
)

// RegisterMCP registers the formpilot tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerRegisterTool(srv)
	s.registerRestoreTool(srv)
	s.registerStatusTool(srv)
	s.registerRecommendTool(srv)
	s.registerHistoryTool(srv)
	s.registerGenerateTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// addTool wires a typed handler onto the server: arguments decode from
// req.Params.Arguments, results marshal to a single text content block, and
// handler errors become tool errors rather than protocol errors.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, handler func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := handler(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

type registerRequest struct {
	Profile string `json:"profile,omitempty"`
}

func (s *Service) registerRegisterTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_register",
		Description: "Run a registration strategy over the current form contents. Missing fields are filled with generated values.",
		InputSchema: inputSchema(map[string]any{
			"profile": map[string]any{"type": "string", "enum": []any{"standard", "smart", "aggressive"}, "description": "Strategy profile (default: configured default)"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, r *registerRequest) (any, error) {
		return s.Register(ctx, r.Profile)
	})
}

type restoreRequest struct{}

func (s *Service) registerRestoreTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_restore",
		Description: "Push the saved form snapshot back into the live form. Returns the number of restored fields.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ *restoreRequest) (any, error) {
		return map[string]int{"restored": s.Restore(ctx)}, nil
	})
}

type statusRequest struct{}

func (s *Service) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_status",
		Description: "Report the form watchdog state, the last form assessment, and per-strategy statistics.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ *statusRequest) (any, error) {
		return s.Status(ctx)
	})
}

type recommendRequest struct {
	NetworkSpeed     string `json:"network_speed,omitempty"`
	PreviousFailures int    `json:"previous_failures,omitempty"`
	Hour             int    `json:"hour,omitempty"`
	VPNDetected      bool   `json:"vpn_detected,omitempty"`
}

func (s *Service) registerRecommendTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_recommend",
		Description: "Recommend a registration strategy for the given network conditions and failure history.",
		InputSchema: inputSchema(map[string]any{
			"network_speed":     map[string]any{"type": "string", "enum": []any{"slow", "normal", "fast"}},
			"previous_failures": map[string]any{"type": "integer", "description": "Recent failed attempts"},
			"hour":              map[string]any{"type": "integer", "description": "Local hour of day, 0-23"},
			"vpn_detected":      map[string]any{"type": "boolean"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, r *recommendRequest) (any, error) {
		name := s.Recommend(regflow.RecommendContext{
			NetworkSpeed:     r.NetworkSpeed,
			PreviousFailures: r.PreviousFailures,
			Hour:             r.Hour,
			VPNDetected:      r.VPNDetected,
		})
		return map[string]string{"profile": name}, nil
	})
}

type historyRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Service) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_history",
		Description: "List recent registration outcomes, most recent first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max records (default: full retained history)"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, r *historyRequest) (any, error) {
		return s.History(ctx, r.Limit)
	})
}

type generateRequest struct{}

func (s *Service) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "formpilot_generate",
		Description: "Generate a complete random registration identity without submitting anything.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ *generateRequest) (any, error) {
		return s.GenerateData(), nil
	})
}
