package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the learner state to
// assistants.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aitutor",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("aitutor: learner progress, mastery and pacing for an AI/ML course."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_adaptive_context",
			mcp.WithDescription("Plain-text summary of the learner to include when tutoring them."),
		),
		mcpAdaptiveContext(deps),
	)

	s.AddTool(
		mcp.NewTool("get_recommendation",
			mcp.WithDescription("Pacing recommendation (slow_down, speed_up or maintain) with content adjustments."),
		),
		mcpRecommendation(deps),
	)

	s.AddTool(
		mcp.NewTool("record_attempt",
			mcp.WithDescription("Record the outcome of a challenge attempt, optionally for a concept."),
			mcp.WithBoolean("success", mcp.Description("Whether the attempt succeeded"), mcp.Required()),
			mcp.WithString("concept_id", mcp.Description("Concept the challenge exercised")),
			mcp.WithNumber("difficulty", mcp.Description("Difficulty in [0,1] (default: current lesson)")),
		),
		mcpRecordAttempt(deps),
	)

	s.AddTool(
		mcp.NewTool("practice_concept",
			mcp.WithDescription("Apply a practice outcome to a concept's mastery and return the next step."),
			mcp.WithString("concept_id", mcp.Description("Concept id"), mcp.Required()),
			mcp.WithBoolean("success", mcp.Description("Whether the practice succeeded"), mcp.Required()),
			mcp.WithNumber("difficulty", mcp.Description("Difficulty in [0,1] (default: current lesson)")),
		),
		mcpPracticeConcept(deps),
	)

	s.AddTool(
		mcp.NewTool("search_doubts",
			mcp.WithDescription("Search questions the learner asked before and the answers they got."),
			mcp.WithString("query", mcp.Description("Text to search for (empty returns all)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchDoubts(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"tutor://state",
			"Learner State",
			mcp.WithResourceDescription("Full learner state with level and effective mastery as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceState(deps),
	)

	return s
}

func mcpAdaptiveContext(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpText(deps.Store.AdaptiveContext()), nil
	}
}

func mcpRecommendation(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(deps.Store.Recommendation())
	}
}

func mcpRecordAttempt(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		success, err := req.RequireBool("success")
		if err != nil {
			return mcpError("success is required"), nil
		}
		a := attemptRequest{
			Success:   success,
			ConceptID: req.GetString("concept_id", ""),
		}
		if d, ok := optionalDifficulty(req); ok {
			a.Difficulty = &d
		}
		return mcpJSON(recordAttempt(ctx, deps, a))
	}
}

func mcpPracticeConcept(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("concept_id")
		if err != nil || id == "" {
			return mcpError("concept_id is required"), nil
		}
		success, err := req.RequireBool("success")
		if err != nil {
			return mcpError("success is required"), nil
		}

		var difficulty *float64
		if d, ok := optionalDifficulty(req); ok {
			difficulty = &d
		}
		c := practice(ctx, deps, id, "", difficulty, success)
		return mcpJSON(map[string]any{
			"concept":  c,
			"nextStep": deps.Store.NextStepFor(id, currentDifficulty(deps)),
		})
	}
}

func mcpSearchDoubts(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		doubts := deps.Store.SearchDoubts(req.GetString("query", ""))
		if len(doubts) == 0 {
			return mcpText("[]"), nil
		}
		// Most recent first.
		if len(doubts) > limit {
			doubts = doubts[len(doubts)-limit:]
		}
		for i, j := 0, len(doubts)-1; i < j; i, j = i+1, j-1 {
			doubts[i], doubts[j] = doubts[j], doubts[i]
		}
		return mcpJSON(doubts)
	}
}

func mcpResourceState(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(NewStateView(deps.Store.Snapshot(), deps.Store.Now()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal state: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// optionalDifficulty reads the difficulty argument, clamped to [0,1].
func optionalDifficulty(req mcp.CallToolRequest) (float64, bool) {
	if _, ok := req.GetArguments()["difficulty"]; !ok {
		return 0, false
	}
	d := req.GetFloat("difficulty", defaultDifficulty)
	return min(max(d, 0), 1), true
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
