// Package mcpadapter exposes feature evaluation and knowledge search as MCP
// tools so agent clients can drive the pipeline without the HTTP surface.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

// Deps holds the capabilities the MCP tools call into.
type Deps struct {
	Evaluator ports.FeatureEvaluator
	Searcher  ports.KnowledgeSearcher
	Personas  ports.PersonaRegistry
}

// NewServer builds the MCP server with every tool and resource registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"synthetic-merchant",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("synthetic-merchant — persona-grounded usability feedback for merchant-facing features."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("evaluate_feature",
			mcp.WithDescription("Run a simulated usability evaluation of a feature description against merchant personas and return the aggregate feedback report."),
			mcp.WithString("description", mcp.Description("The feature description to evaluate"), mcp.Required()),
			mcp.WithString("image_summary", mcp.Description("Optional textual summary of a feature mockup")),
			mcp.WithArray("persona_ids", mcp.Description("Persona ids to evaluate against; defaults to the whole catalog")),
			mcp.WithString("flow_type", mcp.Description("Flow context: checkout, payment, onboarding, dashboard, analytics or general")),
		),
		mcpEvaluateFeature(deps),
	)

	s.AddTool(
		mcp.NewTool("search_merchant_knowledge",
			mcp.WithDescription("Semantically search indexed merchant dialogue transcripts and return the most relevant chunks."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("flow_type", mcp.Description("Flow context used to bias retrieval")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of chunks (default 4)")),
		),
		mcpSearchKnowledge(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"personas://catalog",
			"Merchant Personas",
			mcp.WithResourceDescription("The full merchant persona catalog as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePersonas(deps),
	)

	return s
}

func mcpEvaluateFeature(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description, err := req.RequireString("description")
		if err != nil {
			return mcpError("description is required"), nil
		}

		personaIDs := req.GetStringSlice("persona_ids", nil)
		if len(personaIDs) == 0 {
			for _, p := range deps.Personas.All() {
				personaIDs = append(personaIDs, p.ID)
			}
		}

		report, err := deps.Evaluator.Evaluate(ctx, domain.FeatureRequest{
			Description:  description,
			ImageSummary: req.GetString("image_summary", ""),
			PersonaIDs:   personaIDs,
			FlowType:     domain.ParseFlowType(req.GetString("flow_type", "")),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("evaluation failed: %v", err)), nil
		}

		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchKnowledge(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 4)
		if limit <= 0 {
			limit = 4
		}
		if limit > 50 {
			limit = 50
		}

		retrieved, err := deps.Searcher.Search(ctx, query, domain.ParseFlowType(req.GetString("flow_type", "")), limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(retrieved.Chunks) == 0 {
			return mcpText("[]"), nil
		}

		type chunkResult struct {
			ID           string  `json:"id"`
			TranscriptID string  `json:"transcript_id"`
			Text         string  `json:"text"`
			Score        float64 `json:"score"`
		}

		results := make([]chunkResult, len(retrieved.Chunks))
		for i, c := range retrieved.Chunks {
			results[i] = chunkResult{
				ID:           c.Chunk.ID,
				TranscriptID: c.Chunk.TranscriptID,
				Text:         c.Chunk.Text,
				Score:        c.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourcePersonas(deps Deps) server.ResourceHandlerFunc {
	return func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Personas.All())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal personas: %w", err)
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
