package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

// PieceResolver maps a piece to its component hierarchy.
type PieceResolver interface {
	Resolve(ctx context.Context, piece, contextSummary string) (record.ComponentHierarchy, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store // optional; if nil, the batches resource is not registered
	Labeling Labeling
	Catalog  *catalog.Catalog
	Resolver PieceResolver
}

// NewMCPServer creates an MCP server with all labeler tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"labeler",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("labeler turns free-text maintenance observations into structured, canonical records."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("label_observation",
			mcp.WithDescription("Label one maintenance observation and return the extracted and aggregated records."),
			mcp.WithString("observation", mcp.Description("Free-text maintenance observation"), mcp.Required()),
		),
		mcpLabelObservation(deps),
	)

	s.AddTool(
		mcp.NewTool("normalize_value",
			mcp.WithDescription("Canonicalize a value the way stored records are canonicalized."),
			mcp.WithString("field", mcp.Description("Field name (scheduled_type, detention_type, job_type, system, subsystem, piece); empty for free text")),
			mcp.WithString("value", mcp.Description("Value to canonicalize"), mcp.Required()),
		),
		mcpNormalizeValue(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_piece",
			mcp.WithDescription("Map a piece name to its system, subsystem and component."),
			mcp.WithString("piece", mcp.Description("Piece name"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Optional summary of the work done on the piece")),
		),
		mcpResolvePiece(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"catalog://taxonomy",
			"Component Taxonomy",
			mcp.WithResourceDescription("Allowed systems and their subsystems as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTaxonomy(deps),
	)

	if deps.Store != nil {
		s.AddResource(
			mcp.NewResource(
				"labeler://batches",
				"Recent Batches",
				mcp.WithResourceDescription("Last 10 batches with their status"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceBatches(deps),
		)
	}

	return s
}

func mcpLabelObservation(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		observation, err := req.RequireString("observation")
		if err != nil || observation == "" {
			return mcpError("observation is required"), nil
		}

		res, err := deps.Labeling.LabelOne(ctx, observation)
		if err != nil {
			return mcpError(fmt.Sprintf("labeling failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpNormalizeValue(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}
		field := req.GetString("field", "")

		v, ok := normalize(deps.Catalog.Canonicalizer(), field, value)
		if !ok {
			return mcpError(fmt.Sprintf("unknown field %q", field)), nil
		}
		return mcpText(v), nil
	}
}

func mcpResolvePiece(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		piece, err := req.RequireString("piece")
		if err != nil {
			return mcpError("piece is required"), nil
		}

		h, err := deps.Resolver.Resolve(ctx, piece, req.GetString("context", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("resolve failed: %v", err)), nil
		}
		return mcpJSON(h)
	}
}

func mcpResourceTaxonomy(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Catalog.Taxonomy())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal taxonomy: %w", err)
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

func mcpResourceBatches(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		batches, err := deps.Store.ListBatches(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list batches: %w", err)
		}

		type batchSummary struct {
			ID        string `json:"id"`
			Label     string `json:"label"`
			Status    string `json:"status"`
			Rows      int    `json:"rows"`
			CreatedAt string `json:"created_at"`
		}

		summaries := make([]batchSummary, len(batches))
		for i, b := range batches {
			summaries[i] = batchSummary{
				ID:        b.ID,
				Label:     b.Label,
				Status:    b.Status,
				Rows:      b.RowCount,
				CreatedAt: b.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal batches: %w", err)
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
