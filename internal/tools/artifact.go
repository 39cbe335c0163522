package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fledgehq/fledge/internal/feature"
	"github.com/fledgehq/fledge/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// AttachArtifactTool handles the feature_attach_artifact MCP tool.
// It links an external document to a feature. Attaching a design
// artifact (figma, wireframes) re-derives the Design track status.
type AttachArtifactTool struct {
	engine *lifecycle.Engine
}

// NewAttachArtifactTool creates an AttachArtifactTool with the given engine.
func NewAttachArtifactTool(engine *lifecycle.Engine) *AttachArtifactTool {
	return &AttachArtifactTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *AttachArtifactTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_attach_artifact",
		mcp.WithDescription(
			"Attach an external artifact reference (Figma file, wireframes, Jira epic, "+
				"Confluence page, Google Doc) to a feature. Re-attaching the same type "+
				"replaces the reference.",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched."),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Artifact type."),
			mcp.Enum("figma", "wireframes", "jira_epic", "confluence_page", "gdocs"),
		),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Artifact reference: a URL or document identifier."),
		),
	)
}

// Handle processes the feature_attach_artifact tool call.
func (t *AttachArtifactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	artifact := feature.ArtifactType(req.GetString("type", ""))
	ref := req.GetString("ref", "")

	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}
	if err := feature.ValidateArtifactType(artifact); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(ref) == "" {
		return mcp.NewToolResultError("'ref' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, err := t.engine.AttachArtifact(projectRoot, req.GetString("product_id", ""), slug, artifact, ref)
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Cannot attach artifact: %v", err)), nil
	}

	response := fmt.Sprintf(
		"# Artifact Attached\n\n"+
			"**Feature:** `%s`\n"+
			"**Type:** %s\n"+
			"**Ref:** %s\n\n"+
			"%s",
		rec.Slug, artifact, ref,
		renderTrackTable(rec),
	)
	return mcp.NewToolResultText(response), nil
}
