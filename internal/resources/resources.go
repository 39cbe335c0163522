// Package resources implements MCP resource handlers for the feature
// lifecycle engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (fledge://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fledgehq/fledge/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages lifecycle resource endpoints.
type Handler struct {
	engine *lifecycle.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(engine *lifecycle.Engine) *Handler {
	return &Handler{engine: engine}
}

// FeaturesResource returns the MCP resource definition for the
// workspace feature inventory.
func (h *Handler) FeaturesResource() mcp.Resource {
	return mcp.NewResource(
		"fledge://features",
		"Feature Inventory",
		mcp.WithResourceDescription("All features in the workspace with phase and track statuses"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleFeatures returns every feature record as JSON.
func (h *Handler) HandleFeatures(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projectRoot, err := findRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	records, err := h.engine.ListFeatures(projectRoot, "")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling features: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
