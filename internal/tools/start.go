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

// StartTool handles the feature_start MCP tool.
// It creates a new feature record after checking the product for
// features with similar titles.
type StartTool struct {
	engine *lifecycle.Engine
}

// NewStartTool creates a StartTool with the given engine.
func NewStartTool(engine *lifecycle.Engine) *StartTool {
	return &StartTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *StartTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_start",
		mcp.WithDescription(
			"Create a new feature in the lifecycle engine. The feature starts in the "+
				"initialization phase with all four tracks (Context, Design, Business Case, "+
				"Engineering) not started. If the product already has features with similar "+
				"titles, creation is rejected with the candidate list — re-run with "+
				"confirm_duplicate=true to create it anyway.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Feature title. Used to generate the slug and to detect duplicates. "+
				"Example: 'Bulk CSV export for reports' → slug 'bulk-csv-export-for-reports'"),
		),
		mcp.WithString("product_id",
			mcp.Required(),
			mcp.Description("Product the feature belongs to. Features are stored and "+
				"deduplicated per product."),
		),
		mcp.WithString("priority",
			mcp.Description("Business priority, free-form (e.g. p0, p1, nice-to-have)."),
		),
		mcp.WithString("organization",
			mcp.Description("Owning organization. Defaults to the organization in fledge.yaml."),
		),
		mcp.WithArray("aliases",
			mcp.Description("Alternate names for the feature, used for duplicate detection."),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("confirm_duplicate",
			mcp.Description("Create the feature even when similar titles exist."),
		),
	)
}

// Handle processes the feature_start tool call.
func (t *StartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	productID := req.GetString("product_id", "")

	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	if strings.TrimSpace(productID) == "" {
		return mcp.NewToolResultError("'product_id' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, err := t.engine.StartFeature(projectRoot, lifecycle.StartFeatureRequest{
		Title:            title,
		ProductID:        productID,
		Organization:     req.GetString("organization", ""),
		Priority:         req.GetString("priority", ""),
		Aliases:          stringSliceArg(req, "aliases"),
		ConfirmDuplicate: boolArg(req, "confirm_duplicate", false),
	})
	if err != nil {
		var dup *feature.DuplicateCandidateError
		if errors.As(err, &dup) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"Possible duplicates of %q in product %q:\n\n%s\n"+
					"If this is genuinely a new feature, re-run with confirm_duplicate=true.",
				dup.Title, dup.ProductID, renderDuplicates(dup.Candidates),
			)), nil
		}
		return nil, fmt.Errorf("creating feature: %w", err)
	}

	response := fmt.Sprintf(
		"# Feature Created\n\n"+
			"**Slug:** `%s`\n"+
			"**Title:** %s\n"+
			"**Product:** %s\n"+
			"**Phase:** %s\n\n"+
			"%s\n"+
			"## Next Step\n\n"+
			"Advance the feature to `signal_analysis`, then start tracks with "+
			"`feature_track_advance` (action `start`).",
		rec.Slug, rec.Title, rec.ProductID, rec.CurrentPhase,
		renderTrackTable(rec),
	)
	return mcp.NewToolResultText(response), nil
}
