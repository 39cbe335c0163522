package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/fledgehq/fledge/internal/feature"
	"github.com/fledgehq/fledge/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the feature_list MCP tool.
type ListTool struct {
	engine *lifecycle.Engine
}

// NewListTool creates a ListTool with the given engine.
func NewListTool(engine *lifecycle.Engine) *ListTool {
	return &ListTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_list",
		mcp.WithDescription(
			"List features, optionally filtered by product and phase. Shows each "+
				"feature's phase and per-track status.",
		),
		mcp.WithString("product_id",
			mcp.Description("Only list features of this product."),
		),
		mcp.WithString("phase",
			mcp.Description("Only list features currently in this phase."),
			mcp.Enum("initialization", "signal_analysis", "context_doc",
				"parallel_tracks", "decision_gate", "output_generation", "complete",
				"archived", "deferred"),
		),
	)
}

// Handle processes the feature_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID := req.GetString("product_id", "")
	phaseFilter := feature.Phase(req.GetString("phase", ""))

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	records, err := t.engine.ListFeatures(projectRoot, productID)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Features\n\n")
	b.WriteString("| Product | Slug | Title | Phase | Ctx | Dsg | BC | Eng |\n")
	b.WriteString("|---------|------|-------|-------|-----|-----|----|-----|\n")

	shown := 0
	for i := range records {
		rec := &records[i]
		if phaseFilter != "" && rec.CurrentPhase != phaseFilter {
			continue
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s |", rec.ProductID, rec.Slug, rec.Title, rec.CurrentPhase)
		for _, name := range feature.TrackNames() {
			fmt.Fprintf(&b, " %s |", statusMarker(rec.Tracks[name].Status))
		}
		b.WriteString("\n")
		shown++
	}

	if shown == 0 {
		return mcp.NewToolResultText("No features found. Create one with `feature_start`."), nil
	}
	fmt.Fprintf(&b, "\n%d feature(s).\n", shown)
	return mcp.NewToolResultText(b.String()), nil
}
