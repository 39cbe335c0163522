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

// ValidateTool handles the feature_validate MCP tool.
// It runs the full quality-gate evaluation and reports every check
// with its evidence, without changing the feature.
type ValidateTool struct {
	engine *lifecycle.Engine
}

// NewValidateTool creates a ValidateTool with the given engine.
func NewValidateTool(engine *lifecycle.Engine) *ValidateTool {
	return &ValidateTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_validate",
		mcp.WithDescription(
			"Run the decision-gate validation: every quality gate of every track, plus "+
				"feature-level checks (blocking dependencies, unmitigated high risks). "+
				"Reports each check with its evidence and the combined blocker list. "+
				"Read-only — use feature_decision to act on the result.",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched."),
		),
	)
}

// Handle processes the feature_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	result, err := t.engine.ValidateFeature(projectRoot, req.GetString("product_id", ""), slug)
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		return nil, fmt.Errorf("validating feature: %w", err)
	}

	verdict := "✅ READY"
	if result.Status != feature.DecisionReady {
		verdict = fmt.Sprintf("⛔ NOT READY (%d blockers)", len(result.Blockers))
	}

	response := fmt.Sprintf(
		"# Decision Gate Validation: %s\n\n%s",
		verdict, renderGateResults(result),
	)
	return mcp.NewToolResultText(response), nil
}
