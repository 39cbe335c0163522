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

// PhaseAdvanceTool handles the feature_phase_advance MCP tool.
// It moves a feature along the phase machine for the transitions the
// decision gate does not own (signal detection, context doc, entering
// the gate, completing after output generation).
type PhaseAdvanceTool struct {
	engine *lifecycle.Engine
}

// NewPhaseAdvanceTool creates a PhaseAdvanceTool with the given engine.
func NewPhaseAdvanceTool(engine *lifecycle.Engine) *PhaseAdvanceTool {
	return &PhaseAdvanceTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *PhaseAdvanceTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_phase_advance",
		mcp.WithDescription(
			"Advance a feature to the next lifecycle phase. The forward path is "+
				"initialization → signal_analysis → context_doc → parallel_tracks "+
				"→ decision_gate → output_generation → complete. Gate verdicts "+
				"(approve/reject) go through feature_decision instead. Advancing to the "+
				"current phase is a no-op.",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched."),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Phase to advance to."),
			mcp.Enum("initialization", "signal_analysis", "context_doc",
				"parallel_tracks", "decision_gate", "output_generation", "complete",
				"archived", "deferred"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the phase is changing."),
		),
		mcp.WithString("actor",
			mcp.Description("Who advanced the phase."),
		),
	)
}

// Handle processes the feature_phase_advance tool call.
func (t *PhaseAdvanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	target := feature.Phase(req.GetString("target", ""))

	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}
	if err := feature.ValidatePhase(target); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, err := t.engine.AdvancePhase(projectRoot, req.GetString("product_id", ""), slug,
		target, req.GetString("reason", ""), req.GetString("actor", ""))
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		var transition *feature.TransitionError
		if errors.As(err, &transition) {
			allowed := feature.AllowedTransitions(transition.From)
			return mcp.NewToolResultError(fmt.Sprintf(
				"%v. Allowed from %s: %v", transition, transition.From, allowed)), nil
		}
		return nil, fmt.Errorf("advancing phase: %w", err)
	}

	response := fmt.Sprintf(
		"# Phase Advanced\n\n**Feature:** `%s`\n**Phase:** %s\n",
		rec.Slug, rec.CurrentPhase,
	)
	return mcp.NewToolResultText(response), nil
}
