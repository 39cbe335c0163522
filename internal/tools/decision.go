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

// DecisionTool handles the feature_decision MCP tool.
// It records the go/no-go verdict at the decision gate: approve moves
// the feature to output generation, reject sends it back to the
// tracks, archive and defer close it out.
type DecisionTool struct {
	engine *lifecycle.Engine
}

// NewDecisionTool creates a DecisionTool with the given engine.
func NewDecisionTool(engine *lifecycle.Engine) *DecisionTool {
	return &DecisionTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *DecisionTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_decision",
		mcp.WithDescription(
			"Record a go/no-go decision for a feature. `approve` requires every quality "+
				"gate to pass (or force=true to override, which records the bypassed "+
				"blockers) and moves the feature to output_generation. `reject` returns it "+
				"to parallel_tracks with a reason. `archive` and `defer` close the feature "+
				"from any non-terminal phase.",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched."),
		),
		mcp.WithString("decision",
			mcp.Required(),
			mcp.Description("The verdict to record."),
			mcp.Enum("approve", "reject", "archive", "defer"),
		),
		mcp.WithString("reason",
			mcp.Description("Rationale for the decision. Required for reject."),
		),
		mcp.WithString("actor",
			mcp.Description("Who made the decision."),
		),
		mcp.WithBoolean("force",
			mcp.Description("Approve despite failing gates. The decision records which "+
				"blockers were bypassed."),
		),
	)
}

// Handle processes the feature_decision tool call.
func (t *DecisionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	decision := req.GetString("decision", "")

	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}
	if strings.TrimSpace(decision) == "" {
		return mcp.NewToolResultError("'decision' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, outputs, err := t.engine.Decide(projectRoot, req.GetString("product_id", ""), slug,
		lifecycle.DecisionRequest{
			Decision: decision,
			Reason:   req.GetString("reason", ""),
			Actor:    req.GetString("actor", ""),
			Force:    boolArg(req, "force", false),
		})
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		var notReady *feature.GateNotReadyError
		if errors.As(err, &notReady) {
			var b strings.Builder
			fmt.Fprintf(&b, "Cannot approve %q: %d gates are failing.\n\n", slug, len(notReady.Blockers))
			for _, blocker := range notReady.Blockers {
				fmt.Fprintf(&b, "- %s\n", blocker)
			}
			b.WriteString("\nResolve the blockers, or re-run with force=true to approve anyway " +
				"(the bypassed blockers are recorded on the decision).")
			return mcp.NewToolResultError(b.String()), nil
		}
		var transition *feature.TransitionError
		if errors.As(err, &transition) {
			return mcp.NewToolResultError(transition.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Cannot record decision: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Decision Recorded: %s\n\n", decision)
	fmt.Fprintf(&b, "**Feature:** `%s`\n**Phase:** %s\n", rec.Slug, rec.CurrentPhase)
	if len(outputs) > 0 {
		b.WriteString("\n## Generated Outputs\n\n")
		for _, out := range outputs {
			fmt.Fprintf(&b, "- %s\n", out)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
