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

// CheckTool handles the feature_check MCP tool.
// It shows a feature's phase, track statuses and decision-gate
// readiness without mutating anything.
type CheckTool struct {
	engine *lifecycle.Engine
}

// NewCheckTool creates a CheckTool with the given engine.
func NewCheckTool(engine *lifecycle.Engine) *CheckTool {
	return &CheckTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_check",
		mcp.WithDescription(
			"Show the current state of a feature: phase, per-track status derived from "+
				"recorded facts, attached artifacts, and whether the decision gate would "+
				"pass right now. Read-only.",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug, as returned by feature_start."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched; "+
				"fails if the slug exists in more than one."),
		),
	)
}

// Handle processes the feature_check tool call.
func (t *CheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, result, err := t.engine.CheckFeature(projectRoot, req.GetString("product_id", ""), slug)
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		return nil, fmt.Errorf("checking feature: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Title)
	fmt.Fprintf(&b, "**Slug:** `%s`  \n**Product:** %s  \n**Phase:** %s  \n**Priority:** %s\n\n",
		rec.Slug, rec.ProductID, rec.CurrentPhase, valueOrDash(rec.Priority))

	b.WriteString("## Tracks\n\n")
	b.WriteString(renderTrackTable(rec))
	b.WriteString("\n")

	if len(rec.Artifacts) > 0 {
		b.WriteString("## Artifacts\n\n")
		for _, at := range []feature.ArtifactType{
			feature.ArtifactFigma, feature.ArtifactWireframes, feature.ArtifactJiraEpic,
			feature.ArtifactConfluence, feature.ArtifactGDocs,
		} {
			if ref, ok := rec.Artifacts[at]; ok {
				fmt.Fprintf(&b, "- **%s:** %s\n", at, ref)
			}
		}
		b.WriteString("\n")
	}

	if result.Status == feature.DecisionReady {
		b.WriteString("## Decision Gate: ✅ READY\n\n" +
			"All gates pass. Call `feature_decision` with decision `approve` to move to " +
			"output generation.\n")
	} else {
		fmt.Fprintf(&b, "## Decision Gate: ⛔ NOT READY (%d blockers)\n\n", len(result.Blockers))
		for _, blocker := range result.Blockers {
			fmt.Fprintf(&b, "- %s\n", blocker)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
