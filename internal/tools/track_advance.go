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

// TrackAdvanceTool handles the feature_track_advance MCP tool.
// It records facts on a feature's tracks (context versions, design
// specs, business approvals, engineering components/ADRs/estimates/
// risks) and returns the re-derived track statuses.
type TrackAdvanceTool struct {
	engine *lifecycle.Engine
}

// NewTrackAdvanceTool creates a TrackAdvanceTool with the given engine.
func NewTrackAdvanceTool(engine *lifecycle.Engine) *TrackAdvanceTool {
	return &TrackAdvanceTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *TrackAdvanceTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_track_advance",
		mcp.WithDescription(
			"Record progress on one of a feature's four tracks. Track status is never set "+
				"directly: this tool records facts (a context version, a spec reference, an "+
				"approval, an estimate) and the status is derived from them. "+
				"Actions: start (requires track), submit_context (version, score, summary), "+
				"record_spec (doc_ref), submit_case (doc_ref), record_approval (approver, "+
				"approved, note), add_component (component), create_adr (adr_title, "+
				"adr_context, decision), set_adr_status (adr_id, adr_status), "+
				"record_estimate (effort, unit, confidence), add_risk (risk_description, "+
				"risk_impact, mitigation), mitigate_risk (risk_index, mitigation), "+
				"add_dependency (dependency, blocking, note).",
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Feature slug."),
		),
		mcp.WithString("product_id",
			mcp.Description("Product to look in. If omitted, every product is searched."),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("The track action to apply."),
			mcp.Enum("start", "submit_context", "record_spec", "submit_case",
				"record_approval", "add_component", "create_adr", "set_adr_status",
				"record_estimate", "add_risk", "mitigate_risk", "add_dependency"),
		),
		mcp.WithString("track",
			mcp.Description("Track to start (only the `start` action needs it)."),
			mcp.Enum("context", "design", "business_case", "engineering"),
		),
		mcp.WithString("actor",
			mcp.Description("Who performed the action."),
		),
		mcp.WithNumber("version",
			mcp.Description("Context document version (1-3), for submit_context."),
		),
		mcp.WithNumber("score",
			mcp.Description("Challenge score (0-100), for submit_context."),
		),
		mcp.WithString("summary",
			mcp.Description("Short summary of the context version."),
		),
		mcp.WithString("doc_ref",
			mcp.Description("Document reference, for record_spec and submit_case."),
		),
		mcp.WithString("approver",
			mcp.Description("Approver name, for record_approval."),
		),
		mcp.WithBoolean("approved",
			mcp.Description("The approver's verdict, for record_approval."),
		),
		mcp.WithString("note",
			mcp.Description("Free-form note (approval verdicts, dependencies)."),
		),
		mcp.WithString("component",
			mcp.Description("Component name, for add_component."),
		),
		mcp.WithString("adr_id",
			mcp.Description("ADR identifier (e.g. ADR-001), for set_adr_status."),
		),
		mcp.WithString("adr_title",
			mcp.Description("ADR title, for create_adr."),
		),
		mcp.WithString("adr_status",
			mcp.Description("ADR status, for create_adr and set_adr_status."),
			mcp.Enum("proposed", "accepted", "rejected", "deprecated", "superseded"),
		),
		mcp.WithString("adr_context",
			mcp.Description("The problem the ADR addresses, for create_adr."),
		),
		mcp.WithString("decision",
			mcp.Description("The decision the ADR records, for create_adr."),
		),
		mcp.WithNumber("effort",
			mcp.Description("Estimated effort, for record_estimate. Must be positive."),
		),
		mcp.WithString("unit",
			mcp.Description("Effort unit (e.g. story_points, weeks), for record_estimate."),
		),
		mcp.WithString("confidence",
			mcp.Description("Estimate confidence, free-form."),
		),
		mcp.WithString("risk_description",
			mcp.Description("Risk description, for add_risk."),
		),
		mcp.WithString("risk_impact",
			mcp.Description("Risk impact, for add_risk."),
			mcp.Enum("low", "medium", "high"),
		),
		mcp.WithString("mitigation",
			mcp.Description("Mitigation text, for add_risk and mitigate_risk."),
		),
		mcp.WithNumber("risk_index",
			mcp.Description("1-based risk position, for mitigate_risk."),
		),
		mcp.WithString("dependency",
			mcp.Description("Dependency name, for add_dependency."),
		),
		mcp.WithBoolean("blocking",
			mcp.Description("Whether the dependency blocks the decision gate."),
		),
	)
}

// Handle processes the feature_track_advance tool call.
func (t *TrackAdvanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	action := req.GetString("action", "")

	if strings.TrimSpace(slug) == "" {
		return mcp.NewToolResultError("'slug' is required"), nil
	}
	if strings.TrimSpace(action) == "" {
		return mcp.NewToolResultError("'action' is required"), nil
	}

	track := feature.TrackName(req.GetString("track", ""))
	if action == "start" {
		if err := feature.ValidateTrack(track); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	rec, err := t.engine.AdvanceTrack(projectRoot, req.GetString("product_id", ""), slug,
		lifecycle.TrackAdvanceRequest{
			Track:           track,
			Action:          action,
			Actor:           req.GetString("actor", ""),
			Version:         intArg(req, "version", 0),
			Score:           intArg(req, "score", 0),
			Summary:         req.GetString("summary", ""),
			DocRef:          req.GetString("doc_ref", ""),
			Approver:        req.GetString("approver", ""),
			Approved:        boolArg(req, "approved", false),
			Note:            req.GetString("note", ""),
			Component:       req.GetString("component", ""),
			ADRID:           req.GetString("adr_id", ""),
			ADRTitle:        req.GetString("adr_title", ""),
			ADRStatus:       feature.ADRStatus(req.GetString("adr_status", "")),
			ADRContext:      req.GetString("adr_context", ""),
			Decision:        req.GetString("decision", ""),
			Effort:          floatArg(req, "effort", 0),
			Unit:            req.GetString("unit", ""),
			Confidence:      req.GetString("confidence", ""),
			RiskDescription: req.GetString("risk_description", ""),
			RiskImpact:      feature.RiskImpact(req.GetString("risk_impact", "")),
			Mitigation:      req.GetString("mitigation", ""),
			RiskIndex:       intArg(req, "risk_index", 0),
			Dependency:      req.GetString("dependency", ""),
			Blocking:        boolArg(req, "blocking", false),
		})
	if err != nil {
		if errors.Is(err, feature.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q not found: %v", slug, err)), nil
		}
		var approverErr *feature.UnknownApproverError
		if errors.As(err, &approverErr) {
			return mcp.NewToolResultError(approverErr.Error()), nil
		}
		// Domain rejections (frozen track, bad version, bad input) are
		// expected outcomes for the caller, not server failures.
		return mcp.NewToolResultError(fmt.Sprintf("Cannot apply %s: %v", action, err)), nil
	}

	response := fmt.Sprintf(
		"# Track Updated\n\n"+
			"**Feature:** `%s`\n"+
			"**Action:** %s\n"+
			"**Phase:** %s\n\n"+
			"%s",
		rec.Slug, action, rec.CurrentPhase,
		renderTrackTable(rec),
	)
	return mcp.NewToolResultText(response), nil
}
