package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the feature-status MCP prompt.
// It instructs the AI to read and present a feature's current state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("feature-status",
		mcp.WithPromptDescription(
			"Check the status of a feature. Shows its phase, track progress, "+
				"gate blockers, and what to do next.",
		),
		mcp.WithArgument("slug",
			mcp.ArgumentDescription("Feature slug. If omitted, lists all features first."),
		),
	)
}

// Handle processes the feature-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	slug := ""
	if args := req.Params.Arguments; args != nil {
		slug = args["slug"]
	}

	text := "Please run `feature_list`, then run `feature_check` on the feature I pick.\n\n"
	if slug != "" {
		text = "Please run `feature_check` with slug='" + slug + "'.\n\n"
	}
	text += "Then:\n" +
		"1. Show me the phase and track progress in a clear, visual format\n" +
		"2. Highlight any gate blockers and which track owns each one\n" +
		"3. Tell me exactly what I should do next to get the feature through the decision gate"

	return &mcp.GetPromptResult{
		Description: "Feature Status",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
