// Package prompts implements MCP prompt handlers for the feature
// lifecycle engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the feature-start MCP prompt.
// It guides the AI through creating a feature and kicking off its tracks.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("feature-start",
		mcp.WithPromptDescription(
			"Start a new feature in the lifecycle engine. "+
				"Walks through creating the feature, handling possible duplicates, "+
				"and starting the four workstream tracks.",
		),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Title of the feature"),
		),
		mcp.WithArgument("product",
			mcp.ArgumentDescription("Product the feature belongs to"),
		),
	)
}

// Handle processes the feature-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := "a new feature"
	product := ""
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["title"]; ok && v != "" {
			title = fmt.Sprintf("%q", v)
		}
		if v, ok := args["product"]; ok && v != "" {
			product = v
		}
	}

	productStep := "1. Ask me which product this feature belongs to\n"
	if product != "" {
		productStep = fmt.Sprintf("1. Use product_id=%q\n", product)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start feature: %s", title),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to start %s.\n\n"+
						"Please:\n"+
						"%s"+
						"2. Run `feature_start` with the title and product. If it reports possible "+
						"duplicates, show them to me and ask whether to proceed before retrying "+
						"with confirm_duplicate=true\n"+
						"3. Advance the feature through signal_analysis and context_doc "+
						"with `feature_phase_advance` as we gather the initial context\n"+
						"4. Once in parallel_tracks, start the Context, Design, Business Case and "+
						"Engineering tracks with `feature_track_advance` (action `start`)\n"+
						"5. Tell me what facts each track needs before the decision gate will pass",
					title, productStep,
				)),
			},
		},
	}, nil
}
