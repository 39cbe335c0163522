// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on
// abstractions. No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"os"

	"github.com/fledgehq/fledge/internal/aliasindex"
	"github.com/fledgehq/fledge/internal/feature"
	"github.com/fledgehq/fledge/internal/lifecycle"
	"github.com/fledgehq/fledge/internal/outputs"
	"github.com/fledgehq/fledge/internal/prompts"
	"github.com/fledgehq/fledge/internal/resources"
	"github.com/fledgehq/fledge/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the alias index database and
// must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if index init failed.
func New() (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	store := feature.NewFileStore()
	engine := lifecycle.NewEngine(store)

	generator, err := outputs.NewGenerator()
	if err != nil {
		return nil, noop, fmt.Errorf("creating output generator: %w", err)
	}
	engine.SetOutputGenerator(generator)

	// --- Wire the alias index ---
	//
	// The index is an independent subsystem: if it fails to open, the
	// engine falls back to scanning records for duplicate detection.
	// We log a warning and continue — feature creation still works.

	cleanup := noop
	if root, err := os.Getwd(); err == nil {
		index, idxErr := aliasindex.New(aliasindex.DefaultConfig(root))
		if idxErr != nil {
			log.Printf("WARNING: alias index disabled: %v", idxErr)
		} else {
			cleanup = func() {
				if err := index.Close(); err != nil {
					log.Printf("WARNING: alias index close: %v", err)
				}
			}
			// Rebuild from the records on disk so the index survives
			// edits made outside the server.
			if records, err := store.ListAll(root); err != nil {
				log.Printf("WARNING: alias index rebuild skipped: %v", err)
			} else if err := index.Rebuild(records); err != nil {
				log.Printf("WARNING: alias index rebuild failed: %v", err)
			}
			engine.SetAliasIndex(index)
		}
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"fledge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register lifecycle tools ---

	startTool := tools.NewStartTool(engine)
	s.AddTool(startTool.Definition(), startTool.Handle)

	checkTool := tools.NewCheckTool(engine)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	trackAdvanceTool := tools.NewTrackAdvanceTool(engine)
	s.AddTool(trackAdvanceTool.Definition(), trackAdvanceTool.Handle)

	attachTool := tools.NewAttachArtifactTool(engine)
	s.AddTool(attachTool.Definition(), attachTool.Handle)

	validateTool := tools.NewValidateTool(engine)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	decisionTool := tools.NewDecisionTool(engine)
	s.AddTool(decisionTool.Definition(), decisionTool.Handle)

	phaseTool := tools.NewPhaseAdvanceTool(engine)
	s.AddTool(phaseTool.Definition(), phaseTool.Handle)

	listTool := tools.NewListTool(engine)
	s.AddTool(listTool.Definition(), listTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(engine)
	s.AddResource(resourceHandler.FeaturesResource(), resourceHandler.HandleFeatures)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the alias
// index is disabled or hasn't been initialized.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use fledge effectively.
func serverInstructions() string {
	return `You have access to fledge, a feature lifecycle MCP server.

## WHEN TO ACTIVATE fledge

Proactively suggest using fledge when the user:
- Proposes a new product feature or capability
- Wants to evaluate whether a feature idea is ready to build
- Asks about the status of features in flight
- Needs a go/no-go decision on something being specified

## THE LIFECYCLE

Every feature moves through phases:
initialization → signal_analysis → context_doc →
parallel_tracks → decision_gate → output_generation → complete.
A feature can be archived or deferred from any non-terminal phase.

In parallel_tracks, four tracks run side by side:
- Context: up to 3 versions of a context document, each challenge-scored.
  Version 3 must reach the approved threshold.
- Design: a spec document plus wireframes and a Figma reference.
- Business Case: a case document approved by the product's approver roster.
- Engineering: components, ADRs, an effort estimate, and risks with
  mitigations for anything high-impact.

Track statuses are DERIVED from recorded facts. Never try to set a
status — record the missing fact instead (feature_track_advance).

## THE DECISION GATE

feature_validate shows every gate check with evidence. feature_decision
records the verdict: approve (all gates must pass, or force=true),
reject (back to the tracks, reason required), archive, or defer.
Approval generates the stakeholder one-pager and epic skeleton.

## WORKFLOW

1. feature_start — create the feature (handles duplicate detection)
2. feature_phase_advance — move through the early phases
3. feature_track_advance — record facts as the tracks progress
4. feature_attach_artifact — link Figma, Jira, Confluence, Docs
5. feature_check / feature_validate — see where things stand
6. feature_decision — the go/no-go call

Be honest about blockers: if the gate is not ready, show the user the
blocker list rather than forcing the approval.`
}
