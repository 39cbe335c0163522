// Package tools implements the MCP tool handlers of the feature
// lifecycle engine.
//
// Each tool is a struct that receives its dependencies (the lifecycle
// engine) via its constructor and exposes:
// - Definition() returning the mcp.Tool schema
// - Handle() processing the request
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on the engine, never on the store directly
// - Expected failures (gate blockers, duplicates, bad transitions) are
//   tool results; only infrastructure failures become Go errors.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fledgehq/fledge/internal/feature"
	"github.com/mark3labs/mcp-go/mcp"
)

// findProjectRoot walks up from the current working directory looking
// for an existing fledge/ data directory (its config file or features
// tree). If none is found, returns cwd — the first save creates the
// directory there.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		for _, marker := range []string{
			filepath.Join(current, feature.DataDir, "fledge.yaml"),
			filepath.Join(current, feature.DataDir, feature.FeaturesDir),
		} {
			if _, err := os.Stat(marker); err == nil {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// stringSliceArg extracts a string-array argument. Non-string elements
// are skipped.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// statusMarker maps a track status to a progress emoji.
func statusMarker(status feature.TrackStatus) string {
	switch status {
	case feature.StatusComplete, feature.StatusApproved:
		return "✅"
	case feature.StatusNotStarted:
		return "⬜"
	case feature.StatusBlocked, feature.StatusRejected:
		return "⛔"
	default:
		return "🔄"
	}
}

// renderTrackTable builds the markdown track summary of a feature.
func renderTrackTable(rec *feature.FeatureRecord) string {
	var b strings.Builder
	b.WriteString("| Track | Status |\n")
	b.WriteString("|-------|--------|\n")
	for _, name := range feature.TrackNames() {
		ts := rec.Tracks[name]
		fmt.Fprintf(&b, "| %s | %s %s |\n", name.DisplayName(), statusMarker(ts.Status), ts.Status)
	}
	return b.String()
}

// renderGateResults builds the markdown gate report: one section per
// track with its checks, then the combined blocker list.
func renderGateResults(result *feature.DecisionResult) string {
	var b strings.Builder
	for _, tr := range result.TrackResults {
		marker := "✅"
		if tr.Status != feature.GatePass {
			marker = "⛔"
		}
		fmt.Fprintf(&b, "## %s %s\n\n", marker, tr.Track.DisplayName())
		for _, check := range tr.Checks {
			cm := "✅"
			if !check.Passed {
				cm = "❌"
				if check.Level == feature.LevelAdvisory {
					cm = "⚠️"
				}
			}
			fmt.Fprintf(&b, "- %s %s (%s): %s\n", cm, check.Name, check.Level, check.Evidence)
		}
		b.WriteString("\n")
	}

	if len(result.Blockers) > 0 {
		b.WriteString("## Blockers\n\n")
		for _, blocker := range result.Blockers {
			fmt.Fprintf(&b, "- %s\n", blocker)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderDuplicates builds the candidate listing shown when a new title
// matches existing features.
func renderDuplicates(candidates []feature.DuplicateCandidate) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "- `%s` — %q (similarity %.2f)\n", c.Slug, c.Title, c.Similarity)
	}
	return b.String()
}
