// fledge: Feature Lifecycle MCP Server
//
// An MCP server that integrates with any AI coding tool
// (Claude Code, OpenCode, Gemini CLI, Codex, Cursor, VS Code Copilot)
// to take product features from first signal to a go/no-go decision:
// phased lifecycle, four parallel workstream tracks, quality gates,
// and generated stakeholder outputs.
//
// Usage:
//
//	fledge serve    # Start MCP server (stdio transport)
//	fledge update   # Update to the latest version
package main

import (
	"fmt"
	"os"

	fledgeserver "github.com/fledgehq/fledge/internal/server"
	"github.com/fledgehq/fledge/internal/updater"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("fledge v%s\n", fledgeserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := fledgeserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort: network failures
// are silently ignored.
func checkForUpdates() {
	status := updater.Check(fledgeserver.Version)
	if status.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: fledge update\n"+
				"     Release: %s\n\n",
			status.CurrentVersion, status.LatestVersion, status.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	status := updater.Check(fledgeserver.Version)
	if !status.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", status.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", status.CurrentVersion, status.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(fledgeserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", status.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", status.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart fledge to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `fledge v%s — Feature Lifecycle MCP Server

Usage:
  fledge serve    Start the MCP server (stdio transport)
  fledge update   Update to the latest version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "fledge": {
        "command": "fledge",
        "args": ["serve"]
      }
    }
  }

Learn more: https://github.com/fledgehq/fledge
`, fledgeserver.Version)
}
