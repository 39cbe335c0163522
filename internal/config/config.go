// Package config loads the per-workspace fledge.yaml configuration:
// gate thresholds and approver rosters per product, plus the duplicate
// detection threshold. Every field is optional — absent values fall
// back to the engine defaults, and a missing file yields a config that
// is all defaults.
//
// Configuration is loaded into an explicit struct and passed into
// constructors; there is no process-wide mutable config state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fledgehq/fledge/internal/feature"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the filename of the workspace configuration, located
// under the fledge/ data directory.
const ConfigFile = "fledge.yaml"

// ProductConfig holds the per-product policy knobs. Pointer fields
// distinguish "absent" (use default) from an explicit zero.
type ProductConfig struct {
	ContextDraftThreshold    *int     `yaml:"context_draft_threshold"`
	ContextReviewThreshold   *int     `yaml:"context_review_threshold"`
	ContextApprovedThreshold *int     `yaml:"context_approved_threshold"`
	FigmaRequired            *bool    `yaml:"figma_required"`
	RequiredBCApprovers      []string `yaml:"required_bc_approvers"`
}

// Config is the root of fledge.yaml.
type Config struct {
	Organization       string                   `yaml:"organization"`
	DuplicateThreshold *float64                 `yaml:"duplicate_threshold"`
	Products           map[string]ProductConfig `yaml:"products"`
}

// Path returns the absolute path to the workspace configuration file.
func Path(root string) string {
	return filepath.Join(root, feature.DataDir, ConfigFile)
}

// Load reads the workspace configuration. A missing file is not an
// error — it returns an empty Config whose accessors yield defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}
	return &cfg, nil
}

// GateConfig resolves the effective gate policy for a product: explicit
// per-product values layered over the engine defaults.
func (c *Config) GateConfig(productID string) feature.GateConfig {
	gc := feature.DefaultGateConfig()
	if c == nil {
		return gc
	}
	if c.DuplicateThreshold != nil {
		gc.DuplicateThreshold = *c.DuplicateThreshold
	}

	pc, ok := c.Products[productID]
	if !ok {
		return gc
	}
	if pc.ContextDraftThreshold != nil {
		gc.ContextDraftThreshold = *pc.ContextDraftThreshold
	}
	if pc.ContextReviewThreshold != nil {
		gc.ContextReviewThreshold = *pc.ContextReviewThreshold
	}
	if pc.ContextApprovedThreshold != nil {
		gc.ContextApprovedThreshold = *pc.ContextApprovedThreshold
	}
	if pc.FigmaRequired != nil {
		gc.FigmaRequired = *pc.FigmaRequired
	}
	gc.RequiredBCApprovers = append([]string{}, pc.RequiredBCApprovers...)
	return gc
}
