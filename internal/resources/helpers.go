package resources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fledgehq/fledge/internal/feature"
)

// findRoot walks up from cwd looking for a fledge/ data directory.
// Shared utility for resource handlers.
func findRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		candidate := filepath.Join(current, feature.DataDir, feature.FeaturesDir)
		if _, err := os.Stat(candidate); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}
