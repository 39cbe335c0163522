package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDir is the subdirectory under the workspace root where all
	// fledge state lives.
	DataDir = "fledge"
	// FeaturesDir is the subdirectory under fledge/ where feature
	// records live, one JSON file per feature, grouped by product.
	FeaturesDir = "features"
)

// Store defines the persistence interface for feature records.
// Abstracted so the atomic-rename file backend can be swapped for an
// embedded store without touching engine logic (DIP).
type Store interface {
	Load(root, productID, slug string) (*FeatureRecord, error)
	Save(root string, rec *FeatureRecord) error
	List(root, productID string) ([]FeatureRecord, error)
	ListAll(root string) ([]FeatureRecord, error)
}

// FileStore implements Store using one JSON file per feature with
// atomic write-to-temp-then-rename saves. Concurrency is
// last-writer-wins by design: the engine assumes a single writer per
// feature at a time and does not coordinate concurrent saves.
type FileStore struct{}

// NewFileStore creates a filesystem-backed feature store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// FeaturesPath returns the absolute path to the fledge/features/ directory.
func FeaturesPath(root string) string {
	return filepath.Join(root, DataDir, FeaturesDir)
}

// ProductPath returns the absolute path to a product's feature directory.
func ProductPath(root, productID string) string {
	return filepath.Join(FeaturesPath(root), productID)
}

// FeaturePath returns the absolute path to a feature's JSON file.
func FeaturePath(root, productID, slug string) string {
	return filepath.Join(ProductPath(root, productID), slug+".json")
}

// Load reads a feature record by product and slug. A missing file
// returns ErrNotFound; corrupted JSON or an unknown future schema
// version is fatal for the operation — the store refuses to guess.
// Records with an older schema version are migrated in memory; the
// on-disk file is only rewritten on the next Save.
func (fs *FileStore) Load(root, productID, slug string) (*FeatureRecord, error) {
	path := FeaturePath(root, productID, slug)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("feature %q in product %q: %w", slug, productID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading feature record: %w", err)
	}

	var rec FeatureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing feature record %q: %w", slug, err)
	}

	if err := Migrate(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save atomically persists a feature record: the JSON is written to a
// temporary path in the same directory, then renamed over the final
// file, so a crash mid-write never leaves a corrupt or partial record.
func (fs *FileStore) Save(root string, rec *FeatureRecord) error {
	if rec.Slug == "" || rec.ProductID == "" {
		return fmt.Errorf("feature record needs both slug and product_id to be saved")
	}
	rec.SchemaVersion = CurrentSchemaVersion

	dir := ProductPath(root, rec.ProductID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating product directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling feature record: %w", err)
	}

	path := FeaturePath(root, rec.ProductID, rec.Slug)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing feature record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming feature record into place: %w", err)
	}
	return nil
}

// List returns all feature records for a product, sorted by slug.
// Unreadable entries are skipped — listing is a best-effort scan.
func (fs *FileStore) List(root, productID string) ([]FeatureRecord, error) {
	dir := ProductPath(root, productID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading product directory: %w", err)
	}

	var result []FeatureRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := fs.Load(root, productID, slug)
		if err != nil {
			continue // skip unreadable records
		}
		result = append(result, *rec)
	}
	return result, nil
}

// ListAll returns every feature record across all products.
func (fs *FileStore) ListAll(root string) ([]FeatureRecord, error) {
	base := FeaturesPath(root)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading features directory: %w", err)
	}

	var result []FeatureRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		recs, err := fs.List(root, entry.Name())
		if err != nil {
			continue
		}
		result = append(result, recs...)
	}
	return result, nil
}
