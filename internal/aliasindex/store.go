// Package aliasindex implements the SQLite-backed duplicate-detection
// index over feature titles and aliases.
//
// The index is derived state: the feature records on disk remain the
// source of truth, and the index can be rebuilt from them at any time.
// It exists so duplicate lookups at creation time don't re-read and
// re-normalize every record in the product.
package aliasindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fledgehq/fledge/internal/feature"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the index database filename under the fledge/ data directory.
const DBFile = "alias-index.db"

// Config holds alias index configuration.
type Config struct {
	// Path is the full path of the SQLite database file.
	Path string
}

// DefaultConfig returns the index configuration for a workspace root.
func DefaultConfig(root string) Config {
	return Config{Path: filepath.Join(root, feature.DataDir, DBFile)}
}

// Store is the duplicate-detection index backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the alias index database and runs the
// schema migration.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("aliasindex: create data dir: %w", err)
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("aliasindex: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("aliasindex: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("aliasindex: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS aliases (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			slug       TEXT NOT NULL,
			title      TEXT NOT NULL,
			alias      TEXT NOT NULL,
			tokens     TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(product_id, slug, tokens)
		);

		CREATE INDEX IF NOT EXISTS idx_aliases_product ON aliases(product_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Register adds a feature's title and aliases to the index. Names that
// normalize to an already-indexed token set for the same feature are
// ignored, so re-registration is idempotent.
func (s *Store) Register(productID, slug, title string, aliases []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	names := append([]string{title}, aliases...)
	for _, name := range names {
		tokens := feature.NormalizedKey(name)
		if tokens == "" {
			continue
		}
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO aliases (product_id, slug, title, alias, tokens, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			productID, slug, title, name, tokens, now,
		)
		if err != nil {
			return fmt.Errorf("aliasindex: register %q for %s/%s: %w", name, productID, slug, err)
		}
	}
	return nil
}

// Candidates returns existing features of the product whose indexed
// title or alias is similar to the given title (Jaccard at or above the
// threshold). For each slug only the best-scoring alias is reported.
// Results are sorted by similarity (descending), then slug, so the same
// title always produces the same candidate set.
func (s *Store) Candidates(productID, title string, threshold float64) ([]feature.DuplicateCandidate, error) {
	tokens := feature.NormalizeTitle(title)
	if len(tokens) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT slug, title, alias, tokens FROM aliases WHERE product_id = ?`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("aliasindex: query product %q: %w", productID, err)
	}
	defer rows.Close()

	best := map[string]feature.DuplicateCandidate{}
	for rows.Next() {
		var slug, recTitle, alias, indexed string
		if err := rows.Scan(&slug, &recTitle, &alias, &indexed); err != nil {
			return nil, fmt.Errorf("aliasindex: scan row: %w", err)
		}
		sim := feature.Jaccard(tokens, feature.NormalizeTitle(indexed))
		if sim < threshold {
			continue
		}
		if prev, ok := best[slug]; !ok || sim > prev.Similarity {
			best[slug] = feature.DuplicateCandidate{
				Slug:       slug,
				Title:      recTitle,
				Alias:      alias,
				Similarity: sim,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aliasindex: iterate rows: %w", err)
	}

	candidates := make([]feature.DuplicateCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Slug < candidates[j].Slug
	})
	return candidates, nil
}

// Rebuild replaces the entire index with entries derived from the given
// records. Used at startup and as the recovery path when the database
// file is lost or stale — the record store is always authoritative.
func (s *Store) Rebuild(records []feature.FeatureRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("aliasindex: begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM aliases`); err != nil {
		return fmt.Errorf("aliasindex: clear index: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range records {
		rec := &records[i]
		names := append([]string{rec.Title}, rec.Aliases...)
		for _, name := range names {
			tokens := feature.NormalizedKey(name)
			if tokens == "" {
				continue
			}
			_, err := tx.Exec(
				`INSERT OR IGNORE INTO aliases (product_id, slug, title, alias, tokens, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				rec.ProductID, rec.Slug, rec.Title, name, tokens, now,
			)
			if err != nil {
				return fmt.Errorf("aliasindex: rebuild %s/%s: %w", rec.ProductID, rec.Slug, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aliasindex: commit rebuild: %w", err)
	}
	return nil
}
