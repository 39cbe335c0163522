package feature

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFeaturePath(t *testing.T) {
	got := FeaturePath("/ws", "meal-kit", "otp-checkout")
	want := filepath.Join("/ws", "fledge", "features", "meal-kit", "otp-checkout.json")
	if got != want {
		t.Errorf("FeaturePath = %s, want %s", got, want)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore()

	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	advanceTo(t, rec, PhaseParallelTracks)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 1, 40, cfg)
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}

	if err := fs.Save(root, rec); err != nil {
		t.Fatal(err)
	}
	loaded, err := fs.Load(root, "meal-kit", rec.Slug)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Title != rec.Title || loaded.CurrentPhase != PhaseParallelTracks {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.PhaseHistory) != len(rec.PhaseHistory) {
		t.Errorf("phase history = %d entries, want %d", len(loaded.PhaseHistory), len(rec.PhaseHistory))
	}
	if got := len(loaded.Tracks[TrackContext].Context.Submissions); got != 1 {
		t.Errorf("context submissions = %d, want 1", got)
	}
	if got := loaded.Tracks[TrackEngineering].Engineering.Components; len(got) != 1 || got[0] != "otp-service" {
		t.Errorf("components = %v", got)
	}
}

func TestFileStore_SaveLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore()
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	if err := fs.Save(root, rec); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(ProductPath(root, "meal-kit"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	fs := NewFileStore()
	_, err := fs.Load(t.TempDir(), "meal-kit", "no-such-feature")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveRejectsIncompleteRecord(t *testing.T) {
	fs := NewFileStore()
	if err := fs.Save(t.TempDir(), &FeatureRecord{Slug: "x"}); err == nil {
		t.Error("save without product_id should fail")
	}
}

func TestFileStore_LoadCorruptRecord(t *testing.T) {
	root := t.TempDir()
	dir := ProductPath(root, "meal-kit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore().Load(root, "meal-kit", "broken"); err == nil {
		t.Error("corrupt record should fail to load")
	}
}

func TestFileStore_ListSkipsCorruptRecords(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore()
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	if err := fs.Save(root, rec); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ProductPath(root, "meal-kit"), "broken.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := fs.List(root, "meal-kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Slug != rec.Slug {
		t.Errorf("recs = %+v", recs)
	}
}

func TestFileStore_ListAllSpansProducts(t *testing.T) {
	root := t.TempDir()
	fs := NewFileStore()
	for _, p := range []struct{ title, product string }{
		{"OTP Checkout Recovery", "meal-kit"},
		{"Driver Heatmap", "logistics"},
	} {
		if err := fs.Save(root, NewFeatureRecord(p.title, p.product, "acme", "p2")); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := fs.ListAll(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("recs = %d, want 2", len(recs))
	}
}

func TestFileStore_ListEmptyRoot(t *testing.T) {
	fs := NewFileStore()
	recs, err := fs.ListAll(t.TempDir())
	if err != nil || recs != nil {
		t.Errorf("ListAll on empty root = %v, %v", recs, err)
	}
}

// --- Schema migration ---

func TestMigrate_V1BackfillsAliases(t *testing.T) {
	root := t.TempDir()
	dir := ProductPath(root, "meal-kit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	v1 := []byte(`{
		"schema_version": 1,
		"slug": "otp-checkout-recovery",
		"title": "OTP Checkout Recovery",
		"product_id": "meal-kit",
		"created_at": "2025-01-01T00:00:00Z",
		"updated_at": "2025-01-01T00:00:00Z",
		"current_phase": "parallel_tracks"
	}`)
	if err := os.WriteFile(filepath.Join(dir, "otp-checkout-recovery.json"), v1, 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := NewFileStore().Load(root, "meal-kit", "otp-checkout-recovery")
	if err != nil {
		t.Fatal(err)
	}
	if rec.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", rec.SchemaVersion, CurrentSchemaVersion)
	}
	if len(rec.Aliases) != 1 || rec.Aliases[0] != "OTP Checkout Recovery" {
		t.Errorf("aliases = %v, want the title backfilled", rec.Aliases)
	}
	// normalizeRecord must have repaired the missing collections.
	for _, name := range TrackNames() {
		if rec.Tracks[name] == nil {
			t.Errorf("track %s missing after migration", name)
		}
	}
	if rec.Artifacts == nil || rec.Decisions == nil {
		t.Error("maps not repaired after migration")
	}
}

func TestMigrate_UnversionedTreatedAsV1(t *testing.T) {
	rec := &FeatureRecord{Slug: "x", Title: "X feature"}
	if err := Migrate(rec); err != nil {
		t.Fatal(err)
	}
	if rec.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", rec.SchemaVersion, CurrentSchemaVersion)
	}
	if len(rec.Aliases) != 1 {
		t.Errorf("aliases = %v", rec.Aliases)
	}
}

func TestMigrate_FutureVersionRefused(t *testing.T) {
	rec := &FeatureRecord{Slug: "x", SchemaVersion: CurrentSchemaVersion + 1}
	err := Migrate(rec)
	if err == nil {
		t.Fatal("future schema version should be refused")
	}
	var sve *SchemaVersionError
	if !errors.As(err, &sve) {
		t.Fatalf("error type = %T, want *SchemaVersionError", err)
	}
	if sve.Found != CurrentSchemaVersion+1 || sve.Supported != CurrentSchemaVersion {
		t.Errorf("error = %+v", sve)
	}
}

func TestMigrate_CurrentVersionIsUntouched(t *testing.T) {
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	aliases := len(rec.Aliases)
	if err := Migrate(rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.Aliases) != aliases {
		t.Errorf("migration of a current record changed aliases: %v", rec.Aliases)
	}
}
