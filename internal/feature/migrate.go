package feature

// --- Schema migrations ---
//
// Records carry a schema_version. Load migrates older versions in
// memory, one step at a time; the on-disk file is only rewritten on the
// next Save. A version newer than this build understands is a fatal
// load error — the engine never guesses at unknown fields.

// CurrentSchemaVersion is the schema version written by this build.
//
// History:
//
//	1: initial record format (no aliases, no organization)
//	2: adds the aliases set and the organization field
const CurrentSchemaVersion = 2

// migrations maps a source version to the in-memory step that lifts a
// record to the next version.
var migrations = map[int]func(*FeatureRecord){
	1: migrateV1toV2,
}

// Migrate lifts a record to the current schema version in memory.
func Migrate(rec *FeatureRecord) error {
	// Version 0 means the field predates versioning, which is the v1 format.
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = 1
	}
	if rec.SchemaVersion > CurrentSchemaVersion {
		return &SchemaVersionError{Slug: rec.Slug, Found: rec.SchemaVersion, Supported: CurrentSchemaVersion}
	}

	for rec.SchemaVersion < CurrentSchemaVersion {
		step, ok := migrations[rec.SchemaVersion]
		if !ok {
			return &SchemaVersionError{Slug: rec.Slug, Found: rec.SchemaVersion, Supported: CurrentSchemaVersion}
		}
		step(rec)
		rec.SchemaVersion++
	}

	normalizeRecord(rec)
	return nil
}

// migrateV1toV2 backfills the aliases set from the title. Organization
// stays empty — v1 records had no organization to recover.
func migrateV1toV2(rec *FeatureRecord) {
	if rec.Aliases == nil {
		rec.Aliases = []string{}
	}
	rec.AddAlias(rec.Title)
}

// normalizeRecord repairs nil collections so the rest of the engine can
// assume the four track keys and the maps always exist.
func normalizeRecord(rec *FeatureRecord) {
	if rec.Tracks == nil {
		rec.Tracks = map[TrackName]*TrackState{}
	}
	for _, name := range TrackNames() {
		ts, ok := rec.Tracks[name]
		if !ok || ts == nil {
			ts = &TrackState{Status: StatusNotStarted}
			rec.Tracks[name] = ts
		}
		switch name {
		case TrackContext:
			if ts.Context == nil {
				ts.Context = &ContextFacts{}
			}
		case TrackDesign:
			if ts.Design == nil {
				ts.Design = &DesignFacts{}
			}
		case TrackBusinessCase:
			if ts.Business == nil {
				ts.Business = &BusinessFacts{}
			}
		case TrackEngineering:
			if ts.Engineering == nil {
				ts.Engineering = &EngineeringFacts{}
			}
		}
	}
	if rec.Artifacts == nil {
		rec.Artifacts = map[ArtifactType]string{}
	}
	if rec.Decisions == nil {
		rec.Decisions = []Decision{}
	}
	if rec.Aliases == nil {
		rec.Aliases = []string{}
	}
	if rec.PhaseHistory == nil {
		rec.PhaseHistory = []PhaseEntry{}
	}
}
