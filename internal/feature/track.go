package feature

import "fmt"

// --- Shared track machinery ---
//
// Tracks never store authoritative state beyond their recorded facts.
// Every mutator appends a fact, then recomputes the status via the
// track's derive function. The derived status is cached on TrackState
// for persistence and display, but re-derivation from the same facts
// always yields the same value.

// GateConfig holds the per-product policy knobs consumed by the track
// machines and the quality gate evaluator. It is passed explicitly into
// constructors — there is no process-wide config state.
type GateConfig struct {
	// Minimum challenge scores per context document version.
	ContextDraftThreshold    int
	ContextReviewThreshold   int
	ContextApprovedThreshold int

	// Whether design completion requires a Figma artifact.
	FigmaRequired bool

	// Approvers who must all sign off on the business case.
	RequiredBCApprovers []string

	// Jaccard similarity above which a title is a duplicate candidate.
	DuplicateThreshold float64
}

// DefaultGateConfig returns the policy used when a product has no
// explicit configuration.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ContextDraftThreshold:    0,
		ContextReviewThreshold:   60,
		ContextApprovedThreshold: 85,
		FigmaRequired:            true,
		DuplicateThreshold:       0.6,
	}
}

// contextThreshold returns the minimum challenge score for a context
// document version.
func (c GateConfig) contextThreshold(version int) int {
	switch version {
	case 1:
		return c.ContextDraftThreshold
	case 2:
		return c.ContextReviewThreshold
	default:
		return c.ContextApprovedThreshold
	}
}

// trackMutable guards track mutation after the feature has left the
// working phases: once the decision gate has passed (or the feature is
// terminal), track facts are part of the audit record.
func trackMutable(rec *FeatureRecord) error {
	switch rec.CurrentPhase {
	case PhaseOutputGeneration, PhaseComplete, PhaseArchived, PhaseDeferred:
		return fmt.Errorf("feature %q is in phase %s: tracks can no longer be modified", rec.Slug, rec.CurrentPhase)
	}
	return nil
}

// StartTrack marks a track as started by the given actor. Starting an
// already-started track is a no-op (idempotent for retried calls).
func StartTrack(rec *FeatureRecord, name TrackName, actor string, cfg GateConfig) error {
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(name)
	if err != nil {
		return err
	}
	if ts.StartedAt != "" {
		return nil
	}
	now := timeNow().UTC().Format(rfc3339)
	ts.StartedBy = actor
	ts.StartedAt = now
	recomputeTrack(rec, name, cfg)
	rec.touch()
	return nil
}

// DeriveTrackStatus computes a track's status purely from its recorded
// facts and the product policy. It never reads the stored status.
func DeriveTrackStatus(rec *FeatureRecord, name TrackName, cfg GateConfig) (TrackStatus, error) {
	ts, err := rec.Track(name)
	if err != nil {
		return "", err
	}
	switch name {
	case TrackContext:
		return deriveContextStatus(ts, cfg), nil
	case TrackDesign:
		return deriveDesignStatus(rec, ts, cfg), nil
	case TrackBusinessCase:
		return deriveBusinessStatus(ts, cfg), nil
	case TrackEngineering:
		return deriveEngineeringStatus(ts), nil
	}
	return "", fmt.Errorf("invalid track %q", name)
}

// recomputeTrack refreshes the cached status and bumps the track's
// version counter and timestamp. Called by every mutator after its
// fact has been appended.
func recomputeTrack(rec *FeatureRecord, name TrackName, cfg GateConfig) {
	ts := rec.Tracks[name]
	if ts == nil {
		return
	}
	status, err := DeriveTrackStatus(rec, name, cfg)
	if err != nil {
		return
	}
	ts.Status = status
	ts.Version++
	ts.UpdatedAt = timeNow().UTC().Format(rfc3339)
}

// RefreshTrackStatuses re-derives every track's cached status under the
// given policy. Used after loading a record (thresholds may have
// changed) and after artifact attachment (design reads the artifacts
// map).
func RefreshTrackStatuses(rec *FeatureRecord, cfg GateConfig) {
	for _, name := range TrackNames() {
		ts := rec.Tracks[name]
		if ts == nil {
			continue
		}
		if status, err := DeriveTrackStatus(rec, name, cfg); err == nil {
			ts.Status = status
		}
	}
}

// AttachArtifact adds or replaces an artifact reference on the feature.
// Artifacts are monotonic: add or replace, never implicitly removed.
// Design track status is re-derived because it reads the artifacts map.
func AttachArtifact(rec *FeatureRecord, artifact ArtifactType, ref string, cfg GateConfig) error {
	if err := ValidateArtifactType(artifact); err != nil {
		return err
	}
	if ref == "" {
		return fmt.Errorf("artifact reference must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	rec.Artifacts[artifact] = ref
	recomputeTrack(rec, TrackDesign, cfg)
	rec.touch()
	return nil
}

// AddDependency records an external dependency on the feature.
func AddDependency(rec *FeatureRecord, name string, blocking bool, note string) error {
	if name == "" {
		return fmt.Errorf("dependency name must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	rec.Dependencies = append(rec.Dependencies, Dependency{
		Name:       name,
		Blocking:   blocking,
		Note:       note,
		RecordedAt: timeNow().UTC().Format(rfc3339),
	})
	rec.touch()
	return nil
}
