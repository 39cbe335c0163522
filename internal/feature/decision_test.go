package feature

import (
	"strings"
	"testing"
)

func lastDecision(t *testing.T, rec *FeatureRecord) Decision {
	t.Helper()
	if len(rec.Decisions) == 0 {
		t.Fatal("no decisions recorded")
	}
	return rec.Decisions[len(rec.Decisions)-1]
}

func TestApprove_ReadyFeature(t *testing.T) {
	rec, cfg := readyFeature(t)
	ctrl := NewDecisionController(cfg)

	if err := ctrl.Approve(rec, "all gates green", "vp-product", false); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseOutputGeneration {
		t.Errorf("phase = %s, want output_generation", rec.CurrentPhase)
	}

	dec := lastDecision(t, rec)
	if dec.Decision != "approved" || dec.DecidedBy != "vp-product" || dec.Rationale != "all gates green" {
		t.Errorf("decision = %+v", dec)
	}
	if dec.Metadata != nil {
		t.Errorf("unforced approval should carry no metadata: %v", dec.Metadata)
	}
}

func TestApprove_PassesThroughDecisionGate(t *testing.T) {
	rec, cfg := readyFeature(t)
	if err := NewDecisionController(cfg).Approve(rec, "go", "vp-product", false); err != nil {
		t.Fatal(err)
	}
	// parallel_tracks -> decision_gate -> output_generation, both
	// recorded in the phase history.
	phases := make([]Phase, len(rec.PhaseHistory))
	for i, e := range rec.PhaseHistory {
		phases[i] = e.Phase
	}
	n := len(phases)
	if n < 3 || phases[n-2] != PhaseDecisionGate || phases[n-1] != PhaseOutputGeneration {
		t.Errorf("phase history tail = %v", phases)
	}
}

func TestApprove_NotReadyWithoutForce(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	err := NewDecisionController(cfg).Approve(rec, "ship it", "vp-product", false)
	if err == nil {
		t.Fatal("approval with blockers should fail")
	}
	gateErr, ok := err.(*GateNotReadyError)
	if !ok {
		t.Fatalf("error type = %T, want *GateNotReadyError", err)
	}
	if len(gateErr.Blockers) == 0 {
		t.Error("gate error should carry the blockers")
	}
	if rec.CurrentPhase != PhaseParallelTracks {
		t.Errorf("failed approval moved the phase to %s", rec.CurrentPhase)
	}
	if len(rec.Decisions) != 0 {
		t.Errorf("failed approval recorded a decision: %+v", rec.Decisions)
	}
}

func TestApprove_ForcedRecordsBypassedBlockers(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := NewDecisionController(cfg).Approve(rec, "exec override", "ceo", true); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseOutputGeneration {
		t.Errorf("phase = %s, want output_generation", rec.CurrentPhase)
	}

	dec := lastDecision(t, rec)
	if dec.Metadata["forced"] != "true" {
		t.Errorf("metadata = %v, want forced=true", dec.Metadata)
	}
	bypassed := dec.Metadata["bypassed_blockers"]
	if bypassed == "" || !strings.Contains(bypassed, "[Context]") {
		t.Errorf("bypassed_blockers = %q", bypassed)
	}
}

func TestApprove_ForcedReadyFeatureHasNoMetadata(t *testing.T) {
	rec, cfg := readyFeature(t)
	if err := NewDecisionController(cfg).Approve(rec, "go", "vp-product", true); err != nil {
		t.Fatal(err)
	}
	if md := lastDecision(t, rec).Metadata; md != nil {
		t.Errorf("force on a ready feature recorded metadata: %v", md)
	}
}

func TestApprove_WrongPhase(t *testing.T) {
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	err := NewDecisionController(DefaultGateConfig()).Approve(rec, "go", "vp-product", true)
	if _, ok := err.(*TransitionError); !ok {
		t.Errorf("error = %v, want *TransitionError", err)
	}
}

func TestReject_ReturnsToParallelTracks(t *testing.T) {
	rec, cfg := readyFeature(t)
	advanceTo(t, rec, PhaseDecisionGate)
	before := *rec.Tracks[TrackContext]

	if err := NewDecisionController(cfg).Reject(rec, "business case too thin", "vp-product"); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseParallelTracks {
		t.Errorf("phase = %s, want parallel_tracks", rec.CurrentPhase)
	}
	dec := lastDecision(t, rec)
	if dec.Decision != "rejected" || dec.Rationale != "business case too thin" {
		t.Errorf("decision = %+v", dec)
	}
	if after := rec.Tracks[TrackContext]; after.Status != before.Status || after.Version != before.Version {
		t.Error("rejection modified track state")
	}
}

func TestReject_FromParallelTracksIsRecordOnly(t *testing.T) {
	rec := parallelFeature(t)
	if err := NewDecisionController(DefaultGateConfig()).Reject(rec, "not yet", "vp-product"); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseParallelTracks {
		t.Errorf("phase = %s, want parallel_tracks", rec.CurrentPhase)
	}
	if lastDecision(t, rec).Decision != "rejected" {
		t.Error("rejection not recorded")
	}
}

func TestReject_WrongPhase(t *testing.T) {
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	err := NewDecisionController(DefaultGateConfig()).Reject(rec, "no", "vp-product")
	if _, ok := err.(*TransitionError); !ok {
		t.Errorf("error = %v, want *TransitionError", err)
	}
}

func TestArchive_RecordsDecision(t *testing.T) {
	rec := parallelFeature(t)
	if err := NewDecisionController(DefaultGateConfig()).Archive(rec, "superseded by rewrite", "pm"); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseArchived {
		t.Errorf("phase = %s, want archived", rec.CurrentPhase)
	}
	if lastDecision(t, rec).Decision != "archived" {
		t.Error("archive not recorded in the audit trail")
	}
}

func TestDefer_FromEarlyPhase(t *testing.T) {
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	if err := NewDecisionController(DefaultGateConfig()).Defer(rec, "revisit next quarter", "pm"); err != nil {
		t.Fatal(err)
	}
	if rec.CurrentPhase != PhaseDeferred {
		t.Errorf("phase = %s, want deferred", rec.CurrentPhase)
	}
}

func TestArchive_TerminalFeatureFails(t *testing.T) {
	rec := parallelFeature(t)
	ctrl := NewDecisionController(DefaultGateConfig())
	if err := ctrl.Defer(rec, "later", "pm"); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Archive(rec, "clean up", "pm"); err == nil {
		t.Error("archiving a deferred feature should fail")
	}
}
