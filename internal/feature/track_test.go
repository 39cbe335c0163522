package feature

import (
	"strings"
	"testing"
)

// --- Helpers ---

// parallelFeature returns a record sitting in parallel_tracks, where
// track work normally happens.
func parallelFeature(t *testing.T) *FeatureRecord {
	t.Helper()
	rec := NewFeatureRecord("OTP Checkout Recovery", "meal-kit", "acme", "p1")
	advanceTo(t, rec, PhaseParallelTracks)
	return rec
}

func mustSubmitContext(t *testing.T, rec *FeatureRecord, version, score int, cfg GateConfig) {
	t.Helper()
	err := SubmitContextVersion(rec, ContextSubmission{
		Version:        version,
		ChallengeScore: score,
		SubmittedBy:    "ana",
	}, cfg)
	if err != nil {
		t.Fatalf("submitting context v%d: %v", version, err)
	}
}

func trackStatus(t *testing.T, rec *FeatureRecord, name TrackName) TrackStatus {
	t.Helper()
	ts, err := rec.Track(name)
	if err != nil {
		t.Fatal(err)
	}
	return ts.Status
}

// --- StartTrack ---

func TestStartTrack_SetsActorAndDerives(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := StartTrack(rec, TrackContext, "ana", cfg); err != nil {
		t.Fatal(err)
	}
	ts := rec.Tracks[TrackContext]
	if ts.StartedBy != "ana" || ts.StartedAt == "" {
		t.Errorf("track start = %+v", ts)
	}
	if ts.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", ts.Status)
	}
}

func TestStartTrack_Idempotent(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := StartTrack(rec, TrackDesign, "ana", cfg); err != nil {
		t.Fatal(err)
	}
	version := rec.Tracks[TrackDesign].Version
	if err := StartTrack(rec, TrackDesign, "bob", cfg); err != nil {
		t.Fatal(err)
	}
	ts := rec.Tracks[TrackDesign]
	if ts.StartedBy != "ana" {
		t.Errorf("repeat start replaced the actor: %s", ts.StartedBy)
	}
	if ts.Version != version {
		t.Errorf("repeat start bumped version %d -> %d", version, ts.Version)
	}
}

func TestStartTrack_FrozenAfterGate(t *testing.T) {
	rec := parallelFeature(t)
	advanceTo(t, rec, PhaseOutputGeneration)
	err := StartTrack(rec, TrackContext, "ana", DefaultGateConfig())
	if err == nil {
		t.Error("track mutation in output_generation should fail")
	}
}

// --- Context track ---

func TestContextTrack_DraftInProgress(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 1, 40, cfg)
	if got := trackStatus(t, rec, TrackContext); got != StatusInProgress {
		t.Errorf("status after v1 = %s, want in_progress", got)
	}
}

func TestContextTrack_ReviewBelowThresholdPendingChallenge(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 2, 50, cfg) // below the 60 review bar
	if got := trackStatus(t, rec, TrackContext); got != StatusPendingChallenge {
		t.Errorf("status = %s, want pending_challenge", got)
	}
}

func TestContextTrack_FinalVersionBelowApprovedBar(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 3, 80, cfg) // approved bar is 85
	if got := trackStatus(t, rec, TrackContext); got != StatusPendingChallenge {
		t.Errorf("v3 at 80 = %s, want pending_challenge, not complete", got)
	}
}

func TestContextTrack_FinalVersionComplete(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 3, 85, cfg)
	if got := trackStatus(t, rec, TrackContext); got != StatusComplete {
		t.Errorf("v3 at 85 = %s, want complete", got)
	}
}

func TestContextTrack_VersionsNeverGoBackward(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 2, 70, cfg)
	err := SubmitContextVersion(rec, ContextSubmission{Version: 1, ChallengeScore: 90}, cfg)
	if err == nil {
		t.Error("resubmitting a lower version should fail")
	}
}

func TestContextTrack_ResubmitSameVersionAllowed(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 2, 50, cfg)
	mustSubmitContext(t, rec, 2, 75, cfg) // rescored after revision
	if got := trackStatus(t, rec, TrackContext); got != StatusInProgress {
		t.Errorf("status = %s, want in_progress", got)
	}
}

func TestContextTrack_ClosedAfterComplete(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	mustSubmitContext(t, rec, 3, 90, cfg)
	err := SubmitContextVersion(rec, ContextSubmission{Version: 3, ChallengeScore: 95}, cfg)
	if err == nil || !strings.Contains(err.Error(), "complete") {
		t.Errorf("submission after complete = %v", err)
	}
}

func TestContextTrack_RejectsBadInput(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := SubmitContextVersion(rec, ContextSubmission{Version: 4, ChallengeScore: 50}, cfg); err == nil {
		t.Error("version 4 should be rejected")
	}
	if err := SubmitContextVersion(rec, ContextSubmission{Version: 1, ChallengeScore: 101}, cfg); err == nil {
		t.Error("score 101 should be rejected")
	}
}

// --- Design track ---

func TestDesignTrack_SpecAloneInProgress(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := RecordDesignSpec(rec, "confluence:DES-42", "dana", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackDesign); got != StatusInProgress {
		t.Errorf("status = %s, want in_progress", got)
	}
}

func TestDesignTrack_WireframesReady(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AttachArtifact(rec, ArtifactWireframes, "https://wires", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackDesign); got != StatusWireframesReady {
		t.Errorf("status = %s, want wireframes_ready", got)
	}
}

func TestDesignTrack_FigmaAttached(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AttachArtifact(rec, ArtifactFigma, "https://figma/abc", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackDesign); got != StatusFigmaAttached {
		t.Errorf("status = %s, want figma_attached", got)
	}
}

func TestDesignTrack_SpecPlusFigmaComplete(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := RecordDesignSpec(rec, "confluence:DES-42", "dana", cfg); err != nil {
		t.Fatal(err)
	}
	if err := AttachArtifact(rec, ArtifactFigma, "https://figma/abc", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackDesign); got != StatusComplete {
		t.Errorf("status = %s, want complete", got)
	}
}

func TestDesignTrack_FigmaNotRequired(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	cfg.FigmaRequired = false
	if err := RecordDesignSpec(rec, "confluence:DES-42", "dana", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackDesign); got != StatusComplete {
		t.Errorf("status with figma_required=false = %s, want complete", got)
	}
}

// --- AttachArtifact ---

func TestAttachArtifact_ReplacesSameType(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AttachArtifact(rec, ArtifactJiraEpic, "PROJ-1", cfg); err != nil {
		t.Fatal(err)
	}
	if err := AttachArtifact(rec, ArtifactJiraEpic, "PROJ-2", cfg); err != nil {
		t.Fatal(err)
	}
	if rec.Artifacts[ArtifactJiraEpic] != "PROJ-2" {
		t.Errorf("artifact = %s, want PROJ-2", rec.Artifacts[ArtifactJiraEpic])
	}
}

func TestAttachArtifact_UnknownType(t *testing.T) {
	rec := parallelFeature(t)
	if err := AttachArtifact(rec, ArtifactType("miro"), "ref", DefaultGateConfig()); err == nil {
		t.Error("unknown artifact type should fail")
	}
}

// --- Business case track ---

func rosterConfig(approvers ...string) GateConfig {
	cfg := DefaultGateConfig()
	cfg.RequiredBCApprovers = approvers
	return cfg
}

func TestBusinessTrack_SubmittedPendingApproval(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya", "tomas")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", got)
	}
}

func TestBusinessTrack_PartialApprovalsStillPending(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya", "tomas")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordApproval(rec, "maya", true, "", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusPendingApproval {
		t.Errorf("one of two approvals = %s, want pending_approval", got)
	}
}

func TestBusinessTrack_AllApproved(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya", "tomas")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	for _, a := range []string{"maya", "tomas"} {
		if err := RecordApproval(rec, a, true, "", cfg); err != nil {
			t.Fatal(err)
		}
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusApproved {
		t.Errorf("status = %s, want approved", got)
	}
}

func TestBusinessTrack_DissentRejects(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya", "tomas")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordApproval(rec, "maya", true, "", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordApproval(rec, "tomas", false, "ROI unclear", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusRejected {
		t.Errorf("status with dissent = %s, want rejected", got)
	}
}

func TestBusinessTrack_ChangedMindReplacesVerdict(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordApproval(rec, "maya", false, "not yet", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordApproval(rec, "maya", true, "revised numbers look good", cfg); err != nil {
		t.Fatal(err)
	}
	ts := rec.Tracks[TrackBusinessCase]
	if len(ts.Business.Approvals) != 1 {
		t.Fatalf("approvals = %d, want 1 (replaced)", len(ts.Business.Approvals))
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusApproved {
		t.Errorf("status = %s, want approved", got)
	}
}

func TestBusinessTrack_UnknownApprover(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya")
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	err := RecordApproval(rec, "intruder", true, "", cfg)
	if err == nil {
		t.Fatal("off-roster approver should fail")
	}
	if _, ok := err.(*UnknownApproverError); !ok {
		t.Errorf("error type = %T, want *UnknownApproverError", err)
	}
}

func TestBusinessTrack_ApprovalRequiresSubmittedCase(t *testing.T) {
	rec := parallelFeature(t)
	cfg := rosterConfig("maya")
	if err := RecordApproval(rec, "maya", true, "", cfg); err == nil {
		t.Error("approval before submission should fail")
	}
}

func TestBusinessTrack_EmptyRosterApprovesOnSubmission(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig() // no roster configured
	if err := SubmitBusinessCase(rec, "gdocs:BC-7", "maya", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackBusinessCase); got != StatusApproved {
		t.Errorf("status with empty roster = %s, want approved", got)
	}
}

// --- Engineering track ---

func TestEngineeringTrack_ComponentsWithoutEstimate(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusEstimationPending {
		t.Errorf("status = %s, want estimation_pending", got)
	}
}

func TestEngineeringTrack_ComponentsAndEstimateComplete(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordEstimate(rec, Estimate{Effort: 8, Unit: "story_points", RecordedBy: "lee"}, cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusComplete {
		t.Errorf("status = %s, want complete", got)
	}
}

func TestEngineeringTrack_ProposedADRBlocks(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordEstimate(rec, Estimate{Effort: 8, Unit: "story_points"}, cfg); err != nil {
		t.Fatal(err)
	}
	adr, err := CreateADR(rec, "Use SMS provider X", "", "provider choice", "X for latency", "lee", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusBlocked {
		t.Errorf("status with proposed ADR = %s, want blocked", got)
	}

	if err := SetADRStatus(rec, adr.ID, ADRAccepted, cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusComplete {
		t.Errorf("status after ADR accepted = %s, want complete", got)
	}
}

func TestEngineeringTrack_ADRIDsSequential(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	first, err := CreateADR(rec, "First", ADRAccepted, "", "", "lee", cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CreateADR(rec, "Second", ADRAccepted, "", "", "lee", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != "ADR-001" || second.ID != "ADR-002" {
		t.Errorf("ADR IDs = %s, %s", first.ID, second.ID)
	}
}

func TestEngineeringTrack_UnmitigatedHighRiskBlocks(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordEstimate(rec, Estimate{Effort: 8, Unit: "story_points"}, cfg); err != nil {
		t.Fatal(err)
	}
	if err := AddRisk(rec, "SMS provider outage", RiskHigh, "", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusBlocked {
		t.Errorf("status = %s, want blocked", got)
	}

	if err := MitigateRisk(rec, 1, "fallback to voice call", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusComplete {
		t.Errorf("status after mitigation = %s, want complete", got)
	}
}

func TestEngineeringTrack_LowRiskNeverBlocks(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if err := RecordEstimate(rec, Estimate{Effort: 8, Unit: "story_points"}, cfg); err != nil {
		t.Fatal(err)
	}
	if err := AddRisk(rec, "copy needs review", RiskLow, "", cfg); err != nil {
		t.Fatal(err)
	}
	if got := trackStatus(t, rec, TrackEngineering); got != StatusComplete {
		t.Errorf("status = %s, want complete", got)
	}
}

func TestEngineeringTrack_DuplicateComponentIgnored(t *testing.T) {
	rec := parallelFeature(t)
	cfg := DefaultGateConfig()
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if err := AddComponent(rec, "otp-service", "lee", cfg); err != nil {
		t.Fatal(err)
	}
	if got := len(rec.Tracks[TrackEngineering].Engineering.Components); got != 1 {
		t.Errorf("components = %d, want 1", got)
	}
}

func TestEngineeringTrack_MitigateRiskOutOfRange(t *testing.T) {
	rec := parallelFeature(t)
	if err := MitigateRisk(rec, 1, "whatever", DefaultGateConfig()); err == nil {
		t.Error("mitigating a nonexistent risk should fail")
	}
}

// --- Dependencies ---

func TestAddDependency_Recorded(t *testing.T) {
	rec := parallelFeature(t)
	if err := AddDependency(rec, "payments-api v2", true, "needs the new refund endpoint"); err != nil {
		t.Fatal(err)
	}
	if len(rec.Dependencies) != 1 || !rec.Dependencies[0].Blocking {
		t.Errorf("Dependencies = %+v", rec.Dependencies)
	}
}
