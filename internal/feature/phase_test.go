package feature

import "testing"

// --- Helper ---

// advanceTo walks a record forward to the target phase, starting from
// wherever on the forward path the record currently sits.
func advanceTo(t *testing.T, rec *FeatureRecord, target Phase) {
	t.Helper()
	path := []Phase{PhaseSignalAnalysis, PhaseContextDoc, PhaseParallelTracks,
		PhaseDecisionGate, PhaseOutputGeneration, PhaseComplete}
	start := 0
	for i, p := range path {
		if p == rec.CurrentPhase {
			start = i + 1
			break
		}
	}
	for _, p := range path[start:] {
		if rec.CurrentPhase == target {
			return
		}
		if err := AdvancePhase(rec, p, nil); err != nil {
			t.Fatalf("advancing to %s: %v", p, err)
		}
	}
	if rec.CurrentPhase != target {
		t.Fatalf("could not reach %s", target)
	}
}

// --- Transitions ---

func TestAdvancePhase_ForwardChain(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	advanceTo(t, rec, PhaseComplete)

	if len(rec.PhaseHistory) != 7 {
		t.Errorf("PhaseHistory length = %d, want 7", len(rec.PhaseHistory))
	}
	// Every entry except the last must be closed.
	for i, entry := range rec.PhaseHistory[:len(rec.PhaseHistory)-1] {
		if entry.ExitedAt == "" {
			t.Errorf("entry %d (%s) not closed", i, entry.Phase)
		}
	}
	if last := rec.PhaseHistory[len(rec.PhaseHistory)-1]; last.ExitedAt != "" {
		t.Errorf("final entry should remain open, got exited_at=%s", last.ExitedAt)
	}
}

func TestAdvancePhase_SkippingFails(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	err := AdvancePhase(rec, PhaseParallelTracks, nil)
	if err == nil {
		t.Fatal("skipping phases should fail")
	}
	te, ok := err.(*TransitionError)
	if !ok {
		t.Fatalf("error type = %T, want *TransitionError", err)
	}
	if te.From != PhaseInitialization || te.To != PhaseParallelTracks {
		t.Errorf("TransitionError = %+v", te)
	}
	// The record must be untouched.
	if rec.CurrentPhase != PhaseInitialization || len(rec.PhaseHistory) != 1 {
		t.Errorf("failed transition mutated the record: phase=%s history=%d",
			rec.CurrentPhase, len(rec.PhaseHistory))
	}
}

func TestAdvancePhase_SelfIsNoOp(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	before := len(rec.PhaseHistory)
	if err := AdvancePhase(rec, PhaseInitialization, nil); err != nil {
		t.Fatalf("self transition: %v", err)
	}
	if len(rec.PhaseHistory) != before {
		t.Errorf("self transition wrote a history entry")
	}
}

func TestAdvancePhase_BackwardEdgeFromDecisionGate(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	advanceTo(t, rec, PhaseDecisionGate)
	if err := AdvancePhase(rec, PhaseParallelTracks, nil); err != nil {
		t.Fatalf("gate rejection edge: %v", err)
	}
	if rec.CurrentPhase != PhaseParallelTracks {
		t.Errorf("CurrentPhase = %s", rec.CurrentPhase)
	}
}

func TestAdvancePhase_NoOtherBackwardEdges(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	advanceTo(t, rec, PhaseParallelTracks)
	if err := AdvancePhase(rec, PhaseSignalAnalysis, nil); err == nil {
		t.Error("moving backward outside the gate edge should fail")
	}
}

func TestAdvancePhase_ArchiveFromAnyNonTerminal(t *testing.T) {
	for _, from := range []Phase{PhaseInitialization, PhaseSignalAnalysis,
		PhaseContextDoc, PhaseParallelTracks, PhaseDecisionGate, PhaseOutputGeneration} {
		rec := NewFeatureRecord("Feature", "p", "", "")
		advanceTo(t, rec, from)
		if err := AdvancePhase(rec, PhaseArchived, nil); err != nil {
			t.Errorf("archive from %s: %v", from, err)
		}
	}
}

func TestAdvancePhase_TerminalPhasesAreFinal(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	advanceTo(t, rec, PhaseParallelTracks)
	if err := AdvancePhase(rec, PhaseDeferred, nil); err != nil {
		t.Fatalf("defer: %v", err)
	}
	for _, target := range []Phase{PhaseParallelTracks, PhaseArchived, PhaseComplete} {
		if err := AdvancePhase(rec, target, nil); err == nil {
			t.Errorf("transition %s -> %s should fail", PhaseDeferred, target)
		}
	}
}

func TestAdvancePhase_MetadataRecorded(t *testing.T) {
	rec := NewFeatureRecord("Feature", "p", "", "")
	meta := map[string]string{"reason": "signal confirmed"}
	if err := AdvancePhase(rec, PhaseSignalAnalysis, meta); err != nil {
		t.Fatal(err)
	}
	last := rec.PhaseHistory[len(rec.PhaseHistory)-1]
	if last.Metadata["reason"] != "signal confirmed" {
		t.Errorf("Metadata = %v", last.Metadata)
	}
}

// --- CanTransition / AllowedTransitions ---

func TestCanTransition_TerminalNeverExits(t *testing.T) {
	for _, from := range []Phase{PhaseComplete, PhaseArchived, PhaseDeferred} {
		if CanTransition(from, PhaseArchived) {
			t.Errorf("CanTransition(%s, archived) = true", from)
		}
	}
}

func TestAllowedTransitions_DecisionGate(t *testing.T) {
	got := AllowedTransitions(PhaseDecisionGate)
	want := []Phase{PhaseOutputGeneration, PhaseParallelTracks, PhaseArchived, PhaseDeferred}
	if len(got) != len(want) {
		t.Fatalf("AllowedTransitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedTransitions[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAllowedTransitions_Terminal(t *testing.T) {
	if got := AllowedTransitions(PhaseComplete); got != nil {
		t.Errorf("AllowedTransitions(complete) = %v, want nil", got)
	}
}
