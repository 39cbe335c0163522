package feature

// --- Phase state machine ---
//
// The lifecycle is a directed graph with exactly one backward edge:
// decision_gate → parallel_tracks (gate rejection). Everything else
// moves forward, one step at a time. Archived and deferred are terminal
// phases reachable from any non-terminal phase via an explicit operator
// action.

// phaseTransitions is the central transition table. An edge must be
// registered here for AdvancePhase to accept it; there is no other
// path to mutate current_phase.
var phaseTransitions = map[Phase][]Phase{
	PhaseInitialization:   {PhaseSignalAnalysis},
	PhaseSignalAnalysis:   {PhaseContextDoc},
	PhaseContextDoc:       {PhaseParallelTracks},
	PhaseParallelTracks:   {PhaseDecisionGate},
	PhaseDecisionGate:     {PhaseOutputGeneration, PhaseParallelTracks},
	PhaseOutputGeneration: {PhaseComplete},
}

// terminalPhases never transition out. Records in a terminal phase
// retain their full history and are never physically deleted.
var terminalPhases = map[Phase]bool{
	PhaseComplete: true,
	PhaseArchived: true,
	PhaseDeferred: true,
}

// IsTerminal reports whether the phase is terminal.
func IsTerminal(p Phase) bool {
	return terminalPhases[p]
}

// CanTransition reports whether the edge from → to is registered.
// Self-transitions are not edges; AdvancePhase treats them as no-ops.
func CanTransition(from, to Phase) bool {
	if terminalPhases[from] {
		return false
	}
	// Archive/defer are explicit operator exits from any non-terminal phase.
	if to == PhaseArchived || to == PhaseDeferred {
		return true
	}
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the phases reachable from the given phase,
// in a stable order (forward edges first, then archive/defer).
func AllowedTransitions(from Phase) []Phase {
	if terminalPhases[from] {
		return nil
	}
	out := append([]Phase{}, phaseTransitions[from]...)
	return append(out, PhaseArchived, PhaseDeferred)
}

// AdvancePhase moves the feature to the target phase.
//
// Calling it with target == current_phase is a no-op: the record is
// returned unchanged and no history entry is written, so retried
// external calls are idempotent. An unreachable target returns
// *TransitionError and leaves the record untouched. On success the open
// phase_history entry is closed (exited_at = now) and a new entry is
// appended with the given metadata.
func AdvancePhase(rec *FeatureRecord, target Phase, metadata map[string]string) error {
	if err := ValidatePhase(target); err != nil {
		return err
	}
	if target == rec.CurrentPhase {
		return nil
	}
	if !CanTransition(rec.CurrentPhase, target) {
		return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: target}
	}

	now := timeNow().UTC().Format(rfc3339)

	// Close the open history entry. The history is append-only: entries
	// are only ever closed, never rewritten.
	if n := len(rec.PhaseHistory); n > 0 && rec.PhaseHistory[n-1].ExitedAt == "" {
		rec.PhaseHistory[n-1].ExitedAt = now
	}

	rec.PhaseHistory = append(rec.PhaseHistory, PhaseEntry{
		Phase:     target,
		EnteredAt: now,
		Metadata:  metadata,
	})
	rec.CurrentPhase = target
	rec.UpdatedAt = now

	return nil
}

// appendDecision adds an entry to the append-only audit trail.
func appendDecision(rec *FeatureRecord, phase Phase, decision, rationale, decidedBy string, metadata map[string]string) {
	rec.Decisions = append(rec.Decisions, Decision{
		Phase:     phase,
		Decision:  decision,
		Rationale: rationale,
		DecidedBy: decidedBy,
		Timestamp: timeNow().UTC().Format(rfc3339),
		Metadata:  metadata,
	})
	rec.touch()
}
