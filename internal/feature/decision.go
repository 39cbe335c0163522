package feature

import (
	"fmt"
	"strings"
)

// --- Decision gate ---
//
// The decision gate aggregates the four track gates plus two
// cross-cutting checks into a single go/no-go outcome, appends the
// outcome to the audit trail, and drives the phase machine.

// DecisionStatus is the aggregate readiness verdict.
type DecisionStatus string

const (
	DecisionReady    DecisionStatus = "ready"
	DecisionNotReady DecisionStatus = "not_ready"
)

// DecisionResult is the outcome of validating a feature against the
// decision gate. Blockers are ordered: context, design, business case,
// engineering, then cross-cutting feature checks.
type DecisionResult struct {
	Status       DecisionStatus    `json:"status"`
	Blockers     []string          `json:"blockers,omitempty"`
	TrackResults []TrackGateResult `json:"track_results"`
}

// DecisionController evaluates and records go/no-go decisions under an
// explicit product policy.
type DecisionController struct {
	eval *GateEvaluator
}

// NewDecisionController creates a DecisionController with the given policy.
func NewDecisionController(cfg GateConfig) *DecisionController {
	return &DecisionController{eval: NewGateEvaluator(cfg)}
}

// Validate computes the four per-track gate results plus the
// cross-cutting checks: zero blocking dependencies and zero high-impact
// risks lacking mitigation. Ready iff all six inputs pass.
func (d *DecisionController) Validate(rec *FeatureRecord) DecisionResult {
	result := DecisionResult{Status: DecisionReady}

	result.TrackResults = d.eval.EvaluateAll(rec)
	for _, tr := range result.TrackResults {
		result.Blockers = append(result.Blockers, tr.Blockers...)
	}

	for _, dep := range rec.Dependencies {
		if dep.Blocking {
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("[Feature] Blocking dependency: %s", dep.Name))
		}
	}
	if eng := rec.Tracks[TrackEngineering]; eng != nil && eng.Engineering != nil {
		for _, r := range unmitigatedHighRisks(eng.Engineering) {
			result.Blockers = append(result.Blockers,
				fmt.Sprintf("[Feature] High-impact risk lacks mitigation: %s", r.Description))
		}
	}

	if len(result.Blockers) > 0 {
		result.Status = DecisionNotReady
	}
	return result
}

// Approve records a go decision and advances the feature from
// parallel_tracks through decision_gate to output_generation as one
// atomic pair — both transitions are checked before either is applied.
//
// Without force, approval fails with *GateNotReadyError while
// validation has blockers. A forced approval still appends the decision
// but records in its metadata that gate validation was bypassed,
// together with the blockers that stood at the time — the audit trail
// is never silent about an override, and historical blockers are
// preserved rather than cleared.
func (d *DecisionController) Approve(rec *FeatureRecord, reason, actor string, force bool) error {
	validation := d.Validate(rec)
	if validation.Status == DecisionNotReady && !force {
		return &GateNotReadyError{Slug: rec.Slug, Blockers: validation.Blockers}
	}

	// Check both edges before mutating anything.
	switch rec.CurrentPhase {
	case PhaseParallelTracks:
		if !CanTransition(PhaseParallelTracks, PhaseDecisionGate) ||
			!CanTransition(PhaseDecisionGate, PhaseOutputGeneration) {
			return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseOutputGeneration}
		}
	case PhaseDecisionGate:
		if !CanTransition(PhaseDecisionGate, PhaseOutputGeneration) {
			return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseOutputGeneration}
		}
	default:
		return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseOutputGeneration}
	}

	var metadata map[string]string
	if force && validation.Status == DecisionNotReady {
		metadata = map[string]string{
			"forced":            "true",
			"bypassed_blockers": strings.Join(validation.Blockers, "; "),
		}
	}
	appendDecision(rec, PhaseDecisionGate, "approved", reason, actor, metadata)

	if rec.CurrentPhase == PhaseParallelTracks {
		if err := AdvancePhase(rec, PhaseDecisionGate, nil); err != nil {
			return err
		}
	}
	return AdvancePhase(rec, PhaseOutputGeneration, map[string]string{"decision": "approved"})
}

// Reject records a no-go decision and returns the feature to
// parallel_tracks so work can resume. Track state is left untouched —
// nothing needs to be re-entered. Rejecting while already in
// parallel_tracks appends the decision without a phase transition.
func (d *DecisionController) Reject(rec *FeatureRecord, reason, actor string) error {
	switch rec.CurrentPhase {
	case PhaseParallelTracks, PhaseDecisionGate:
	default:
		return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseParallelTracks}
	}

	appendDecision(rec, PhaseDecisionGate, "rejected", reason, actor, nil)

	if rec.CurrentPhase == PhaseDecisionGate {
		return AdvancePhase(rec, PhaseParallelTracks, map[string]string{"decision": "rejected"})
	}
	return nil
}

// Archive moves the feature to the archived terminal phase via an
// explicit operator action, recording the decision.
func (d *DecisionController) Archive(rec *FeatureRecord, reason, actor string) error {
	if !CanTransition(rec.CurrentPhase, PhaseArchived) {
		return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseArchived}
	}
	appendDecision(rec, rec.CurrentPhase, "archived", reason, actor, nil)
	return AdvancePhase(rec, PhaseArchived, map[string]string{"decision": "archived"})
}

// Defer moves the feature to the deferred terminal phase via an
// explicit operator action, recording the decision.
func (d *DecisionController) Defer(rec *FeatureRecord, reason, actor string) error {
	if !CanTransition(rec.CurrentPhase, PhaseDeferred) {
		return &TransitionError{Slug: rec.Slug, From: rec.CurrentPhase, To: PhaseDeferred}
	}
	appendDecision(rec, rec.CurrentPhase, "deferred", reason, actor, nil)
	return AdvancePhase(rec, PhaseDeferred, map[string]string{"decision": "deferred"})
}
