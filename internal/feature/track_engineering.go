package feature

import "fmt"

// --- Engineering track ---
//
// Completion requires all of: at least one identified component, no ADR
// left in proposed status, a recorded estimate, and a non-empty
// mitigation on every high-impact risk.

// AddComponent records an identified component. Duplicate names are
// ignored.
func AddComponent(rec *FeatureRecord, name string, actor string, cfg GateConfig) error {
	if name == "" {
		return fmt.Errorf("component name must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return err
	}
	markEngineeringStarted(ts, actor)
	for _, c := range ts.Engineering.Components {
		if c == name {
			return nil
		}
	}
	ts.Engineering.Components = append(ts.Engineering.Components, name)

	recomputeTrack(rec, TrackEngineering, cfg)
	rec.touch()
	return nil
}

// CreateADR captures an Architecture Decision Record on the engineering
// track. The ID is assigned sequentially ("ADR-001", "ADR-002", ...).
// Status defaults to proposed when empty.
func CreateADR(rec *FeatureRecord, title string, status ADRStatus, adrContext, decision, actor string, cfg GateConfig) (*ADR, error) {
	if title == "" {
		return nil, fmt.Errorf("ADR title must not be empty")
	}
	if status == "" {
		status = ADRProposed
	}
	if err := ValidateADRStatus(status); err != nil {
		return nil, err
	}
	if err := trackMutable(rec); err != nil {
		return nil, err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return nil, err
	}
	markEngineeringStarted(ts, actor)

	adr := ADR{
		ID:        fmt.Sprintf("ADR-%03d", len(ts.Engineering.ADRs)+1),
		Title:     title,
		Status:    status,
		Context:   adrContext,
		Decision:  decision,
		CreatedAt: timeNow().UTC().Format(rfc3339),
	}
	ts.Engineering.ADRs = append(ts.Engineering.ADRs, adr)

	recomputeTrack(rec, TrackEngineering, cfg)
	rec.touch()
	return &ts.Engineering.ADRs[len(ts.Engineering.ADRs)-1], nil
}

// SetADRStatus resolves an ADR (proposed → accepted/rejected/...).
func SetADRStatus(rec *FeatureRecord, adrID string, status ADRStatus, cfg GateConfig) error {
	if err := ValidateADRStatus(status); err != nil {
		return err
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return err
	}
	for i, adr := range ts.Engineering.ADRs {
		if adr.ID == adrID {
			ts.Engineering.ADRs[i].Status = status
			ts.Engineering.ADRs[i].UpdatedAt = timeNow().UTC().Format(rfc3339)
			recomputeTrack(rec, TrackEngineering, cfg)
			rec.touch()
			return nil
		}
	}
	return fmt.Errorf("ADR %q not found on feature %q", adrID, rec.Slug)
}

// RecordEstimate records the engineering estimate. Re-recording
// replaces the previous estimate (latest wins).
func RecordEstimate(rec *FeatureRecord, est Estimate, cfg GateConfig) error {
	if est.Effort <= 0 {
		return fmt.Errorf("estimate effort must be positive, got %v", est.Effort)
	}
	if est.Unit == "" {
		return fmt.Errorf("estimate unit must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return err
	}
	markEngineeringStarted(ts, est.RecordedBy)
	est.RecordedAt = timeNow().UTC().Format(rfc3339)
	ts.Engineering.Estimate = &est

	recomputeTrack(rec, TrackEngineering, cfg)
	rec.touch()
	return nil
}

// AddRisk records an engineering risk. High-impact risks without a
// mitigation block the track and the decision gate until mitigated.
func AddRisk(rec *FeatureRecord, description string, impact RiskImpact, mitigation string, cfg GateConfig) error {
	if description == "" {
		return fmt.Errorf("risk description must not be empty")
	}
	if err := ValidateRiskImpact(impact); err != nil {
		return err
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return err
	}
	markEngineeringStarted(ts, "")
	ts.Engineering.Risks = append(ts.Engineering.Risks, Risk{
		Description: description,
		Impact:      impact,
		Mitigation:  mitigation,
		RecordedAt:  timeNow().UTC().Format(rfc3339),
	})

	recomputeTrack(rec, TrackEngineering, cfg)
	rec.touch()
	return nil
}

// MitigateRisk sets the mitigation on an existing risk, addressed by
// its position in the risk list (1-based, matching gate reports).
func MitigateRisk(rec *FeatureRecord, index int, mitigation string, cfg GateConfig) error {
	if mitigation == "" {
		return fmt.Errorf("mitigation must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackEngineering)
	if err != nil {
		return err
	}
	if index < 1 || index > len(ts.Engineering.Risks) {
		return fmt.Errorf("risk %d not found on feature %q (%d risks recorded)", index, rec.Slug, len(ts.Engineering.Risks))
	}
	ts.Engineering.Risks[index-1].Mitigation = mitigation

	recomputeTrack(rec, TrackEngineering, cfg)
	rec.touch()
	return nil
}

// markEngineeringStarted opens the track on its first fact.
func markEngineeringStarted(ts *TrackState, actor string) {
	if ts.StartedAt == "" {
		ts.StartedAt = timeNow().UTC().Format(rfc3339)
		ts.StartedBy = actor
	}
}

// proposedADRs returns ADRs still in proposed status.
func proposedADRs(facts *EngineeringFacts) []ADR {
	var out []ADR
	for _, adr := range facts.ADRs {
		if adr.Status == ADRProposed {
			out = append(out, adr)
		}
	}
	return out
}

// unmitigatedHighRisks returns high-impact risks lacking a mitigation.
func unmitigatedHighRisks(facts *EngineeringFacts) []Risk {
	var out []Risk
	for _, r := range facts.Risks {
		if r.Impact == RiskHigh && r.Mitigation == "" {
			out = append(out, r)
		}
	}
	return out
}

// deriveEngineeringStatus computes the engineering track status:
//
//	no facts, not started                 → not_started
//	unresolved ADRs or unmitigated highs  → blocked (work exists but is gated)
//	components but no estimate            → estimation_pending
//	all completion conditions met         → complete
//	anything else                         → in_progress
func deriveEngineeringStatus(ts *TrackState) TrackStatus {
	facts := ts.Engineering
	hasFacts := facts != nil && (len(facts.Components) > 0 || len(facts.ADRs) > 0 ||
		facts.Estimate != nil || len(facts.Risks) > 0)
	if !hasFacts {
		if ts.StartedAt == "" {
			return StatusNotStarted
		}
		return StatusInProgress
	}

	hasComponents := len(facts.Components) > 0
	hasEstimate := facts.Estimate != nil
	blocked := len(proposedADRs(facts)) > 0 || len(unmitigatedHighRisks(facts)) > 0

	if hasComponents && hasEstimate && !blocked {
		return StatusComplete
	}
	if blocked && hasComponents && hasEstimate {
		return StatusBlocked
	}
	if hasComponents && !hasEstimate {
		return StatusEstimationPending
	}
	return StatusInProgress
}
