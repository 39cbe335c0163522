package feature

import (
	"fmt"
	"strings"
)

// --- Quality gates ---
//
// Each track has an ordered list of named checks evaluated against the
// track's recorded facts and the product policy. Check levels:
// blocking and required checks must pass for the track gate to pass;
// advisory checks are reported but never block.

// GateLevel classifies how a failing check affects the gate outcome.
type GateLevel string

const (
	LevelBlocking GateLevel = "blocking"
	LevelRequired GateLevel = "required"
	LevelAdvisory GateLevel = "advisory"
)

// GateStatus is the aggregate outcome of a track's checks.
type GateStatus string

const (
	GatePass       GateStatus = "pass"
	GateIncomplete GateStatus = "incomplete"
)

// GateCheck is one named check result with its supporting evidence.
type GateCheck struct {
	Name     string    `json:"name"`
	Level    GateLevel `json:"level"`
	Passed   bool      `json:"passed"`
	Evidence string    `json:"evidence"`
}

// TrackGateResult aggregates a track's checks. Blockers carries the
// failure messages of blocking/required checks, in check order, each
// prefixed with the track's display name.
type TrackGateResult struct {
	Track    TrackName   `json:"track"`
	Status   GateStatus  `json:"status"`
	Checks   []GateCheck `json:"checks"`
	Blockers []string    `json:"blockers,omitempty"`
}

// GateEvaluator evaluates quality gates under an explicit product
// policy. Construct one per product configuration.
type GateEvaluator struct {
	cfg GateConfig
}

// NewGateEvaluator creates a GateEvaluator with the given policy.
func NewGateEvaluator(cfg GateConfig) *GateEvaluator {
	return &GateEvaluator{cfg: cfg}
}

// EvaluateAll evaluates every track gate in the canonical report order
// (context, design, business case, engineering) for a stable,
// reproducible report.
func (g *GateEvaluator) EvaluateAll(rec *FeatureRecord) []TrackGateResult {
	results := make([]TrackGateResult, 0, 4)
	for _, name := range TrackNames() {
		results = append(results, g.EvaluateTrack(rec, name))
	}
	return results
}

// EvaluateTrack evaluates the named track's checks and aggregates them:
// pass iff every blocking and required check passed.
func (g *GateEvaluator) EvaluateTrack(rec *FeatureRecord, name TrackName) TrackGateResult {
	var checks []GateCheck
	switch name {
	case TrackContext:
		checks = g.contextChecks(rec)
	case TrackDesign:
		checks = g.designChecks(rec)
	case TrackBusinessCase:
		checks = g.businessChecks(rec)
	case TrackEngineering:
		checks = g.engineeringChecks(rec)
	}

	result := TrackGateResult{Track: name, Status: GatePass, Checks: checks}
	for _, c := range checks {
		if c.Passed || c.Level == LevelAdvisory {
			continue
		}
		result.Status = GateIncomplete
		result.Blockers = append(result.Blockers, fmt.Sprintf("[%s] %s", name.DisplayName(), c.Evidence))
	}
	return result
}

// --- Per-track check lists ---

func (g *GateEvaluator) contextChecks(rec *FeatureRecord) []GateCheck {
	ts := rec.Tracks[TrackContext]
	latest := latestContextSubmission(ts.Context)

	started := GateCheck{Name: "context_started", Level: LevelRequired, Passed: true,
		Evidence: "Context document work has started"}
	if latest == nil && ts.StartedAt == "" {
		started.Passed = false
		started.Evidence = "Context track not started"
	}

	finalVersion := GateCheck{Name: "context_final_version", Level: LevelRequired}
	if latest != nil && latest.Version == maxContextVersion {
		finalVersion.Passed = true
		finalVersion.Evidence = fmt.Sprintf("Context document v%d submitted", latest.Version)
	} else if latest != nil {
		finalVersion.Evidence = fmt.Sprintf("Context document at v%d, v%d required", latest.Version, maxContextVersion)
	} else {
		finalVersion.Evidence = "No context document submitted"
	}

	score := GateCheck{Name: "context_challenge_score", Level: LevelBlocking}
	if latest == nil {
		score.Evidence = "No challenge score recorded"
	} else {
		threshold := g.cfg.contextThreshold(latest.Version)
		if latest.ChallengeScore >= threshold {
			score.Passed = true
			score.Evidence = fmt.Sprintf("Challenge score %d meets v%d threshold %d",
				latest.ChallengeScore, latest.Version, threshold)
		} else {
			score.Evidence = fmt.Sprintf("Challenge score %d below v%d threshold %d",
				latest.ChallengeScore, latest.Version, threshold)
		}
	}

	return []GateCheck{started, finalVersion, score}
}

func (g *GateEvaluator) designChecks(rec *FeatureRecord) []GateCheck {
	ts := rec.Tracks[TrackDesign]
	_, hasFigma := rec.Artifacts[ArtifactFigma]
	_, hasWireframes := rec.Artifacts[ArtifactWireframes]
	hasSpec := ts.Design != nil && ts.Design.SpecDocRef != ""

	spec := GateCheck{Name: "design_spec_document", Level: LevelRequired, Passed: hasSpec}
	if hasSpec {
		spec.Evidence = fmt.Sprintf("Design spec recorded: %s", ts.Design.SpecDocRef)
	} else {
		spec.Evidence = "Design spec document missing"
	}

	figma := GateCheck{Name: "design_figma_artifact", Level: LevelRequired}
	switch {
	case hasFigma:
		figma.Passed = true
		figma.Evidence = fmt.Sprintf("Figma artifact attached: %s", rec.Artifacts[ArtifactFigma])
	case !g.cfg.FigmaRequired:
		figma.Passed = true
		figma.Evidence = "Figma artifact not required for this product"
	default:
		figma.Evidence = "Figma artifact missing"
	}

	wireframes := GateCheck{Name: "design_wireframes", Level: LevelAdvisory, Passed: hasWireframes}
	if hasWireframes {
		wireframes.Evidence = fmt.Sprintf("Wireframes attached: %s", rec.Artifacts[ArtifactWireframes])
	} else {
		wireframes.Evidence = "No wireframes attached (advisory)"
	}

	return []GateCheck{spec, figma, wireframes}
}

func (g *GateEvaluator) businessChecks(rec *FeatureRecord) []GateCheck {
	ts := rec.Tracks[TrackBusinessCase]
	facts := ts.Business

	submitted := GateCheck{Name: "bc_submitted", Level: LevelRequired,
		Passed: facts != nil && facts.CaseDocRef != ""}
	if submitted.Passed {
		submitted.Evidence = fmt.Sprintf("Business case submitted: %s", facts.CaseDocRef)
	} else {
		submitted.Evidence = "Business case not submitted"
	}

	noDissent := GateCheck{Name: "bc_no_dissent", Level: LevelBlocking, Passed: true,
		Evidence: "No dissenting approvals"}
	if facts != nil {
		if d := dissenters(facts); len(d) > 0 {
			noDissent.Passed = false
			noDissent.Evidence = fmt.Sprintf("Business case rejected by: %s", joinNames(d))
		}
	}

	approvals := GateCheck{Name: "bc_approvals", Level: LevelRequired}
	roster := g.cfg.RequiredBCApprovers
	if facts == nil || facts.CaseDocRef == "" {
		approvals.Evidence = "Approvals pending business case submission"
	} else if missing := missingApprovers(facts, roster); len(missing) > 0 {
		approvals.Evidence = fmt.Sprintf("Awaiting approval from: %s", joinNames(missing))
	} else {
		approvals.Passed = true
		approvals.Evidence = fmt.Sprintf("All %d required approvals recorded", len(roster))
	}

	return []GateCheck{submitted, noDissent, approvals}
}

func (g *GateEvaluator) engineeringChecks(rec *FeatureRecord) []GateCheck {
	ts := rec.Tracks[TrackEngineering]
	facts := ts.Engineering
	if facts == nil {
		facts = &EngineeringFacts{}
	}

	components := GateCheck{Name: "eng_components", Level: LevelRequired,
		Passed: len(facts.Components) > 0}
	if components.Passed {
		components.Evidence = fmt.Sprintf("%d component(s) identified", len(facts.Components))
	} else {
		components.Evidence = "No components identified"
	}

	adrs := GateCheck{Name: "eng_adrs_resolved", Level: LevelRequired, Passed: true,
		Evidence: "All ADRs resolved"}
	if proposed := proposedADRs(facts); len(proposed) > 0 {
		ids := make([]string, len(proposed))
		for i, adr := range proposed {
			ids[i] = adr.ID
		}
		adrs.Passed = false
		adrs.Evidence = fmt.Sprintf("ADRs still proposed: %s", joinNames(ids))
	}

	estimate := GateCheck{Name: "eng_estimate", Level: LevelRequired,
		Passed: facts.Estimate != nil}
	if estimate.Passed {
		estimate.Evidence = fmt.Sprintf("Estimate recorded: %v %s", facts.Estimate.Effort, facts.Estimate.Unit)
	} else {
		estimate.Evidence = "Estimate not provided"
	}

	risks := GateCheck{Name: "eng_risk_mitigation", Level: LevelBlocking, Passed: true,
		Evidence: "All high-impact risks mitigated"}
	if unmitigated := unmitigatedHighRisks(facts); len(unmitigated) > 0 {
		risks.Passed = false
		risks.Evidence = fmt.Sprintf("%d high-impact risk(s) lack mitigation: %s",
			len(unmitigated), unmitigated[0].Description)
	}

	return []GateCheck{components, adrs, estimate, risks}
}

// joinNames joins a short name list for evidence strings.
func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
