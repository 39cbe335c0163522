// Package lifecycle wires the feature state machines, the gate
// evaluator and the persistence store into the operations the tool
// surface exposes. Every operation is load, mutate, persist: the engine
// holds no per-feature state between calls, so the record on disk is
// always the complete picture.
package lifecycle

import (
	"errors"
	"fmt"
	"log"

	"github.com/fledgehq/fledge/internal/config"
	"github.com/fledgehq/fledge/internal/feature"
)

// Engine executes lifecycle operations against a workspace. Collaborators
// (alias index, output generator, brain mirror, observer) are optional;
// a nil collaborator disables that side effect.
type Engine struct {
	store    feature.Store
	index    AliasIndex
	output   OutputGenerator
	brain    BrainEntityCreator
	observer FeatureObserver
}

// NewEngine creates an engine over the given record store.
func NewEngine(store feature.Store) *Engine {
	return &Engine{store: store}
}

// SetAliasIndex attaches the duplicate-detection index.
func (e *Engine) SetAliasIndex(idx AliasIndex) { e.index = idx }

// SetOutputGenerator attaches the post-approval output generator.
func (e *Engine) SetOutputGenerator(gen OutputGenerator) { e.output = gen }

// SetBrainEntityCreator attaches the knowledge-store mirror.
func (e *Engine) SetBrainEntityCreator(b BrainEntityCreator) { e.brain = b }

// SetObserver attaches the persistence observer.
func (e *Engine) SetObserver(obs FeatureObserver) { e.observer = obs }

// --- feature creation ---

// StartFeatureRequest carries the inputs of feature creation.
type StartFeatureRequest struct {
	Title        string
	ProductID    string
	Organization string
	Priority     string
	Aliases      []string

	// ConfirmDuplicate creates the feature even when similar titles
	// exist in the product.
	ConfirmDuplicate bool
}

// StartFeature creates a new feature record in its initial phase. When
// existing features of the product have similar titles and the request
// does not confirm the duplicate, it fails with a
// *feature.DuplicateCandidateError listing them.
func (e *Engine) StartFeature(root string, req StartFeatureRequest) (*feature.FeatureRecord, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.ProductID == "" {
		return nil, fmt.Errorf("product_id is required")
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	gc := cfg.GateConfig(req.ProductID)

	candidates, err := e.findDuplicates(root, req.ProductID, req.Title, gc.DuplicateThreshold)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 && !req.ConfirmDuplicate {
		return nil, &feature.DuplicateCandidateError{
			Title:      req.Title,
			ProductID:  req.ProductID,
			Candidates: candidates,
		}
	}

	org := req.Organization
	if org == "" {
		org = cfg.Organization
	}

	rec := feature.NewFeatureRecord(req.Title, req.ProductID, org, req.Priority)
	for _, alias := range req.Aliases {
		rec.AddAlias(alias)
	}
	if err := e.reserveSlug(root, rec); err != nil {
		return nil, err
	}

	if e.brain != nil {
		ref, err := e.brain.CreateEntity(rec)
		if err != nil {
			log.Printf("WARNING: brain entity creation failed for %s/%s: %v", rec.ProductID, rec.Slug, err)
		} else {
			rec.BrainRef = ref
		}
	}

	if err := e.store.Save(root, rec); err != nil {
		return nil, err
	}
	if e.index != nil {
		if err := e.index.Register(rec.ProductID, rec.Slug, rec.Title, rec.Aliases); err != nil {
			log.Printf("WARNING: alias index registration failed for %s/%s: %v", rec.ProductID, rec.Slug, err)
		}
	}
	e.notifyObserver(rec, "created")
	return rec, nil
}

// findDuplicates consults the alias index when one is attached, falling
// back to a scan of the product's records. An index failure degrades to
// the scan rather than blocking creation.
func (e *Engine) findDuplicates(root, productID, title string, threshold float64) ([]feature.DuplicateCandidate, error) {
	if e.index != nil {
		candidates, err := e.index.Candidates(productID, title, threshold)
		if err == nil {
			return candidates, nil
		}
		log.Printf("WARNING: alias index lookup failed, scanning records: %v", err)
	}
	existing, err := e.store.List(root, productID)
	if err != nil {
		return nil, err
	}
	return feature.FindDuplicates(title, existing, threshold), nil
}

// reserveSlug resolves slug collisions within the product by appending
// a numeric suffix. Collisions are expected for confirmed duplicates,
// where two distinct features legitimately share a title.
func (e *Engine) reserveSlug(root string, rec *feature.FeatureRecord) error {
	base := rec.Slug
	for i := 2; ; i++ {
		_, err := e.store.Load(root, rec.ProductID, rec.Slug)
		if errors.Is(err, feature.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rec.Slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// --- lookup ---

// loadFeature resolves a feature by product and slug. With an empty
// productID it searches every product and fails if the slug is
// ambiguous across products.
func (e *Engine) loadFeature(root, productID, slug string) (*feature.FeatureRecord, error) {
	if productID != "" {
		return e.store.Load(root, productID, slug)
	}

	all, err := e.store.ListAll(root)
	if err != nil {
		return nil, err
	}
	var found *feature.FeatureRecord
	for i := range all {
		if all[i].Slug != slug {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("feature %q exists in multiple products (%s, %s): specify product_id", slug, found.ProductID, all[i].ProductID)
		}
		found = &all[i]
	}
	if found == nil {
		return nil, fmt.Errorf("feature %q: %w", slug, feature.ErrNotFound)
	}
	return found, nil
}

// gateConfig loads the effective gate policy for a product.
func gateConfig(root, productID string) (feature.GateConfig, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return feature.GateConfig{}, err
	}
	return cfg.GateConfig(productID), nil
}

// --- read operations ---

// CheckFeature returns the feature record with freshly derived track
// statuses plus the current decision-gate evaluation. It does not
// persist anything.
func (e *Engine) CheckFeature(root, productID, slug string) (*feature.FeatureRecord, *feature.DecisionResult, error) {
	rec, err := e.loadFeature(root, productID, slug)
	if err != nil {
		return nil, nil, err
	}
	gc, err := gateConfig(root, rec.ProductID)
	if err != nil {
		return nil, nil, err
	}
	feature.RefreshTrackStatuses(rec, gc)
	result := feature.NewDecisionController(gc).Validate(rec)
	return rec, &result, nil
}

// ValidateFeature runs the decision-gate evaluation without mutating
// the record.
func (e *Engine) ValidateFeature(root, productID, slug string) (*feature.DecisionResult, error) {
	_, result, err := e.CheckFeature(root, productID, slug)
	return result, err
}

// ListFeatures returns the features of one product, or of the whole
// workspace when productID is empty. Track statuses are derived with
// each feature's own product policy.
func (e *Engine) ListFeatures(root, productID string) ([]feature.FeatureRecord, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	var records []feature.FeatureRecord
	if productID != "" {
		records, err = e.store.List(root, productID)
	} else {
		records, err = e.store.ListAll(root)
	}
	if err != nil {
		return nil, err
	}
	for i := range records {
		feature.RefreshTrackStatuses(&records[i], cfg.GateConfig(records[i].ProductID))
	}
	return records, nil
}

// --- track operations ---

// TrackAdvanceRequest carries one track action. Track is required for
// "start"; the other actions determine their track themselves.
type TrackAdvanceRequest struct {
	Track  feature.TrackName
	Action string
	Actor  string

	// submit_context
	Version int
	Score   int
	Summary string

	// record_spec, submit_case
	DocRef string

	// record_approval
	Approver string
	Approved bool
	Note     string

	// add_component
	Component string

	// create_adr, set_adr_status
	ADRID      string
	ADRTitle   string
	ADRStatus  feature.ADRStatus
	ADRContext string
	Decision   string

	// record_estimate
	Effort     float64
	Unit       string
	Confidence string

	// add_risk, mitigate_risk
	RiskDescription string
	RiskImpact      feature.RiskImpact
	Mitigation      string
	RiskIndex       int

	// add_dependency
	Dependency string
	Blocking   bool
}

// AdvanceTrack applies one action to a feature and persists the result.
// Track statuses are always re-derived from the recorded facts, so the
// returned record reflects the action's full effect.
func (e *Engine) AdvanceTrack(root, productID, slug string, req TrackAdvanceRequest) (*feature.FeatureRecord, error) {
	rec, err := e.loadFeature(root, productID, slug)
	if err != nil {
		return nil, err
	}
	gc, err := gateConfig(root, rec.ProductID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "start":
		err = feature.StartTrack(rec, req.Track, req.Actor, gc)
	case "submit_context":
		err = feature.SubmitContextVersion(rec, feature.ContextSubmission{
			Version:        req.Version,
			ChallengeScore: req.Score,
			Summary:        req.Summary,
			SubmittedBy:    req.Actor,
		}, gc)
	case "record_spec":
		err = feature.RecordDesignSpec(rec, req.DocRef, req.Actor, gc)
	case "submit_case":
		err = feature.SubmitBusinessCase(rec, req.DocRef, req.Actor, gc)
	case "record_approval":
		err = feature.RecordApproval(rec, req.Approver, req.Approved, req.Note, gc)
	case "add_component":
		err = feature.AddComponent(rec, req.Component, req.Actor, gc)
	case "create_adr":
		_, err = feature.CreateADR(rec, req.ADRTitle, req.ADRStatus, req.ADRContext, req.Decision, req.Actor, gc)
	case "set_adr_status":
		err = feature.SetADRStatus(rec, req.ADRID, req.ADRStatus, gc)
	case "record_estimate":
		err = feature.RecordEstimate(rec, feature.Estimate{
			Effort:     req.Effort,
			Unit:       req.Unit,
			Confidence: req.Confidence,
			RecordedBy: req.Actor,
		}, gc)
	case "add_risk":
		err = feature.AddRisk(rec, req.RiskDescription, req.RiskImpact, req.Mitigation, gc)
	case "mitigate_risk":
		err = feature.MitigateRisk(rec, req.RiskIndex, req.Mitigation, gc)
	case "add_dependency":
		err = feature.AddDependency(rec, req.Dependency, req.Blocking, req.Note)
	default:
		return nil, fmt.Errorf("unknown track action %q", req.Action)
	}
	if err != nil {
		return nil, err
	}

	if err := e.store.Save(root, rec); err != nil {
		return nil, err
	}
	e.notifyObserver(rec, "track_advanced")
	return rec, nil
}

// AttachArtifact links an external artifact to a feature and re-derives
// the affected track status.
func (e *Engine) AttachArtifact(root, productID, slug string, artifact feature.ArtifactType, ref string) (*feature.FeatureRecord, error) {
	rec, err := e.loadFeature(root, productID, slug)
	if err != nil {
		return nil, err
	}
	gc, err := gateConfig(root, rec.ProductID)
	if err != nil {
		return nil, err
	}
	if err := feature.AttachArtifact(rec, artifact, ref, gc); err != nil {
		return nil, err
	}
	if err := e.store.Save(root, rec); err != nil {
		return nil, err
	}
	e.notifyObserver(rec, "artifact_attached")
	return rec, nil
}

// --- decision gate ---

// DecisionRequest carries one decision-gate verdict.
type DecisionRequest struct {
	Decision string // approve, reject, archive, defer
	Reason   string
	Actor    string
	Force    bool
}

// Decide applies a go/no-go verdict at the decision gate. Approvals
// that pass trigger the output generator; its failures are logged, not
// propagated, since the approval itself already persisted. Returns the
// updated record and any generated output references.
func (e *Engine) Decide(root, productID, slug string, req DecisionRequest) (*feature.FeatureRecord, []string, error) {
	rec, err := e.loadFeature(root, productID, slug)
	if err != nil {
		return nil, nil, err
	}
	gc, err := gateConfig(root, rec.ProductID)
	if err != nil {
		return nil, nil, err
	}
	feature.RefreshTrackStatuses(rec, gc)
	ctrl := feature.NewDecisionController(gc)

	switch req.Decision {
	case "approve":
		err = ctrl.Approve(rec, req.Reason, req.Actor, req.Force)
	case "reject":
		if req.Reason == "" {
			return nil, nil, fmt.Errorf("rejection requires a reason")
		}
		err = ctrl.Reject(rec, req.Reason, req.Actor)
	case "archive":
		err = ctrl.Archive(rec, req.Reason, req.Actor)
	case "defer":
		err = ctrl.Defer(rec, req.Reason, req.Actor)
	default:
		return nil, nil, fmt.Errorf("unknown decision %q (want approve, reject, archive or defer)", req.Decision)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := e.store.Save(root, rec); err != nil {
		return nil, nil, err
	}
	e.notifyObserver(rec, req.Decision)

	var outputs []string
	if req.Decision == "approve" && e.output != nil {
		outputs, err = e.output.Generate(root, rec)
		if err != nil {
			log.Printf("WARNING: output generation failed for %s/%s: %v", rec.ProductID, rec.Slug, err)
			outputs = nil
		}
	}
	return rec, outputs, nil
}

// AdvancePhase moves a feature along the phase machine outside the
// decision gate (the gate's own transitions go through Decide).
func (e *Engine) AdvancePhase(root, productID, slug string, target feature.Phase, reason, actor string) (*feature.FeatureRecord, error) {
	rec, err := e.loadFeature(root, productID, slug)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{}
	if reason != "" {
		metadata["reason"] = reason
	}
	if actor != "" {
		metadata["actor"] = actor
	}
	if err := feature.AdvancePhase(rec, target, metadata); err != nil {
		return nil, err
	}

	if err := e.store.Save(root, rec); err != nil {
		return nil, err
	}
	e.notifyObserver(rec, "phase_advanced")
	return rec, nil
}
