// Package feature implements the feature lifecycle engine: the record
// model, the top-level phase state machine, the four per-track state
// machines, quality gate evaluation, and the decision gate.
//
// Design principles:
// - SRP: types, phase machine, track policies, gates, and store live in separate files
// - DIP: Store is an interface; callers depend on the abstraction
// - Track status is always DERIVED from recorded facts, never set directly —
//   a partial write can never leave a track in a status its facts don't support
package feature

import (
	"fmt"
	"strings"
)

// --- Phase enum ---

// Phase is the feature's position in the top-level lifecycle.
type Phase string

const (
	PhaseInitialization   Phase = "initialization"
	PhaseSignalAnalysis   Phase = "signal_analysis"
	PhaseContextDoc       Phase = "context_doc"
	PhaseParallelTracks   Phase = "parallel_tracks"
	PhaseDecisionGate     Phase = "decision_gate"
	PhaseOutputGeneration Phase = "output_generation"
	PhaseComplete         Phase = "complete"
	PhaseArchived         Phase = "archived"
	PhaseDeferred         Phase = "deferred"
)

// validPhases is the set of recognized lifecycle phases.
var validPhases = map[Phase]bool{
	PhaseInitialization:   true,
	PhaseSignalAnalysis:   true,
	PhaseContextDoc:       true,
	PhaseParallelTracks:   true,
	PhaseDecisionGate:     true,
	PhaseOutputGeneration: true,
	PhaseComplete:         true,
	PhaseArchived:         true,
	PhaseDeferred:         true,
}

// ValidatePhase returns an error if the phase is not recognized.
func ValidatePhase(p Phase) error {
	if !validPhases[p] {
		return fmt.Errorf("invalid phase %q", p)
	}
	return nil
}

// --- Track enum ---

// TrackName identifies one of the four independent workstreams.
type TrackName string

const (
	TrackContext      TrackName = "context"
	TrackDesign       TrackName = "design"
	TrackBusinessCase TrackName = "business_case"
	TrackEngineering  TrackName = "engineering"
)

// TrackNames returns the four tracks in canonical report order.
// The order is fixed so gate reports are stable and reproducible.
func TrackNames() []TrackName {
	return []TrackName{TrackContext, TrackDesign, TrackBusinessCase, TrackEngineering}
}

// validTracks is the set of recognized track names.
var validTracks = map[TrackName]bool{
	TrackContext:      true,
	TrackDesign:       true,
	TrackBusinessCase: true,
	TrackEngineering:  true,
}

// ValidateTrack returns an error if the track name is not recognized.
func ValidateTrack(t TrackName) error {
	if !validTracks[t] {
		return fmt.Errorf("invalid track %q: must be one of: context, design, business_case, engineering", t)
	}
	return nil
}

// trackDisplayNames maps track names to their human-readable form,
// used in gate blocker messages ("[Business Case] ...").
var trackDisplayNames = map[TrackName]string{
	TrackContext:      "Context",
	TrackDesign:       "Design",
	TrackBusinessCase: "Business Case",
	TrackEngineering:  "Engineering",
}

// DisplayName returns the human-readable name for a track.
func (t TrackName) DisplayName() string {
	if name, ok := trackDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// --- Track status enum ---

// TrackStatus is the derived state of a single track. The generic states
// (not_started, in_progress, blocked, complete) are extended with
// track-specific intermediate states.
type TrackStatus string

const (
	StatusNotStarted TrackStatus = "not_started"
	StatusInProgress TrackStatus = "in_progress"
	StatusBlocked    TrackStatus = "blocked"
	StatusComplete   TrackStatus = "complete"

	// Context track.
	StatusPendingChallenge TrackStatus = "pending_challenge"

	// Design track.
	StatusWireframesReady TrackStatus = "wireframes_ready"
	StatusFigmaAttached   TrackStatus = "figma_attached"

	// Business case track.
	StatusPendingApproval TrackStatus = "pending_approval"
	StatusApproved        TrackStatus = "approved"
	StatusRejected        TrackStatus = "rejected"

	// Engineering track.
	StatusEstimationPending TrackStatus = "estimation_pending"
)

// --- Artifact enum ---

// ArtifactType categorizes external artifact references on a feature.
type ArtifactType string

const (
	ArtifactFigma      ArtifactType = "figma"
	ArtifactWireframes ArtifactType = "wireframes"
	ArtifactJiraEpic   ArtifactType = "jira_epic"
	ArtifactConfluence ArtifactType = "confluence_page"
	ArtifactGDocs      ArtifactType = "gdocs"
)

// validArtifacts is the set of recognized artifact types.
var validArtifacts = map[ArtifactType]bool{
	ArtifactFigma:      true,
	ArtifactWireframes: true,
	ArtifactJiraEpic:   true,
	ArtifactConfluence: true,
	ArtifactGDocs:      true,
}

// ValidateArtifactType returns an error if the artifact type is not recognized.
func ValidateArtifactType(a ArtifactType) error {
	if !validArtifacts[a] {
		return fmt.Errorf("invalid artifact type %q: must be one of: figma, wireframes, jira_epic, confluence_page, gdocs", a)
	}
	return nil
}

// --- ADR enum ---

// ADRStatus tracks the lifecycle of an Architecture Decision Record.
type ADRStatus string

const (
	ADRProposed   ADRStatus = "proposed"
	ADRAccepted   ADRStatus = "accepted"
	ADRRejected   ADRStatus = "rejected"
	ADRDeprecated ADRStatus = "deprecated"
	ADRSuperseded ADRStatus = "superseded"
)

// validADRStatuses is the set of recognized ADR statuses.
var validADRStatuses = map[ADRStatus]bool{
	ADRProposed:   true,
	ADRAccepted:   true,
	ADRRejected:   true,
	ADRDeprecated: true,
	ADRSuperseded: true,
}

// ValidateADRStatus returns an error if the ADR status is not recognized.
func ValidateADRStatus(s ADRStatus) error {
	if !validADRStatuses[s] {
		return fmt.Errorf("invalid ADR status %q: must be one of: proposed, accepted, rejected, deprecated, superseded", s)
	}
	return nil
}

// --- Risk enum ---

// RiskImpact grades how badly a risk would hurt if it materialized.
type RiskImpact string

const (
	RiskLow    RiskImpact = "low"
	RiskMedium RiskImpact = "medium"
	RiskHigh   RiskImpact = "high"
)

// validImpacts is the set of recognized risk impacts.
var validImpacts = map[RiskImpact]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// ValidateRiskImpact returns an error if the impact is not recognized.
func ValidateRiskImpact(i RiskImpact) error {
	if !validImpacts[i] {
		return fmt.Errorf("invalid risk impact %q: must be one of: low, medium, high", i)
	}
	return nil
}

// --- Core data structures ---

// PhaseEntry is one element of the append-only phase history.
// An open entry has no exited_at; exactly one entry is open at a time.
type PhaseEntry struct {
	Phase     Phase             `json:"phase"`
	EnteredAt string            `json:"entered_at"`
	ExitedAt  string            `json:"exited_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Decision is one element of the append-only audit trail.
type Decision struct {
	Phase     Phase             `json:"phase"`
	Decision  string            `json:"decision"`
	Rationale string            `json:"rationale"`
	DecidedBy string            `json:"decided_by"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ContextSubmission records one version of the context document being
// submitted to the challenge process.
type ContextSubmission struct {
	Version        int    `json:"version"`
	ChallengeScore int    `json:"challenge_score"`
	Summary        string `json:"summary,omitempty"`
	SubmittedBy    string `json:"submitted_by,omitempty"`
	SubmittedAt    string `json:"submitted_at"`
}

// Approval records one approver's verdict on the business case.
type Approval struct {
	Approver   string `json:"approver"`
	Approved   bool   `json:"approved"`
	Note       string `json:"note,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// ADR is an Architecture Decision Record captured by the engineering track.
type ADR struct {
	ID        string    `json:"id"` // "ADR-001"
	Title     string    `json:"title"`
	Status    ADRStatus `json:"status"`
	Context   string    `json:"context,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at,omitempty"`
}

// Estimate is the engineering effort estimate for the feature.
type Estimate struct {
	Effort     float64 `json:"effort"`
	Unit       string  `json:"unit"` // e.g. "story_points", "weeks"
	Confidence string  `json:"confidence,omitempty"`
	RecordedBy string  `json:"recorded_by,omitempty"`
	RecordedAt string  `json:"recorded_at"`
}

// Risk is an identified engineering risk. High-impact risks must carry
// a mitigation before the track can complete.
type Risk struct {
	Description string     `json:"description"`
	Impact      RiskImpact `json:"impact"`
	Mitigation  string     `json:"mitigation,omitempty"`
	RecordedAt  string     `json:"recorded_at"`
}

// Dependency is an external dependency of the feature. Blocking
// dependencies prevent the decision gate from passing.
type Dependency struct {
	Name       string `json:"name"`
	Blocking   bool   `json:"blocking"`
	Note       string `json:"note,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// ContextFacts holds the recorded facts of the context track.
type ContextFacts struct {
	Submissions []ContextSubmission `json:"submissions,omitempty"`
}

// DesignFacts holds the recorded facts of the design track. Wireframe
// and Figma references live in the feature's artifacts map; the track
// reads them from there.
type DesignFacts struct {
	SpecDocRef string `json:"spec_doc_ref,omitempty"`
}

// BusinessFacts holds the recorded facts of the business case track.
type BusinessFacts struct {
	CaseDocRef string     `json:"case_doc_ref,omitempty"`
	Approvals  []Approval `json:"approvals,omitempty"`
}

// EngineeringFacts holds the recorded facts of the engineering track.
type EngineeringFacts struct {
	Components []string   `json:"components,omitempty"`
	ADRs       []ADR      `json:"adrs,omitempty"`
	Estimate   *Estimate  `json:"estimate,omitempty"`
	Risks      []Risk     `json:"risks,omitempty"`
}

// TrackState is the persisted state of one track: the derived status,
// a monotonically increasing version counter, and the track's facts.
// Exactly one of the fact pointers is non-nil, matching the track key.
type TrackState struct {
	Status    TrackStatus `json:"status"`
	Version   int         `json:"version"`
	StartedBy string      `json:"started_by,omitempty"`
	StartedAt string      `json:"started_at,omitempty"`
	UpdatedAt string      `json:"updated_at,omitempty"`

	Context     *ContextFacts     `json:"context,omitempty"`
	Design      *DesignFacts      `json:"design,omitempty"`
	Business    *BusinessFacts    `json:"business_case,omitempty"`
	Engineering *EngineeringFacts `json:"engineering,omitempty"`
}

// FeatureRecord is the root data structure for one feature, persisted
// as <product_id>/<slug>.json. Slug, title, product, organization, and
// created_at are immutable after creation. phase_history and decisions
// are append-only.
type FeatureRecord struct {
	SchemaVersion int    `json:"schema_version"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	ProductID     string `json:"product_id"`
	Organization  string `json:"organization,omitempty"`
	Priority      string `json:"priority,omitempty"`
	BrainRef      string `json:"brain_ref,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`

	CurrentPhase Phase        `json:"current_phase"`
	PhaseHistory []PhaseEntry `json:"phase_history"`

	Tracks       map[TrackName]*TrackState `json:"tracks"`
	Artifacts    map[ArtifactType]string   `json:"artifacts"`
	Decisions    []Decision                `json:"decisions"`
	Aliases      []string                  `json:"aliases"`
	Dependencies []Dependency              `json:"dependencies,omitempty"`
}

// NewFeatureRecord creates a feature in its initial state: phase
// initialization with an open history entry, all four tracks
// not_started, and the normalized title registered as the first alias.
func NewFeatureRecord(title, productID, organization, priority string) *FeatureRecord {
	now := timeNow().UTC().Format(rfc3339)
	rec := &FeatureRecord{
		SchemaVersion: CurrentSchemaVersion,
		Slug:          Slugify(title),
		Title:         title,
		ProductID:     productID,
		Organization:  organization,
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
		CurrentPhase:  PhaseInitialization,
		PhaseHistory: []PhaseEntry{
			{Phase: PhaseInitialization, EnteredAt: now},
		},
		Tracks: map[TrackName]*TrackState{
			TrackContext:      {Status: StatusNotStarted, Context: &ContextFacts{}},
			TrackDesign:       {Status: StatusNotStarted, Design: &DesignFacts{}},
			TrackBusinessCase: {Status: StatusNotStarted, Business: &BusinessFacts{}},
			TrackEngineering:  {Status: StatusNotStarted, Engineering: &EngineeringFacts{}},
		},
		Artifacts: map[ArtifactType]string{},
		Decisions: []Decision{},
		Aliases:   []string{},
	}
	rec.AddAlias(title)
	return rec
}

// AddAlias records an alternate title for duplicate detection. Aliases
// grow only; duplicates (after normalization) are ignored.
func (r *FeatureRecord) AddAlias(alias string) {
	key := NormalizedKey(alias)
	if key == "" {
		return
	}
	for _, existing := range r.Aliases {
		if NormalizedKey(existing) == key {
			return
		}
	}
	r.Aliases = append(r.Aliases, alias)
}

// Track returns the state of the named track, or an error for an
// unknown track. The four keys are fixed at creation time.
func (r *FeatureRecord) Track(name TrackName) (*TrackState, error) {
	if err := ValidateTrack(name); err != nil {
		return nil, err
	}
	ts, ok := r.Tracks[name]
	if !ok || ts == nil {
		return nil, fmt.Errorf("track %q missing from feature %q", name, r.Slug)
	}
	return ts, nil
}

// touch bumps the record's updated_at to now.
func (r *FeatureRecord) touch() {
	r.UpdatedAt = timeNow().UTC().Format(rfc3339)
}

// --- Slug generation ---

const maxSlugLen = 60

// Slugify converts a feature title into a filesystem-safe slug.
// Example: "OTP Checkout Recovery" → "otp-checkout-recovery"
//
// Rules:
//   - Lowercase
//   - Spaces and underscores become hyphens
//   - Non-alphanumeric characters (except hyphens) are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Truncated to 60 characters (at a word boundary if possible)
//   - Empty input returns "unnamed-feature"
func Slugify(title string) string {
	if strings.TrimSpace(title) == "" {
		return "unnamed-feature"
	}

	s := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")

	if slug == "" {
		return "unnamed-feature"
	}

	if len(slug) <= maxSlugLen {
		return slug
	}

	// Truncate at word boundary if possible.
	truncated := slug[:maxSlugLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxSlugLen/2 {
		truncated = truncated[:lastHyphen]
	}

	return strings.TrimRight(truncated, "-")
}
