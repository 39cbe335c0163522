package feature

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when no record exists for a slug.
var ErrNotFound = errors.New("feature not found")

// TransitionError reports a phase transition that the state machine
// does not allow.
type TransitionError struct {
	Slug string
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s → %s for feature %q", e.From, e.To, e.Slug)
}

// UnknownApproverError reports a business-case approval from someone
// not on the product's configured approver roster.
type UnknownApproverError struct {
	Approver string
	Roster   []string
}

func (e *UnknownApproverError) Error() string {
	if len(e.Roster) == 0 {
		return fmt.Sprintf("unknown approver %q: no approvers configured for this product", e.Approver)
	}
	return fmt.Sprintf("unknown approver %q: configured approvers are: %s", e.Approver, strings.Join(e.Roster, ", "))
}

// GateNotReadyError reports a decision-gate approval attempted while
// validation still has blockers. This is an expected, recoverable
// outcome — the caller addresses the blockers or forces the approval.
type GateNotReadyError struct {
	Slug     string
	Blockers []string
}

func (e *GateNotReadyError) Error() string {
	return fmt.Sprintf("decision gate not ready for feature %q: %d blocker(s): %s",
		e.Slug, len(e.Blockers), strings.Join(e.Blockers, "; "))
}

// DuplicateCandidate is one existing feature whose title or alias is
// similar to a proposed title.
type DuplicateCandidate struct {
	Slug       string  `json:"slug"`
	Title      string  `json:"title"`
	Alias      string  `json:"alias,omitempty"`
	Similarity float64 `json:"similarity"`
}

// DuplicateCandidateError reports that a proposed title matches one or
// more existing features. Expected and recoverable — creation proceeds
// only with explicit confirmation.
type DuplicateCandidateError struct {
	Title      string
	ProductID  string
	Candidates []DuplicateCandidate
}

func (e *DuplicateCandidateError) Error() string {
	slugs := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		slugs[i] = fmt.Sprintf("%s (%.0f%%)", c.Slug, c.Similarity*100)
	}
	return fmt.Sprintf("title %q looks like a duplicate of existing feature(s) in product %q: %s",
		e.Title, e.ProductID, strings.Join(slugs, ", "))
}

// SchemaVersionError reports a persisted record with a schema version
// newer than this build understands. The engine refuses to guess.
type SchemaVersionError struct {
	Slug      string
	Found     int
	Supported int
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("feature %q has schema version %d, newer than supported version %d — refusing to load",
		e.Slug, e.Found, e.Supported)
}
