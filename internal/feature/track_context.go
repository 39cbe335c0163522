package feature

import "fmt"

// --- Context track ---
//
// The context document moves through three versions, each bound to a
// minimum challenge score: v1 is the draft (no minimum by default),
// v2 must survive review (≥60 by default), and v3 must reach the
// approved bar (≥85 by default) for the track to complete.

// maxContextVersion is the final context document version.
const maxContextVersion = 3

// SubmitContextVersion records a challenge-scored submission of the
// context document. Versions are 1..3 and never go backward: once a
// version has been submitted, lower versions are rejected, and after
// the track is complete no further submissions are accepted.
func SubmitContextVersion(rec *FeatureRecord, sub ContextSubmission, cfg GateConfig) error {
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackContext)
	if err != nil {
		return err
	}
	if sub.Version < 1 || sub.Version > maxContextVersion {
		return fmt.Errorf("invalid context version %d: must be 1, 2, or 3", sub.Version)
	}
	if sub.ChallengeScore < 0 || sub.ChallengeScore > 100 {
		return fmt.Errorf("invalid challenge score %d: must be 0-100", sub.ChallengeScore)
	}

	if ts.Status == StatusComplete {
		return fmt.Errorf("context track for feature %q is complete: submissions are closed", rec.Slug)
	}
	if latest := latestContextSubmission(ts.Context); latest != nil && sub.Version < latest.Version {
		return fmt.Errorf("context version %d already submitted for feature %q: cannot resubmit v%d",
			latest.Version, rec.Slug, sub.Version)
	}

	now := timeNow().UTC().Format(rfc3339)
	sub.SubmittedAt = now
	if ts.StartedAt == "" {
		ts.StartedAt = now
		ts.StartedBy = sub.SubmittedBy
	}
	ts.Context.Submissions = append(ts.Context.Submissions, sub)

	recomputeTrack(rec, TrackContext, cfg)
	rec.touch()
	return nil
}

// latestContextSubmission returns the most recent submission, or nil.
func latestContextSubmission(facts *ContextFacts) *ContextSubmission {
	if facts == nil || len(facts.Submissions) == 0 {
		return nil
	}
	return &facts.Submissions[len(facts.Submissions)-1]
}

// deriveContextStatus computes the context track status from its facts:
//
//	no facts, not started        → not_started
//	started, no submissions      → in_progress
//	latest below its threshold   → pending_challenge
//	v3 at or above approved bar  → complete
//	anything else                → in_progress
func deriveContextStatus(ts *TrackState, cfg GateConfig) TrackStatus {
	latest := latestContextSubmission(ts.Context)
	if latest == nil {
		if ts.StartedAt == "" {
			return StatusNotStarted
		}
		return StatusInProgress
	}

	threshold := cfg.contextThreshold(latest.Version)
	if latest.ChallengeScore < threshold {
		return StatusPendingChallenge
	}
	if latest.Version == maxContextVersion {
		return StatusComplete
	}
	return StatusInProgress
}
