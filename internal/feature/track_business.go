package feature

import "fmt"

// --- Business case track ---
//
// The business case is submitted as a document, then collects verdicts
// from the product's configured approver roster. Every configured
// approver must record approved=true for the track to reach approved;
// a single dissent forces rejected.

// SubmitBusinessCase records the business case document reference and
// moves the track into the approval flow.
func SubmitBusinessCase(rec *FeatureRecord, ref string, actor string, cfg GateConfig) error {
	if ref == "" {
		return fmt.Errorf("business case reference must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackBusinessCase)
	if err != nil {
		return err
	}
	now := timeNow().UTC().Format(rfc3339)
	if ts.StartedAt == "" {
		ts.StartedAt = now
		ts.StartedBy = actor
	}
	ts.Business.CaseDocRef = ref

	recomputeTrack(rec, TrackBusinessCase, cfg)
	rec.touch()
	return nil
}

// RecordApproval records one approver's verdict on the business case.
// The approver must be on the configured roster; a repeat verdict from
// the same approver replaces their earlier one (people change their
// minds before the gate).
func RecordApproval(rec *FeatureRecord, approver string, approved bool, note string, cfg GateConfig) error {
	if approver == "" {
		return fmt.Errorf("approver must not be empty")
	}
	if err := trackMutable(rec); err != nil {
		return err
	}
	ts, err := rec.Track(TrackBusinessCase)
	if err != nil {
		return err
	}
	if !onRoster(approver, cfg.RequiredBCApprovers) {
		return &UnknownApproverError{Approver: approver, Roster: cfg.RequiredBCApprovers}
	}
	if ts.Business.CaseDocRef == "" {
		return fmt.Errorf("business case for feature %q has not been submitted yet", rec.Slug)
	}

	verdict := Approval{
		Approver:   approver,
		Approved:   approved,
		Note:       note,
		RecordedAt: timeNow().UTC().Format(rfc3339),
	}
	replaced := false
	for i, a := range ts.Business.Approvals {
		if a.Approver == approver {
			ts.Business.Approvals[i] = verdict
			replaced = true
			break
		}
	}
	if !replaced {
		ts.Business.Approvals = append(ts.Business.Approvals, verdict)
	}

	recomputeTrack(rec, TrackBusinessCase, cfg)
	rec.touch()
	return nil
}

// onRoster reports whether the approver appears in the configured roster.
func onRoster(approver string, roster []string) bool {
	for _, r := range roster {
		if r == approver {
			return true
		}
	}
	return false
}

// missingApprovers returns roster members without an approved=true
// verdict, in roster order.
func missingApprovers(facts *BusinessFacts, roster []string) []string {
	var missing []string
	for _, r := range roster {
		found := false
		for _, a := range facts.Approvals {
			if a.Approver == r && a.Approved {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, r)
		}
	}
	return missing
}

// dissenters returns approvers who recorded approved=false.
func dissenters(facts *BusinessFacts) []string {
	var out []string
	for _, a := range facts.Approvals {
		if !a.Approved {
			out = append(out, a.Approver)
		}
	}
	return out
}

// deriveBusinessStatus computes the business case track status:
//
//	no facts, not started       → not_started
//	started, no case submitted  → in_progress
//	any dissent                 → rejected
//	all approvers approved      → approved
//	case submitted, waiting     → pending_approval
//
// With an empty roster there is nobody to wait for: a submitted case
// is approved immediately.
func deriveBusinessStatus(ts *TrackState, cfg GateConfig) TrackStatus {
	facts := ts.Business
	if facts == nil || facts.CaseDocRef == "" {
		if ts.StartedAt == "" {
			return StatusNotStarted
		}
		return StatusInProgress
	}
	if len(dissenters(facts)) > 0 {
		return StatusRejected
	}
	if len(missingApprovers(facts, cfg.RequiredBCApprovers)) == 0 {
		return StatusApproved
	}
	return StatusPendingApproval
}
