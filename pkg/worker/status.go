package worker

import (
	"encoding/json"
	"fmt"
)

// Kind names a lifecycle state.
type Kind string

// Lifecycle states. Merged, Failed and Archived are terminal.
const (
	KindSpawned       Kind = "spawned"
	KindRunning       Kind = "running"
	KindWaitingReview Kind = "waiting_review"
	KindApproved      Kind = "approved"
	KindMerged        Kind = "merged"
	KindFailed        Kind = "failed"
	KindArchived      Kind = "archived"
)

var terminalKinds = map[Kind]bool{
	KindMerged:   true,
	KindFailed:   true,
	KindArchived: true,
}

// validTransitions lists the forward edges of the lifecycle. Failed and
// Archived are reachable from every non-terminal state and are not repeated here.
var validTransitions = map[Kind]map[Kind]bool{
	KindSpawned: {
		KindRunning: true,
	},
	KindRunning: {
		KindWaitingReview: true,
	},
	KindWaitingReview: {
		KindApproved: true,
		KindRunning:  true,
	},
	KindApproved: {
		KindMerged: true,
	},
}

// Status is the closed lifecycle variant of a worker. Only WaitingReview
// carries diff stats and only Failed carries a reason; construct values with
// the Status* functions.
type Status struct {
	kind   Kind
	diff   DiffStats
	reason string
}

// StatusSpawned is the initial state.
func StatusSpawned() Status { return Status{kind: KindSpawned} }

// StatusRunning marks a worker whose agent has shown activity.
func StatusRunning() Status { return Status{kind: KindRunning} }

// StatusWaitingReview marks a worker that went idle with the given pending changes.
func StatusWaitingReview(d DiffStats) Status { return Status{kind: KindWaitingReview, diff: d} }

// StatusApproved marks a reviewed worker ready to merge.
func StatusApproved() Status { return Status{kind: KindApproved} }

// StatusMerged marks a worker whose branch is confirmed merged.
func StatusMerged() Status { return Status{kind: KindMerged} }

// StatusFailed marks a worker that cannot continue.
func StatusFailed(reason string) Status { return Status{kind: KindFailed, reason: reason} }

// StatusArchived marks a worker retired without merging.
func StatusArchived() Status { return Status{kind: KindArchived} }

// Kind returns the state name.
func (s Status) Kind() Kind { return s.kind }

// DiffStats returns the pending changes recorded with WaitingReview.
func (s Status) DiffStats() (DiffStats, bool) {
	return s.diff, s.kind == KindWaitingReview
}

// Reason returns the failure reason recorded with Failed.
func (s Status) Reason() (string, bool) {
	return s.reason, s.kind == KindFailed
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool { return terminalKinds[s.kind] }

func (s Status) String() string {
	switch s.kind {
	case KindWaitingReview:
		return fmt.Sprintf("%s (%s)", s.kind, s.diff)
	case KindFailed:
		if s.reason != "" {
			return fmt.Sprintf("%s: %s", s.kind, s.reason)
		}
	}
	return string(s.kind)
}

// IllegalTransitionError reports a lifecycle edge that does not exist.
type IllegalTransitionError struct {
	From Kind
	To   Kind
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// CanTransition reports whether from -> to is a lifecycle edge.
func CanTransition(from, to Kind) bool {
	if terminalKinds[from] {
		return false
	}
	if _, known := validTransitions[from]; !known {
		return false
	}
	if to == KindFailed || to == KindArchived {
		return true
	}
	return validTransitions[from][to]
}

type statusJSON struct {
	Kind      Kind       `json:"kind"`
	DiffStats *DiffStats `json:"diff_stats,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// MarshalJSON encodes the variant as {"kind": ..., [payload]}.
func (s Status) MarshalJSON() ([]byte, error) {
	if _, ok := validTransitions[s.kind]; !ok && !terminalKinds[s.kind] {
		return nil, fmt.Errorf("marshal status: unknown kind %q", s.kind)
	}
	out := statusJSON{Kind: s.kind}
	switch s.kind {
	case KindWaitingReview:
		d := s.diff
		out.DiffStats = &d
	case KindFailed:
		out.Reason = s.reason
	}
	return json.Marshal(out)
}

// UnmarshalJSON rejects unknown kinds so a document can never hold a state
// outside the lifecycle.
func (s *Status) UnmarshalJSON(data []byte) error {
	var in statusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindWaitingReview:
		var d DiffStats
		if in.DiffStats != nil {
			d = *in.DiffStats
		}
		*s = StatusWaitingReview(d)
	case KindFailed:
		*s = StatusFailed(in.Reason)
	case KindSpawned, KindRunning, KindApproved, KindMerged, KindArchived:
		*s = Status{kind: in.Kind}
	default:
		return fmt.Errorf("unknown status kind %q", in.Kind)
	}
	return nil
}
