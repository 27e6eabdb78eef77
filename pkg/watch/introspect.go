package watch

// TargetSnapshot is a read-only view of a target's bookkeeping, for
// debug/observability surfaces that should never mutate the aggregator.
type TargetSnapshot struct {
	TargetID         TargetID
	PendingResponses int
	Current          bool
	ResumeToken      ResumeToken
	Active           bool
}

// TrackedTargets returns every target the aggregator currently holds
// TargetState for, regardless of active/inactive status.
func (a *Aggregator) TrackedTargets() []TargetID {
	ids := make([]TargetID, 0, len(a.targets.states))
	for t := range a.targets.states {
		ids = append(ids, t)
	}
	return ids
}

// TargetSnapshotFor returns a read-only snapshot of target t's bookkeeping,
// or ok=false if the aggregator holds no TargetState for it.
func (a *Aggregator) TargetSnapshotFor(t TargetID) (snap TargetSnapshot, ok bool) {
	ts, exists := a.targets.get(t)
	if !exists {
		return TargetSnapshot{}, false
	}
	return TargetSnapshot{
		TargetID:         t,
		PendingResponses: ts.PendingResponses(),
		Current:          ts.Current(),
		ResumeToken:      ts.ResumeToken(),
		Active:           a.isActiveTarget(t),
	}, true
}
