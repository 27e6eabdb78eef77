package watch

import "fmt"

// WatchChange is the closed tagged union of events the aggregator consumes:
// DocumentWatchChange, WatchTargetChange, and ExistenceFilterChange. It
// exists so callers that want to dispatch generically (e.g. a decoder that
// doesn't care which concrete type it received) can do so through Apply;
// the aggregator's own API still exposes typed methods per variant.
type WatchChange interface {
	isWatchChange()
}

// TargetChangeState is the server-reported state carried by a
// WatchTargetChange.
type TargetChangeState int

const (
	// NoChange carries only a resume-token update.
	NoChange TargetChangeState = iota
	// TargetAdded acknowledges a Listen RPC.
	TargetAdded
	// TargetRemoved acknowledges an Unlisten RPC (or reports an error).
	TargetRemoved
	// TargetCurrent declares the target caught up to a consistent point.
	TargetCurrent
	// TargetReset asks the client to discard and re-derive the target.
	TargetReset
)

func (s TargetChangeState) String() string {
	switch s {
	case NoChange:
		return "no_change"
	case TargetAdded:
		return "added"
	case TargetRemoved:
		return "removed"
	case TargetCurrent:
		return "current"
	case TargetReset:
		return "reset"
	default:
		panic(fmt.Sprintf("watch: unrecognized TargetChangeState %d", int(s)))
	}
}

// DocumentWatchChange reports that key now applies to each of
// UpdatedTargetIDs (per NewDoc's semantics) and no longer applies to each
// of RemovedTargetIDs.
//
// NewDoc semantics:
//   - Document variant: the key now maps to this body for the updated targets.
//   - NoDocument variant: the key is authoritatively deleted for the updated
//     targets, and NoDocument becomes the body recorded in documentUpdates.
//   - nil: the key fell out of view for the updated targets without any
//     body being synthesized.
type DocumentWatchChange struct {
	UpdatedTargetIDs []TargetID
	RemovedTargetIDs []TargetID
	Key              DocumentKey
	NewDoc           *MaybeDocument
}

func (DocumentWatchChange) isWatchChange() {}

// WatchTargetChange reports a state transition for one or more targets.
type WatchTargetChange struct {
	State       TargetChangeState
	TargetIDs   []TargetID
	ResumeToken ResumeToken
	Cause       error
}

func (WatchTargetChange) isWatchChange() {}

// ExistenceFilter is the server's cardinality hint for a target's result set.
type ExistenceFilter struct {
	Count int
}

// ExistenceFilterChange reports a fresh existence filter for a target. The
// aggregator does not itself decide on a mismatch; an upstream comparator
// calls Aggregator.HandleExistenceFilterMismatch once it has compared
// Filter.Count against Aggregator.GetCurrentSize.
type ExistenceFilterChange struct {
	TargetID TargetID
	Filter   ExistenceFilter
}

func (ExistenceFilterChange) isWatchChange() {}

// Apply dispatches change to the matching typed handler. For an
// ExistenceFilterChange it plays the role of the upstream comparator
// described in §4.A: it compares the filter's count against
// GetCurrentSize and only resets the target on a mismatch. Unrecognized
// concrete types are an internal bug (an unreachable tagged-union arm).
func (a *Aggregator) Apply(change WatchChange) {
	switch c := change.(type) {
	case DocumentWatchChange:
		a.AddDocumentChange(c)
	case WatchTargetChange:
		a.AddTargetChange(c)
	case ExistenceFilterChange:
		if size, ok := a.GetCurrentSize(c.TargetID); ok && size != c.Filter.Count {
			a.HandleExistenceFilterMismatch(c.TargetID)
		}
	default:
		panic(fmt.Sprintf("watch: unrecognized WatchChange type %T", change))
	}
}
