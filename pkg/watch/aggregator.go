package watch

import "github.com/kaleido-sync/watchagg/pkg/document"

// Aggregator is the Watch Change Aggregator: it consumes DocumentWatchChange,
// WatchTargetChange, and ExistenceFilterChange records and accumulates them
// into per-target state until CreateRemoteEvent flushes a consolidated
// RemoteEvent. It is strictly in-memory, single-threaded, and synchronous —
// every method is expected to run on the client's watch event loop, never
// concurrently with another call on the same Aggregator.
type Aggregator struct {
	targets               *targetStateStore
	documentUpdates       *OrderedMap[DocumentKey, *MaybeDocument]
	documentTargetMapping *OrderedMap[DocumentKey, *OrderedSet[TargetID]]
	queryDataCallback     QueryDataCallback
	existingKeysCallback  ExistingKeysCallback
}

// NewAggregator builds an Aggregator around the two narrow read callbacks a
// client's local store exposes. Both callbacks must be pure reads of state
// observable at call time; the aggregator never calls back into them except
// from the methods documented on those callback types.
func NewAggregator(queryDataCallback QueryDataCallback, existingKeysCallback ExistingKeysCallback) *Aggregator {
	return &Aggregator{
		targets:               newTargetStateStore(),
		documentUpdates:       NewOrderedMap[DocumentKey, *MaybeDocument](),
		documentTargetMapping: NewOrderedMap[DocumentKey, *OrderedSet[TargetID]](),
		queryDataCallback:     queryDataCallback,
		existingKeysCallback:  existingKeysCallback,
	}
}

// isActiveTarget is invariant #2: QueryData must exist for t and it must
// have no outstanding pending ADD/REMOVE acks. TargetState is created
// lazily on first reference (invariant #1), so an unreferenced target with
// live QueryData reads as active with zero pending responses.
func (a *Aggregator) isActiveTarget(t TargetID) bool {
	qd := a.queryDataCallback(t)
	if qd == nil {
		return false
	}
	return a.targets.ensure(t).pendingResponses == 0
}

func (a *Aggregator) updateResumeToken(t TargetID, token ResumeToken) {
	if token.Empty() {
		return
	}
	a.targets.ensure(t).resumeToken = token
}

func (a *Aggregator) hasSyncedDocument(t TargetID, key DocumentKey) bool {
	keys := a.existingKeysCallback(t)
	return keys != nil && keys.Contains(key)
}

func (a *Aggregator) ensureDocumentTargetMapping(key DocumentKey) *OrderedSet[TargetID] {
	if set, ok := a.documentTargetMapping.Get(key); ok {
		return set
	}
	set := NewOrderedSet[TargetID]()
	a.documentTargetMapping.Set(key, set)
	return set
}

// RecordPendingTargetRequest records that the client has sent a Listen or
// Unlisten RPC for t, so a subsequent Added/Removed ack can be balanced
// against it.
func (a *Aggregator) RecordPendingTargetRequest(t TargetID) {
	a.targets.ensure(t).pendingResponses++
}

// AddDocumentChange applies a DocumentWatchChange: the key is recorded
// against every updated target (as an add/modify/delete per NewDoc) and
// removed from every removed target, in the order given.
func (a *Aggregator) AddDocumentChange(change DocumentWatchChange) {
	for _, t := range change.UpdatedTargetIDs {
		switch {
		case change.NewDoc != nil && change.NewDoc.IsDocument():
			a.addDocument(t, change.Key, change.NewDoc.Body, change.NewDoc.Version)
		case change.NewDoc != nil && change.NewDoc.IsNoDocument():
			a.removeDocument(t, change.Key, change.NewDoc)
		default:
			a.removeDocument(t, change.Key, nil)
		}
	}
	for _, t := range change.RemovedTargetIDs {
		a.removeDocument(t, change.Key, nil)
	}
}

// addDocument upserts (key -> Added|Modified) into t's snapshotChanges,
// upserts the body into documentUpdates, and adds t to key's reverse index.
// It is a no-op unless t is active (invariant #3).
func (a *Aggregator) addDocument(t TargetID, key DocumentKey, body *document.Document, version SnapshotVersion) {
	if !a.isActiveTarget(t) {
		return
	}

	ct := Modified
	if !a.hasSyncedDocument(t, key) {
		ct = Added
	}

	a.targets.ensure(t).snapshotChanges.Set(key, ct)
	a.documentUpdates.Set(key, NewMaybeDocument(key, body, version))
	a.ensureDocumentTargetMapping(key).Add(t)
}

// removeDocument records key's removal from t's result set. If the local
// store believed t already matched key, a Removed entry is recorded (and,
// if removedDocument carries a body, it is upserted into documentUpdates);
// otherwise any pending change for key is discarded, since the add and the
// remove cancel out within the same batch. t is dropped from key's reverse
// index either way. A no-op unless t is active (invariant #3).
func (a *Aggregator) removeDocument(t TargetID, key DocumentKey, removedDocument *MaybeDocument) {
	if !a.isActiveTarget(t) {
		return
	}

	if a.hasSyncedDocument(t, key) {
		a.targets.ensure(t).snapshotChanges.Set(key, Removed)
		if removedDocument != nil {
			a.documentUpdates.Set(key, removedDocument)
		}
	} else {
		a.targets.ensure(t).snapshotChanges.Delete(key)
	}

	a.ensureDocumentTargetMapping(key).Remove(t)
}

// AddTargetChange applies a WatchTargetChange, dispatching on State for
// each target id named, in order.
func (a *Aggregator) AddTargetChange(change WatchTargetChange) {
	for _, t := range change.TargetIDs {
		switch change.State {
		case NoChange:
			if a.isActiveTarget(t) {
				a.updateResumeToken(t, change.ResumeToken)
			}
		case TargetAdded:
			a.recordTargetResponse(t)
			a.updateResumeToken(t, change.ResumeToken)
		case TargetRemoved:
			if change.Cause != nil {
				panic("watch: WatchTargetChange{State: TargetRemoved} carries a cause; " +
					"errored target removal must be surfaced and unregistered upstream, not forwarded here")
			}
			a.targets.ensure(t).pendingResponses--
		case TargetCurrent:
			if a.isActiveTarget(t) {
				a.targets.ensure(t).current = true
				a.updateResumeToken(t, change.ResumeToken)
			}
		case TargetReset:
			if a.isActiveTarget(t) {
				a.resetTarget(t)
				a.updateResumeToken(t, change.ResumeToken)
			}
		default:
			panic(change.State.String())
		}
	}
}

// recordTargetResponse decrements pendingResponses for an Added ack. When
// that brings the counter to zero, current is reset to false: the target is
// freshly (re)added and has not yet caught up.
func (a *Aggregator) recordTargetResponse(t TargetID) {
	ts := a.targets.ensure(t)
	ts.pendingResponses--
	if ts.pendingResponses == 0 {
		ts.current = false
	}
}

// HandleExistenceFilterMismatch resets t after an upstream comparator has
// found ExistenceFilterChange.Filter.Count disagrees with GetCurrentSize(t).
// The aggregator never makes this comparison itself.
func (a *Aggregator) HandleExistenceFilterMismatch(t TargetID) {
	a.resetTarget(t)
}

// resetTarget discards t's TargetState and re-issues synthetic Removed
// changes for every key the local store believed t matched as of the last
// emitted snapshot, so that a server that never re-sends them after the
// reset still sees them eliminated.
func (a *Aggregator) resetTarget(t TargetID) {
	a.targets.drop(t)

	keys := a.existingKeysCallback(t)
	if keys == nil {
		return
	}
	keys.ForEach(func(k DocumentKey) bool {
		a.removeDocument(t, k, nil)
		return true
	})
}

// GetCurrentSize returns the size the local store would observe for t if it
// applied pending snapshotChanges now: |existingKeysCallback(t)| plus the
// net of Added (+1), Modified (0), Removed (-1) deltas. ok is false when t
// has no tracked state.
func (a *Aggregator) GetCurrentSize(t TargetID) (size int, ok bool) {
	ts, exists := a.targets.get(t)
	if !exists {
		return 0, false
	}

	keys := a.existingKeysCallback(t)
	base := 0
	if keys != nil {
		base = keys.Len()
	}

	delta := 0
	ts.snapshotChanges.ForEach(func(_ DocumentKey, ct ChangeType) {
		switch ct {
		case Added:
			delta++
		case Removed:
			delta--
		case Modified:
			// no change in cardinality
		default:
			panic(ct.String())
		}
	})

	return base + delta, true
}
