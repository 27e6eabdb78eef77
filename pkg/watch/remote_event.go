package watch

// TargetChange is the per-target slice of a RemoteEvent: the target's
// current flag and resume token as of this snapshot, plus its added,
// modified, and removed document keys (pairwise disjoint).
type TargetChange struct {
	Current           bool
	ResumeToken       ResumeToken
	SnapshotVersion   SnapshotVersion
	AddedDocuments    *OrderedSet[DocumentKey]
	ModifiedDocuments *OrderedSet[DocumentKey]
	RemovedDocuments  *OrderedSet[DocumentKey]
}

// RemoteEvent is the consolidated snapshot delta CreateRemoteEvent emits: a
// per-target change map, the set of documents no longer referenced by any
// non-limbo target, and the document bodies accumulated since the last
// emission.
type RemoteEvent struct {
	SnapshotVersion        SnapshotVersion
	TargetChanges          map[TargetID]*TargetChange
	ResolvedLimboDocuments *OrderedSet[DocumentKey]
	DocumentUpdates        *OrderedMap[DocumentKey, *MaybeDocument]
}

// CreateRemoteEvent derives a RemoteEvent from everything accumulated since
// the previous call (or since construction), takes an implicit snapshot of
// the active targets, and clears all batch state before returning so no
// later mutation can split the emitted batch.
func (a *Aggregator) CreateRemoteEvent(version SnapshotVersion) *RemoteEvent {
	event := &RemoteEvent{
		SnapshotVersion: version,
		TargetChanges:   make(map[TargetID]*TargetChange),
	}

	for t, ts := range a.targets.states {
		if !a.isActiveTarget(t) {
			continue
		}

		queryData := a.queryDataCallback(t)

		if ts.snapshotChanges.Len() == 0 && ts.current && queryData.IsDocumentQuery() {
			a.synthesizeMissingDocument(t, ts, queryData.Path, version)
		}

		added, modified, removed := a.splitSnapshotChanges(ts)

		event.TargetChanges[t] = &TargetChange{
			Current:           ts.current,
			ResumeToken:       ts.resumeToken,
			SnapshotVersion:   version,
			AddedDocuments:    added,
			ModifiedDocuments: modified,
			RemovedDocuments:  removed,
		}

		ts.snapshotChanges = NewOrderedMap[DocumentKey, ChangeType]()
	}

	event.ResolvedLimboDocuments = a.computeResolvedLimboDocuments()
	event.DocumentUpdates = a.documentUpdates

	a.documentUpdates = NewOrderedMap[DocumentKey, *MaybeDocument]()
	a.documentTargetMapping = NewOrderedMap[DocumentKey, *OrderedSet[TargetID]]()

	return event
}

// synthesizeMissingDocument handles the document-query special case: the
// target is current with nothing pending, which for a single-document
// listen means the server confirmed the document does not exist. It
// records a direct Removed entry carrying a NoDocument body, independent
// of whether the local store had previously synced the key — the point of
// this target is precisely to learn that answer.
func (a *Aggregator) synthesizeMissingDocument(t TargetID, ts *TargetState, key DocumentKey, version SnapshotVersion) {
	noDoc := NewMaybeNoDocument(key, version)
	ts.snapshotChanges.Set(key, Removed)
	a.documentUpdates.Set(key, noDoc)
	a.ensureDocumentTargetMapping(key).Add(t)
}

// splitSnapshotChanges partitions a target's pending changes into disjoint
// added/modified/removed key sets.
func (a *Aggregator) splitSnapshotChanges(ts *TargetState) (added, modified, removed *OrderedSet[DocumentKey]) {
	added = NewOrderedSet[DocumentKey]()
	modified = NewOrderedSet[DocumentKey]()
	removed = NewOrderedSet[DocumentKey]()

	ts.snapshotChanges.ForEach(func(key DocumentKey, ct ChangeType) {
		switch ct {
		case Added:
			added.Add(key)
		case Modified:
			modified.Add(key)
		case Removed:
			removed.Add(key)
		default:
			panic(ct.String())
		}
	})

	return added, modified, removed
}

// computeResolvedLimboDocuments walks documentTargetMapping and collects
// every key whose active claimants (if any) are all LimboResolution
// targets. A key with no active claimants is vacuously included.
func (a *Aggregator) computeResolvedLimboDocuments() *OrderedSet[DocumentKey] {
	resolved := NewOrderedSet[DocumentKey]()

	a.documentTargetMapping.ForEach(func(key DocumentKey, targetSet *OrderedSet[TargetID]) {
		isLimboOnly := true
		targetSet.ForEach(func(t TargetID) bool {
			if !a.isActiveTarget(t) {
				return true
			}
			qd := a.queryDataCallback(t)
			if qd.Purpose != PurposeLimboResolution {
				isLimboOnly = false
				return false
			}
			return true
		})
		if isLimboOnly {
			resolved.Add(key)
		}
	})

	return resolved
}
