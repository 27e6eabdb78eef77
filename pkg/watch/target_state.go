package watch

// TargetState is the aggregator's per-target bookkeeping: outstanding
// request acks, the current flag, the last resume token, and the pending
// document changes accumulated since the last emitted snapshot.
type TargetState struct {
	pendingResponses int
	current          bool
	resumeToken      ResumeToken
	snapshotChanges  *OrderedMap[DocumentKey, ChangeType]
}

func newTargetState() *TargetState {
	return &TargetState{
		snapshotChanges: NewOrderedMap[DocumentKey, ChangeType](),
	}
}

// PendingResponses returns the number of outstanding ADD/REMOVE acks owed
// by the server for this target.
func (t *TargetState) PendingResponses() int { return t.pendingResponses }

// Current reports whether the server has declared this target caught up.
func (t *TargetState) Current() bool { return t.current }

// ResumeToken returns the target's last-known resume token.
func (t *TargetState) ResumeToken() ResumeToken { return t.resumeToken }

// targetStateStore is the mechanical lookup-or-insert storage for
// TargetState values; it carries no policy of its own.
type targetStateStore struct {
	states map[TargetID]*TargetState
}

func newTargetStateStore() *targetStateStore {
	return &targetStateStore{states: make(map[TargetID]*TargetState)}
}

// ensure returns the TargetState for t, creating one lazily if absent.
func (s *targetStateStore) ensure(t TargetID) *TargetState {
	ts, ok := s.states[t]
	if !ok {
		ts = newTargetState()
		s.states[t] = ts
	}
	return ts
}

// get returns the TargetState for t without creating one.
func (s *targetStateStore) get(t TargetID) (*TargetState, bool) {
	ts, ok := s.states[t]
	return ts, ok
}

// drop removes t's state entirely.
func (s *targetStateStore) drop(t TargetID) {
	delete(s.states, t)
}
