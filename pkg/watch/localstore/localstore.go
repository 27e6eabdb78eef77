// Package localstore is a minimal, in-memory local document store that
// backs a watch.Aggregator's two read callbacks: QueryDataCallback and
// ExistingKeysCallback. It is deliberately simple — no indexes, no
// persistence — since the aggregator only ever asks it two narrow
// questions: "what is target t listening for?" and "what keys does target
// t currently believe it has synced?".
package localstore

import (
	"sync"

	"github.com/kaleido-sync/watchagg/pkg/document"
	"github.com/kaleido-sync/watchagg/pkg/query"
	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// listen tracks one target's registration: its QueryData plus the set of
// document keys the store currently believes are synced for it.
type listen struct {
	data    *watch.QueryData
	synced  *watch.OrderedSet[watch.DocumentKey]
}

// Store is a thread-safe, in-memory local store. Documents are held
// independently of any particular target's listen; each listen tracks its
// own synced-key set so resetTarget and limbo resolution behave the same
// way they would against a real persistent cache.
type Store struct {
	mu        sync.RWMutex
	documents map[watch.DocumentKey]*document.Document
	listens   map[watch.TargetID]*listen
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		documents: make(map[watch.DocumentKey]*document.Document),
		listens:   make(map[watch.TargetID]*listen),
	}
}

// Listen registers target t against qd and seeds its synced-key set from
// whatever documents in the store already match it. Re-registering an
// existing target replaces its QueryData and resets its synced-key set.
func (s *Store) Listen(t watch.TargetID, qd *watch.QueryData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := watch.NewOrderedSet[watch.DocumentKey]()
	for key, doc := range s.documents {
		if s.matchesLocked(qd, key, doc) {
			synced.Add(key)
		}
	}
	s.listens[t] = &listen{data: qd, synced: synced}
}

// StopListening forgets everything the store tracked for t.
func (s *Store) StopListening(t watch.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listens, t)
}

// ApplyRemoteEvent folds a RemoteEvent back into the store: document
// bodies are upserted or evicted per DocumentUpdates, and each target's
// synced-key set is updated from its TargetChange so the next
// QueryDataCallback/ExistingKeysCallback round reflects this emission.
func (s *Store) ApplyRemoteEvent(event *watch.RemoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.DocumentUpdates.ForEach(func(key watch.DocumentKey, md *watch.MaybeDocument) {
		if md.IsDocument() {
			s.documents[key] = md.Body
		} else {
			delete(s.documents, key)
		}
	})

	for t, tc := range event.TargetChanges {
		l, ok := s.listens[t]
		if !ok {
			continue
		}
		tc.AddedDocuments.ForEach(func(key watch.DocumentKey) bool {
			l.synced.Add(key)
			return true
		})
		tc.RemovedDocuments.ForEach(func(key watch.DocumentKey) bool {
			l.synced.Remove(key)
			return true
		})
	}
}

func (s *Store) matchesLocked(qd *watch.QueryData, key watch.DocumentKey, doc *document.Document) bool {
	if qd.DocumentQuery {
		return qd.Path == key
	}
	ok, err := qd.Query.Matches(doc)
	return err == nil && ok
}

// MatchingTargets returns every currently-listening target whose QueryData
// matches doc at key, restricted to candidates if it is non-empty. A feed
// adapter calls this to decide which targets an upstream change is relevant
// to before emitting a wire message for it. Pass a nil doc to instead ask
// which candidates are currently tracking key as synced (the right question
// for a deletion, where there is no longer a body to match against).
func (s *Store) MatchingTargets(key watch.DocumentKey, doc *document.Document, candidates []watch.TargetID) []watch.TargetID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := func(t watch.TargetID) bool {
		if len(candidates) == 0 {
			return true
		}
		for _, c := range candidates {
			if c == t {
				return true
			}
		}
		return false
	}

	var matched []watch.TargetID
	for t, l := range s.listens {
		if !want(t) {
			continue
		}
		if doc == nil {
			if l.synced.Contains(key) {
				matched = append(matched, t)
			}
			continue
		}
		if s.matchesLocked(l.data, key, doc) {
			matched = append(matched, t)
		}
	}
	return matched
}

// QueryDataCallback satisfies watch.QueryDataCallback.
func (s *Store) QueryDataCallback(t watch.TargetID) *watch.QueryData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listens[t]
	if !ok {
		return nil
	}
	return l.data
}

// ExistingKeysCallback satisfies watch.ExistingKeysCallback.
func (s *Store) ExistingKeysCallback(t watch.TargetID) *watch.OrderedSet[watch.DocumentKey] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listens[t]
	if !ok {
		return watch.NewOrderedSet[watch.DocumentKey]()
	}
	return l.synced
}

// NewDocumentQuery builds QueryData for a single-document listen, the
// shape watch.QueryData.IsDocumentQuery expects.
func NewDocumentQuery(t watch.TargetID, key watch.DocumentKey) *watch.QueryData {
	return &watch.QueryData{
		TargetID:      t,
		Query:         query.NewQuery(nil),
		Purpose:       watch.PurposeListen,
		Path:          key,
		DocumentQuery: true,
	}
}

// NewCollectionQuery builds QueryData for a filter-based listen.
func NewCollectionQuery(t watch.TargetID, q *query.Query) *watch.QueryData {
	return &watch.QueryData{
		TargetID: t,
		Query:    q,
		Purpose:  watch.PurposeListen,
	}
}

// NewLimboQuery builds QueryData for a limbo-resolution listen on a single
// document key.
func NewLimboQuery(t watch.TargetID, key watch.DocumentKey) *watch.QueryData {
	return &watch.QueryData{
		TargetID:      t,
		Query:         query.NewQuery(nil),
		Purpose:       watch.PurposeLimboResolution,
		Path:          key,
		DocumentQuery: true,
	}
}
