// Package watch implements the client-side watch change aggregator: the
// state machine that turns a stream of server watch events into batched
// per-target RemoteEvent snapshots, mirroring the accumulator a document-sync
// client keeps between consistent snapshots of its listen targets.
package watch

import (
	"fmt"

	"github.com/kaleido-sync/watchagg/pkg/document"
	"github.com/kaleido-sync/watchagg/pkg/query"
)

// TargetID identifies a single server-registered listen target. It is
// assigned by the client when it registers a listen and is otherwise opaque.
type TargetID int64

// ResumeToken is an opaque token a server hands back so a stream can be
// resumed without re-sending matched data. An empty token means "none yet".
type ResumeToken []byte

// Empty reports whether the token carries no bytes.
func (t ResumeToken) Empty() bool {
	return len(t) == 0
}

// SnapshotVersion is a monotonically increasing logical timestamp with a
// total order. The zero value means "unknown" / "no version yet".
type SnapshotVersion int64

// Unknown is the zero SnapshotVersion, meaning no version has been assigned.
const Unknown SnapshotVersion = 0

// Less reports whether v sorts before other.
func (v SnapshotVersion) Less(other SnapshotVersion) bool {
	return v < other
}

// DocumentKey is the ordered identifier used to key documents, modeled as a
// slash-delimited resource path ("database/collection/id"), the same
// addressing scheme the rest of this module uses for documents.
type DocumentKey string

// Less gives DocumentKey a total order for deterministic iteration.
func (k DocumentKey) Less(other DocumentKey) bool {
	return k < other
}

// MaybeDocumentKind tags the variant held by a MaybeDocument.
type MaybeDocumentKind int

const (
	// KindDocument means the document exists with a known body.
	KindDocument MaybeDocumentKind = iota
	// KindNoDocument means the document is known to not exist.
	KindNoDocument
)

// MaybeDocument is the tagged {Document, NoDocument} variant from the data
// model: either a document body at a version, or an authoritative absence
// at a version. A removal carrying no MaybeDocument at all (the document
// fell out of view without a body) is represented by a nil *MaybeDocument
// at call sites, not by a third MaybeDocumentKind.
type MaybeDocument struct {
	Kind    MaybeDocumentKind
	Key     DocumentKey
	Body    *document.Document
	Version SnapshotVersion
}

// NewMaybeDocument builds the Document variant.
func NewMaybeDocument(key DocumentKey, body *document.Document, version SnapshotVersion) *MaybeDocument {
	return &MaybeDocument{Kind: KindDocument, Key: key, Body: body, Version: version}
}

// NewMaybeNoDocument builds the NoDocument variant.
func NewMaybeNoDocument(key DocumentKey, version SnapshotVersion) *MaybeDocument {
	return &MaybeDocument{Kind: KindNoDocument, Key: key, Version: version}
}

// IsDocument reports whether this is the Document variant.
func (m *MaybeDocument) IsDocument() bool { return m.Kind == KindDocument }

// IsNoDocument reports whether this is the NoDocument variant.
func (m *MaybeDocument) IsNoDocument() bool { return m.Kind == KindNoDocument }

// ChangeType is the per-document delta kind recorded in a target's pending
// snapshot changes.
type ChangeType int

const (
	Added ChangeType = iota
	Modified
	Removed
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		panic(fmt.Sprintf("watch: unrecognized ChangeType %d", int(c)))
	}
}

// QueryPurpose distinguishes why a target is being listened to. Only the
// LimboResolution value changes aggregator behavior (resolved-limbo
// computation); the others are carried through for completeness.
type QueryPurpose int

const (
	// PurposeListen is an ordinary user-registered listen.
	PurposeListen QueryPurpose = iota
	// PurposeExistenceFilterMismatch is a target reissued to re-derive the
	// full result set after an existence-filter mismatch.
	PurposeExistenceFilterMismatch
	// PurposeLimboResolution is a single-document target used to resolve
	// whether a referenced-but-unseen document exists.
	PurposeLimboResolution
)

// QueryData is the collaborator-supplied description of what a target is
// listening to: its query, why it exists, and (for single-document
// listens) the document path being watched.
type QueryData struct {
	TargetID      TargetID
	Query         *query.Query
	Purpose       QueryPurpose
	Path          DocumentKey
	DocumentQuery bool
}

// IsDocumentQuery reports whether this target is a single-document listen,
// i.e. query.path names exactly one document rather than a collection.
func (q *QueryData) IsDocumentQuery() bool {
	return q.DocumentQuery
}

// QueryDataCallback resolves the current QueryData for a target, or nil if
// the user has stopped listening to it.
type QueryDataCallback func(TargetID) *QueryData

// ExistingKeysCallback returns the set of document keys the local store
// believes target t matched as of the last emitted snapshot.
type ExistingKeysCallback func(TargetID) *OrderedSet[DocumentKey]
