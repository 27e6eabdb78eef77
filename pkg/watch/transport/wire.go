// Package transport is the network/RPC collaborator the aggregator itself
// never sees: it decodes a gRPC watch stream into the watch.WatchChange
// values watch.Aggregator.Apply expects. Wire messages are JSON rather than
// compiled .proto messages (no protoc is available to this module), but the
// stream still rides on google.golang.org/grpc, and timestamps use
// google.golang.org/protobuf's well-known Timestamp type, matching how the
// rest of the ecosystem represents wire-level time.
package transport

import (
	"fmt"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/kaleido-sync/watchagg/pkg/document"
	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// MessageKind tags which watch.WatchChange variant a Message carries.
type MessageKind uint8

const (
	KindDocumentChange MessageKind = iota
	KindTargetChange
	KindExistenceFilter
)

// Message is the single envelope type carried over the watch stream. Only
// the fields relevant to Kind are populated; the rest are zero.
type Message struct {
	Kind MessageKind `json:"kind"`
	Time *timestamppb.Timestamp `json:"time,omitempty"`

	// KindDocumentChange
	UpdatedTargetIDs []int64 `json:"updated_target_ids,omitempty"`
	RemovedTargetIDs []int64 `json:"removed_target_ids,omitempty"`
	Key              string  `json:"key,omitempty"`
	DocBody          map[string]interface{} `json:"doc_body,omitempty"`
	DocExists        bool    `json:"doc_exists"`
	DocHasBody       bool    `json:"doc_has_body"`
	DocVersion       int64   `json:"doc_version,omitempty"`

	// KindTargetChange
	TargetState string  `json:"target_state,omitempty"`
	TargetIDs   []int64 `json:"target_ids,omitempty"`
	ResumeToken []byte  `json:"resume_token,omitempty"`
	Cause       string  `json:"cause,omitempty"`

	// KindExistenceFilter
	FilterTargetID int64 `json:"filter_target_id,omitempty"`
	FilterCount    int   `json:"filter_count,omitempty"`
}

// Decode turns a Message into the watch.WatchChange it describes. bodyDecoder
// turns the wire-level field map into a *document.Document; callers
// typically pass document.NewDocumentFromMap. The caller is responsible for
// calling Apply on the result.
func Decode(msg *Message, bodyDecoder func(map[string]interface{}) *document.Document) (watch.WatchChange, error) {
	switch msg.Kind {
	case KindDocumentChange:
		return decodeDocumentChange(msg, bodyDecoder), nil
	case KindTargetChange:
		return decodeTargetChange(msg)
	case KindExistenceFilter:
		return watch.ExistenceFilterChange{
			TargetID: watch.TargetID(msg.FilterTargetID),
			Filter:   watch.ExistenceFilter{Count: msg.FilterCount},
		}, nil
	default:
		return nil, fmt.Errorf("transport: unrecognized message kind %d", msg.Kind)
	}
}

func decodeDocumentChange(msg *Message, bodyDecoder func(map[string]interface{}) *document.Document) watch.DocumentWatchChange {
	change := watch.DocumentWatchChange{
		Key:              watch.DocumentKey(msg.Key),
		UpdatedTargetIDs: toTargetIDs(msg.UpdatedTargetIDs),
		RemovedTargetIDs: toTargetIDs(msg.RemovedTargetIDs),
	}

	version := watch.SnapshotVersion(msg.DocVersion)
	switch {
	case msg.DocExists && msg.DocHasBody:
		body := bodyDecoder(msg.DocBody)
		change.NewDoc = watch.NewMaybeDocument(change.Key, body, version)
	case !msg.DocExists:
		change.NewDoc = watch.NewMaybeNoDocument(change.Key, version)
	}

	return change
}

func decodeTargetChange(msg *Message) (watch.WatchTargetChange, error) {
	state, err := parseTargetState(msg.TargetState)
	if err != nil {
		return watch.WatchTargetChange{}, err
	}

	var cause error
	if msg.Cause != "" {
		cause = fmt.Errorf("transport: server reported target error: %s", msg.Cause)
	}

	return watch.WatchTargetChange{
		State:       state,
		TargetIDs:   toTargetIDs(msg.TargetIDs),
		ResumeToken: watch.ResumeToken(msg.ResumeToken),
		Cause:       cause,
	}, nil
}

func parseTargetState(s string) (watch.TargetChangeState, error) {
	switch s {
	case "no_change":
		return watch.NoChange, nil
	case "added":
		return watch.TargetAdded, nil
	case "removed":
		return watch.TargetRemoved, nil
	case "current":
		return watch.TargetCurrent, nil
	case "reset":
		return watch.TargetReset, nil
	default:
		return 0, fmt.Errorf("transport: unrecognized target state %q", s)
	}
}

func toTargetIDs(raw []int64) []watch.TargetID {
	if raw == nil {
		return nil
	}
	ids := make([]watch.TargetID, len(raw))
	for i, v := range raw {
		ids[i] = watch.TargetID(v)
	}
	return ids
}
