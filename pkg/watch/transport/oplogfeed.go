package transport

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/kaleido-sync/watchagg/pkg/changestream"
	"github.com/kaleido-sync/watchagg/pkg/document"
	"github.com/kaleido-sync/watchagg/pkg/replication"
	"github.com/kaleido-sync/watchagg/pkg/watch"
	"github.com/kaleido-sync/watchagg/pkg/watch/localstore"
)

// matchSet answers which targets care about a document change; localstore.Store
// satisfies it directly.
type matchSet interface {
	MatchingTargets(key watch.DocumentKey, doc *document.Document, candidates []watch.TargetID) []watch.TargetID
}

// OplogFeed adapts a replication.Oplog tail into a transport.Feed. It rides
// a changestream.ChangeStream to do the actual tailing/decoding, the same
// insert/update/delete classification a change-stream consumer would see,
// and turns each insert or delete into the Message a watch stream client
// expects, naming every target whose QueryData the changed document now matches
// (insert) or previously matched (delete). Updates carry no full document
// body in this oplog format, so they are not observable as watch changes;
// a client resolves a document's current value from the insert/delete pair
// that replaces it.
type OplogFeed struct {
	oplog *replication.Oplog
	store matchSet
	opts  *changestream.ChangeStreamOptions
}

// NewOplogFeed builds an OplogFeed over oplog, consulting store for
// target-match decisions and polling at pollInterval (200ms if zero).
func NewOplogFeed(oplog *replication.Oplog, store *localstore.Store, pollInterval time.Duration) *OplogFeed {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	opts := changestream.DefaultChangeStreamOptions()
	opts.MaxAwaitTime = pollInterval
	return &OplogFeed{oplog: oplog, store: store, opts: opts}
}

// Messages satisfies transport.Feed by tailing the oplog from its current
// position forward through a dedicated ChangeStream scoped to all
// databases/collections, filtering to the document changes relevant to
// targets.
func (f *OplogFeed) Messages(targets []int64, out chan<- *Message, done <-chan struct{}) error {
	wanted := toTargetIDs(targets)

	cs := changestream.NewChangeStream(f.oplog, "", "", f.opts)
	if err := cs.Start(); err != nil {
		return fmt.Errorf("transport: starting change stream: %w", err)
	}
	defer cs.Close()

	for {
		select {
		case <-done:
			return nil
		case err := <-cs.Errors():
			return err
		case event, ok := <-cs.Events():
			if !ok {
				return nil
			}
			msg := f.toMessage(event)
			if msg == nil {
				continue
			}
			msg.UpdatedTargetIDs, msg.RemovedTargetIDs = f.restrictToWanted(msg, wanted)
			if len(msg.UpdatedTargetIDs) == 0 && len(msg.RemovedTargetIDs) == 0 {
				continue
			}
			select {
			case out <- msg:
			case <-done:
				return nil
			}
		}
	}
}

func (f *OplogFeed) toMessage(event *changestream.ChangeEvent) *Message {
	switch event.OperationType {
	case changestream.OperationTypeInsert:
		return f.documentMessage(event, true)
	case changestream.OperationTypeDelete:
		return f.documentMessage(event, false)
	default:
		return nil
	}
}

func (f *OplogFeed) documentMessage(event *changestream.ChangeEvent, exists bool) *Message {
	key := documentKeyOf(event)

	var body *document.Document
	if exists && event.FullDocument != nil {
		body = document.NewDocumentFromMap(event.FullDocument)
	}

	msg := &Message{
		Kind:       KindDocumentChange,
		Time:       timestamppb.New(event.Timestamp),
		Key:        string(key),
		DocExists:  exists,
		DocVersion: int64(event.ID.OpID),
	}
	if body != nil {
		msg.DocHasBody = true
		msg.DocBody = event.FullDocument
	}
	if exists {
		msg.UpdatedTargetIDs = fromTargetIDs(f.store.MatchingTargets(key, body, nil))
	} else {
		msg.RemovedTargetIDs = fromTargetIDs(f.store.MatchingTargets(key, nil, nil))
	}
	return msg
}

// restrictToWanted intersects a message's already-matched target lists with
// the caller's requested target set (empty means "all").
func (f *OplogFeed) restrictToWanted(msg *Message, wanted []watch.TargetID) (updated, removed []int64) {
	if len(wanted) == 0 {
		return msg.UpdatedTargetIDs, msg.RemovedTargetIDs
	}
	want := make(map[int64]bool, len(wanted))
	for _, t := range wanted {
		want[int64(t)] = true
	}
	for _, t := range msg.UpdatedTargetIDs {
		if want[t] {
			updated = append(updated, t)
		}
	}
	for _, t := range msg.RemovedTargetIDs {
		if want[t] {
			removed = append(removed, t)
		}
	}
	return updated, removed
}

func documentKeyOf(event *changestream.ChangeEvent) watch.DocumentKey {
	var id interface{}
	if event.DocumentKey != nil {
		id = event.DocumentKey["_id"]
	}
	return watch.DocumentKey(fmt.Sprintf("%s/%s/%v", event.Database, event.Collection, id))
}

func fromTargetIDs(ids []watch.TargetID) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
