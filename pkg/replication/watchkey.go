package replication

import "fmt"

// WatchKey derives the document key a watch.Aggregator would use to index
// this entry: the same database/collection/_id addressing the rest of the
// replication log already carries, joined into a single path.
func (e *OplogEntry) WatchKey() string {
	id := e.DocID
	if id == nil && e.Document != nil {
		id = e.Document["_id"]
	}
	return fmt.Sprintf("%s/%s/%v", e.Database, e.Collection, id)
}

// ResumeToken returns the token a watch stream client should echo back to
// resume after this entry: the oplog is itself the durable, monotonic
// source of resume positions, so the token is just the entry's OpID.
func (e *OplogEntry) ResumeToken() []byte {
	buf := make([]byte, 8)
	id := uint64(e.OpID)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(id)
		id >>= 8
	}
	return buf
}
