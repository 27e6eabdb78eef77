package handlers

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// upgrader is the WebSocket upgrader for the debug event feed; origins are
// unrestricted since this surface is meant for local/trusted debugging.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventHub fans out every RemoteEvent emitted by an Aggregator to connected
// WebSocket subscribers, mirroring the changestream connection manager's
// registry/broadcast shape.
type EventHub struct {
	mu          sync.RWMutex
	connections map[string]*eventConnection
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{connections: make(map[string]*eventConnection)}
}

type eventConnection struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *eventConnection) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Broadcast renders event as JSON and pushes it to every connected
// subscriber, dropping any connection that fails to accept the frame.
func (h *EventHub) Broadcast(event *watch.RemoteEvent) {
	view := renderRemoteEvent(event)

	h.mu.RLock()
	conns := make([]*eventConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(view); err != nil {
			h.remove(c.id)
		}
	}
}

func (h *EventHub) add(c *eventConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.id] = c
}

func (h *EventHub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

type remoteEventView struct {
	SnapshotVersion int64                     `json:"snapshotVersion"`
	TargetChanges   map[string]targetChangeView `json:"targetChanges"`
	ResolvedLimbo   []string                  `json:"resolvedLimboDocuments"`
}

type targetChangeView struct {
	Current     bool     `json:"current"`
	ResumeToken string   `json:"resumeToken"`
	Added       []string `json:"added"`
	Modified    []string `json:"modified"`
	Removed     []string `json:"removed"`
}

func renderRemoteEvent(event *watch.RemoteEvent) remoteEventView {
	view := remoteEventView{
		SnapshotVersion: int64(event.SnapshotVersion),
		TargetChanges:   make(map[string]targetChangeView, len(event.TargetChanges)),
	}

	for t, tc := range event.TargetChanges {
		view.TargetChanges[fmt.Sprintf("%d", int64(t))] = targetChangeView{
			Current:     tc.Current,
			ResumeToken: string(tc.ResumeToken),
			Added:       keysOf(tc.AddedDocuments),
			Modified:    keysOf(tc.ModifiedDocuments),
			Removed:     keysOf(tc.RemovedDocuments),
		}
	}

	event.ResolvedLimboDocuments.ForEach(func(k watch.DocumentKey) bool {
		view.ResolvedLimbo = append(view.ResolvedLimbo, string(k))
		return true
	})

	return view
}

func keysOf(set *watch.OrderedSet[watch.DocumentKey]) []string {
	keys := make([]string, 0, set.Len())
	set.ForEach(func(k watch.DocumentKey) bool {
		keys = append(keys, string(k))
		return true
	})
	return keys
}

// HandleEvents upgrades the connection and registers it with hub until the
// client disconnects; it sends a periodic heartbeat so idle connections
// aren't reaped by intermediaries.
func (h *Handlers) HandleEvents(hub *EventHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("watchagg: failed to upgrade websocket connection: %v", err)
			return
		}

		c := &eventConnection{id: fmt.Sprintf("ws-%d", time.Now().UnixNano()), conn: conn}
		hub.add(c)
		defer func() {
			hub.remove(c.id)
			conn.Close()
		}()

		if err := c.send(map[string]string{"type": "connected"}); err != nil {
			return
		}

		heartbeat := time.NewTicker(30 * time.Second)
		defer heartbeat.Stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-heartbeat.C:
				if err := c.send(map[string]string{"type": "heartbeat"}); err != nil {
					return
				}
			}
		}
	}
}

// SetupWebSocketRoutes mounts the event feed route on r.
func SetupWebSocketRoutes(r chi.Router, h *Handlers, hub *EventHub) {
	r.Get("/_ws/events", h.HandleEvents(hub))
}
