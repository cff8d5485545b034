// Package events implements the best-effort editor event channel over a
// single topic, "urdf/events" (§6 "Event channel"). Publication failures
// are swallowed and must never affect the store or the orchestrator (§5
// "Shared-resource policy").
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Type enumerates the event kinds listed in §6.
type Type string

const (
	Health     Type = "health"
	Size       Type = "size"
	Graph      Type = "graph"
	Node       Type = "node"
	Clear      Type = "clear"
	Load       Type = "load"
	LoadFile   Type = "loadFile"
	Query      Type = "query"
	StartupLoad Type = "startupLoad"
	EnvLoad    Type = "envLoad"
	AppUpdate  Type = "appUpdate"
	Inference  Type = "inference"
)

// RequestInfo is the "request" field of a published event.
type RequestInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// Event is one message on the urdf/events topic.
type Event struct {
	TS       int64       `json:"ts"`
	Type     Type        `json:"type"`
	Request  RequestInfo `json:"request"`
	Response interface{} `json:"response"`
}

// Hub fans a published Event out to every connected websocket client on
// the "urdf/events" topic. A Hub with zero subscribers is a valid, common
// state: publication is always best-effort.
type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
	log  *zap.Logger
}

// NewHub builds an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: map[*websocket.Conn]struct{}{}, log: logger}
}

// ServeHTTP upgrades the connection and registers it as a subscriber until
// it disconnects. Mount this at the host's "urdf/events" path.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("events: websocket upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.subs[conn] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.subs, conn)
		h.mu.Unlock()
		_ = conn.CloseNow()
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Publish best-effort broadcasts ev to every connected subscriber.
// Marshaling or write failures are logged, never returned: per §5, the
// event channel must never affect control flow.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("events: failed to marshal event", zap.Error(err))
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for c := range h.subs {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
			h.log.Debug("events: publish to subscriber failed", zap.Error(err))
		}
	}
}
