package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Hub fans session snapshots out to the websocket clients watching them.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

type Stats struct {
	Sessions int `json:"sessions"`
	Clients  int `json:"clients"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]struct{})}
}

// Add registers ws under topic and sends it first, so the client starts from
// the current state.
func (h *Hub) Add(topic string, ws *websocket.Conn, first any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[topic]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.clients[topic] = set
	}
	set[ws] = struct{}{}
	if first != nil {
		h.writeLocked(topic, ws, first)
	}
}

func (h *Hub) Remove(topic string, ws *websocket.Conn) {
	h.mu.Lock()
	h.removeLocked(topic, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish sends v as JSON to every client of topic. Clients that fail to
// accept the write are dropped.
func (h *Hub) Publish(topic string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients[topic] {
		h.writeLocked(topic, ws, v)
	}
}

func (h *Hub) writeLocked(topic string, ws *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode event", "topic", topic, "err", err)
		return
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
		_ = ws.Close()
		h.removeLocked(topic, ws)
	}
}

func (h *Hub) removeLocked(topic string, ws *websocket.Conn) {
	set := h.clients[topic]
	delete(set, ws)
	if len(set) == 0 {
		delete(h.clients, topic)
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Stats{Sessions: len(h.clients)}
	for _, set := range h.clients {
		st.Clients += len(set)
	}
	return st
}
