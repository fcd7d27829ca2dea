// Package sse fans session snapshots out to server-sent-event clients.
package sse

import (
	"sync"

	"github.com/photolangage/photolangage/internal/replication"
)

const clientBuffer = 8

// Client is one SSE stream, keyed by client id and bound to a session code.
type Client struct {
	ClientID    string
	SessionCode string
	MessageChan chan replication.Envelope

	closeOnce sync.Once
}

func NewClient(clientID, sessionCode string) *Client {
	return &Client{
		ClientID:    clientID,
		SessionCode: sessionCode,
		MessageChan: make(chan replication.Envelope, clientBuffer),
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.MessageChan)
	})
}

// Hub manages SSE clients. Streams are tracked per connection, not per
// client id, so two streams presenting the same id never interfere.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastSnapshot delivers a snapshot to every client watching the session
// code. Slow clients are skipped, not waited on; they catch up on the next
// snapshot.
func (h *Hub) BroadcastSnapshot(code string, env replication.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.SessionCode == code {
			trySend(c, env)
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

func trySend(c *Client, env replication.Envelope) bool {
	select {
	case c.MessageChan <- env:
		return true
	default:
		return false
	}
}
