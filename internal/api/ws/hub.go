// Package ws bridges remote clients into the replication channel over
// WebSocket. A connected client is a peer on the broadcast: it may send the
// sync sentinel or full snapshots, and receives everything published for its
// session code.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/photolangage/photolangage/internal/replication"
)

// Hub tracks WebSocket peers per session code and plugs them into the
// replication channel.
type Hub struct {
	channel  replication.Channel
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	clients     map[*Client]bool
	unsubscribe func()
}

func NewHub(channel replication.Channel, logger zerolog.Logger) *Hub {
	return &Hub{
		channel: channel,
		logger:  logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// ServeHTTP upgrades the connection and joins the client to the sync channel
// for the session code given in the "code" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
		code: code,
	}
	if err := h.register(client); err != nil {
		h.logger.Warn().Err(err).Str("code", code).Msg("sync subscribe failed")
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[client.code]
	if !ok {
		rm = &room{clients: make(map[*Client]bool)}
		code := client.code
		unsub, err := h.channel.Subscribe(code, func(msg replication.Message) {
			h.forward(code, msg)
		})
		if err != nil {
			return err
		}
		rm.unsubscribe = unsub
		h.rooms[code] = rm
	}
	rm.clients[client] = true
	return nil
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[client.code]
	if !ok {
		return
	}
	if _, ok := rm.clients[client]; ok {
		delete(rm.clients, client)
		close(client.send)
	}
	if len(rm.clients) == 0 {
		rm.unsubscribe()
		delete(h.rooms, client.code)
	}
}

// forward pushes a channel message out to every peer of the session code.
func (h *Hub) forward(code string, msg replication.Message) {
	payload := []byte(`"` + replication.SyncSentinel + `"`)
	if !msg.SyncRequest {
		encoded, err := replication.Encode(msg.Envelope)
		if err != nil {
			h.logger.Warn().Err(err).Msg("snapshot encode failed")
			return
		}
		payload = encoded
	}
	h.mu.Lock()
	var targets []*Client
	if rm, ok := h.rooms[code]; ok {
		for c := range rm.clients {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			// Slow peer; it will re-sync from the next snapshot.
		}
	}
}

// inbound handles a payload received from a peer.
func (h *Hub) inbound(ctx context.Context, code string, data []byte) {
	msg, err := replication.Decode(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("code", code).Msg("invalid sync payload")
		return
	}
	if msg.SyncRequest {
		if err := h.channel.RequestSync(ctx, code); err != nil {
			h.logger.Warn().Err(err).Msg("sync request failed")
		}
		return
	}
	if err := h.channel.Publish(ctx, code, msg.Envelope); err != nil {
		h.logger.Warn().Err(err).Msg("peer snapshot publish failed")
	}
}

// Stop closes every peer connection and subscription.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, rm := range h.rooms {
		for c := range rm.clients {
			delete(rm.clients, c)
			close(c.send)
		}
		rm.unsubscribe()
		delete(h.rooms, code)
	}
}
