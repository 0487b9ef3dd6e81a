package mockd

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	hubWriteWait  = 10 * time.Second
	hubPongWait   = 60 * time.Second
	hubPingPeriod = (hubPongWait * 9) / 10

	// clientBuffer is the per-connection outbound queue. A client that
	// can't keep up gets dropped rather than blocking every broadcast.
	clientBuffer = 32
)

// eventFrame is the wire envelope the client's bridge decodes:
// {"event": "issue:created", "data": {...}}.
type eventFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub holds the connected websocket clients and broadcasts every mutation
// event to all of them. There is no per-user routing — the event stream is
// a public firehose, identical for every subscriber.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// The dev server accepts any origin. Do not copy this into
			// anything internet-facing.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*hubClient]bool),
	}
}

// Broadcast sends one event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(eventFrame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("event", event),
			slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the connection, not the broadcast.
			h.logger.Warn("dropping slow websocket client")
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// handleWS upgrades the request and runs the connection's pumps.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", slog.Int("total", total))

	go h.writePump(client)
	go h.readPump(client)
}

// readPump drains inbound frames. Clients don't send anything meaningful —
// the stream is one-way — but reading is what notices the disconnect and
// answers pings.
func (h *Hub) readPump(client *hubClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes queued events and keepalive pings to the socket.
func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(hubPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
}
