package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"dropzone/internal/eventbus"
	"dropzone/internal/gameerr"
	"dropzone/internal/room"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	outboundDrainInterval = 20 * time.Millisecond
	outboundDrainBatch    = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks one player's WebSocket connection within a room.
type wsClient struct {
	conn     *websocket.Conn
	ip       string
	roomID   string
	playerID string
	send     chan []byte
}

// WebSocketHub fans out per-room outbound events to that room's clients
// and dispatches inbound client messages into the room's Input queue
// (spec.md §6's client->server event list). One hub serves every room;
// clients are partitioned by roomID rather than one hub per room, since
// the register/unregister/broadcast bookkeeping is identical either way
// and a shared hub keeps connection-limit accounting global.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]*wsClient // roomID -> conns

	register   chan *wsClient
	unregister chan *wsClient

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*websocket.Conn]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run starts the hub's registration loop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.roomID] == nil {
				h.clients[client.roomID] = make(map[*websocket.Conn]*wsClient)
			}
			h.clients[client.roomID][client.conn] = client
			count := h.totalLocked()
			h.mu.Unlock()

			log.Printf("client %s connected to room %s (%d total)", client.playerID, client.roomID, count)
			UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.roomID]; ok {
				if _, ok := conns[client.conn]; ok {
					h.wsLimiter.Release(client.ip)
					delete(conns, client.conn)
					close(client.send)
					client.conn.Close()
				}
				if len(conns) == 0 {
					delete(h.clients, client.roomID)
				}
			}
			count := h.totalLocked()
			h.mu.Unlock()

			UpdateWSConnections(count)
		}
	}
}

func (h *WebSocketHub) totalLocked() int {
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// ClientCount returns the number of connected clients across every room.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalLocked()
}

// BroadcastToRoom sends an event to every client currently connected to
// roomID. Used for the periodic roomSnapshot push and for draining a
// room's outbound eventbus queue.
func (h *WebSocketHub) BroadcastToRoom(roomID string, event string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[roomID] {
		select {
		case client.send <- msg:
		default:
			// backpressure: drop rather than block the hub
		}
	}
	IncrementWSMessages()
}

// StartRoomLoop drains a room's outbound eventbus queue and periodically
// pushes a roomSnapshot, fanning both out only to that room's clients
// (spec.md §6's "all addressed to a specific room").
func (h *WebSocketHub) StartRoomLoop(rm *room.Room) {
	ticker := time.NewTicker(outboundDrainInterval)
	snapshotTicker := time.NewTicker(100 * time.Millisecond)

	go func() {
		defer ticker.Stop()
		defer snapshotTicker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, ev := range rm.DrainOutbound(outboundDrainBatch) {
					h.BroadcastToRoom(rm.ID, ev.Type.String(), json.RawMessage(ev.Payload))
				}
			case <-snapshotTicker.C:
				if h.roomHasClients(rm.ID) {
					h.BroadcastToRoom(rm.ID, eventbus.RoomSnapshot.String(), rm.Snapshot())
				}
			}
		}
	}()
}

func (h *WebSocketHub) roomHasClients(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[roomID]) > 0
}

// HandleWebSocket upgrades a connection, binds it to a room/player and
// starts its read/write pumps. roomID and playerID come from query params
// (?room=<id>&player=<id>); the room must already exist.
func (h *WebSocketHub) HandleWebSocket(manager *room.Manager, w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("websocket connection rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("websocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	roomID := r.URL.Query().Get("room")
	playerID := r.URL.Query().Get("player")
	playerName := r.URL.Query().Get("name")
	if playerName == "" {
		playerName = playerID
	}

	rm := manager.GetRoom(roomID)
	if rm == nil || playerID == "" {
		h.wsLimiter.Release(ip)
		http.Error(w, "room or player not specified", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	rm.AddPlayer(playerID, playerName)

	client := &wsClient{conn: conn, ip: ip, roomID: roomID, playerID: playerID, send: make(chan []byte, 64)}
	h.register <- client

	go h.writePump(client)
	go h.readPump(rm, client)
}

func (h *WebSocketHub) writePump(client *wsClient) {
	for msg := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) readPump(rm *room.Room, client *wsClient) {
	defer func() {
		rm.RemovePlayer(client.playerID)
		h.unregister <- client
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			log.Printf("room %s player %s: %v", rm.ID, client.playerID, gameerr.Validation("malformed client message envelope"))
			continue
		}

		if gerr := dispatchClientEvent(rm, client.playerID, envelope.Event, envelope.Data); gerr != nil {
			// Desync/Validation errors are dropped silently; server state
			// stays authoritative (spec.md §7).
			log.Printf("room %s player %s: %v", rm.ID, client.playerID, gerr)
		}
	}
}
