package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub tracks live connections and their room membership, and fans
// outbound events out to them. It implements service.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection            // connID -> conn
	rooms map[string]map[string]*Connection // roomCode -> connID -> conn

	broadcast chan *outbound
}

// Connection is one client socket. RoomCode is empty until the client
// joins or reconnects to a room.
type Connection struct {
	ID       string
	RoomCode string
	Send     chan []byte
}

type outbound struct {
	roomCode string
	connID   string // non-empty: deliver to this connection only
	except   string // non-empty: deliver to the room minus this connection
	data     []byte
}

// NewHub creates a hub and starts its event loop.
func NewHub() *Hub {
	h := &Hub{
		conns:     make(map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		broadcast: make(chan *outbound, 256),
	}
	go h.run()
	return h
}

// run fans queued messages out to their targets. Fan-out happens on one
// goroutine so per-connection delivery order matches enqueue order.
func (h *Hub) run() {
	for msg := range h.broadcast {
		h.mu.RLock()
		if msg.connID != "" {
			if conn, ok := h.conns[msg.connID]; ok {
				h.send(conn, msg.data)
			}
		} else if members, ok := h.rooms[msg.roomCode]; ok {
			for id, conn := range members {
				if id == msg.except {
					continue
				}
				h.send(conn, msg.data)
			}
		}
		h.mu.RUnlock()
	}
}

// send never blocks the hub loop; a slow client loses the message.
func (h *Hub) send(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connId", conn.ID).Msg("send buffer full, dropping message")
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()
	log.Debug().Str("connId", conn.ID).Msg("connection registered")
}

// Unregister removes a connection and its room membership, closing its
// send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if existing, ok := h.conns[conn.ID]; ok && existing == conn {
		delete(h.conns, conn.ID)
		h.leaveLocked(conn)
		close(conn.Send)
	}
	h.mu.Unlock()
	log.Debug().Str("connId", conn.ID).Msg("connection unregistered")
}

// Assign moves a connection into a room, leaving any previous one. A
// connection belongs to at most one room at a time.
func (h *Hub) Assign(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if conn.RoomCode == roomCode {
		return
	}
	h.leaveLocked(conn)
	conn.RoomCode = roomCode
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]*Connection)
	}
	h.rooms[roomCode][connID] = conn
}

// Leave removes a connection from its room without closing it.
func (h *Hub) Leave(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[connID]; ok {
		h.leaveLocked(conn)
	}
}

func (h *Hub) leaveLocked(conn *Connection) {
	if conn.RoomCode == "" {
		return
	}
	if members, ok := h.rooms[conn.RoomCode]; ok {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, conn.RoomCode)
		}
	}
	conn.RoomCode = ""
}

func (h *Hub) enqueue(msg *outbound, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal outbound payload")
		return
	}
	data, err := json.Marshal(&Message{Type: event, Payload: body})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal outbound envelope")
		return
	}
	msg.data = data
	h.broadcast <- msg
}

// ToRoom sends an event to every connection in a room (implements
// service.Broadcaster).
func (h *Hub) ToRoom(roomCode string, event string, payload interface{}) {
	h.enqueue(&outbound{roomCode: roomCode}, event, payload)
}

// ToRoomExcept sends an event to a room minus one connection.
func (h *Hub) ToRoomExcept(roomCode, exceptConnID string, event string, payload interface{}) {
	h.enqueue(&outbound{roomCode: roomCode, except: exceptConnID}, event, payload)
}

// ToConn sends an event to a single connection.
func (h *Hub) ToConn(connID string, event string, payload interface{}) {
	h.enqueue(&outbound{connID: connID}, event, payload)
}
