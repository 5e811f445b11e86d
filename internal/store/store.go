package store

import "sync"

// RoomStore is the authoritative in-memory table of active rooms, keyed
// by room code, with secondary lookup by durable game id and by
// participant id -> connection id. The store lock only guards the maps;
// room state is guarded by each room's own lock. The store never takes
// a room lock while holding its own, so callers may consult the store
// while holding a room lock, but not the other way around.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byGameID map[string]string // game id -> room code
	conns    map[string]string // participant id -> connection id
	byConn   map[string]string // connection id -> participant id
}

// NewRoomStore creates an empty registry.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:    make(map[string]*Room),
		byGameID: make(map[string]string),
		conns:    make(map[string]string),
		byConn:   make(map[string]string),
	}
}

// Get returns the room with the given code, or nil.
func (s *RoomStore) Get(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// Put registers a room, replacing any previous room with the same code.
func (s *RoomStore) Put(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.Code] = r
	if r.GameID != "" {
		s.byGameID[r.GameID] = r.Code
	}
}

// GetOrPut registers a room unless one with the same code already
// exists, and returns the resident room either way. Two concurrent
// materializations of the same code converge on a single room.
func (s *RoomStore) GetOrPut(r *Room) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rooms[r.Code]; ok {
		return existing
	}
	s.rooms[r.Code] = r
	if r.GameID != "" {
		s.byGameID[r.GameID] = r.Code
	}
	return r
}

// Delete evicts a room from memory.
func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		if r.GameID != "" {
			delete(s.byGameID, r.GameID)
		}
	}
}

// ByGameID returns the room backed by the given durable game id, or nil.
func (s *RoomStore) ByGameID(gameID string) *Room {
	s.mu.RLock()
	code, ok := s.byGameID[gameID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	r := s.rooms[code]
	s.mu.RUnlock()
	return r
}

// Rooms returns a point-in-time list of all active rooms.
func (s *RoomStore) Rooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// FindByParticipant returns the room containing the given participant,
// or nil.
func (s *RoomStore) FindByParticipant(participantID string) *Room {
	for _, r := range s.Rooms() {
		r.Lock()
		_, ok := r.participants[participantID]
		r.Unlock()
		if ok {
			return r
		}
	}
	return nil
}

// BindConn associates a participant with its live connection.
func (s *RoomStore) BindConn(participantID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.conns[participantID]; ok {
		delete(s.byConn, old)
	}
	s.conns[participantID] = connID
	s.byConn[connID] = participantID
}

// UnbindConn drops the binding for a closed connection and returns the
// participant it belonged to, if any.
func (s *RoomStore) UnbindConn(connID string) (participantID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	participantID, ok = s.byConn[connID]
	if !ok {
		return "", false
	}
	delete(s.byConn, connID)
	// A reconnect may have rebound the participant to a newer
	// connection; only drop the forward mapping if it still points here.
	if cur, exists := s.conns[participantID]; exists && cur == connID {
		delete(s.conns, participantID)
	}
	return participantID, true
}

// ConnFor returns the live connection id for a participant.
func (s *RoomStore) ConnFor(participantID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.conns[participantID]
	return id, ok
}

// SweepEmpty evicts every room with zero currently connected members and
// returns their codes.
func (s *RoomStore) SweepEmpty() []string {
	var empty []string
	for _, r := range s.Rooms() {
		r.Lock()
		connected := r.ConnectedCount()
		r.Unlock()
		if connected == 0 {
			empty = append(empty, r.Code)
		}
	}
	for _, code := range empty {
		s.Delete(code)
	}
	return empty
}
