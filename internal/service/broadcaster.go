package service

// Broadcaster delivers outbound events to connected clients (avoids
// import cycle; implemented by the ws hub).
type Broadcaster interface {
	ToRoom(roomCode string, event string, payload interface{})
	ToRoomExcept(roomCode, exceptConnID string, event string, payload interface{})
	ToConn(connID string, event string, payload interface{})
}
