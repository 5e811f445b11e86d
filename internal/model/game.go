package model

import "time"

// GamePlayer is a durable participant record embedded in a game document.
type GamePlayer struct {
	Name       string     `json:"name" bson:"name"`
	Score      int        `json:"score" bson:"score"`
	Capability Capability `json:"role" bson:"role"`
}

// Game is the durable record backing a live room. Rooms absent from
// memory are rehydrated from this document.
type Game struct {
	ID                string         `json:"id" bson:"_id,omitempty"`
	RoomCode          string         `json:"roomCode" bson:"roomCode"`
	Phase             Phase          `json:"phase" bson:"phase"`
	CurrentTurn       int            `json:"currentTurn" bson:"currentTurn"`
	TargetScore       int            `json:"targetScore" bson:"targetScore"`
	AllowedCategories []CardCategory `json:"allowedCategories" bson:"allowedCategories"`
	VideoRoomURL      string         `json:"videoRoomUrl,omitempty" bson:"videoRoomUrl,omitempty"`
	VideoRoomName     string         `json:"videoRoomName,omitempty" bson:"videoRoomName,omitempty"`
	Players           []GamePlayer   `json:"players" bson:"players"`
	CreatedAt         time.Time      `json:"createdAt" bson:"createdAt"`
}

// Player returns the embedded player record matching name, or nil.
func (g *Game) Player(name string) *GamePlayer {
	for i := range g.Players {
		if g.Players[i].Name == name {
			return &g.Players[i]
		}
	}
	return nil
}
