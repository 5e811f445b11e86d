package model

// ParticipantView is the wire representation of a participant inside a
// room snapshot.
type ParticipantView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Score         int        `json:"score"`
	Capability    Capability `json:"role"`
	Connected     bool       `json:"isConnected"`
	IsCurrentTurn bool       `json:"isCurrentTurn"`
}

// AnswerView is the wire representation of a pending answer under vote.
type AnswerView struct {
	ParticipantID     string            `json:"playerId"`
	ParticipantName   string            `json:"playerName"`
	CardID            string            `json:"cardId"`
	Votes             map[string]string `json:"votes"`
	RequiredApprovals int               `json:"requiredApprovals"`
}

// RoomSnapshot is the full room state pushed to (re)connecting clients
// and cached for rehydration.
type RoomSnapshot struct {
	RoomCode          string            `json:"roomCode"`
	GameID            string            `json:"gameId,omitempty"`
	Phase             Phase             `json:"phase"`
	CurrentTurn       int               `json:"currentTurn"`
	CurrentActorID    string            `json:"currentPlayerId,omitempty"`
	TargetScore       int               `json:"targetScore"`
	AllowedCategories []CardCategory    `json:"allowedCategories"`
	UsedCardIDs       []string          `json:"usedCardIds"`
	Participants      []ParticipantView `json:"players"`
	CurrentCard       *Card             `json:"currentCard,omitempty"`
	CurrentAnswer     *AnswerView       `json:"currentAnswer,omitempty"`
	VideoRoomURL      string            `json:"videoRoomUrl,omitempty"`
	VideoRoomName     string            `json:"videoRoomName,omitempty"`
}
