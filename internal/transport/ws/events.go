package ws

import (
	"strings"

	"conectaplus/internal/apperr"
	"conectaplus/internal/model"
)

// Inbound event types.
const (
	EvtJoin               = "join"
	EvtGetRoomState       = "get-room-state"
	EvtReconnect          = "reconnect"
	EvtStartGame          = "start-game"
	EvtStartExplanation   = "start-explanation"
	EvtDrawCard           = "draw-card"
	EvtEndGameByModerator = "end-game-by-moderator"
	EvtCardRead           = "card-read"
	EvtPlayerAnswered     = "player-answered"
	EvtSkipTurn           = "skip-turn"
	EvtApproveAnswer      = "approve-answer"
	EvtResolveDebate      = "resolve-debate"
)

const roomCodeLength = 6

// normalizeRoomCode uppercases a code and checks the 6-character
// alphanumeric format. Returns "" when the code is malformed.
func normalizeRoomCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return ""
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return code
}

func requireID(field, value string, errs []apperr.FieldError) []apperr.FieldError {
	if strings.TrimSpace(value) == "" {
		errs = append(errs, apperr.FieldError{Field: field, Message: "must not be empty"})
	}
	return errs
}

type joinPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

func (p *joinPayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
	}
	errs = requireID("playerId", p.PlayerID, errs)
	p.PlayerName = strings.TrimSpace(p.PlayerName)
	if p.PlayerName == "" || len(p.PlayerName) > 50 {
		errs = append(errs, apperr.FieldError{Field: "playerName", Message: "must be between 1 and 50 characters"})
	}
	return errs
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

func (p *roomPayload) validate() []apperr.FieldError {
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		return []apperr.FieldError{{Field: "roomCode", Message: "must be 6 alphanumeric characters"}}
	}
	return nil
}

type reconnectPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

func (p *reconnectPayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
	}
	return requireID("playerId", p.PlayerID, errs)
}

type roomActorPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

func (p *roomActorPayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
	}
	return requireID("playerId", p.PlayerID, errs)
}

type startExplanationPayload struct {
	GameID string `json:"gameId"`
}

func (p *startExplanationPayload) validate() []apperr.FieldError {
	return requireID("gameId", p.GameID, nil)
}

type drawCardPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Category string `json:"cardType"`
}

func (p *drawCardPayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
	}
	errs = requireID("playerId", p.PlayerID, errs)
	if !model.CardCategory(p.Category).Valid() {
		errs = append(errs, apperr.FieldError{Field: "cardType", Message: "unknown card category"})
	}
	return errs
}

type cardActionPayload struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
}

func (p *cardActionPayload) validate() []apperr.FieldError {
	errs := requireID("playerId", p.PlayerID, nil)
	return requireID("cardId", p.CardID, errs)
}

type approveAnswerPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	// Pointer so an omitted field is distinguishable from a disagree.
	Approved *bool `json:"approved"`
}

func (p *approveAnswerPayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	// Room code is optional here; when present it must be well formed.
	if strings.TrimSpace(p.RoomCode) != "" {
		p.RoomCode = normalizeRoomCode(p.RoomCode)
		if p.RoomCode == "" {
			errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
		}
	}
	errs = requireID("playerId", p.PlayerID, errs)
	if p.Approved == nil {
		errs = append(errs, apperr.FieldError{Field: "approved", Message: "is required"})
	}
	return errs
}

type resolveDebatePayload struct {
	RoomCode    string `json:"roomCode"`
	ModeratorID string `json:"moderatorId"`
	GrantPoints bool   `json:"grantPoints"`
}

func (p *resolveDebatePayload) validate() []apperr.FieldError {
	var errs []apperr.FieldError
	p.RoomCode = normalizeRoomCode(p.RoomCode)
	if p.RoomCode == "" {
		errs = append(errs, apperr.FieldError{Field: "roomCode", Message: "must be 6 alphanumeric characters"})
	}
	return requireID("moderatorId", p.ModeratorID, errs)
}
