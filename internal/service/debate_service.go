package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"conectaplus/internal/apperr"
	"conectaplus/internal/model"
	"conectaplus/internal/store"
)

// DebateService is the single arbitration step entered when voters
// disagree. Exactly one resolution is accepted per debate.
type DebateService struct {
	store *store.RoomStore
	bc    Broadcaster
	turns *TurnService
	game  *GameService
}

// NewDebateService creates a new debate resolver.
func NewDebateService(roomStore *store.RoomStore, bc Broadcaster, turns *TurnService, game *GameService) *DebateService {
	return &DebateService{store: roomStore, bc: bc, turns: turns, game: game}
}

type debateResolvedEvent struct {
	ModeratorID   string `json:"moderatorId"`
	ModeratorName string `json:"moderatorName"`
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	PointsGranted bool   `json:"pointsGranted"`
	PointsEarned  int    `json:"pointsEarned"`
	NewScore      int    `json:"newScore"`
}

// ResolveDebate applies a moderator's grant decision to the answer under
// debate. Calls while the room is not in the debate phase are rejected,
// so only the first resolution lands.
func (s *DebateService) ResolveDebate(ctx context.Context, code, moderatorID string, grantPoints bool) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	defer room.Unlock()

	if room.Phase.Terminal() {
		return apperr.Forbidden("this game has already finished")
	}
	mod := room.Participant(moderatorID)
	if mod == nil {
		return apperr.NotFound("participant")
	}
	if !mod.Capability.CanArbitrate() {
		return apperr.Forbidden("only a moderator can resolve a debate")
	}
	if room.Phase != model.PhaseDebate || room.CurrentAnswer == nil {
		return apperr.Conflict("no active debate")
	}

	answer := room.CurrentAnswer
	answering := room.Participant(answer.ParticipantID)
	points := 0
	newScore := 0
	if answering != nil {
		if grantPoints && room.CurrentCard != nil {
			points = room.CurrentCard.Points
			answering.Score += points
			s.game.persistScore(room.GameID, answering.Name, answering.Score)
		}
		newScore = answering.Score
	}

	s.bc.ToRoom(code, EvtDebateResolved, debateResolvedEvent{
		ModeratorID:   moderatorID,
		ModeratorName: mod.Name,
		PlayerID:      answer.ParticipantID,
		PlayerName:    answer.ParticipantName,
		PointsGranted: grantPoints,
		PointsEarned:  points,
		NewScore:      newScore,
	})
	log.Info().
		Str("roomCode", code).
		Str("moderator", mod.Name).
		Bool("pointsGranted", grantPoints).
		Msg("debate resolved")

	room.Phase = model.PhasePlaying
	if winner, reason := s.game.CheckWin(room); winner != nil {
		s.game.finishGame(room, winner, reason)
		return nil
	}

	room.ClearTurnState()
	s.game.cacheSnapshot(room.Snapshot())
	s.turns.ScheduleAdvance(code)
	return nil
}
