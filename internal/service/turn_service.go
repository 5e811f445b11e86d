package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"conectaplus/internal/apperr"
	"conectaplus/internal/config"
	"conectaplus/internal/model"
	"conectaplus/internal/store"
)

// TurnService enforces single-current-actor discipline, selects the next
// actor and owns the answer deadline timer.
type TurnService struct {
	store *store.RoomStore
	bc    Broadcaster
	cfg   config.Game

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTurnService creates a new turn coordinator.
func NewTurnService(roomStore *store.RoomStore, bc Broadcaster, cfg config.Game) *TurnService {
	return &TurnService{
		store: roomStore,
		bc:    bc,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type cardReadEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	CardID     string `json:"cardId"`
}

type answerDeadlineEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	TimeLimit  int    `json:"timeLimit"`
}

type answerTimeoutEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

type turnEndedEvent struct {
	CurrentPlayerID string      `json:"currentPlayerId"`
	CurrentTurn     int         `json:"currentTurn"`
	Phase           model.Phase `json:"phase"`
	Reason          string      `json:"reason,omitempty"`
}

type turnSkippedEvent struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	NextPlayerID   string `json:"nextPlayerId"`
	NextPlayerName string `json:"nextPlayerName"`
}

// SelectNext picks the actor for the next turn. With exactly two
// eligible participants the turn alternates strictly by join order; with
// three or more it is uniform random among the others.
func (s *TurnService) SelectNext(eligible []*store.Participant, currentActorID string) *store.Participant {
	if len(eligible) == 0 {
		return nil
	}
	if len(eligible) == 2 {
		idx := 0
		for i, p := range eligible {
			if p.ID == currentActorID {
				idx = i
				break
			}
		}
		return eligible[(idx+1)%2]
	}

	others := make([]*store.Participant, 0, len(eligible))
	for _, p := range eligible {
		if p.ID != currentActorID {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return eligible[0]
	}
	return others[s.intn(len(others))]
}

func (s *TurnService) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// CardRead marks the current card as read aloud and arms the answer
// deadline for the reading participant.
func (s *TurnService) CardRead(ctx context.Context, participantID, cardID string) error {
	room := s.store.FindByParticipant(participantID)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	defer room.Unlock()

	if room.Phase.Terminal() {
		return apperr.Forbidden("this game has already finished")
	}
	p := room.Participant(participantID)
	if p == nil {
		return apperr.NotFound("participant")
	}
	if room.CurrentActorID != participantID {
		return apperr.Forbidden("it is not your turn")
	}
	if room.Phase != model.PhasePlaying {
		return apperr.Conflict("cards can only be read during play")
	}

	// Replace any previous deadline; at most one is active per room.
	room.CancelDeadline()

	s.bc.ToRoom(room.Code, EvtCardRead, cardReadEvent{
		PlayerID:   participantID,
		PlayerName: p.Name,
		CardID:     cardID,
	})

	deadline := s.cfg.AnswerDeadline
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	room.DeadlineSeq++
	seq := room.DeadlineSeq
	code := room.Code
	room.AnswerTimer = time.AfterFunc(deadline, func() {
		s.answerTimeout(code, participantID, seq)
	})

	s.bc.ToRoom(code, EvtAnswerDeadlineStarted, answerDeadlineEvent{
		PlayerID:   participantID,
		PlayerName: p.Name,
		TimeLimit:  int(deadline.Seconds()),
	})
	log.Info().Str("roomCode", code).Str("playerId", participantID).Msg("answer deadline armed")
	return nil
}

// answerTimeout is the asynchronous re-entry of a fired deadline. It
// re-fetches the room and re-validates the deadline generation, actor
// and phase before mutating; a stale timer is a no-op.
func (s *TurnService) answerTimeout(code, actorID string, seq uint64) {
	room := s.store.Get(code)
	if room == nil {
		return
	}

	room.Lock()
	defer room.Unlock()

	if room.DeadlineSeq != seq || room.AnswerTimer == nil {
		return
	}
	if room.Phase != model.PhasePlaying || room.CurrentActorID != actorID {
		return
	}
	room.AnswerTimer = nil
	room.DeadlineSeq++

	name := ""
	if p := room.Participant(actorID); p != nil {
		name = p.Name
	}
	s.bc.ToRoom(code, EvtAnswerTimeout, answerTimeoutEvent{
		PlayerID:   actorID,
		PlayerName: name,
		Message:    "time is up",
	})

	// Forfeit with no score change: drop the pending card and move on.
	room.ClearTurnState()
	s.advanceLocked(room, actorID, "timeout")
	log.Info().Str("roomCode", code).Str("playerId", actorID).Msg("answer deadline expired")
}

// SkipTurn lets the current actor pass without answering.
func (s *TurnService) SkipTurn(ctx context.Context, code, participantID string) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	defer room.Unlock()

	if room.Phase.Terminal() {
		return apperr.Forbidden("this game has already finished")
	}
	p := room.Participant(participantID)
	if p == nil {
		return apperr.NotFound("participant")
	}
	if room.CurrentActorID != participantID {
		return apperr.Forbidden("it is not your turn")
	}
	// A submitted answer leaves the playing phase only through vote
	// resolution or arbitration; skipping past it would strand the room.
	if room.Phase != model.PhasePlaying {
		return apperr.Conflict("turns can only be skipped during play")
	}

	room.CancelDeadline()
	room.ClearTurnState()

	next := s.advanceLocked(room, participantID, "skipped")
	if next != nil {
		s.bc.ToRoom(code, EvtTurnSkipped, turnSkippedEvent{
			PlayerID:       participantID,
			PlayerName:     p.Name,
			NextPlayerID:   next.ID,
			NextPlayerName: next.Name,
		})
	}
	log.Info().Str("roomCode", code).Str("playerId", participantID).Msg("turn skipped")
	return nil
}

// ScheduleAdvance moves the turn to the next actor after a short delay,
// giving observers time to see a voting or debate outcome. The callback
// re-fetches the room and only advances if no new card or answer showed
// up in the meantime.
func (s *TurnService) ScheduleAdvance(code string) {
	delay := s.cfg.TurnAdvanceDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	time.AfterFunc(delay, func() {
		room := s.store.Get(code)
		if room == nil {
			return
		}
		room.Lock()
		defer room.Unlock()
		if room.Phase != model.PhasePlaying || room.CurrentCard != nil || room.CurrentAnswer != nil {
			return
		}
		s.advanceLocked(room, room.CurrentActorID, "")
	})
}

// advanceLocked hands the turn to the next actor and broadcasts
// turn-ended. Callers must hold the room lock.
func (s *TurnService) advanceLocked(room *store.Room, currentActorID, reason string) *store.Participant {
	next := s.SelectNext(room.Eligible(), currentActorID)
	if next == nil {
		return nil
	}
	room.CurrentActorID = next.ID
	room.CurrentTurn++
	s.bc.ToRoom(room.Code, EvtTurnEnded, turnEndedEvent{
		CurrentPlayerID: next.ID,
		CurrentTurn:     room.CurrentTurn,
		Phase:           room.Phase,
		Reason:          reason,
	})
	return next
}
