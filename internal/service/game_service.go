package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"conectaplus/internal/apperr"
	"conectaplus/internal/cache"
	"conectaplus/internal/config"
	"conectaplus/internal/model"
	"conectaplus/internal/repository"
	"conectaplus/internal/store"
	"conectaplus/internal/video"
)

// Game-over reasons carried on the game-ended event.
const (
	EndReasonTargetScore   = "target_score"
	EndReasonDeckExhausted = "deck_exhausted"
	EndReasonModerator     = "moderator_ended"
)

// GameService drives game-level operations: starting a session, the
// explanation phase, drawing cards, moderator shutdown, win evaluation
// and the finish/eviction path shared with voting and debates.
type GameService struct {
	store     *store.RoomStore
	games     repository.GameRepo
	cards     repository.CardRepo
	snapshots cache.SnapshotCache
	video     video.Provider
	bc        Broadcaster
	turns     *TurnService
	cfg       config.Game
}

// NewGameService creates a new game service.
func NewGameService(
	roomStore *store.RoomStore,
	games repository.GameRepo,
	cards repository.CardRepo,
	snapshots cache.SnapshotCache,
	videoProvider video.Provider,
	bc Broadcaster,
	turns *TurnService,
	cfg config.Game,
) *GameService {
	return &GameService{
		store:     roomStore,
		games:     games,
		cards:     cards,
		snapshots: snapshots,
		video:     videoProvider,
		bc:        bc,
		turns:     turns,
		cfg:       cfg,
	}
}

type gameStartedEvent struct {
	GameID            string                  `json:"gameId,omitempty"`
	CurrentPlayerID   string                  `json:"currentPlayerId"`
	CurrentPlayerName string                  `json:"currentPlayerName"`
	Players           []model.ParticipantView `json:"players"`
	Room              *model.RoomSnapshot     `json:"room"`
}

type explanationStartedEvent struct {
	GameID string      `json:"gameId"`
	Card   *model.Card `json:"card,omitempty"`
}

type cardDrawnEvent struct {
	Card       *model.Card `json:"card"`
	PlayerID   string      `json:"playerId"`
	PlayerName string      `json:"playerName"`
}

type phaseChangedEvent struct {
	Phase           model.Phase `json:"phase"`
	CurrentPlayerID string      `json:"currentPlayerId,omitempty"`
	Message         string      `json:"message,omitempty"`
}

type winnerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type gameEndedEvent struct {
	Winner      *winnerView             `json:"winner,omitempty"`
	FinalScores []model.ParticipantView `json:"finalScores"`
	Reason      string                  `json:"reason"`
}

// StartGame moves a waiting room into play and hands the first turn to
// the first eligible participant in join order.
func (s *GameService) StartGame(ctx context.Context, code, participantID string) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	if room.Phase.Terminal() {
		room.Unlock()
		return apperr.Forbidden("this game has already finished")
	}
	if room.Phase != model.PhaseWaiting && room.Phase != model.PhaseExplanation {
		room.Unlock()
		return apperr.Conflict("the game has already started")
	}
	if room.Size() < 2 {
		room.Unlock()
		return apperr.Conflict("at least 2 participants are required to start")
	}
	eligible := room.Eligible()
	if len(eligible) == 0 {
		room.Unlock()
		return apperr.Conflict("no eligible players in the room")
	}

	first := eligible[0]
	room.Phase = model.PhasePlaying
	room.CurrentActorID = first.ID
	gameID := room.GameID
	players := room.ParticipantViews()
	snap := room.Snapshot()
	room.Unlock()

	s.persistPhase(gameID, model.PhasePlaying)
	s.seedCardPiles(gameID)
	s.cacheSnapshot(snap)
	s.bc.ToRoom(code, EvtGameStarted, gameStartedEvent{
		GameID:            gameID,
		CurrentPlayerID:   first.ID,
		CurrentPlayerName: first.Name,
		Players:           players,
		Room:              snap,
	})
	log.Info().Str("roomCode", code).Str("firstPlayer", first.Name).Msg("game started")
	return nil
}

// StartExplanation moves a waiting room into the explanation phase and
// broadcasts an explanation card for the first allowed category.
func (s *GameService) StartExplanation(ctx context.Context, gameID string) error {
	room := s.store.ByGameID(gameID)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	if room.Phase.Terminal() {
		room.Unlock()
		return apperr.Forbidden("this game has already finished")
	}
	if room.Phase != model.PhaseWaiting {
		room.Unlock()
		return apperr.Conflict("explanation can only start from the waiting phase")
	}
	if room.Size() < 2 {
		room.Unlock()
		return apperr.Conflict("at least 2 participants are required")
	}
	room.Phase = model.PhaseExplanation
	code := room.Code
	firstCategory := room.AllowedCategories[0]
	snap := room.Snapshot()
	room.Unlock()

	s.persistPhase(gameID, model.PhaseExplanation)
	s.cacheSnapshot(snap)

	card, err := s.cards.ExplanationCard(ctx, firstCategory)
	if err != nil {
		log.Warn().Err(err).Str("roomCode", code).Msg("explanation card lookup failed")
	}
	s.bc.ToRoom(code, EvtExplanationStarted, explanationStartedEvent{GameID: gameID, Card: card})
	log.Info().Str("roomCode", code).Msg("explanation phase started")
	return nil
}

// DrawCard hands the current actor a random unused card of the requested
// category. An exhausted category pile is a recoverable failed draw.
func (s *GameService) DrawCard(ctx context.Context, code, participantID string, category model.CardCategory) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}

	// The catalog lookup runs while holding the room lock: the read of
	// usedCardIds and the write of the drawn card must not interleave
	// with other events touching this room.
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
	// No redraw while an answer is under vote or debate; the pending
	// approval must settle against the card it was given for.
	if room.Phase != model.PhasePlaying && room.Phase != model.PhaseExplanation {
		return apperr.Conflict("cards can only be drawn during play")
	}

	excludeIDs := make([]string, 0, len(room.UsedCardIDs))
	for id := range room.UsedCardIDs {
		excludeIDs = append(excludeIDs, id)
	}
	card, err := s.cards.RandomUnused(ctx, category, excludeIDs, room.AllowedCategories)
	if err != nil {
		return apperr.Infra("card catalog unavailable", err)
	}
	if card == nil {
		return apperr.Conflict("no unused cards left in this category, choose another one")
	}

	room.UsedCardIDs[card.ID] = struct{}{}
	room.CurrentCard = card

	if room.Phase == model.PhaseExplanation {
		room.Phase = model.PhasePlaying
		s.persistPhase(room.GameID, model.PhasePlaying)
		s.bc.ToRoom(code, EvtPhaseChanged, phaseChangedEvent{
			Phase:           model.PhasePlaying,
			CurrentPlayerID: room.CurrentActorID,
		})
	}

	s.cacheSnapshot(room.Snapshot())
	s.bc.ToRoom(code, EvtCardDrawn, cardDrawnEvent{
		Card:       card,
		PlayerID:   participantID,
		PlayerName: p.Name,
	})
	log.Info().
		Str("roomCode", code).
		Str("playerId", participantID).
		Str("cardId", card.ID).
		Str("category", string(category)).
		Msg("card drawn")
	return nil
}

// EndGameByModerator finishes the session early; the current highest
// eligible score wins.
func (s *GameService) EndGameByModerator(ctx context.Context, code, moderatorID string) error {
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
		return apperr.Forbidden("only a moderator can end the game")
	}

	winner := highestScore(room.Eligible())
	s.finishGame(room, winner, EndReasonModerator)
	log.Info().Str("roomCode", code).Str("moderator", mod.Name).Msg("game ended by moderator")
	return nil
}

// CheckWin evaluates the win conditions after a scoring mutation. Target
// score is checked first: the winner is the eligible participant with
// the highest score among those at or above target. Otherwise the game
// ends on deck exhaustion with the highest score overall. Ties resolve
// to the first eligible participant in join order.
func (s *GameService) CheckWin(room *store.Room) (*store.Participant, string) {
	eligible := room.Eligible()
	if len(eligible) == 0 {
		return nil, ""
	}

	var winner *store.Participant
	for _, p := range eligible {
		if p.Score >= room.TargetScore && (winner == nil || p.Score > winner.Score) {
			winner = p
		}
	}
	if winner != nil {
		return winner, EndReasonTargetScore
	}

	deckSize := s.cfg.DeckSize
	if deckSize <= 0 {
		deckSize = model.DeckSize
	}
	if len(room.UsedCardIDs) >= deckSize {
		return highestScore(eligible), EndReasonDeckExhausted
	}
	return nil, ""
}

// finishGame freezes the room, persists the final phase and scores,
// broadcasts the outcome and schedules eviction. Callers must hold the
// room lock.
func (s *GameService) finishGame(room *store.Room, winner *store.Participant, reason string) {
	room.Phase = model.PhaseFinished
	room.CancelDeadline()
	room.ClearTurnState()

	finalScores := make([]model.ParticipantView, 0)
	for _, p := range room.Eligible() {
		finalScores = append(finalScores, model.ParticipantView{
			ID:         p.ID,
			Name:       p.Name,
			Score:      p.Score,
			Capability: p.Capability,
			Connected:  p.Connected,
		})
		s.persistScore(room.GameID, p.Name, p.Score)
	}
	s.persistPhase(room.GameID, model.PhaseFinished)

	snap := room.Snapshot()
	s.cacheSnapshot(snap)

	var wv *winnerView
	if winner != nil {
		wv = &winnerView{ID: winner.ID, Name: winner.Name, Score: winner.Score}
	}
	s.bc.ToRoom(room.Code, EvtGameEnded, gameEndedEvent{
		Winner:      wv,
		FinalScores: finalScores,
		Reason:      reason,
	})
	s.bc.ToRoom(room.Code, EvtRoomUpdated, roomUpdatedEvent{Room: snap})

	s.scheduleEviction(room.Code, room.GameID)
	log.Info().Str("roomCode", room.Code).Str("reason", reason).Msg("game finished")
}

// scheduleEviction removes a finished room from memory and the snapshot
// cache after a short delay, tearing down any provisioned video room
// best-effort.
func (s *GameService) scheduleEviction(code, gameID string) {
	delay := s.cfg.RoomEvictionDelay
	if delay <= 0 {
		delay = time.Second
	}
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if gameID != "" && s.video != nil && s.video.Configured() {
			game, err := s.games.FindByID(ctx, gameID)
			if err != nil {
				log.Warn().Err(err).Str("roomCode", code).Msg("game lookup for video teardown failed")
			} else if game != nil && game.VideoRoomName != "" {
				if err := s.video.DeleteRoom(ctx, game.VideoRoomName); err != nil {
					log.Warn().Err(err).Str("roomCode", code).Msg("video room teardown failed")
				}
			}
		}

		s.store.Delete(code)
		if err := s.snapshots.Delete(ctx, code); err != nil {
			log.Warn().Err(err).Str("roomCode", code).Msg("snapshot cache delete failed")
		}
		log.Info().Str("roomCode", code).Msg("room evicted")
	})
}

func (s *GameService) persistPhase(gameID string, phase model.Phase) {
	if gameID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.games.UpdatePhase(ctx, gameID, phase); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Str("phase", string(phase)).Msg("persist phase failed")
		}
	}()
}

func (s *GameService) persistScore(gameID, playerName string, score int) {
	if gameID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.games.UpdatePlayerScore(ctx, gameID, playerName, score); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Str("playerName", playerName).Msg("persist score failed")
		}
	}()
}

func (s *GameService) seedCardPiles(gameID string) {
	if gameID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.games.CreateInitialCardPiles(ctx, gameID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("seeding card piles failed")
		}
	}()
}

func (s *GameService) cacheSnapshot(snap *model.RoomSnapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.Set(ctx, snap.RoomCode, snap); err != nil {
			log.Warn().Err(err).Str("roomCode", snap.RoomCode).Msg("snapshot cache write failed")
		}
	}()
}

// highestScore returns the participant with the highest score, keeping
// the first one found on ties. Returns nil for an empty slice.
func highestScore(participants []*store.Participant) *store.Participant {
	if len(participants) == 0 {
		return nil
	}
	winner := participants[0]
	for _, p := range participants[1:] {
		if p.Score > winner.Score {
			winner = p
		}
	}
	return winner
}
