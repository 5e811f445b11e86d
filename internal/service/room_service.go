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

// RoomService handles the session lifecycle: joining, rehydration from
// the durable store, reconnection, disconnection and the periodic sweep
// of rooms nobody is connected to.
type RoomService struct {
	store     *store.RoomStore
	games     repository.GameRepo
	snapshots cache.SnapshotCache
	video     video.Provider
	bc        Broadcaster
	cfg       config.Game
}

// NewRoomService creates a new room lifecycle service.
func NewRoomService(
	roomStore *store.RoomStore,
	games repository.GameRepo,
	snapshots cache.SnapshotCache,
	videoProvider video.Provider,
	bc Broadcaster,
	cfg config.Game,
) *RoomService {
	return &RoomService{
		store:     roomStore,
		games:     games,
		snapshots: snapshots,
		video:     videoProvider,
		bc:        bc,
		cfg:       cfg,
	}
}

type participantJoinedEvent struct {
	Player model.ParticipantView `json:"player"`
	Room   *model.RoomSnapshot   `json:"room"`
}

type participantPresenceEvent struct {
	ParticipantID string `json:"playerId"`
	Name          string `json:"playerName"`
}

type reconnectedEvent struct {
	Room *model.RoomSnapshot `json:"room"`
}

type roomUpdatedEvent struct {
	Room *model.RoomSnapshot `json:"room"`
}

// Join adds a participant to a room, materializing the room from the
// snapshot cache or the durable game record when it is not in memory.
func (s *RoomService) Join(ctx context.Context, connID, participantID, name, code string) error {
	room := s.store.Get(code)
	if room == nil {
		fresh, err := s.materialize(ctx, code)
		if err != nil {
			return err
		}
		room = s.store.GetOrPut(fresh)
		log.Info().Str("roomCode", code).Msg("room materialized")
	}

	// Durable player record, if one exists for this display name, seeds
	// the score and capability. Best effort; defaults apply on failure.
	var durable *model.GamePlayer
	var game *model.Game
	if room.GameID != "" {
		var err error
		game, err = s.games.FindByID(ctx, room.GameID)
		if err != nil {
			log.Warn().Err(err).Str("roomCode", code).Msg("durable game lookup failed")
		} else if game != nil {
			durable = game.Player(name)
		}
	}

	room, err := s.lockResident(room)
	if err != nil {
		return err
	}
	if room.Phase.Terminal() {
		room.Unlock()
		return apperr.Forbidden("this game has already finished, create a new room")
	}
	if existing := room.ParticipantByName(name); existing != nil && existing.ID != participantID {
		room.Unlock()
		return apperr.Conflict("display name already taken in this room")
	}

	p := room.Participant(participantID)
	if p == nil {
		p = &store.Participant{
			ID:         participantID,
			Name:       name,
			Capability: model.CapabilityPlayer,
		}
		if durable != nil {
			p.Score = durable.Score
			if durable.Capability.Valid() {
				p.Capability = durable.Capability
			}
		}
		room.AddParticipant(p)
	}
	p.ConnID = connID
	p.Connected = true
	if game != nil && game.VideoRoomURL != "" {
		room.VideoRoomURL = game.VideoRoomURL
		room.VideoRoomName = game.VideoRoomName
	}

	view := model.ParticipantView{
		ID:            p.ID,
		Name:          p.Name,
		Score:         p.Score,
		Capability:    p.Capability,
		Connected:     true,
		IsCurrentTurn: p.ID == room.CurrentActorID,
	}
	snap := room.Snapshot()
	room.Unlock()

	s.store.BindConn(participantID, connID)
	s.cacheSnapshot(snap)
	s.bc.ToRoom(code, EvtParticipantJoined, participantJoinedEvent{Player: view, Room: snap})
	log.Info().
		Str("roomCode", code).
		Str("playerId", participantID).
		Str("playerName", name).
		Str("role", string(p.Capability)).
		Msg("participant joined")

	if game != nil && game.VideoRoomURL == "" && s.video != nil && s.video.Configured() {
		go s.provisionVideoRoom(code, game.ID, len(game.Players))
	}
	return nil
}

// lockResident locks the room and makes sure it is still registered. A
// sweep may evict the room between lookup and lock; re-registering the
// locked object (or converging on a concurrent replacement) keeps the
// join from mutating an orphan. Returns the room locked.
func (s *RoomService) lockResident(room *store.Room) (*store.Room, error) {
	room.Lock()
	for s.store.Get(room.Code) != room {
		if room.Phase.Terminal() {
			room.Unlock()
			return nil, apperr.Forbidden("this game has already finished, create a new room")
		}
		room.Unlock()
		room = s.store.GetOrPut(room)
		room.Lock()
	}
	return room, nil
}

// materialize rebuilds a room that is not resident in memory, preferring
// the snapshot cache over the durable game record.
func (s *RoomService) materialize(ctx context.Context, code string) (*store.Room, error) {
	snap, err := s.snapshots.Get(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("roomCode", code).Msg("snapshot cache read failed")
	} else if snap != nil && !snap.Phase.Terminal() {
		return store.FromSnapshot(snap), nil
	}

	game, err := s.games.FindByRoomCode(ctx, code)
	if err != nil {
		return nil, apperr.Infra("failed to load game record", err)
	}
	if game == nil {
		return nil, apperr.NotFound("room")
	}

	targetScore := game.TargetScore
	if targetScore <= 0 {
		targetScore = s.cfg.DefaultTargetScore
	}
	room := store.NewRoom(code, game.ID, targetScore, game.AllowedCategories)
	if game.Phase != "" {
		room.Phase = game.Phase
	}
	if game.CurrentTurn > 0 {
		room.CurrentTurn = game.CurrentTurn
	}
	room.VideoRoomURL = game.VideoRoomURL
	room.VideoRoomName = game.VideoRoomName
	return room, nil
}

// GetRoomState pushes the current room snapshot to a single connection.
func (s *RoomService) GetRoomState(connID, code string) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}
	room.Lock()
	snap := room.Snapshot()
	room.Unlock()
	s.bc.ToConn(connID, EvtRoomState, roomUpdatedEvent{Room: snap})
	return nil
}

// Snapshot returns the current room snapshot, for read-only surfaces.
func (s *RoomService) Snapshot(code string) (*model.RoomSnapshot, error) {
	room := s.store.Get(code)
	if room == nil {
		return nil, apperr.NotFound("room")
	}
	room.Lock()
	defer room.Unlock()
	return room.Snapshot(), nil
}

// Reconnect rebinds a connection to an existing participant, replays the
// full snapshot to that connection only and notifies the others. Phase,
// votes and the current card are left untouched.
func (s *RoomService) Reconnect(ctx context.Context, connID, code, participantID string) error {
	room := s.store.Get(code)
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	p := room.Participant(participantID)
	if p == nil {
		room.Unlock()
		return apperr.NotFound("participant")
	}
	p.ConnID = connID
	p.Connected = true
	name := p.Name
	snap := room.Snapshot()
	room.Unlock()

	s.store.BindConn(participantID, connID)
	s.bc.ToConn(connID, EvtReconnected, reconnectedEvent{Room: snap})
	s.bc.ToRoomExcept(code, connID, EvtParticipantReconnected, participantPresenceEvent{
		ParticipantID: participantID,
		Name:          name,
	})
	log.Info().Str("roomCode", code).Str("playerId", participantID).Msg("participant reconnected")
	return nil
}

// Disconnect marks the participant behind a closed connection as
// unavailable. The participant stays in the room, timers keep running
// and turn order is unchanged; the session waits for them.
func (s *RoomService) Disconnect(connID string) {
	participantID, ok := s.store.UnbindConn(connID)
	if !ok {
		return
	}
	room := s.store.FindByParticipant(participantID)
	if room == nil {
		return
	}

	room.Lock()
	p := room.Participant(participantID)
	if p == nil || p.ConnID != connID {
		// A newer connection already took over this participant.
		room.Unlock()
		return
	}
	p.Connected = false
	name := p.Name
	code := room.Code
	room.Unlock()

	s.bc.ToRoom(code, EvtParticipantDisconnected, participantPresenceEvent{
		ParticipantID: participantID,
		Name:          name,
	})
	log.Info().Str("roomCode", code).Str("playerId", participantID).Msg("participant disconnected")
}

// StartSweeper periodically evicts rooms with zero connected
// participants. The Redis snapshot is kept so a swept session can still
// be rehydrated when someone comes back.
func (s *RoomService) StartSweeper(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, code := range s.store.SweepEmpty() {
					log.Info().Str("roomCode", code).Msg("empty room swept")
				}
			}
		}
	}()
}

func (s *RoomService) cacheSnapshot(snap *model.RoomSnapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.Set(ctx, snap.RoomCode, snap); err != nil {
			log.Warn().Err(err).Str("roomCode", snap.RoomCode).Msg("snapshot cache write failed")
		}
	}()
}

// provisionVideoRoom creates a video-conference room for a game that has
// none. Failures only cost the video feature, never gameplay.
func (s *RoomService) provisionVideoRoom(code, gameID string, maxParticipants int) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	vr, err := s.video.CreateRoom(ctx, code, maxParticipants)
	if err != nil {
		log.Warn().Err(err).Str("roomCode", code).Msg("video room provisioning failed")
		return
	}
	if err := s.games.SetVideoRoom(ctx, gameID, vr.URL, vr.Name); err != nil {
		log.Warn().Err(err).Str("roomCode", code).Msg("persisting video room failed")
	}

	room := s.store.Get(code)
	if room == nil {
		return
	}
	room.Lock()
	room.VideoRoomURL = vr.URL
	room.VideoRoomName = vr.Name
	snap := room.Snapshot()
	room.Unlock()

	s.bc.ToRoom(code, EvtRoomUpdated, roomUpdatedEvent{Room: snap})
	log.Info().Str("roomCode", code).Str("videoRoom", vr.Name).Msg("video room provisioned")
}
