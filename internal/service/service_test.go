package service

import (
	"context"
	"sync"
	"time"

	"conectaplus/internal/config"
	"conectaplus/internal/model"
	"conectaplus/internal/store"
	"conectaplus/internal/video"
)

// recordedEvent is one outbound event captured by the fake broadcaster.
type recordedEvent struct {
	RoomCode string
	ConnID   string
	Except   string
	Event    string
	Payload  interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) ToRoom(roomCode string, event string, payload interface{}) {
	b.record(recordedEvent{RoomCode: roomCode, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) ToRoomExcept(roomCode, exceptConnID string, event string, payload interface{}) {
	b.record(recordedEvent{RoomCode: roomCode, Except: exceptConnID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) ToConn(connID string, event string, payload interface{}) {
	b.record(recordedEvent{ConnID: connID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) record(e recordedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) last(event string) (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Event == event {
			return b.events[i], true
		}
	}
	return recordedEvent{}, false
}

type fakeGameRepo struct {
	mu    sync.Mutex
	games map[string]*model.Game
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[string]*model.Game)}
}

func (r *fakeGameRepo) put(g *model.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
}

func (r *fakeGameRepo) FindByRoomCode(ctx context.Context, code string) (*model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.games {
		if g.RoomCode == code {
			return g, nil
		}
	}
	return nil, nil
}

func (r *fakeGameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.games[id], nil
}

func (r *fakeGameRepo) UpdatePhase(ctx context.Context, gameID string, phase model.Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.games[gameID]; ok {
		g.Phase = phase
	}
	return nil
}

func (r *fakeGameRepo) UpdatePlayerScore(ctx context.Context, gameID, playerName string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.games[gameID]; ok {
		for i := range g.Players {
			if g.Players[i].Name == playerName {
				g.Players[i].Score = score
			}
		}
	}
	return nil
}

func (r *fakeGameRepo) SetVideoRoom(ctx context.Context, gameID, url, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.games[gameID]; ok {
		g.VideoRoomURL = url
		g.VideoRoomName = name
	}
	return nil
}

func (r *fakeGameRepo) CreateInitialCardPiles(ctx context.Context, gameID string) error {
	return nil
}

type fakeCardRepo struct {
	mu    sync.Mutex
	cards []model.Card
}

func (r *fakeCardRepo) RandomUnused(ctx context.Context, category model.CardCategory, excludeIDs []string, allowed []model.CardCategory) (*model.Card, error) {
	if len(allowed) > 0 {
		found := false
		for _, c := range allowed {
			if c == category {
				found = true
			}
		}
		if !found {
			return nil, nil
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	used := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		used[id] = struct{}{}
	}
	for i := range r.cards {
		if r.cards[i].Category != category {
			continue
		}
		if _, ok := used[r.cards[i].ID]; ok {
			continue
		}
		c := r.cards[i]
		return &c, nil
	}
	return nil, nil
}

func (r *fakeCardRepo) ExplanationCard(ctx context.Context, category model.CardCategory) (*model.Card, error) {
	return nil, nil
}

type fakeSnapshotCache struct {
	mu    sync.Mutex
	snaps map[string]*model.RoomSnapshot
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{snaps: make(map[string]*model.RoomSnapshot)}
}

func (c *fakeSnapshotCache) Set(ctx context.Context, code string, snap *model.RoomSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[code] = snap
	return nil
}

func (c *fakeSnapshotCache) Get(ctx context.Context, code string) (*model.RoomSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[code], nil
}

func (c *fakeSnapshotCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, code)
	return nil
}

type fakeVideo struct{}

func (fakeVideo) Configured() bool { return false }

func (fakeVideo) CreateRoom(ctx context.Context, roomCode string, maxParticipants int) (*video.Room, error) {
	return nil, nil
}

func (fakeVideo) DeleteRoom(ctx context.Context, name string) error { return nil }

// fixture bundles the full coordinator stack on fakes.
type fixture struct {
	store     *store.RoomStore
	bc        *fakeBroadcaster
	games     *fakeGameRepo
	cards     *fakeCardRepo
	snapshots *fakeSnapshotCache
	rooms     *RoomService
	turns     *TurnService
	game      *GameService
	voting    *VotingService
	debates   *DebateService
}

func testGameConfig() config.Game {
	return config.Game{
		AnswerDeadline:     60 * time.Second,
		TurnAdvanceDelay:   time.Hour, // deferred advances never fire in tests
		RoomEvictionDelay:  time.Hour,
		SweepInterval:      5 * time.Minute,
		DefaultTargetScore: 20,
		DeckSize:           56,
	}
}

func newFixture() *fixture {
	f := &fixture{
		store:     store.NewRoomStore(),
		bc:        &fakeBroadcaster{},
		games:     newFakeGameRepo(),
		cards:     &fakeCardRepo{},
		snapshots: newFakeSnapshotCache(),
	}
	cfg := testGameConfig()
	f.rooms = NewRoomService(f.store, f.games, f.snapshots, fakeVideo{}, f.bc, cfg)
	f.turns = NewTurnService(f.store, f.bc, cfg)
	f.game = NewGameService(f.store, f.games, f.cards, f.snapshots, fakeVideo{}, f.bc, f.turns, cfg)
	f.voting = NewVotingService(f.store, f.bc, f.turns, f.game)
	f.debates = NewDebateService(f.store, f.bc, f.turns, f.game)
	return f
}

// room builds and registers an in-play room with connected players named
// by the given ids. The first id is the current actor.
func (f *fixture) room(code string, playerIDs ...string) *store.Room {
	r := store.NewRoom(code, "", 20, nil)
	for _, id := range playerIDs {
		r.AddParticipant(&store.Participant{
			ID:         id,
			Name:       "name-" + id,
			Capability: model.CapabilityPlayer,
			Connected:  true,
		})
	}
	r.Phase = model.PhasePlaying
	if len(playerIDs) > 0 {
		r.CurrentActorID = playerIDs[0]
	}
	f.store.Put(r)
	return r
}

func (f *fixture) addModerator(r *store.Room, id string) {
	r.AddParticipant(&store.Participant{
		ID:         id,
		Name:       "name-" + id,
		Capability: model.CapabilityModerator,
		Connected:  true,
	})
}

func (f *fixture) giveCard(r *store.Room, id string, points int) {
	r.CurrentCard = &model.Card{
		ID:       id,
		Category: model.CategoryRC,
		Question: "q",
		Points:   points,
	}
	r.UsedCardIDs[id] = struct{}{}
}
