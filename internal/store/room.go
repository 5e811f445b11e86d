package store

import (
	"sync"
	"time"

	"conectaplus/internal/model"
)

// Vote is a peer's verdict on a pending answer.
type Vote string

const (
	VoteAgree    Vote = "agree"
	VoteDisagree Vote = "disagree"
)

// Participant is a member of a live room.
type Participant struct {
	ID         string
	ConnID     string
	Name       string
	Score      int
	Capability model.Capability
	Connected  bool
}

// CurrentAnswer tracks the votes on the answer the current actor just
// gave. Votes upsert by voter id and never contain the answering
// participant's own id.
type CurrentAnswer struct {
	ParticipantID     string
	ParticipantName   string
	CardID            string
	Votes             map[string]Vote
	RequiredApprovals int
}

// CountVotes returns the number of agree and disagree votes recorded.
func (a *CurrentAnswer) CountVotes() (agree, disagree int) {
	for _, v := range a.Votes {
		if v == VoteAgree {
			agree++
		} else {
			disagree++
		}
	}
	return agree, disagree
}

// HasDisagreement reports whether any recorded vote is a disagree.
func (a *CurrentAnswer) HasDisagreement() bool {
	for _, v := range a.Votes {
		if v == VoteDisagree {
			return true
		}
	}
	return false
}

// Room is one live game session. All reads and writes of a room's state
// must happen while holding its lock; events touching the same room
// never interleave.
type Room struct {
	mu sync.Mutex

	Code              string
	GameID            string
	Phase             model.Phase
	CurrentTurn       int
	CurrentActorID    string
	CurrentCard       *model.Card
	CurrentAnswer     *CurrentAnswer
	TargetScore       int
	AllowedCategories []model.CardCategory
	UsedCardIDs       map[string]struct{}
	VideoRoomURL      string
	VideoRoomName     string

	participants map[string]*Participant
	joinOrder    []string

	// AnswerTimer and DeadlineSeq implement the single pending answer
	// deadline. The sequence is bumped on every arm and cancel so a
	// stale timer firing after the state moved on is a no-op.
	AnswerTimer *time.Timer
	DeadlineSeq uint64
}

// NewRoom creates an empty room in the WAITING phase.
func NewRoom(code, gameID string, targetScore int, categories []model.CardCategory) *Room {
	if targetScore <= 0 {
		targetScore = 20
	}
	if len(categories) == 0 {
		categories = model.DefaultCategories()
	}
	return &Room{
		Code:              code,
		GameID:            gameID,
		Phase:             model.PhaseWaiting,
		CurrentTurn:       1,
		TargetScore:       targetScore,
		AllowedCategories: categories,
		UsedCardIDs:       make(map[string]struct{}),
		participants:      make(map[string]*Participant),
	}
}

// FromSnapshot rebuilds a room from a cached snapshot. Participants come
// back disconnected; connections rebind as clients rejoin.
func FromSnapshot(snap *model.RoomSnapshot) *Room {
	r := NewRoom(snap.RoomCode, snap.GameID, snap.TargetScore, snap.AllowedCategories)
	r.Phase = snap.Phase
	r.CurrentTurn = snap.CurrentTurn
	r.CurrentActorID = snap.CurrentActorID
	r.CurrentCard = snap.CurrentCard
	r.VideoRoomURL = snap.VideoRoomURL
	r.VideoRoomName = snap.VideoRoomName
	for _, id := range snap.UsedCardIDs {
		r.UsedCardIDs[id] = struct{}{}
	}
	for _, pv := range snap.Participants {
		r.AddParticipant(&Participant{
			ID:         pv.ID,
			Name:       pv.Name,
			Score:      pv.Score,
			Capability: pv.Capability,
		})
	}
	if snap.CurrentAnswer != nil {
		votes := make(map[string]Vote, len(snap.CurrentAnswer.Votes))
		for id, v := range snap.CurrentAnswer.Votes {
			votes[id] = Vote(v)
		}
		r.CurrentAnswer = &CurrentAnswer{
			ParticipantID:     snap.CurrentAnswer.ParticipantID,
			ParticipantName:   snap.CurrentAnswer.ParticipantName,
			CardID:            snap.CurrentAnswer.CardID,
			Votes:             votes,
			RequiredApprovals: snap.CurrentAnswer.RequiredApprovals,
		}
	}
	return r
}

// Lock acquires the room's exclusive lock.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's exclusive lock.
func (r *Room) Unlock() { r.mu.Unlock() }

// Participant returns the member with the given id, or nil.
func (r *Room) Participant(id string) *Participant {
	return r.participants[id]
}

// AddParticipant registers a new member, preserving join order.
func (r *Room) AddParticipant(p *Participant) {
	if _, ok := r.participants[p.ID]; !ok {
		r.joinOrder = append(r.joinOrder, p.ID)
	}
	r.participants[p.ID] = p
}

// ParticipantByName returns the member with the given display name, or nil.
func (r *Room) ParticipantByName(name string) *Participant {
	for _, id := range r.joinOrder {
		if p := r.participants[id]; p.Name == name {
			return p
		}
	}
	return nil
}

// Participants returns all members in join order.
func (r *Room) Participants() []*Participant {
	out := make([]*Participant, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		out = append(out, r.participants[id])
	}
	return out
}

// Eligible returns the members that take turns and count toward win
// conditions, in join order.
func (r *Room) Eligible() []*Participant {
	out := make([]*Participant, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if p := r.participants[id]; p.Capability.CanPlay() {
			out = append(out, p)
		}
	}
	return out
}

// Size returns the number of members.
func (r *Room) Size() int {
	return len(r.participants)
}

// ConnectedCount returns the number of currently connected members.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// CancelDeadline stops the pending answer deadline, if any, and
// invalidates its generation. Callers must hold the room lock.
func (r *Room) CancelDeadline() {
	if r.AnswerTimer != nil {
		r.AnswerTimer.Stop()
		r.AnswerTimer = nil
	}
	r.DeadlineSeq++
}

// ClearTurnState drops the pending card and answer.
func (r *Room) ClearTurnState() {
	r.CurrentCard = nil
	r.CurrentAnswer = nil
}

// Snapshot renders the full room state for clients and the snapshot
// cache. Callers must hold the room lock.
func (r *Room) Snapshot() *model.RoomSnapshot {
	used := make([]string, 0, len(r.UsedCardIDs))
	for id := range r.UsedCardIDs {
		used = append(used, id)
	}
	snap := &model.RoomSnapshot{
		RoomCode:          r.Code,
		GameID:            r.GameID,
		Phase:             r.Phase,
		CurrentTurn:       r.CurrentTurn,
		CurrentActorID:    r.CurrentActorID,
		TargetScore:       r.TargetScore,
		AllowedCategories: r.AllowedCategories,
		UsedCardIDs:       used,
		Participants:      r.ParticipantViews(),
		CurrentCard:       r.CurrentCard,
		VideoRoomURL:      r.VideoRoomURL,
		VideoRoomName:     r.VideoRoomName,
	}
	if r.CurrentAnswer != nil {
		votes := make(map[string]string, len(r.CurrentAnswer.Votes))
		for id, v := range r.CurrentAnswer.Votes {
			votes[id] = string(v)
		}
		snap.CurrentAnswer = &model.AnswerView{
			ParticipantID:     r.CurrentAnswer.ParticipantID,
			ParticipantName:   r.CurrentAnswer.ParticipantName,
			CardID:            r.CurrentAnswer.CardID,
			Votes:             votes,
			RequiredApprovals: r.CurrentAnswer.RequiredApprovals,
		}
	}
	return snap
}

// ParticipantViews renders the member list for broadcasts. Callers must
// hold the room lock.
func (r *Room) ParticipantViews() []model.ParticipantView {
	views := make([]model.ParticipantView, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		p := r.participants[id]
		views = append(views, model.ParticipantView{
			ID:            p.ID,
			Name:          p.Name,
			Score:         p.Score,
			Capability:    p.Capability,
			Connected:     p.Connected,
			IsCurrentTurn: p.ID == r.CurrentActorID,
		})
	}
	return views
}
