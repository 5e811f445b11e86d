package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"conectaplus/internal/apperr"
	"conectaplus/internal/model"
	"conectaplus/internal/store"
)

// VotingService collects peer votes on a pending answer. Any single
// disagree vote forces a debate regardless of the approval count;
// otherwise a simple majority of the non-answering eligible participants
// decides.
type VotingService struct {
	store *store.RoomStore
	bc    Broadcaster
	turns *TurnService
	game  *GameService
}

// NewVotingService creates a new voting coordinator.
func NewVotingService(roomStore *store.RoomStore, bc Broadcaster, turns *TurnService, game *GameService) *VotingService {
	return &VotingService{store: roomStore, bc: bc, turns: turns, game: game}
}

type voteRegisteredEvent struct {
	PlayerID      string `json:"playerId"`
	Approved      bool   `json:"approved"`
	TotalVotes    int    `json:"totalVotes"`
	ApprovedVotes int    `json:"approvedVotes"`
}

type voteView struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Vote       string `json:"vote"`
}

type debateStartedEvent struct {
	PlayerID      string     `json:"playerId"`
	PlayerName    string     `json:"playerName"`
	AgreeVotes    int        `json:"agreeVotes"`
	DisagreeVotes int        `json:"disagreeVotes"`
	TotalVotes    int        `json:"totalVotes"`
	Votes         []voteView `json:"votes"`
	Message       string     `json:"message"`
}

type votingCompletedEvent struct {
	Approved      bool   `json:"approved"`
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	PointsEarned  int    `json:"pointsEarned"`
	ApprovedVotes int    `json:"approvedVotes"`
	TotalVotes    int    `json:"totalVotes"`
	NewScore      int    `json:"newScore"`
}

// PlayerAnswered opens voting on the current actor's answer. The answer
// deadline is cancelled as part of the same atomic step.
func (s *VotingService) PlayerAnswered(ctx context.Context, participantID, cardID string) error {
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
		return apperr.Conflict("answers are not being accepted right now")
	}
	if room.CurrentCard == nil {
		return apperr.Conflict("no card is in play")
	}

	// The explicit answer and the deadline are mutually exclusive
	// outcomes; cancelling here, under the room lock, guarantees the
	// timeout path cannot fire for this turn anymore.
	room.CancelDeadline()

	eligibleVoters := len(room.Eligible()) - 1
	required := (eligibleVoters + 1) / 2 // ceil(eligibleVoters / 2)
	room.Phase = model.PhaseVoting
	room.CurrentAnswer = &store.CurrentAnswer{
		ParticipantID:     participantID,
		ParticipantName:   p.Name,
		CardID:            cardID,
		Votes:             make(map[string]store.Vote),
		RequiredApprovals: required,
	}

	s.bc.ToRoom(room.Code, EvtPhaseChanged, phaseChangedEvent{
		Phase:           model.PhaseVoting,
		CurrentPlayerID: room.CurrentActorID,
		Message:         p.Name + " answered, time to vote",
	})
	s.game.cacheSnapshot(room.Snapshot())
	log.Info().
		Str("roomCode", room.Code).
		Str("playerId", participantID).
		Int("requiredApprovals", required).
		Msg("voting opened")

	if eligibleVoters <= 0 {
		// Nobody can vote; resolve immediately instead of stalling.
		s.resolveLocked(room)
	}
	return nil
}

// ApproveAnswer upserts one voter's verdict. Re-voting replaces the
// previous choice; it never duplicates or errors.
func (s *VotingService) ApproveAnswer(ctx context.Context, participantID string, approved bool, code string) error {
	var room *store.Room
	if code != "" {
		room = s.store.Get(code)
	} else {
		room = s.store.FindByParticipant(participantID)
	}
	if room == nil {
		return apperr.NotFound("room")
	}

	room.Lock()
	defer room.Unlock()

	if room.Phase.Terminal() {
		return apperr.Forbidden("this game has already finished")
	}
	if room.CurrentAnswer == nil || room.Phase != model.PhaseVoting {
		return apperr.Conflict("no answer is awaiting votes")
	}
	voter := room.Participant(participantID)
	if voter == nil {
		return apperr.NotFound("participant")
	}
	if !voter.Capability.CanPlay() {
		return apperr.Forbidden("moderators do not vote")
	}
	answer := room.CurrentAnswer
	if participantID == answer.ParticipantID {
		return apperr.Forbidden("you cannot vote on your own answer")
	}

	vote := store.VoteDisagree
	if approved {
		vote = store.VoteAgree
	}
	answer.Votes[participantID] = vote

	agree, _ := answer.CountVotes()
	s.bc.ToRoom(room.Code, EvtVoteRegistered, voteRegisteredEvent{
		PlayerID:      participantID,
		Approved:      approved,
		TotalVotes:    len(answer.Votes),
		ApprovedVotes: agree,
	})
	log.Info().
		Str("roomCode", room.Code).
		Str("playerId", participantID).
		Bool("approved", approved).
		Int("totalVotes", len(answer.Votes)).
		Msg("vote registered")

	eligibleVoters := len(room.Eligible()) - 1
	if len(answer.Votes) >= eligibleVoters {
		s.resolveLocked(room)
	}
	return nil
}

// resolveLocked computes the outcome once every eligible voter has
// voted. Callers must hold the room lock.
func (s *VotingService) resolveLocked(room *store.Room) {
	answer := room.CurrentAnswer
	agree, disagree := answer.CountVotes()

	// Disagreement always forces arbitration, even when the approval
	// count already satisfies the majority.
	if answer.HasDisagreement() {
		room.Phase = model.PhaseDebate

		votes := make([]voteView, 0, len(answer.Votes))
		for id, v := range answer.Votes {
			name := ""
			if p := room.Participant(id); p != nil {
				name = p.Name
			}
			votes = append(votes, voteView{PlayerID: id, PlayerName: name, Vote: string(v)})
		}
		s.bc.ToRoom(room.Code, EvtDebateStarted, debateStartedEvent{
			PlayerID:      answer.ParticipantID,
			PlayerName:    answer.ParticipantName,
			AgreeVotes:    agree,
			DisagreeVotes: disagree,
			TotalVotes:    len(answer.Votes),
			Votes:         votes,
			Message:       "there is disagreement, the moderator must resolve the debate",
		})
		s.game.cacheSnapshot(room.Snapshot())
		log.Info().Str("roomCode", room.Code).Int("disagreeVotes", disagree).Msg("debate started")
		return
	}

	approved := agree >= answer.RequiredApprovals
	points := 0
	newScore := 0
	answering := room.Participant(answer.ParticipantID)
	if answering != nil {
		if approved && room.CurrentCard != nil {
			points = room.CurrentCard.Points
			answering.Score += points
			s.game.persistScore(room.GameID, answering.Name, answering.Score)
		}
		newScore = answering.Score
	}

	s.bc.ToRoom(room.Code, EvtVotingCompleted, votingCompletedEvent{
		Approved:      approved,
		PlayerID:      answer.ParticipantID,
		PlayerName:    answer.ParticipantName,
		PointsEarned:  points,
		ApprovedVotes: agree,
		TotalVotes:    len(answer.Votes),
		NewScore:      newScore,
	})
	log.Info().
		Str("roomCode", room.Code).
		Bool("approved", approved).
		Int("pointsEarned", points).
		Msg("voting completed")

	room.Phase = model.PhasePlaying
	if winner, reason := s.game.CheckWin(room); winner != nil {
		s.game.finishGame(room, winner, reason)
		return
	}

	room.ClearTurnState()
	s.game.cacheSnapshot(room.Snapshot())
	s.turns.ScheduleAdvance(room.Code)
}
