package service

import (
	"context"
	"fmt"
	"testing"

	"conectaplus/internal/apperr"
	"conectaplus/internal/model"
	"conectaplus/internal/store"
)

func TestStartGameHandsTurnToFirstEligible(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Phase = model.PhaseWaiting
	r.CurrentActorID = ""
	f.addModerator(r, "mod")

	if err := f.game.StartGame(context.Background(), "ROOM01", "mod"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.Phase != model.PhasePlaying {
		t.Fatalf("phase = %s, want PLAYING", r.Phase)
	}
	if r.CurrentActorID != "a" {
		t.Errorf("actor = %s, want first eligible in join order", r.CurrentActorID)
	}
	evt, ok := f.bc.last(EvtGameStarted)
	if !ok {
		t.Fatal("game-started not broadcast")
	}
	if started := evt.Payload.(gameStartedEvent); started.CurrentPlayerID != "a" {
		t.Errorf("currentPlayerId = %s, want a", started.CurrentPlayerID)
	}
}

func TestStartGameRequiresTwoParticipants(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a")
	r.Phase = model.PhaseWaiting

	err := f.game.StartGame(context.Background(), "ROOM01", "a")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestStartGameAlreadyStarted(t *testing.T) {
	f := newFixture()
	f.room("ROOM01", "a", "b") // already PLAYING

	err := f.game.StartGame(context.Background(), "ROOM01", "a")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestStartExplanationFromWaiting(t *testing.T) {
	f := newFixture()
	r := store.NewRoom("ROOM01", "game-1", 20, nil)
	r.AddParticipant(&store.Participant{ID: "a", Name: "ana", Capability: model.CapabilityPlayer, Connected: true})
	r.AddParticipant(&store.Participant{ID: "b", Name: "bia", Capability: model.CapabilityPlayer, Connected: true})
	f.store.Put(r)

	if err := f.game.StartExplanation(context.Background(), "game-1"); err != nil {
		t.Fatalf("StartExplanation: %v", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.Phase != model.PhaseExplanation {
		t.Fatalf("phase = %s, want EXPLANATION", r.Phase)
	}
	if f.bc.count(EvtExplanationStarted) != 1 {
		t.Error("explanation-started not broadcast")
	}
}

func TestDrawCardMarksCardUsed(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	f.cards.cards = []model.Card{{ID: "card-1", Category: model.CategoryRC, Points: 3}}

	if err := f.game.DrawCard(context.Background(), "ROOM01", "a", model.CategoryRC); err != nil {
		t.Fatalf("DrawCard: %v", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.CurrentCard == nil || r.CurrentCard.ID != "card-1" {
		t.Fatalf("current card = %+v, want card-1", r.CurrentCard)
	}
	if _, ok := r.UsedCardIDs["card-1"]; !ok {
		t.Error("drawn card not marked used")
	}
	if f.bc.count(EvtCardDrawn) != 1 {
		t.Error("card-drawn not broadcast")
	}
}

func TestDrawCardRejectsOutOfTurn(t *testing.T) {
	f := newFixture()
	f.room("ROOM01", "a", "b")

	err := f.game.DrawCard(context.Background(), "ROOM01", "b", model.CategoryRC)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestDrawCardExhaustedPileIsRecoverable(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	f.cards.cards = []model.Card{{ID: "card-1", Category: model.CategoryRC, Points: 3}}
	r.UsedCardIDs["card-1"] = struct{}{}

	err := f.game.DrawCard(context.Background(), "ROOM01", "a", model.CategoryRC)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
	r.Lock()
	defer r.Unlock()
	if r.Phase != model.PhasePlaying {
		t.Errorf("phase = %s, a failed draw must not end the game", r.Phase)
	}
	if r.CurrentActorID != "a" {
		t.Errorf("actor = %s, a failed draw must not cost the turn", r.CurrentActorID)
	}
}

func TestDrawCardRejectedDuringVoting(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b", "c")
	f.giveCard(r, "card-1", 3)
	f.cards.cards = []model.Card{{ID: "card-2", Category: model.CategoryRC, Points: 5}}
	if err := f.voting.PlayerAnswered(context.Background(), "a", "card-1"); err != nil {
		t.Fatalf("PlayerAnswered: %v", err)
	}

	err := f.game.DrawCard(context.Background(), "ROOM01", "a", model.CategoryRC)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.CurrentCard == nil || r.CurrentCard.ID != "card-1" {
		t.Errorf("current card = %+v, the pending vote must settle against card-1", r.CurrentCard)
	}
	if r.Phase != model.PhaseVoting {
		t.Errorf("phase = %s, want VOTING", r.Phase)
	}
}

func TestDrawCardDuringExplanationStartsPlay(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Phase = model.PhaseExplanation
	f.cards.cards = []model.Card{{ID: "card-1", Category: model.CategoryRC, Points: 3}}

	if err := f.game.DrawCard(context.Background(), "ROOM01", "a", model.CategoryRC); err != nil {
		t.Fatalf("DrawCard: %v", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.Phase != model.PhasePlaying {
		t.Fatalf("phase = %s, want PLAYING", r.Phase)
	}
	if f.bc.count(EvtPhaseChanged) != 1 {
		t.Error("phase-changed not broadcast")
	}
}

func TestCheckWinTargetScore(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Participant("a").Score = 20

	winner, reason := f.game.CheckWin(r)
	if winner == nil || winner.ID != "a" {
		t.Fatalf("winner = %v, want a", winner)
	}
	if reason != EndReasonTargetScore {
		t.Errorf("reason = %s, want %s", reason, EndReasonTargetScore)
	}
}

func TestCheckWinHighestAmongCrossers(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Participant("a").Score = 20
	r.Participant("b").Score = 23

	winner, _ := f.game.CheckWin(r)
	if winner == nil || winner.ID != "b" {
		t.Fatalf("winner = %v, want b (highest above target)", winner)
	}
}

func TestCheckWinTieFirstInJoinOrder(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Participant("a").Score = 21
	r.Participant("b").Score = 21

	winner, _ := f.game.CheckWin(r)
	if winner == nil || winner.ID != "a" {
		t.Fatalf("winner = %v, ties resolve to the first in join order", winner)
	}
}

func TestCheckWinDeckExhaustion(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Participant("a").Score = 4
	r.Participant("b").Score = 7
	for i := 0; i < 56; i++ {
		r.UsedCardIDs[fmt.Sprintf("card-%d", i)] = struct{}{}
	}

	winner, reason := f.game.CheckWin(r)
	if winner == nil || winner.ID != "b" {
		t.Fatalf("winner = %v, want b", winner)
	}
	if reason != EndReasonDeckExhausted {
		t.Errorf("reason = %s, want %s", reason, EndReasonDeckExhausted)
	}
}

func TestCheckWinNoWinnerYet(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	r.Participant("a").Score = 19

	if winner, _ := f.game.CheckWin(r); winner != nil {
		t.Fatalf("winner = %v, want none below target", winner)
	}
}

func TestEndGameByModerator(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	f.addModerator(r, "mod")
	r.Participant("b").Score = 9

	if err := f.game.EndGameByModerator(context.Background(), "ROOM01", "mod"); err != nil {
		t.Fatalf("EndGameByModerator: %v", err)
	}

	r.Lock()
	defer r.Unlock()
	if r.Phase != model.PhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", r.Phase)
	}
	evt, ok := f.bc.last(EvtGameEnded)
	if !ok {
		t.Fatal("game-ended not broadcast")
	}
	ended := evt.Payload.(gameEndedEvent)
	if ended.Reason != EndReasonModerator {
		t.Errorf("reason = %s, want %s", ended.Reason, EndReasonModerator)
	}
	if ended.Winner == nil || ended.Winner.ID != "b" {
		t.Errorf("winner = %+v, want b", ended.Winner)
	}
}

func TestEndGameByModeratorRequiresArbitration(t *testing.T) {
	f := newFixture()
	f.room("ROOM01", "a", "b")

	err := f.game.EndGameByModerator(context.Background(), "ROOM01", "a")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestFinishedRoomRejectsGameplay(t *testing.T) {
	f := newFixture()
	r := f.room("ROOM01", "a", "b")
	f.addModerator(r, "mod")
	if err := f.game.EndGameByModerator(context.Background(), "ROOM01", "mod"); err != nil {
		t.Fatalf("EndGameByModerator: %v", err)
	}

	if err := f.game.DrawCard(context.Background(), "ROOM01", "a", model.CategoryRC); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("DrawCard err = %v, want forbidden", err)
	}
	if err := f.turns.CardRead(context.Background(), "a", "card-1"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("CardRead err = %v, want forbidden", err)
	}
	if err := f.voting.PlayerAnswered(context.Background(), "a", "card-1"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("PlayerAnswered err = %v, want forbidden", err)
	}
}
