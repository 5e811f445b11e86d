package store

import (
	"testing"
	"time"

	"conectaplus/internal/model"
)

func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom("ROOM01", "game-1", 0, nil)
	if r.TargetScore != 20 {
		t.Errorf("target score = %d, want default 20", r.TargetScore)
	}
	if len(r.AllowedCategories) != 4 {
		t.Errorf("categories = %v, want all four", r.AllowedCategories)
	}
	if r.Phase != model.PhaseWaiting {
		t.Errorf("phase = %s, want WAITING", r.Phase)
	}
	if r.CurrentTurn != 1 {
		t.Errorf("turn = %d, want 1", r.CurrentTurn)
	}
}

func TestEligibleExcludesModerators(t *testing.T) {
	r := NewRoom("ROOM01", "", 20, nil)
	r.AddParticipant(&Participant{ID: "a", Capability: model.CapabilityPlayer})
	r.AddParticipant(&Participant{ID: "m", Capability: model.CapabilityModerator})
	r.AddParticipant(&Participant{ID: "pm", Capability: model.CapabilityPlayerModerator})

	eligible := r.Eligible()
	if len(eligible) != 2 {
		t.Fatalf("eligible = %d, want 2", len(eligible))
	}
	if eligible[0].ID != "a" || eligible[1].ID != "pm" {
		t.Errorf("eligible order = %s,%s, want a,pm", eligible[0].ID, eligible[1].ID)
	}
}

func TestCancelDeadlineInvalidatesGeneration(t *testing.T) {
	r := NewRoom("ROOM01", "", 20, nil)
	r.AnswerTimer = time.NewTimer(time.Hour)
	seq := r.DeadlineSeq

	r.CancelDeadline()
	if r.AnswerTimer != nil {
		t.Error("timer not cleared")
	}
	if r.DeadlineSeq == seq {
		t.Error("generation not bumped")
	}

	// Cancelling with no timer armed still invalidates.
	seq = r.DeadlineSeq
	r.CancelDeadline()
	if r.DeadlineSeq == seq {
		t.Error("idle cancel did not bump the generation")
	}
}

func TestSnapshotRoundTripMidVote(t *testing.T) {
	r := NewRoom("ROOM01", "game-1", 15, []model.CardCategory{model.CategoryRC, model.CategoryE})
	r.Phase = model.PhaseVoting
	r.CurrentTurn = 5
	r.CurrentActorID = "a"
	r.AddParticipant(&Participant{ID: "a", Name: "ana", Score: 6, Capability: model.CapabilityPlayer, Connected: true})
	r.AddParticipant(&Participant{ID: "b", Name: "bia", Score: 3, Capability: model.CapabilityPlayer, Connected: true})
	r.UsedCardIDs["card-1"] = struct{}{}
	r.CurrentCard = &model.Card{ID: "card-1", Category: model.CategoryRC, Points: 3}
	r.CurrentAnswer = &CurrentAnswer{
		ParticipantID:     "a",
		ParticipantName:   "ana",
		CardID:            "card-1",
		Votes:             map[string]Vote{"b": VoteAgree},
		RequiredApprovals: 1,
	}

	restored := FromSnapshot(r.Snapshot())

	if restored.Phase != model.PhaseVoting {
		t.Errorf("phase = %s, want VOTING", restored.Phase)
	}
	if restored.CurrentTurn != 5 || restored.CurrentActorID != "a" {
		t.Errorf("turn state = %d/%s, want 5/a", restored.CurrentTurn, restored.CurrentActorID)
	}
	if restored.TargetScore != 15 {
		t.Errorf("target = %d, want 15", restored.TargetScore)
	}
	if len(restored.AllowedCategories) != 2 {
		t.Errorf("categories = %v, want two", restored.AllowedCategories)
	}
	if _, ok := restored.UsedCardIDs["card-1"]; !ok {
		t.Error("used card ids lost")
	}
	if restored.CurrentCard == nil || restored.CurrentCard.ID != "card-1" {
		t.Error("current card lost")
	}
	if restored.CurrentAnswer == nil || restored.CurrentAnswer.Votes["b"] != VoteAgree {
		t.Error("votes lost")
	}
	if p := restored.Participant("a"); p == nil || p.Score != 6 {
		t.Error("participant scores lost")
	}
	if restored.Participant("a").Connected {
		t.Error("restored participants must come back disconnected")
	}
}

func TestParticipantViewsMarksCurrentTurn(t *testing.T) {
	r := NewRoom("ROOM01", "", 20, nil)
	r.AddParticipant(&Participant{ID: "a", Capability: model.CapabilityPlayer})
	r.AddParticipant(&Participant{ID: "b", Capability: model.CapabilityPlayer})
	r.CurrentActorID = "b"

	views := r.ParticipantViews()
	if views[0].IsCurrentTurn || !views[1].IsCurrentTurn {
		t.Errorf("views = %+v, want only b marked current", views)
	}
}

func TestCountVotesAndDisagreement(t *testing.T) {
	a := &CurrentAnswer{Votes: map[string]Vote{
		"b": VoteAgree,
		"c": VoteAgree,
		"d": VoteDisagree,
	}}
	agree, disagree := a.CountVotes()
	if agree != 2 || disagree != 1 {
		t.Errorf("counts = %d/%d, want 2/1", agree, disagree)
	}
	if !a.HasDisagreement() {
		t.Error("disagreement not detected")
	}

	delete(a.Votes, "d")
	if a.HasDisagreement() {
		t.Error("false disagreement")
	}
}
