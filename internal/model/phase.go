package model

// Phase is the lifecycle stage of a live room. Transitions are monotonic
// within a round: WAITING -> EXPLANATION -> PLAYING -> VOTING ->
// {PLAYING | DEBATE} -> PLAYING -> ... -> FINISHED. FINISHED is terminal.
type Phase string

const (
	PhaseWaiting     Phase = "WAITING"
	PhaseExplanation Phase = "EXPLANATION"
	PhasePlaying     Phase = "PLAYING"
	PhaseVoting      Phase = "VOTING"
	PhaseDebate      Phase = "DEBATE"
	PhaseFinished    Phase = "FINISHED"
)

// Terminal reports whether no further state-mutating event is accepted.
func (p Phase) Terminal() bool {
	return p == PhaseFinished
}
