package service

// Outbound event names.
const (
	EvtParticipantJoined       = "participant-joined"
	EvtGameStarted             = "game-started"
	EvtExplanationStarted      = "explanation-started"
	EvtCardDrawn               = "card-drawn"
	EvtPhaseChanged            = "phase-changed"
	EvtCardRead                = "card-read"
	EvtAnswerDeadlineStarted   = "answer-deadline-started"
	EvtAnswerTimeout           = "answer-timeout"
	EvtTurnEnded               = "turn-ended"
	EvtTurnSkipped             = "turn-skipped"
	EvtVoteRegistered          = "vote-registered"
	EvtDebateStarted           = "debate-started"
	EvtDebateResolved          = "debate-resolved"
	EvtVotingCompleted         = "voting-completed"
	EvtGameEnded               = "game-ended"
	EvtRoomUpdated             = "room-updated"
	EvtReconnected             = "reconnected"
	EvtParticipantDisconnected = "participant-disconnected"
	EvtParticipantReconnected  = "participant-reconnected"
	EvtRoomState               = "room-state"
	EvtError                   = "error"
)
