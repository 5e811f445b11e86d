package model

// Capability is a participant's permitted action set.
type Capability string

const (
	CapabilityPlayer          Capability = "PLAYER"
	CapabilityModerator       Capability = "MODERATOR"
	CapabilityPlayerModerator Capability = "PLAYER_MODERATOR"
)

// CanPlay reports whether the participant takes turns, votes and counts
// toward win conditions.
func (c Capability) CanPlay() bool {
	return c == CapabilityPlayer || c == CapabilityPlayerModerator
}

// CanArbitrate reports whether the participant may resolve debates and
// end the game early.
func (c Capability) CanArbitrate() bool {
	return c == CapabilityModerator || c == CapabilityPlayerModerator
}

// Valid reports whether c is one of the known capabilities.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityPlayer, CapabilityModerator, CapabilityPlayerModerator:
		return true
	}
	return false
}
