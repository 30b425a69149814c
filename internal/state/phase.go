package state

import (
	"strings"

	"github.com/ReunioOrg/reuneo/internal/lobby"
)

// Phase is the lobby lifecycle value consumed from the server. The client
// never drives transitions; it only observes them between polls.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseCheckin
	PhaseActive
	PhaseInterrim
	PhaseTerminated
)

// ParsePhase maps a reported lobby_state string to a Phase.
func ParsePhase(value string) Phase {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case lobby.StateCheckin:
		return PhaseCheckin
	case lobby.StateActive:
		return PhaseActive
	case lobby.StateInterrim:
		return PhaseInterrim
	case lobby.StateTerminated:
		return PhaseTerminated
	default:
		return PhaseUnknown
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseCheckin:
		return "checkin"
	case PhaseActive:
		return "active"
	case PhaseInterrim:
		return "interrim"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Transition records one observed phase edge. Polling reports the same phase
// many times; edge effects must key off Changed, not the raw value.
type Transition struct {
	From Phase
	To   Phase
}

// Changed reports whether this poll observed an actual edge.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// RoundStarted reports the edge into an active round.
func (t Transition) RoundStarted() bool {
	return t.Changed() && t.To == PhaseActive
}

// RoundEnded reports the edge out of an active round.
func (t Transition) RoundEnded() bool {
	return t.Changed() && t.From == PhaseActive
}
