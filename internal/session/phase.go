package session

import "fmt"

// Phase only moves forward, except for the reset to PhaseMainMenu after a
// transport fault or a voluntary leave.
type Phase uint8

const (
	PhaseMainMenu Phase = iota
	PhaseInLobby
	PhasePlaying
	PhaseVictory
)

func (p Phase) String() string {
	switch p {
	case PhaseMainMenu:
		return "MAIN_MENU"
	case PhaseInLobby:
		return "IN_LOBBY"
	case PhasePlaying:
		return "PLAYING"
	case PhaseVictory:
		return "VICTORY"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}
