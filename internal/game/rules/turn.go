package rules

import (
	"strings"
)

// MatchState is the coarse state of a match's turn machine.
type MatchState string

const (
	StateAwaitingAction MatchState = "AWAITING_TURN_OWNER_ACTION"
	StateFinished       MatchState = "FINISHED"
)

// TurnManager tracks the turn number and who owns it. Odd turns belong to the
// first player, even turns to the second.
type TurnManager struct {
	turnNumber int
	players    [2]string
	state      MatchState
}

// NewTurnManager creates a turn manager at turn 1.
func NewTurnManager(first, second string) *TurnManager {
	return &TurnManager{
		turnNumber: 1,
		players:    [2]string{strings.TrimSpace(first), strings.TrimSpace(second)},
		state:      StateAwaitingAction,
	}
}

// TurnNumber returns the current turn number (1-based).
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// State returns the current machine state.
func (tm *TurnManager) State() MatchState {
	return tm.state
}

// Finished reports whether the machine reached its terminal state.
func (tm *TurnManager) Finished() bool {
	return tm.state == StateFinished
}

// ActiveIndex returns 0 when the first player owns the turn, 1 otherwise.
func (tm *TurnManager) ActiveIndex() int {
	if tm.turnNumber%2 == 1 {
		return 0
	}
	return 1
}

// ActivePlayer returns the player who currently owns the turn.
func (tm *TurnManager) ActivePlayer() string {
	return tm.players[tm.ActiveIndex()]
}

// CanCommand reports whether actor owns the current turn. Names compare case-insensitively.
func (tm *TurnManager) CanCommand(actor string) bool {
	return strings.EqualFold(strings.TrimSpace(actor), tm.ActivePlayer())
}

// Authorize returns ErrMatchFinished or ErrNotYourTurn when actor may not act now.
func (tm *TurnManager) Authorize(actor string) error {
	if tm.Finished() {
		return ErrMatchFinished
	}
	if !tm.CanCommand(actor) {
		return Errorf(CodeNotYourTurn, "it is %s's turn", tm.ActivePlayer())
	}
	return nil
}

// Advance increments the turn number and returns the new owner.
func (tm *TurnManager) Advance() string {
	tm.turnNumber++
	return tm.ActivePlayer()
}

// Finish moves the machine to its terminal state.
func (tm *TurnManager) Finish() {
	tm.state = StateFinished
}
