package game

import (
	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
)

// CommandKind discriminates the command union.
type CommandKind string

const (
	CommandMove            CommandKind = "move"
	CommandInsert          CommandKind = "insert"
	CommandAttack          CommandKind = "attack"
	CommandComboAttack     CommandKind = "combo_attack"
	CommandUseSpecialPower CommandKind = "use_special_power"
	CommandChangeTurn      CommandKind = "change_turn"
)

// Command is one intent from the turn owner. The set of implementations is closed.
type Command interface {
	Kind() CommandKind
	isCommand()
}

// Move walks a troop to an empty cell.
type Move struct {
	TroopID string
	To      board.Position
}

// Insert plays a card from hand at a cell.
type Insert struct {
	CardID string
	At     board.Position
}

// Attack strikes an enemy troop with one of the actor's troops.
type Attack struct {
	AttackerID string
	DefenderID string
}

// ComboAttack strikes an enemy troop with several combo-capable troops at once.
type ComboAttack struct {
	AttackerIDs []string
	DefenderID  string
}

// UseSpecialPower casts the actor's hero power centred on a cell.
type UseSpecialPower struct {
	CardID string
	At     board.Position
}

// ChangeTurn ends the actor's turn.
type ChangeTurn struct{}

func (Move) Kind() CommandKind            { return CommandMove }
func (Insert) Kind() CommandKind          { return CommandInsert }
func (Attack) Kind() CommandKind          { return CommandAttack }
func (ComboAttack) Kind() CommandKind     { return CommandComboAttack }
func (UseSpecialPower) Kind() CommandKind { return CommandUseSpecialPower }
func (ChangeTurn) Kind() CommandKind      { return CommandChangeTurn }

func (Move) isCommand()            {}
func (Insert) isCommand()          {}
func (Attack) isCommand()          {}
func (ComboAttack) isCommand()     {}
func (UseSpecialPower) isCommand() {}
func (ChangeTurn) isCommand()      {}
