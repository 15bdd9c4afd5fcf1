package targeting

import (
	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
)

// TargetData is the resolved target set of a buff. The lists are disjoint.
type TargetData struct {
	Cells   []*board.Cell
	Cards   []*state.CardInstance
	Troops  []*state.Troop
	Players []*state.Player
}

// Anchors are the candidate centres of a spell's area.
type Anchors struct {
	// Card is the cell of the card carrying the spell.
	Card board.Position
	// Click is the cell picked by the player.
	Click board.Position
	// Hero is the cell of the acting player's hero.
	Hero board.Position
}

func (a Anchors) pick(anchor cards.Anchor) board.Position {
	switch anchor {
	case cards.AnchorOwnHero:
		return a.Hero
	case cards.AnchorClick:
		return a.Click
	default:
		return a.Card
	}
}

// Detect resolves the targets of spell on grid. Occupants are looked up on the
// acting player's board first, then on the opponent's.
func Detect(grid *board.Grid, spell cards.Spell, anchors Anchors, actor, opponent *state.Player) TargetData {
	shape := spell.Target
	if shape.IsPlayer() {
		return TargetData{Players: []*state.Player{actor}}
	}

	var td TargetData
	anchor := anchors.pick(shape.Anchor)
	for _, cell := range grid.Rect(anchor, shape.Rows, shape.Columns) {
		if shape.Has(cards.TargetCell) {
			td.Cells = append(td.Cells, cell)
		}
		if cell.Empty() {
			continue
		}
		troop := Occupant(cell, actor, opponent)
		if troop == nil {
			continue
		}
		switch {
		case troop.IsHero() && shape.Has(cards.TargetHero):
			td.Troops = append(td.Troops, troop)
		case !troop.IsHero() && shape.Has(cards.TargetMinion):
			td.Troops = append(td.Troops, troop)
		}
		if shape.Has(cards.TargetCard) {
			td.Cards = append(td.Cards, troop.Card)
		}
	}
	return td
}

// Occupant returns the live troop standing on cell, or nil.
func Occupant(cell *board.Cell, players ...*state.Player) *state.Troop {
	if cell == nil || cell.Empty() {
		return nil
	}
	for _, p := range players {
		if p == nil {
			continue
		}
		if troop, ok := p.Troop(cell.Occupant); ok && !troop.Dead {
			return troop
		}
	}
	return nil
}
