// Package state holds the mutable per-match runtime objects: card instances,
// troops on the grid and players.
package state

import (
	"fmt"
	"strings"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
)

// CardInstance is a runtime copy of a card template owned by one player.
type CardInstance struct {
	ID    string
	Owner string
	Card  *cards.Card
}

// NewCardInstance clones template into a new instance.
func NewCardInstance(owner string, template *cards.Card, serial int) *CardInstance {
	return &CardInstance{
		ID:    InstanceID(owner, template.Name, serial),
		Owner: owner,
		Card:  template.Copy(),
	}
}

// InstanceID builds the card id used on the wire: user_cardname_n.
func InstanceID(owner, cardName string, serial int) string {
	slug := strings.ToLower(strings.Join(strings.Fields(cardName), "-"))
	return fmt.Sprintf("%s_%s_%d", strings.ToLower(owner), slug, serial)
}

// AddSpell attaches a carried spell to the instance.
func (c *CardInstance) AddSpell(spell cards.Spell) {
	c.Card.Spells = append(c.Card.Spells, spell.Copy())
}

// Troop is a card instance standing on the grid.
type Troop struct {
	Card     *CardInstance
	Position board.Position

	HP       int
	AP       int
	EnemyHit int

	CanAttack bool
	CanMove   bool
	Moved     bool
	Disarmed  bool

	PoisonImmune       bool
	StunImmune         bool
	DisarmImmune       bool
	NoBadEffect        bool
	ForceBadEffect     bool
	NoAttackFromWeaker bool
	HolyBuffDisabled   bool

	Dead bool
}

// NewTroop builds a troop from a card instance at full template stats.
func NewTroop(card *CardInstance, pos board.Position) *Troop {
	return &Troop{
		Card:     card,
		Position: pos,
		HP:       card.Card.HP,
		AP:       card.Card.AP,
		CanMove:  true,
	}
}

// ID returns the card id of the troop.
func (t *Troop) ID() string { return t.Card.ID }

// Owner returns the username of the owning player.
func (t *Troop) Owner() string { return t.Card.Owner }

// IsHero reports whether the troop is a player's hero.
func (t *Troop) IsHero() bool { return t.Card.Card.Type == cards.CardTypeHero }

// AttackType of the underlying card.
func (t *Troop) AttackType() cards.AttackType { return t.Card.Card.AttackType }

// Range of the underlying card.
func (t *Troop) Range() int { return t.Card.Card.Range }

// Combo reports whether the troop may join a combo attack.
func (t *Troop) Combo() bool { return t.Card.Card.Combo }

// AcceptsHarm reports whether a harmful effect may touch the troop.
func (t *Troop) AcceptsHarm() bool {
	return !t.NoBadEffect || t.ForceBadEffect
}

// Kill marks the troop dead and nulls its combat stats.
func (t *Troop) Kill() {
	t.Dead = true
	t.HP = 0
	t.AP = 0
	t.CanAttack = false
	t.CanMove = false
}

// ResetForTurn restores per-turn eligibility.
func (t *Troop) ResetForTurn() {
	t.CanAttack = true
	t.Moved = false
}
