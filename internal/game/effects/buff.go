package effects

import (
	"slices"

	"github.com/google/uuid"

	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
	"github.com/alimohammadiamirhossein/project-7/internal/game/targeting"
)

// Buff is a live instance of a spell action bound to its targets.
type Buff struct {
	ID      string
	SpellID string
	Caster  string
	Turn    int
	Action  cards.Action
	Target  targeting.TargetData

	// ephemeral buffs are derived from a cell buff for one application.
	ephemeral bool
	// live is set while an application is in effect and has not been reverted.
	live bool
}

// NewBuff binds a runtime copy of spell's action to target.
func NewBuff(spell cards.Spell, caster string, target targeting.TargetData, turn int) *Buff {
	return &Buff{
		ID:      uuid.NewString(),
		SpellID: spell.ID,
		Caster:  caster,
		Turn:    turn,
		Action:  spell.Action.Copy(),
		Target:  target,
	}
}

// Unbounded reports whether the buff never expires.
func (b *Buff) Unbounded() bool { return b.Action.Duration < 0 }

// Targets reports whether the buff's troop membership contains id.
func (b *Buff) Targets(id string) bool {
	return slices.ContainsFunc(b.Target.Troops, func(t *state.Troop) bool { return t.ID() == id })
}

func (b *Buff) forget(id string) {
	b.Target.Troops = slices.DeleteFunc(b.Target.Troops, func(t *state.Troop) bool { return t.ID() == id })
}

func (b *Buff) child(occupants []*state.Troop) *Buff {
	action := b.Action.Copy()
	action.Duration = 0
	action.Delay = 0
	action.CarriedSpell = nil
	return &Buff{
		ID:        uuid.NewString(),
		SpellID:   b.SpellID,
		Caster:    b.Caster,
		Turn:      b.Turn,
		Action:    action,
		Target:    targeting.TargetData{Troops: occupants},
		ephemeral: true,
	}
}
