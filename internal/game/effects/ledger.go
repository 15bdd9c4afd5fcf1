package effects

import (
	"slices"

	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
	"github.com/alimohammadiamirhossein/project-7/internal/game/targeting"
)

// World is the part of a match the ledger reads and mutates besides troop stats.
type World interface {
	// Occupant returns the live troop on cell, or nil.
	Occupant(cell *board.Cell) *state.Troop
	// Remove takes a dead troop off the grid and its owner's board.
	Remove(troop *state.Troop)
	// ActivePlayer returns the username of the turn owner.
	ActivePlayer() string
}

// Ledger tracks the active buffs of one match.
//
// Buffs that expire while non-durable are retired rather than dropped: their
// last application is reverted at the next RevertNotDurable call.
type Ledger struct {
	world   World
	logger  *zap.Logger
	active  []*Buff
	retired []*Buff
}

// NewLedger creates an empty ledger bound to world.
func NewLedger(world World, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{world: world, logger: logger}
}

// Active returns the buffs still on the ledger, in creation order.
func (l *Ledger) Active() []*Buff {
	return slices.Clone(l.active)
}

// ApplySpell creates a buff from spell, appends it and applies it once.
func (l *Ledger) ApplySpell(spell cards.Spell, caster string, target targeting.TargetData, turn int) *Buff {
	buff := NewBuff(spell, caster, target, turn)
	l.active = append(l.active, buff)
	l.logger.Debug("buff created",
		zap.String("buff_id", buff.ID),
		zap.String("spell_id", spell.ID),
		zap.String("caster", caster),
		zap.Int("turn", turn),
		zap.Int("troops", len(target.Troops)),
		zap.Int("cells", len(target.Cells)))
	l.ApplyBuff(buff)
	return buff
}

// ApplyBuff runs one application of buff: delay check, effects in order
// cards, cell occupants, troops, players, then the duration tick.
//
// A buff aimed only at players is held, delay and duration included, until
// one of them owns the turn, so mana grants land after that player's refill.
func (l *Ledger) ApplyBuff(buff *Buff) {
	if !l.ownersTurn(buff) {
		return
	}
	if buff.Action.Delay > 0 {
		buff.Action.Delay--
		return
	}

	if carried := buff.Action.CarriedSpell; carried != nil {
		for _, card := range buff.Target.Cards {
			card.AddSpell(*carried)
		}
	}

	if len(buff.Target.Cells) > 0 {
		var occupants []*state.Troop
		for _, cell := range buff.Target.Cells {
			if troop := l.world.Occupant(cell); troop != nil {
				occupants = append(occupants, troop)
			}
		}
		if len(occupants) > 0 {
			child := buff.child(occupants)
			l.active = append(l.active, child)
			l.ApplyBuff(child)
		}
	}

	for _, troop := range slices.Clone(buff.Target.Troops) {
		l.applyToTroop(buff, troop, false)
	}

	for _, player := range buff.Target.Players {
		player.Mana += buff.Action.ManaChange
	}
	buff.live = true

	switch {
	case buff.Action.Duration > 0:
		buff.Action.Duration--
		if buff.Action.Duration == 0 {
			l.expire(buff)
		}
	case buff.Action.Duration == 0:
		l.expire(buff)
	}
}

// ApplyAll ticks every buff that was active when the call started.
func (l *Ledger) ApplyAll() {
	for _, buff := range slices.Clone(l.active) {
		if l.contains(buff) {
			l.ApplyBuff(buff)
		}
	}
}

// RevertNotDurable undoes the last application of every non-durable buff,
// then forgets retired ones.
func (l *Ledger) RevertNotDurable() {
	for _, buff := range append(slices.Clone(l.active), l.retired...) {
		if buff.Action.Durable || !buff.live {
			continue
		}
		for _, troop := range slices.Clone(buff.Target.Troops) {
			l.applyToTroop(buff, troop, true)
		}
		for _, player := range buff.Target.Players {
			player.Mana -= buff.Action.ManaChange
		}
		buff.live = false
	}
	l.retired = nil
}

// Forget drops a dead troop from every buff's membership.
func (l *Ledger) Forget(id string) {
	for _, buff := range l.active {
		buff.forget(id)
	}
	for _, buff := range l.retired {
		buff.forget(id)
	}
}

func (l *Ledger) applyToTroop(buff *Buff, troop *state.Troop, revert bool) {
	if troop.Dead {
		return
	}
	a := buff.Action
	if !a.Positive && !troop.AcceptsHarm() {
		return
	}

	sign := 1
	if revert {
		sign = -1
	}
	troop.EnemyHit += sign * a.EnemyHitChange
	troop.AP += sign * a.APChange
	if !a.Poison || !troop.PoisonImmune {
		troop.HP += sign * a.HPChange
	}

	set := !revert
	if a.Stun && !troop.StunImmune {
		troop.CanMove = !set
	}
	if a.Disarm && !troop.DisarmImmune {
		troop.Disarmed = set
	}
	if a.NoPoison {
		troop.PoisonImmune = set
	}
	if a.NoStun {
		troop.StunImmune = set
	}
	if a.NoDisarm {
		troop.DisarmImmune = set
	}
	if a.NoBadEffect {
		troop.NoBadEffect = set
	}
	if a.ForceBadEffect {
		troop.ForceBadEffect = set
	}
	if a.NoAttackFromWeaker {
		troop.NoAttackFromWeaker = set
	}
	if a.DisableHolyBuff {
		troop.HolyBuffDisabled = set
	}

	if troop.HP <= 0 || (a.KillsTarget && !revert) {
		l.kill(troop)
		return
	}
	if a.RemoveBuffs != 0 && !revert {
		l.strip(troop, a.RemoveBuffs > 0, buff)
	}
}

// strip removes troop from every bounded buff of the given polarity. A live
// non-durable effect is reverted on troop first.
func (l *Ledger) strip(troop *state.Troop, positive bool, except *Buff) {
	for _, other := range append(slices.Clone(l.active), l.retired...) {
		if other == except || other.Unbounded() || other.Action.Positive != positive {
			continue
		}
		if other.Targets(troop.ID()) {
			if other.live && !other.Action.Durable {
				l.applyToTroop(other, troop, true)
				if troop.Dead {
					return
				}
			}
			other.forget(troop.ID())
			l.logger.Debug("buff stripped",
				zap.String("buff_id", other.ID),
				zap.String("troop_id", troop.ID()))
		}
	}
}

func (l *Ledger) ownersTurn(buff *Buff) bool {
	t := buff.Target
	if len(t.Players) == 0 || len(t.Troops) > 0 || len(t.Cells) > 0 || len(t.Cards) > 0 {
		return true
	}
	owner := l.world.ActivePlayer()
	return slices.ContainsFunc(t.Players, func(p *state.Player) bool { return p.Is(owner) })
}

func (l *Ledger) kill(troop *state.Troop) {
	troop.Kill()
	l.world.Remove(troop)
	l.Forget(troop.ID())
	l.logger.Debug("troop killed by buff", zap.String("troop_id", troop.ID()))
}

func (l *Ledger) expire(buff *Buff) {
	l.active = slices.DeleteFunc(l.active, func(b *Buff) bool { return b == buff })
	if !buff.Action.Durable {
		l.retired = append(l.retired, buff)
	}
	l.logger.Debug("buff expired", zap.String("buff_id", buff.ID), zap.Bool("ephemeral", buff.ephemeral))
}

func (l *Ledger) contains(buff *Buff) bool {
	return slices.Contains(l.active, buff)
}
