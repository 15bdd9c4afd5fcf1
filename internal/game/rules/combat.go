package rules

import (
	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
)

// KillFunc removes a troop whose HP dropped to zero.
type KillFunc func(*state.Troop)

// InRange reports whether attacker may hit a troop standing at target.
func InRange(attacker *state.Troop, target board.Position) bool {
	from := attacker.Position
	switch attacker.AttackType() {
	case cards.AttackMelee:
		return from.IsNextTo(target)
	case cards.AttackRanged:
		return !from.IsNextTo(target) && from.ManhattanDistance(target) <= attacker.Range()
	case cards.AttackHybrid:
		return from.ManhattanDistance(target) <= attacker.Range()
	default:
		return false
	}
}

// Damage returns what attacker deals to defender: attacker AP plus the
// defender's enemy-hit modifier, which a holy-buff-disabled attacker only
// takes when it is positive. The result is floored at 0. ok is false when the
// defender refuses hits from attackers no stronger than itself; callers
// report that as CANNOT_ATTACK.
func Damage(attacker, defender *state.Troop) (amount int, ok bool) {
	if defender.NoAttackFromWeaker && attacker.AP <= defender.AP {
		return 0, false
	}
	amount = attacker.AP
	if !attacker.HolyBuffDisabled || defender.EnemyHit > 0 {
		amount += defender.EnemyHit
	}
	return max(amount, 0), true
}

// CheckAttack validates a single attack without mutating anything.
func CheckAttack(attacker, defender *state.Troop) error {
	if !attacker.CanAttack {
		return Errorf(CodeCannotAttack, "%s cannot attack this turn", attacker.ID())
	}
	if !InRange(attacker, defender.Position) {
		return Errorf(CodeOutOfRange, "%s cannot reach %s", attacker.ID(), defender.ID())
	}
	if _, ok := Damage(attacker, defender); !ok {
		return Errorf(CodeCannotAttack, "%s cannot be attacked by weaker troops", defender.ID())
	}
	return nil
}

// Outcome reports what an attack did.
type Outcome struct {
	Damage        int
	DefenderDied  bool
	// Countered reports that the counterattack was legal.
	Countered     bool
	CounterDamage int
	AttackerDied  bool
	// CounterErr is set when the counterattack was illegal. Primary damage stands.
	CounterErr    error
}

// Hit applies attacker's damage to defender and clears the attacker's eligibility.
func Hit(attacker, defender *state.Troop, kill KillFunc) (int, bool) {
	attacker.CanAttack = false
	amount, ok := Damage(attacker, defender)
	if !ok {
		return 0, false
	}
	defender.HP -= amount
	if defender.HP <= 0 {
		kill(defender)
		return amount, true
	}
	return amount, false
}

// Counter lets defender strike back at attacker if it is alive, armed and in range.
func Counter(defender, attacker *state.Troop, kill KillFunc) (amount int, attackerDied bool, err error) {
	if defender.Dead || attacker.Dead {
		return 0, false, nil
	}
	if defender.Disarmed {
		return 0, false, Errorf(CodeDefenderDisarmed, "%s is disarmed and cannot counter", defender.ID())
	}
	if !InRange(defender, attacker.Position) {
		return 0, false, Errorf(CodeOutOfRange, "%s cannot reach %s to counter", defender.ID(), attacker.ID())
	}
	amount, ok := Damage(defender, attacker)
	if !ok {
		return 0, false, nil
	}
	attacker.HP -= amount
	if attacker.HP <= 0 {
		kill(attacker)
		return amount, true, nil
	}
	return amount, false, nil
}

// ResolveAttack runs a checked attack followed by the counterattack.
func ResolveAttack(attacker, defender *state.Troop, kill KillFunc) (Outcome, error) {
	if err := CheckAttack(attacker, defender); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	out.Damage, out.DefenderDied = Hit(attacker, defender, kill)
	if out.DefenderDied {
		return out, nil
	}
	out.CounterDamage, out.AttackerDied, out.CounterErr = Counter(defender, attacker, kill)
	out.Countered = out.CounterErr == nil
	return out, nil
}

// ResolveCombo checks every attacker before any damage lands. The defender
// counters the first attacker only.
func ResolveCombo(attackers []*state.Troop, defender *state.Troop, kill KillFunc) (Outcome, error) {
	if len(attackers) == 0 {
		return Outcome{}, Errorf(CodeUnknownAttacker, "combo needs at least one attacker")
	}
	seen := make(map[string]bool, len(attackers))
	for _, attacker := range attackers {
		if seen[attacker.ID()] {
			return Outcome{}, Errorf(CodeCannotAttack, "%s listed twice", attacker.ID())
		}
		seen[attacker.ID()] = true
		if !attacker.Combo() {
			return Outcome{}, Errorf(CodeCannotAttack, "%s cannot join a combo", attacker.ID())
		}
		if err := CheckAttack(attacker, defender); err != nil {
			return Outcome{}, err
		}
	}

	var out Outcome
	for _, attacker := range attackers {
		if defender.Dead {
			attacker.CanAttack = false
			continue
		}
		amount, died := Hit(attacker, defender, kill)
		out.Damage += amount
		out.DefenderDied = died
	}
	if out.DefenderDied {
		return out, nil
	}
	out.CounterDamage, out.AttackerDied, out.CounterErr = Counter(defender, attackers[0], kill)
	out.Countered = out.CounterErr == nil
	return out, nil
}
