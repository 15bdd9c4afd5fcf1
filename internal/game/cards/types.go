package cards

import "slices"

// CardType classifies a card.
type CardType string

const (
	CardTypeHero   CardType = "HERO"
	CardTypeMinion CardType = "MINION"
	CardTypeSpell  CardType = "SPELL"
	CardTypeItem   CardType = "ITEM"
)

// IsTroop reports whether cards of this type are placed on the grid.
func (t CardType) IsTroop() bool {
	return t == CardTypeHero || t == CardTypeMinion
}

// AttackType decides which cells a troop may hit.
type AttackType string

const (
	AttackMelee  AttackType = "MELEE"
	AttackRanged AttackType = "RANGED"
	AttackHybrid AttackType = "HYBRID"
)

// Availability says when a spell fires.
type Availability string

const (
	OnStart  Availability = "ON_START"
	OnPut    Availability = "ON_PUT"
	OnDemand Availability = "ON_DEMAND"
)

// TargetKind is one class of thing a spell collects from its area.
type TargetKind string

const (
	TargetCell   TargetKind = "CELL"
	TargetHero   TargetKind = "HERO"
	TargetMinion TargetKind = "MINION"
	TargetPlayer TargetKind = "PLAYER"
	TargetCard   TargetKind = "CARD"
)

// Anchor picks the centre of a spell's area.
type Anchor string

const (
	// AnchorOwner centres on the cell of the card that carries the spell.
	AnchorOwner Anchor = "OWNER"
	// AnchorOwnHero centres on the acting player's hero.
	AnchorOwnHero Anchor = "OWN_HERO"
	// AnchorClick centres on the cell chosen by the player.
	AnchorClick Anchor = "CLICK"
)

// TargetShape describes a spell's area and what it collects there.
type TargetShape struct {
	Kinds   []TargetKind `yaml:"kinds"`
	Anchor  Anchor       `yaml:"anchor"`
	Rows    int          `yaml:"rows"`
	Columns int          `yaml:"columns"`
}

// Has reports whether the shape collects the given kind.
func (t TargetShape) Has(kind TargetKind) bool {
	return slices.Contains(t.Kinds, kind)
}

// IsPlayer reports whether the spell targets the acting player instead of an area.
func (t TargetShape) IsPlayer() bool {
	return t.Has(TargetPlayer)
}

// Action holds the effect deltas and flags of a spell.
// Duration < 0 means unbounded; Duration == 0 applies once.
type Action struct {
	HPChange       int `yaml:"hp_change"`
	APChange       int `yaml:"ap_change"`
	EnemyHitChange int `yaml:"enemy_hit_change"`
	ManaChange     int `yaml:"mana_change"`

	Duration int `yaml:"duration"`
	Delay    int `yaml:"delay"`

	Positive bool `yaml:"positive"`
	Durable  bool `yaml:"durable"`
	Poison   bool `yaml:"poison"`

	Stun   bool `yaml:"stun"`
	Disarm bool `yaml:"disarm"`

	NoPoison           bool `yaml:"no_poison"`
	NoStun             bool `yaml:"no_stun"`
	NoDisarm           bool `yaml:"no_disarm"`
	NoBadEffect        bool `yaml:"no_bad_effect"`
	NoAttackFromWeaker bool `yaml:"no_attack_from_weaker"`
	DisableHolyBuff    bool `yaml:"disable_holy_buff"`
	ForceBadEffect     bool `yaml:"force_bad_effect"`

	KillsTarget bool `yaml:"kills_target"`
	// RemoveBuffs > 0 strips positive buffs, < 0 strips negative ones.
	RemoveBuffs int `yaml:"remove_buffs"`

	CarriedSpell *Spell `yaml:"carried_spell,omitempty"`
}

// Copy returns a deep copy, including any carried spell.
func (a Action) Copy() Action {
	out := a
	if a.CarriedSpell != nil {
		carried := a.CarriedSpell.Copy()
		out.CarriedSpell = &carried
	}
	return out
}

// Spell is a rule template attached to a card.
type Spell struct {
	ID           string       `yaml:"id"`
	Availability Availability `yaml:"availability"`
	Target       TargetShape  `yaml:"target"`
	Action       Action       `yaml:"action"`
	ManaCost     int          `yaml:"mana_cost"`
	Cooldown     int          `yaml:"cooldown"`
}

// Copy returns a deep copy of the spell.
func (s Spell) Copy() Spell {
	out := s
	out.Target.Kinds = slices.Clone(s.Target.Kinds)
	out.Action = s.Action.Copy()
	return out
}

// Card is the immutable template every card instance is cloned from.
type Card struct {
	Name       string     `yaml:"name"`
	Type       CardType   `yaml:"type"`
	ManaCost   int        `yaml:"mana_cost"`
	HP         int        `yaml:"hp"`
	AP         int        `yaml:"ap"`
	AttackType AttackType `yaml:"attack_type"`
	Range      int        `yaml:"range"`
	Combo      bool       `yaml:"combo"`
	Spells     []Spell    `yaml:"spells"`
}

// Copy returns a deep copy of the card.
func (c *Card) Copy() *Card {
	out := *c
	out.Spells = make([]Spell, len(c.Spells))
	for i, spell := range c.Spells {
		out.Spells[i] = spell.Copy()
	}
	return &out
}

// SpellsAvailable returns the spells that fire on the given trigger.
func (c *Card) SpellsAvailable(availability Availability) []Spell {
	var out []Spell
	for _, spell := range c.Spells {
		if spell.Availability == availability {
			out = append(out, spell)
		}
	}
	return out
}
