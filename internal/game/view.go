package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
)

// TroopView is the client-visible state of one troop.
type TroopView struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Name      string         `json:"name"`
	Type      cards.CardType `json:"type"`
	Row       int            `json:"row"`
	Column    int            `json:"column"`
	HP        int            `json:"hp"`
	AP        int            `json:"ap"`
	EnemyHit  int            `json:"enemy_hit"`
	CanAttack bool           `json:"can_attack"`
	CanMove   bool           `json:"can_move"`
	Moved     bool           `json:"moved"`
	Disarmed  bool           `json:"disarmed"`
}

func troopView(t *state.Troop) TroopView {
	return TroopView{
		ID:        t.ID(),
		Owner:     t.Owner(),
		Name:      t.Card.Card.Name,
		Type:      t.Card.Card.Type,
		Row:       t.Position.Row,
		Column:    t.Position.Column,
		HP:        t.HP,
		AP:        t.AP,
		EnemyHit:  t.EnemyHit,
		CanAttack: t.CanAttack,
		CanMove:   t.CanMove,
		Moved:     t.Moved,
		Disarmed:  t.Disarmed,
	}
}

// PlayerView is the client-visible state of one player. Hand is only filled
// for the viewing player.
type PlayerView struct {
	Username  string      `json:"username"`
	Mana      int         `json:"mana"`
	HeroID    string      `json:"hero_id"`
	Item      string      `json:"item,omitempty"`
	DeckCount int         `json:"deck_count"`
	HandCount int         `json:"hand_count"`
	Hand      []string    `json:"hand,omitempty"`
	Troops    []TroopView `json:"troops"`
	Graveyard []string    `json:"graveyard,omitempty"`
}

// MatchView is a snapshot of a match as seen by one player.
type MatchView struct {
	MatchID      string       `json:"match_id"`
	GameType     GameType     `json:"game_type"`
	State        string       `json:"state"`
	Turn         int          `json:"turn"`
	ActivePlayer string       `json:"active_player"`
	Winner       string       `json:"winner,omitempty"`
	ActiveBuffs  int          `json:"active_buffs"`
	Players      []PlayerView `json:"players"`
	Checksum     string       `json:"checksum"`
}

// View builds the snapshot seen by viewer. An unknown viewer sees no hands.
func (m *Match) View(viewer string) MatchView {
	view := MatchView{
		MatchID:      m.id,
		GameType:     m.gameType,
		State:        string(m.turns.State()),
		Turn:         m.turns.TurnNumber(),
		ActivePlayer: m.turns.ActivePlayer(),
		Winner:       m.winner,
		ActiveBuffs:  len(m.ledger.Active()),
		Checksum:     m.Checksum().Hash,
	}
	for _, p := range m.players {
		pv := PlayerView{
			Username:  p.Username,
			Mana:      p.Mana,
			HeroID:    p.Hero.ID(),
			DeckCount: len(p.Deck),
			HandCount: len(p.Hand),
			Graveyard: p.Graveyard(),
		}
		if p.Item != nil {
			pv.Item = p.Item.Card.Name
		}
		if p.Is(viewer) {
			for _, c := range p.Hand {
				pv.Hand = append(pv.Hand, c.ID)
			}
		}
		for _, t := range p.Troops() {
			pv.Troops = append(pv.Troops, troopView(t))
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

// StateChecksum is a deterministic fingerprint of a match used by clients to
// detect divergence.
type StateChecksum struct {
	Hash      string
	Timestamp string
	Version   int
}

// Checksum hashes a canonical representation of the full match state.
func (m *Match) Checksum() StateChecksum {
	sum := sha256.Sum256([]byte(m.canonical()))
	return StateChecksum{
		Hash:      hex.EncodeToString(sum[:]),
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}
}

func (m *Match) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%s|%s|%d|%s|%s\n",
		m.id, m.gameType, m.turns.State(), m.turns.TurnNumber(), m.turns.ActivePlayer(), m.winner)

	for _, p := range m.players {
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d|%d\n", p.Username, p.Mana, len(p.Deck), len(p.Hand))
		hand := make([]string, len(p.Hand))
		for i, c := range p.Hand {
			hand[i] = c.ID
		}
		buf.WriteString("  HAND:" + strings.Join(hand, ",") + "\n")

		for _, t := range p.Troops() {
			fmt.Fprintf(&buf, "  TROOP:%s|%s|%d|%d|%d|%t|%t|%t|%t|%t|%t|%t|%t|%t|%t\n",
				t.ID(), t.Position, t.HP, t.AP, t.EnemyHit,
				t.CanAttack, t.CanMove, t.Moved, t.Disarmed,
				t.PoisonImmune, t.StunImmune, t.DisarmImmune,
				t.NoBadEffect, t.NoAttackFromWeaker, t.HolyBuffDisabled)
			spells := make([]string, len(t.Card.Card.Spells))
			for i, s := range t.Card.Card.Spells {
				spells[i] = s.ID
			}
			sort.Strings(spells)
			buf.WriteString("    SPELLS:" + strings.Join(spells, ",") + "\n")
		}
		graveyard := p.Graveyard()
		sort.Strings(graveyard)
		buf.WriteString("  GRAVEYARD:" + strings.Join(graveyard, ",") + "\n")
	}

	// Buff ids are random; hash the counters that matter instead, in ledger order.
	for _, b := range m.ledger.Active() {
		troops := make([]string, len(b.Target.Troops))
		for i, t := range b.Target.Troops {
			troops[i] = t.ID()
		}
		sort.Strings(troops)
		fmt.Fprintf(&buf, "BUFF:%s|%s|%d|%d|%d|%s\n",
			b.SpellID, b.Caster, b.Turn, b.Action.Duration, b.Action.Delay, strings.Join(troops, ","))
	}
	return buf.String()
}
