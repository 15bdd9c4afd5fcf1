package game

import (
	"sort"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
)

// Delta summarises what a command changed on the board.
type Delta struct {
	Placed  []TroopView  `json:"placed,omitempty"`
	Moved   []TroopMove  `json:"moved,omitempty"`
	Changed []StatChange `json:"changed,omitempty"`
	Removed []string     `json:"removed,omitempty"`
	Mana    []ManaChange `json:"mana,omitempty"`
}

// TroopMove records a troop changing cells.
type TroopMove struct {
	ID   string         `json:"id"`
	From board.Position `json:"from"`
	To   board.Position `json:"to"`
}

// StatChange records new combat stats of a troop.
type StatChange struct {
	ID       string `json:"id"`
	HP       int    `json:"hp"`
	AP       int    `json:"ap"`
	EnemyHit int    `json:"enemy_hit"`
}

// ManaChange records a player's new mana.
type ManaChange struct {
	Username string `json:"username"`
	Mana     int    `json:"mana"`
}

type snapshot struct {
	troops map[string]TroopView
	mana   map[string]int
	order  []string
}

func (m *Match) snapshot() snapshot {
	s := snapshot{troops: make(map[string]TroopView), mana: make(map[string]int)}
	for _, p := range m.players {
		s.mana[p.Username] = p.Mana
		s.order = append(s.order, p.Username)
		for _, t := range p.Troops() {
			s.troops[t.ID()] = troopView(t)
		}
	}
	return s
}

func diff(before, after snapshot) Delta {
	var d Delta

	ids := make([]string, 0, len(after.troops))
	for id := range after.troops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		now := after.troops[id]
		was, existed := before.troops[id]
		if !existed {
			d.Placed = append(d.Placed, now)
			continue
		}
		if was.Row != now.Row || was.Column != now.Column {
			d.Moved = append(d.Moved, TroopMove{
				ID:   id,
				From: board.Pos(was.Row, was.Column),
				To:   board.Pos(now.Row, now.Column),
			})
		}
		if was.HP != now.HP || was.AP != now.AP || was.EnemyHit != now.EnemyHit {
			d.Changed = append(d.Changed, StatChange{ID: id, HP: now.HP, AP: now.AP, EnemyHit: now.EnemyHit})
		}
	}

	var removed []string
	for id := range before.troops {
		if _, ok := after.troops[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	d.Removed = removed

	for _, username := range after.order {
		if before.mana[username] != after.mana[username] {
			d.Mana = append(d.Mana, ManaChange{Username: username, Mana: after.mana[username]})
		}
	}
	return d
}
