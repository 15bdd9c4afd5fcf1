package state

import (
	"slices"
	"strings"
)

// MaxHandSize caps the number of cards a player may hold.
const MaxHandSize = 5

// Player is one side of a match.
type Player struct {
	Username string
	Hero     *Troop
	Item     *CardInstance
	Deck     []*CardInstance
	Hand     []*CardInstance
	Mana     int

	troops    map[string]*Troop
	lastUsed  map[string]int
	graveyard []string
}

// NewPlayer builds a player with an empty board. The hero troop is placed by the match.
func NewPlayer(username string, hero *Troop, item *CardInstance, deck []*CardInstance) *Player {
	return &Player{
		Username: username,
		Hero:     hero,
		Item:     item,
		Deck:     deck,
		troops:   make(map[string]*Troop),
		lastUsed: make(map[string]int),
	}
}

// Is reports an identity match. Names compare case-insensitively, ignoring
// surrounding whitespace, as the turn manager does.
func (p *Player) Is(username string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Username), strings.TrimSpace(username))
}

// Draw moves the next deck card into the hand if there is room.
func (p *Player) Draw() *CardInstance {
	if len(p.Hand) >= MaxHandSize || len(p.Deck) == 0 {
		return nil
	}
	card := p.Deck[0]
	p.Deck = p.Deck[1:]
	p.Hand = append(p.Hand, card)
	return card
}

// HandCard finds a card in hand by id.
func (p *Player) HandCard(id string) (*CardInstance, bool) {
	for _, card := range p.Hand {
		if card.ID == id {
			return card, true
		}
	}
	return nil, false
}

// RemoveFromHand drops the card with id from the hand.
func (p *Player) RemoveFromHand(id string) {
	p.Hand = slices.DeleteFunc(p.Hand, func(c *CardInstance) bool { return c.ID == id })
}

// Troop looks up a live troop by card id.
func (p *Player) Troop(id string) (*Troop, bool) {
	t, ok := p.troops[id]
	return t, ok
}

// AddTroop registers a troop on the player's board.
func (p *Player) AddTroop(t *Troop) {
	p.troops[t.ID()] = t
}

// RemoveTroop drops the troop from the board and records it in the graveyard.
func (p *Player) RemoveTroop(id string) {
	if _, ok := p.troops[id]; !ok {
		return
	}
	delete(p.troops, id)
	p.graveyard = append(p.graveyard, id)
}

// Troops returns the live troops sorted by id.
func (p *Player) Troops() []*Troop {
	out := make([]*Troop, 0, len(p.troops))
	for _, t := range p.troops {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Troop) int { return strings.Compare(a.ID(), b.ID()) })
	return out
}

// Graveyard lists the ids of troops that died, in order of death.
func (p *Player) Graveyard() []string {
	return slices.Clone(p.graveyard)
}

// SpendMana deducts cost, reporting false when the pool is too small.
func (p *Player) SpendMana(cost int) bool {
	if cost > p.Mana {
		return false
	}
	p.Mana -= cost
	return true
}

// LastUsed returns the turn a spell was last cast, or 0 if never.
func (p *Player) LastUsed(spellID string) int {
	return p.lastUsed[spellID]
}

// MarkUsed records the turn a spell was cast.
func (p *Player) MarkUsed(spellID string, turn int) {
	p.lastUsed[spellID] = turn
}
