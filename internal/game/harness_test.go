package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
)

const (
	alice = "alice"
	bob   = "bob"
)

// testCatalog keeps the numbers small and round so expectations stay readable.
const testCatalog = `
cards:
  - name: Knight
    type: HERO
    hp: 20
    ap: 3
    attack_type: MELEE
    spells:
      - id: rally
        availability: ON_DEMAND
        mana_cost: 1
        cooldown: 2
        target: {kinds: [HERO], anchor: OWN_HERO, rows: 1, columns: 1}
        action: {ap_change: 1, duration: 0, positive: true, durable: true}
  - name: Footman
    type: MINION
    mana_cost: 1
    hp: 8
    ap: 5
    attack_type: MELEE
    combo: true
  - name: Guard
    type: MINION
    mana_cost: 1
    hp: 8
    ap: 3
    attack_type: MELEE
    combo: true
  - name: Bowman
    type: MINION
    mana_cost: 1
    hp: 4
    ap: 2
    attack_type: RANGED
    range: 4
  - name: Peasant
    type: MINION
    mana_cost: 1
    hp: 1
    ap: 1
    attack_type: MELEE
  - name: Stunner
    type: MINION
    mana_cost: 1
    hp: 3
    ap: 1
    attack_type: MELEE
    spells:
      - id: stunner-shout
        availability: ON_PUT
        target: {kinds: [MINION], anchor: OWNER, rows: 3, columns: 3}
        action: {stun: true, duration: 2}
  - name: Smite
    type: SPELL
    mana_cost: 2
    spells:
      - id: smite
        availability: ON_PUT
        target: {kinds: [MINION, HERO], anchor: CLICK, rows: 1, columns: 1}
        action: {hp_change: -10, durable: true}
  - name: Amulet
    type: ITEM
    spells:
      - id: amulet
        availability: ON_START
        target: {kinds: [PLAYER]}
        action: {mana_change: 1, duration: 0, positive: true, durable: true}
`

func testDeck() cards.Deck {
	return cards.Deck{
		Name:   "test",
		Hero:   "Knight",
		Others: []string{"Footman", "Guard", "Stunner", "Smite", "Bowman", "Peasant", "Footman", "Guard"},
	}
}

func mustCatalog(t require.TestingT) *cards.Catalog {
	catalog, err := cards.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	return catalog
}

func buildMatch(t require.TestingT, settings Settings, logger *zap.Logger, decks ...cards.Deck) *Match {
	first, second := testDeck(), testDeck()
	if len(decks) > 0 {
		first = decks[0]
	}
	if len(decks) > 1 {
		second = decks[1]
	}
	seats := [2]Seat{{Username: alice, Deck: first}, {Username: bob, Deck: second}}
	m, err := NewMatch("test-match", mustCatalog(t), seats, settings, logger)
	require.NoError(t, err)
	return m
}

// matchHarness drives a match from tests and places troops directly on the grid.
type matchHarness struct {
	t       *testing.T
	match   *Match
	catalog *cards.Catalog
	serial  int
}

func newHarness(t *testing.T, settings Settings, decks ...cards.Deck) *matchHarness {
	t.Helper()
	return &matchHarness{
		t:       t,
		match:   buildMatch(t, settings, zaptest.NewLogger(t), decks...),
		catalog: mustCatalog(t),
		serial:  100,
	}
}

func (h *matchHarness) player(username string) *state.Player {
	h.t.Helper()
	p, ok := h.match.Player(username)
	require.True(h.t, ok, "no player %s", username)
	return p
}

// summon puts a ready troop on the grid without paying for it.
func (h *matchHarness) summon(owner, cardName string, pos board.Position) *state.Troop {
	h.t.Helper()
	template, ok := h.catalog.Lookup(cardName)
	require.True(h.t, ok, "unknown card %s", cardName)
	h.serial++
	troop := state.NewTroop(state.NewCardInstance(owner, template, h.serial), pos)
	troop.CanAttack = true
	require.NoError(h.t, h.match.grid.Place(troop.ID(), pos))
	h.player(owner).AddTroop(troop)
	return troop
}

func (h *matchHarness) handCard(owner, cardName string) *state.CardInstance {
	h.t.Helper()
	for _, card := range h.player(owner).Hand {
		if card.Card.Name == cardName {
			return card
		}
	}
	h.t.Fatalf("%s holds no %s", owner, cardName)
	return nil
}

func (h *matchHarness) apply(actor string, cmd Command) Result {
	h.t.Helper()
	result, err := h.match.Apply(actor, cmd)
	require.NoError(h.t, err)
	return result
}

// reject asserts that cmd fails with want and leaves the match untouched.
func (h *matchHarness) reject(actor string, cmd Command, want error) {
	h.t.Helper()
	before := h.match.Checksum().Hash
	result, err := h.match.Apply(actor, cmd)
	require.ErrorIs(h.t, err, want)
	require.Empty(h.t, result.Command)
	require.Equal(h.t, before, h.match.Checksum().Hash, "rejected %s mutated the match", cmd.Kind())
}

func (h *matchHarness) endTurn() Result {
	h.t.Helper()
	return h.apply(h.match.ActivePlayer(), ChangeTurn{})
}
