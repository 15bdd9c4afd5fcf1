package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/rules"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
)

func eventTypes(events []rules.Event) []rules.EventType {
	out := make([]rules.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func findEvent(events []rules.Event, eventType rules.EventType) (rules.Event, bool) {
	for _, e := range events {
		if e.Type == eventType {
			return e, true
		}
	}
	return rules.Event{}, false
}

func TestNewMatchStartProcedure(t *testing.T) {
	h := newHarness(t, Settings{})
	a, b := h.player(alice), h.player(bob)

	assert.Equal(t, 1, h.match.Turn())
	assert.Equal(t, alice, h.match.ActivePlayer())
	assert.False(t, h.match.Finished())

	assert.Equal(t, board.Pos(2, 0), a.Hero.Position)
	assert.Equal(t, board.Pos(2, 8), b.Hero.Position)
	assert.Equal(t, a.Hero.ID(), h.match.grid.Cell(board.Pos(2, 0)).Occupant)
	assert.True(t, a.Hero.CanAttack)

	for _, p := range []*state.Player{a, b} {
		assert.Len(t, p.Hand, state.MaxHandSize)
		assert.Len(t, p.Deck, 3)
		assert.Len(t, p.Troops(), 1)
	}
	assert.Equal(t, 2, a.Mana)
	assert.Equal(t, 0, b.Mana)
}

func TestNewMatchRejectsBadSeats(t *testing.T) {
	catalog := mustCatalog(t)

	_, err := NewMatch("m", catalog, [2]Seat{{Username: alice, Deck: testDeck()}, {Username: "ALICE", Deck: testDeck()}}, Settings{}, nil)
	assert.Error(t, err)

	_, err = NewMatch("m", catalog, [2]Seat{{Username: alice, Deck: testDeck()}, {Username: "", Deck: testDeck()}}, Settings{}, nil)
	assert.Error(t, err)

	notHero := testDeck()
	notHero.Hero = "Footman"
	_, err = NewMatch("m", catalog, [2]Seat{{Username: alice, Deck: notHero}, {Username: bob, Deck: testDeck()}}, Settings{}, nil)
	assert.Error(t, err)

	unknown := testDeck()
	unknown.Others = []string{"Ghost"}
	_, err = NewMatch("m", catalog, [2]Seat{{Username: alice, Deck: testDeck()}, {Username: bob, Deck: unknown}}, Settings{}, nil)
	assert.Error(t, err)
}

func TestOnStartItemGrantsMana(t *testing.T) {
	withItem := testDeck()
	withItem.Item = "Amulet"
	h := newHarness(t, Settings{}, withItem)

	assert.Equal(t, 3, h.player(alice).Mana)
	assert.Equal(t, 0, h.player(bob).Mana)
}

func TestOnStartManaReachesBothSeats(t *testing.T) {
	withItem := testDeck()
	withItem.Item = "Amulet"
	h := newHarness(t, Settings{}, withItem, withItem)
	require.Equal(t, 3, h.player(alice).Mana)
	require.Equal(t, 0, h.player(bob).Mana)

	result := h.endTurn()
	assert.Equal(t, 3, h.player(bob).Mana, "bob's first turn matches alice's")
	assert.Contains(t, result.Delta.Mana, ManaChange{Username: bob, Mana: 3})

	h.endTurn()
	assert.Equal(t, 3, h.player(alice).Mana, "one-shot grants do not repeat")
	h.endTurn()
	assert.Equal(t, 3, h.player(bob).Mana)
}

func TestTurnOwnershipFollowsParity(t *testing.T) {
	h := newHarness(t, Settings{})

	for turn := 1; turn <= 8; turn++ {
		owner, other := alice, bob
		if turn%2 == 0 {
			owner, other = bob, alice
		}
		require.Equal(t, turn, h.match.Turn())
		require.Equal(t, owner, h.match.ActivePlayer())

		h.reject(other, ChangeTurn{}, rules.ErrNotYourTurn)
		require.Equal(t, turn, h.match.Turn())

		result := h.apply(owner, ChangeTurn{})
		assert.Equal(t, turn+1, result.Turn)
	}
}

func TestActorMatchIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, Settings{})
	result := h.apply("ALICE", ChangeTurn{})
	assert.Equal(t, bob, h.match.ActivePlayer())
	assert.Equal(t, "ALICE", result.Actor)
}

func TestPaddedActorNamesResolve(t *testing.T) {
	h := newHarness(t, Settings{})
	h.apply(" alice ", ChangeTurn{})
	require.Equal(t, bob, h.match.ActivePlayer())

	p, ok := h.match.Player(" Bob\t")
	require.True(t, ok)
	assert.Equal(t, bob, p.Username)

	h.apply(" bob ", Insert{CardID: h.handCard(bob, "Footman").ID, At: board.Pos(2, 7)})
	assert.Len(t, p.Troops(), 2)
}

func TestChangeTurnDrawsAndRefillsMana(t *testing.T) {
	h := newHarness(t, Settings{})
	a, b := h.player(alice), h.player(bob)

	h.apply(alice, Insert{CardID: h.handCard(alice, "Footman").ID, At: board.Pos(2, 1)})
	require.Len(t, a.Hand, 4)

	result := h.endTurn()
	assert.Len(t, a.Hand, 5)
	assert.Equal(t, []rules.EventType{rules.EventCardDrawn, rules.EventTurnChanged}, eventTypes(result.Events))
	assert.Equal(t, 2, b.Mana)
	assert.Contains(t, result.Delta.Mana, ManaChange{Username: bob, Mana: 2})

	// A full hand draws nothing.
	result = h.endTurn()
	assert.Len(t, b.Hand, 5)
	assert.Equal(t, []rules.EventType{rules.EventTurnChanged}, eventTypes(result.Events))
	assert.Equal(t, 3, a.Mana, "turn 3 mana")

	h.endTurn()
	assert.Equal(t, 3, b.Mana, "turn 4 mana")
}

func TestManaIsCapped(t *testing.T) {
	h := newHarness(t, Settings{StartingMana: 2, MaxMana: 3})
	for i := 0; i < 10; i++ {
		h.endTurn()
	}
	assert.Equal(t, 3, h.player(h.match.ActivePlayer()).Mana)
}

func TestMeleeAttackWithCounter(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 4))
	guard := h.summon(bob, "Guard", board.Pos(1, 5))

	result := h.apply(alice, Attack{AttackerID: footman.ID(), DefenderID: guard.ID()})

	assert.Equal(t, 3, guard.HP)
	assert.Equal(t, 5, footman.HP)
	assert.False(t, footman.CanAttack)

	hit, ok := findEvent(result.Events, rules.EventDamageDealt)
	require.True(t, ok)
	assert.Equal(t, 5, hit.Amount)
	counter, ok := findEvent(result.Events, rules.EventCounterAttack)
	require.True(t, ok)
	assert.Equal(t, 3, counter.Amount)

	assert.ElementsMatch(t, []StatChange{
		{ID: footman.ID(), HP: 5, AP: 5},
		{ID: guard.ID(), HP: 3, AP: 3},
	}, result.Delta.Changed)

	h.reject(alice, Attack{AttackerID: footman.ID(), DefenderID: guard.ID()}, rules.ErrCannotAttack)
}

func TestAttackEligibilityResetsNextOwnTurn(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 4))
	guard := h.summon(bob, "Guard", board.Pos(1, 5))

	h.apply(alice, Attack{AttackerID: footman.ID(), DefenderID: guard.ID()})
	h.endTurn()
	h.endTurn()
	assert.True(t, footman.CanAttack)
	h.apply(alice, Attack{AttackerID: footman.ID(), DefenderID: guard.ID()})
}

func TestRangedCannotHitAdjacent(t *testing.T) {
	h := newHarness(t, Settings{})
	bowman := h.summon(alice, "Bowman", board.Pos(1, 4))
	guard := h.summon(bob, "Guard", board.Pos(1, 5))

	h.reject(alice, Attack{AttackerID: bowman.ID(), DefenderID: guard.ID()}, rules.ErrOutOfRange)
	assert.True(t, bowman.CanAttack)
}

func TestIllegalCounterKeepsPrimaryDamage(t *testing.T) {
	h := newHarness(t, Settings{})
	bowman := h.summon(alice, "Bowman", board.Pos(1, 4))
	guard := h.summon(bob, "Guard", board.Pos(1, 7))

	result, err := h.match.Apply(alice, Attack{AttackerID: bowman.ID(), DefenderID: guard.ID()})
	require.ErrorIs(t, err, rules.ErrOutOfRange)
	assert.Equal(t, CommandAttack, result.Command)
	assert.Equal(t, 6, guard.HP)
	assert.Equal(t, 4, bowman.HP)
	assert.Contains(t, result.Delta.Changed, StatChange{ID: guard.ID(), HP: 6, AP: 3})

	blocked, ok := findEvent(result.Events, rules.EventCounterBlocked)
	require.True(t, ok)
	assert.Equal(t, string(rules.CodeOutOfRange), blocked.Data)
}

func TestLethalHitRemovesTroop(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 4))
	peasant := h.summon(bob, "Peasant", board.Pos(1, 5))

	result := h.apply(alice, Attack{AttackerID: footman.ID(), DefenderID: peasant.ID()})

	assert.True(t, peasant.Dead)
	assert.Equal(t, 8, footman.HP, "dead defenders do not counter")
	assert.Equal(t, []string{peasant.ID()}, result.Delta.Removed)
	assert.True(t, h.match.grid.Cell(board.Pos(1, 5)).Empty())
	assert.Contains(t, h.player(bob).Graveyard(), peasant.ID())
	assert.Equal(t, []rules.EventType{rules.EventDamageDealt, rules.EventTroopDied}, eventTypes(result.Events))

	other := h.summon(alice, "Guard", board.Pos(0, 4))
	h.reject(alice, Attack{AttackerID: other.ID(), DefenderID: peasant.ID()}, rules.ErrUnknownTarget)

	h.endTurn()
	h.reject(bob, Attack{AttackerID: peasant.ID(), DefenderID: footman.ID()}, rules.ErrUnknownAttacker)
	h.reject(bob, Move{TroopID: peasant.ID(), To: board.Pos(1, 6)}, rules.ErrUnknownAttacker)
}

func TestAttackWithForeignIDs(t *testing.T) {
	h := newHarness(t, Settings{})
	mine := h.summon(alice, "Footman", board.Pos(1, 4))
	theirs := h.summon(bob, "Guard", board.Pos(1, 5))

	h.reject(alice, Attack{AttackerID: theirs.ID(), DefenderID: mine.ID()}, rules.ErrUnknownAttacker)
	h.reject(alice, Attack{AttackerID: mine.ID(), DefenderID: "nobody"}, rules.ErrUnknownTarget)
	h.reject(bob, Attack{AttackerID: theirs.ID(), DefenderID: mine.ID()}, rules.ErrNotYourTurn)
}

func TestComboAttack(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 8))
	guard := h.summon(alice, "Guard", board.Pos(3, 8))
	bowman := h.summon(alice, "Bowman", board.Pos(2, 4))
	hero := h.player(bob).Hero

	h.reject(alice, ComboAttack{AttackerIDs: []string{footman.ID(), bowman.ID()}, DefenderID: hero.ID()}, rules.ErrCannotAttack)
	h.reject(alice, ComboAttack{AttackerIDs: []string{footman.ID(), footman.ID()}, DefenderID: hero.ID()}, rules.ErrCannotAttack)
	h.reject(alice, ComboAttack{AttackerIDs: nil, DefenderID: hero.ID()}, rules.ErrUnknownAttacker)

	result := h.apply(alice, ComboAttack{AttackerIDs: []string{footman.ID(), guard.ID()}, DefenderID: hero.ID()})

	assert.Equal(t, 12, hero.HP)
	assert.Equal(t, 5, footman.HP, "the first attacker takes the counter")
	assert.Equal(t, 8, guard.HP)
	assert.False(t, footman.CanAttack)
	assert.False(t, guard.CanAttack)

	hit, ok := findEvent(result.Events, rules.EventDamageDealt)
	require.True(t, ok)
	assert.Equal(t, 8, hit.Amount)
	assert.Equal(t, footman.ID()+","+guard.ID(), hit.Data)
}

func TestKillingHeroFinishesMatch(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 8))
	hero := h.player(bob).Hero
	hero.HP = 5

	result := h.apply(alice, Attack{AttackerID: footman.ID(), DefenderID: hero.ID()})

	assert.True(t, result.Finished)
	assert.Equal(t, alice, result.Winner)
	assert.True(t, h.match.Finished())
	assert.Equal(t, rules.StateFinished, h.match.turns.State())
	_, ok := findEvent(result.Events, rules.EventMatchFinished)
	assert.True(t, ok)

	h.reject(alice, ChangeTurn{}, rules.ErrMatchFinished)
	h.reject(bob, ChangeTurn{}, rules.ErrMatchFinished)
}

func TestTurnLimitPolicy(t *testing.T) {
	h := newHarness(t, Settings{GameType: GameTurnLimit, MaxTurns: 2})
	h.player(bob).Hero.HP = 10

	assert.False(t, h.endTurn().Finished)
	result := h.endTurn()

	assert.True(t, result.Finished)
	assert.Equal(t, alice, result.Winner)
}

func TestTurnLimitDraw(t *testing.T) {
	h := newHarness(t, Settings{GameType: GameTurnLimit, MaxTurns: 1})
	result := h.endTurn()
	assert.True(t, result.Finished)
	assert.Empty(t, result.Winner)
}

func TestInsertTroop(t *testing.T) {
	h := newHarness(t, Settings{})
	a := h.player(alice)
	card := h.handCard(alice, "Footman")

	h.reject(alice, Insert{CardID: card.ID, At: board.Pos(0, 4)}, rules.ErrInvalidPlacement)
	h.reject(alice, Insert{CardID: card.ID, At: board.Pos(2, 0)}, rules.ErrInvalidPlacement)
	h.reject(alice, Insert{CardID: card.ID, At: board.Pos(-1, 0)}, rules.ErrInvalidPlacement)
	h.reject(alice, Insert{CardID: "missing", At: board.Pos(2, 1)}, rules.ErrUnknownCard)

	result := h.apply(alice, Insert{CardID: card.ID, At: board.Pos(2, 1)})

	troop, ok := a.Troop(card.ID)
	require.True(t, ok)
	assert.Equal(t, board.Pos(2, 1), troop.Position)
	assert.False(t, troop.CanAttack)
	assert.Equal(t, 1, a.Mana)
	assert.Len(t, a.Hand, 4)
	require.Len(t, result.Delta.Placed, 1)
	assert.Equal(t, card.ID, result.Delta.Placed[0].ID)
	assert.Contains(t, result.Delta.Mana, ManaChange{Username: alice, Mana: 1})

	h.reject(alice, Move{TroopID: troop.ID(), To: board.Pos(2, 2)}, rules.ErrCannotMove)
	h.reject(alice, Insert{CardID: card.ID, At: board.Pos(2, 2)}, rules.ErrUnknownCard)
}

func TestInsertNeedsMana(t *testing.T) {
	h := newHarness(t, Settings{})
	h.player(alice).Mana = 0
	h.reject(alice, Insert{CardID: h.handCard(alice, "Footman").ID, At: board.Pos(2, 1)}, rules.ErrNotEnoughMana)
}

func TestInsertSpellCard(t *testing.T) {
	h := newHarness(t, Settings{})
	a := h.player(alice)
	hero := h.player(bob).Hero
	card := h.handCard(alice, "Smite")

	result := h.apply(alice, Insert{CardID: card.ID, At: hero.Position})

	assert.Equal(t, 10, hero.HP)
	assert.Equal(t, 0, a.Mana)
	_, placed := a.Troop(card.ID)
	assert.False(t, placed)
	assert.Empty(t, result.Delta.Placed)
	cast, ok := findEvent(result.Events, rules.EventSpellCast)
	require.True(t, ok)
	assert.Equal(t, "smite", cast.SourceID)

	h.endTurn()
	h.endTurn()
	assert.Equal(t, 10, hero.HP, "durable damage is never reverted")
}

func TestOnPutStunLastsThroughOpponentTurn(t *testing.T) {
	h := newHarness(t, Settings{})
	guard := h.summon(bob, "Guard", board.Pos(1, 2))

	h.apply(alice, Insert{CardID: h.handCard(alice, "Stunner").ID, At: board.Pos(1, 1)})
	assert.False(t, guard.CanMove)

	h.endTurn()
	assert.False(t, guard.CanMove)
	h.reject(bob, Move{TroopID: guard.ID(), To: board.Pos(1, 3)}, rules.ErrCannotMove)

	h.endTurn()
	assert.True(t, guard.CanMove)
	assert.Empty(t, h.match.ledger.Active())
}

func TestMove(t *testing.T) {
	h := newHarness(t, Settings{})
	footman := h.summon(alice, "Footman", board.Pos(1, 4))
	h.summon(bob, "Guard", board.Pos(1, 6))

	h.reject(alice, Move{TroopID: footman.ID(), To: board.Pos(1, 7)}, rules.ErrInvalidMove)
	h.reject(alice, Move{TroopID: footman.ID(), To: board.Pos(1, 6)}, rules.ErrInvalidMove)
	h.reject(alice, Move{TroopID: footman.ID(), To: board.Pos(1, 4)}, rules.ErrInvalidMove)
	h.reject(alice, Move{TroopID: footman.ID(), To: board.Pos(5, 4)}, rules.ErrInvalidMove)

	result := h.apply(alice, Move{TroopID: footman.ID(), To: board.Pos(2, 5)})

	assert.Equal(t, board.Pos(2, 5), footman.Position)
	assert.True(t, h.match.grid.Cell(board.Pos(1, 4)).Empty())
	assert.Equal(t, footman.ID(), h.match.grid.Cell(board.Pos(2, 5)).Occupant)
	assert.Equal(t, []TroopMove{{ID: footman.ID(), From: board.Pos(1, 4), To: board.Pos(2, 5)}}, result.Delta.Moved)

	h.reject(alice, Move{TroopID: footman.ID(), To: board.Pos(2, 6)}, rules.ErrCannotMove)
}

func TestSpecialPowerCooldown(t *testing.T) {
	h := newHarness(t, Settings{})
	a := h.player(alice)
	hero := a.Hero

	h.reject(alice, UseSpecialPower{CardID: "nope", At: hero.Position}, rules.ErrUnknownCard)
	h.reject(alice, UseSpecialPower{At: board.Pos(9, 9)}, rules.ErrInvalidPlacement)

	h.apply(alice, UseSpecialPower{CardID: hero.ID(), At: hero.Position})
	assert.Equal(t, 4, hero.AP)
	assert.Equal(t, 1, a.Mana)

	h.reject(alice, UseSpecialPower{At: hero.Position}, rules.ErrSpellOnCooldown)

	h.endTurn()
	h.endTurn()
	assert.Equal(t, 4, hero.AP, "a one-shot durable buff stays applied")

	a.Mana = 0
	h.reject(alice, UseSpecialPower{At: hero.Position}, rules.ErrNotEnoughMana)
	a.Mana = 3

	h.apply(alice, UseSpecialPower{At: hero.Position})
	assert.Equal(t, 5, hero.AP)
}

func TestSpecialPowerNeedsOne(t *testing.T) {
	plain := testDeck()
	plain.Hero = "Plain"
	catalog := mustCatalog(t)
	cardsWithPlain := append(catalogCards(t, catalog), cards.Card{Name: "Plain", Type: cards.CardTypeHero, HP: 10, AP: 1, AttackType: cards.AttackMelee})
	extended, err := cards.NewCatalog(cardsWithPlain...)
	require.NoError(t, err)

	m, err := NewMatch("m", extended, [2]Seat{{Username: alice, Deck: plain}, {Username: bob, Deck: testDeck()}}, Settings{}, nil)
	require.NoError(t, err)

	_, err = m.Apply(alice, UseSpecialPower{At: board.Pos(2, 0)})
	assert.ErrorIs(t, err, rules.ErrUnknownCard)
}

func catalogCards(t *testing.T, catalog *cards.Catalog) []cards.Card {
	var out []cards.Card
	for _, name := range catalog.Names() {
		card, ok := catalog.Lookup(name)
		require.True(t, ok)
		out = append(out, *card)
	}
	return out
}

func TestViewHidesOpponentHand(t *testing.T) {
	h := newHarness(t, Settings{})

	view := h.match.View(alice)
	require.Len(t, view.Players, 2)
	assert.Len(t, view.Players[0].Hand, 5)
	assert.Empty(t, view.Players[1].Hand)
	assert.Equal(t, 5, view.Players[1].HandCount)
	assert.Equal(t, alice, view.ActivePlayer)
	assert.Equal(t, string(rules.StateAwaitingAction), view.State)

	spectator := h.match.View("carol")
	assert.Empty(t, spectator.Players[0].Hand)
	assert.Empty(t, spectator.Players[1].Hand)
}

func TestChecksumTracksState(t *testing.T) {
	h := newHarness(t, Settings{})
	first := h.match.Checksum()
	assert.Equal(t, first.Hash, h.match.Checksum().Hash)
	assert.Len(t, first.Hash, 64)

	other := buildMatch(t, Settings{}, zap.NewNop())
	assert.Equal(t, first.Hash, other.Checksum().Hash, "identical setups hash identically")

	h.endTurn()
	assert.NotEqual(t, first.Hash, h.match.Checksum().Hash)
}

// Random command sequences must keep the grid and the troop arenas in sync
// and never surface anything but rule errors.
func TestRandomCommandsKeepBoardConsistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := buildMatch(rt, Settings{}, zap.NewNop())
		pos := func(label string) board.Position {
			return board.Pos(rapid.IntRange(-1, board.Rows).Draw(rt, label+"_row"),
				rapid.IntRange(-1, board.Columns).Draw(rt, label+"_col"))
		}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			actor := m.ActivePlayer()
			me, _ := m.Player(actor)
			opponent := m.players[1-m.turns.ActiveIndex()]

			var cmd Command
			switch rapid.IntRange(0, 5).Draw(rt, "kind") {
			case 0:
				cmd = ChangeTurn{}
			case 1:
				if len(me.Hand) == 0 {
					continue
				}
				card := rapid.SampledFrom(me.Hand).Draw(rt, "card")
				cmd = Insert{CardID: card.ID, At: pos("insert")}
			case 2:
				troop := rapid.SampledFrom(me.Troops()).Draw(rt, "mover")
				cmd = Move{TroopID: troop.ID(), To: pos("move")}
			case 3:
				attacker := rapid.SampledFrom(me.Troops()).Draw(rt, "attacker")
				defender := rapid.SampledFrom(opponent.Troops()).Draw(rt, "defender")
				cmd = Attack{AttackerID: attacker.ID(), DefenderID: defender.ID()}
			case 4:
				defender := rapid.SampledFrom(opponent.Troops()).Draw(rt, "combo_defender")
				var ids []string
				for _, troop := range me.Troops() {
					ids = append(ids, troop.ID())
				}
				cmd = ComboAttack{AttackerIDs: ids, DefenderID: defender.ID()}
			case 5:
				cmd = UseSpecialPower{At: pos("power")}
			}

			_, err := m.Apply(actor, cmd)
			if err != nil && rules.CodeOf(err) == "" {
				rt.Fatalf("%s: internal error %v", cmd.Kind(), err)
			}

			occupied := 0
			for _, p := range m.players {
				for _, troop := range p.Troops() {
					if !troop.Position.InBounds() {
						rt.Fatalf("%s off the grid at %s", troop.ID(), troop.Position)
					}
					if troop.Dead || troop.HP <= 0 {
						rt.Fatalf("%s still registered with hp %d", troop.ID(), troop.HP)
					}
					if got := m.grid.Cell(troop.Position).Occupant; got != troop.ID() {
						rt.Fatalf("cell %s holds %q, want %s", troop.Position, got, troop.ID())
					}
					occupied++
				}
			}
			for row := 0; row < board.Rows; row++ {
				for col := 0; col < board.Columns; col++ {
					if !m.grid.Cell(board.Pos(row, col)).Empty() {
						occupied--
					}
				}
			}
			if occupied != 0 {
				rt.Fatalf("grid and troop arenas disagree by %d", occupied)
			}
			if m.Finished() {
				return
			}
		}
	})
}
