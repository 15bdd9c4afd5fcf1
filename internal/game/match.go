package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/effects"
	"github.com/alimohammadiamirhossein/project-7/internal/game/rules"
	"github.com/alimohammadiamirhossein/project-7/internal/game/state"
	"github.com/alimohammadiamirhossein/project-7/internal/game/targeting"
)

// MaxMoveDistance is how far a troop may walk in one move.
const MaxMoveDistance = 2

// Hero start cells of the first and second player.
var heroStarts = [2]board.Position{board.Pos(2, 0), board.Pos(2, board.Columns-1)}

// Settings tune a match. Zero values fall back to defaults.
type Settings struct {
	GameType     GameType
	HandSize     int
	StartingMana int
	MaxMana      int
	MaxTurns     int
}

// DefaultSettings are used for zero fields of Settings.
var DefaultSettings = Settings{
	GameType:     GameKillHero,
	HandSize:     state.MaxHandSize,
	StartingMana: 2,
	MaxMana:      9,
	MaxTurns:     40,
}

func (s Settings) withDefaults() Settings {
	if s.GameType == "" {
		s.GameType = DefaultSettings.GameType
	}
	if s.HandSize <= 0 {
		s.HandSize = DefaultSettings.HandSize
	}
	if s.StartingMana <= 0 {
		s.StartingMana = DefaultSettings.StartingMana
	}
	if s.MaxMana <= 0 {
		s.MaxMana = DefaultSettings.MaxMana
	}
	if s.MaxTurns <= 0 {
		s.MaxTurns = DefaultSettings.MaxTurns
	}
	return s
}

// Seat is one participant of a new match.
type Seat struct {
	Username string
	Deck     cards.Deck
}

// Result acknowledges a committed command.
type Result struct {
	MatchID  string        `json:"match_id"`
	Command  CommandKind   `json:"command"`
	Actor    string        `json:"actor"`
	Turn     int           `json:"turn"`
	Delta    Delta         `json:"delta"`
	Events   []rules.Event `json:"events,omitempty"`
	Finished bool          `json:"finished"`
	Winner   string        `json:"winner,omitempty"`
}

// Match is the state of one game between two players. It is not safe for
// concurrent use; the Manager serialises access.
type Match struct {
	id        string
	gameType  GameType
	settings  Settings
	grid      *board.Grid
	players   [2]*state.Player
	turns     *rules.TurnManager
	ledger    *effects.Ledger
	bus       *rules.EventBus
	policy    FinishPolicy
	winner    string
	startedAt time.Time
	logger    *zap.Logger

	pending []rules.Event
}

// NewMatch builds a match, places both heroes and runs the start procedure.
func NewMatch(id string, catalog *cards.Catalog, seats [2]Seat, settings Settings, logger *zap.Logger) (*Match, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()

	for _, seat := range seats {
		if strings.TrimSpace(seat.Username) == "" {
			return nil, fmt.Errorf("seat without a username")
		}
	}
	if strings.EqualFold(seats[0].Username, seats[1].Username) {
		return nil, fmt.Errorf("players must differ, got %q twice", seats[0].Username)
	}

	policy, err := PolicyFor(settings.GameType, settings.MaxTurns)
	if err != nil {
		return nil, err
	}

	m := &Match{
		id:        id,
		gameType:  settings.GameType,
		settings:  settings,
		grid:      board.NewGrid(),
		turns:     rules.NewTurnManager(seats[0].Username, seats[1].Username),
		bus:       rules.NewEventBus(),
		policy:    policy,
		startedAt: time.Now(),
		logger:    logger.With(zap.String("match_id", id)),
	}
	m.ledger = effects.NewLedger(m, m.logger)
	m.bus.Subscribe(func(e rules.Event) { m.pending = append(m.pending, e) })

	for i, seat := range seats {
		player, err := newPlayer(catalog, seat)
		if err != nil {
			return nil, err
		}
		m.players[i] = player
	}

	if err := m.start(); err != nil {
		return nil, err
	}
	m.logger.Info("match started",
		zap.String("game_type", string(m.gameType)),
		zap.String("player_one", m.players[0].Username),
		zap.String("player_two", m.players[1].Username))
	return m, nil
}

func newPlayer(catalog *cards.Catalog, seat Seat) (*state.Player, error) {
	serial := 0
	instance := func(name string) (*state.CardInstance, error) {
		template, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("deck %q of %s: unknown card %q", seat.Deck.Name, seat.Username, name)
		}
		serial++
		return state.NewCardInstance(seat.Username, template, serial), nil
	}

	heroCard, err := instance(seat.Deck.Hero)
	if err != nil {
		return nil, err
	}
	if heroCard.Card.Type != cards.CardTypeHero {
		return nil, fmt.Errorf("deck %q of %s: %q is not a hero", seat.Deck.Name, seat.Username, seat.Deck.Hero)
	}

	var item *state.CardInstance
	if seat.Deck.Item != "" {
		if item, err = instance(seat.Deck.Item); err != nil {
			return nil, err
		}
	}

	deck := make([]*state.CardInstance, 0, len(seat.Deck.Others))
	for _, name := range seat.Deck.Others {
		card, err := instance(name)
		if err != nil {
			return nil, err
		}
		deck = append(deck, card)
	}

	return state.NewPlayer(seat.Username, state.NewTroop(heroCard, board.Position{}), item, deck), nil
}

func (m *Match) start() error {
	for i, p := range m.players {
		p.Hero.Position = heroStarts[i]
		p.Hero.CanAttack = true
		if err := m.grid.Place(p.Hero.ID(), p.Hero.Position); err != nil {
			return fmt.Errorf("place hero of %s: %w", p.Username, err)
		}
		p.AddTroop(p.Hero)
	}

	for _, p := range m.players {
		for i := 0; i < m.settings.HandSize; i++ {
			p.Draw()
		}
	}

	m.players[0].Mana = m.manaForTurn(1)

	for i, p := range m.players {
		opponent := m.players[1-i]
		var sources []*state.CardInstance
		sources = append(sources, p.Hero.Card)
		if p.Item != nil {
			sources = append(sources, p.Item)
		}
		sources = append(sources, p.Hand...)
		sources = append(sources, p.Deck...)

		anchors := targeting.Anchors{Card: p.Hero.Position, Click: p.Hero.Position, Hero: p.Hero.Position}
		for _, source := range sources {
			for _, spell := range source.Card.SpellsAvailable(cards.OnStart) {
				m.cast(p, opponent, spell, anchors)
			}
		}
	}

	m.bus.Publish(rules.NewEventWithAmount(rules.EventMatchStarted, "", "", m.players[0].Username, 1))
	m.pending = nil
	return nil
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// GameType returns the win condition in force.
func (m *Match) GameType() GameType { return m.gameType }

// Turn returns the current turn number.
func (m *Match) Turn() int { return m.turns.TurnNumber() }

// ActivePlayer returns the username of the turn owner.
func (m *Match) ActivePlayer() string { return m.turns.ActivePlayer() }

// Finished reports whether the match reached its terminal state.
func (m *Match) Finished() bool { return m.turns.Finished() }

// Winner returns the winner's username, or "" for a draw or a running match.
func (m *Match) Winner() string { return m.winner }

// StartedAt returns when the match was created.
func (m *Match) StartedAt() time.Time { return m.startedAt }

// Players returns both players, first player first.
func (m *Match) Players() [2]*state.Player { return m.players }

// Player looks up a participant case-insensitively.
func (m *Match) Player(username string) (*state.Player, bool) {
	for _, p := range m.players {
		if p.Is(username) {
			return p, true
		}
	}
	return nil, false
}

// Has reports whether username plays in this match.
func (m *Match) Has(username string) bool {
	_, ok := m.Player(username)
	return ok
}

// Occupant implements effects.World.
func (m *Match) Occupant(cell *board.Cell) *state.Troop {
	return targeting.Occupant(cell, m.players[0], m.players[1])
}

// Remove implements effects.World.
func (m *Match) Remove(troop *state.Troop) {
	m.removeTroop(troop)
	m.bus.Publish(rules.NewEvent(rules.EventTroopDied, troop.ID(), "", troop.Owner()))
}

func (m *Match) removeTroop(troop *state.Troop) {
	m.grid.Vacate(troop.ID(), troop.Position)
	if owner, ok := m.Player(troop.Owner()); ok {
		owner.RemoveTroop(troop.ID())
	}
}

func (m *Match) kill(troop *state.Troop) {
	troop.Kill()
	m.removeTroop(troop)
	m.ledger.Forget(troop.ID())
}

func (m *Match) sides() (actor, opponent *state.Player) {
	i := m.turns.ActiveIndex()
	return m.players[i], m.players[1-i]
}

// ErrNilCommand is returned when Apply is called without a command.
var ErrNilCommand = errors.New("nil command")

func (m *Match) manaForTurn(turn int) int {
	return min(m.settings.StartingMana+(turn-1)/2, m.settings.MaxMana)
}

// Apply runs cmd for actor. A nil error means the command committed. A
// non-nil error with a non-zero Result means the command committed and a
// secondary step (a counterattack) was rejected.
func (m *Match) Apply(actor string, cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, ErrNilCommand
	}
	if err := m.turns.Authorize(actor); err != nil {
		m.logger.Debug("command rejected",
			zap.String("actor", actor),
			zap.String("command", string(cmd.Kind())),
			zap.Error(err))
		return Result{}, err
	}

	m.pending = nil
	before := m.snapshot()

	var (
		committed bool
		err       error
	)
	switch c := cmd.(type) {
	case Move:
		committed, err = m.move(c)
	case Insert:
		committed, err = m.insert(c)
	case Attack:
		committed, err = m.attack(c)
	case ComboAttack:
		committed, err = m.comboAttack(c)
	case UseSpecialPower:
		committed, err = m.useSpecialPower(c)
	case ChangeTurn:
		committed, err = m.changeTurn()
	default:
		return Result{}, fmt.Errorf("unsupported command %T", cmd)
	}

	if !committed {
		m.logger.Debug("command rejected",
			zap.String("actor", actor),
			zap.String("command", string(cmd.Kind())),
			zap.Error(err))
		return Result{}, err
	}

	m.checkFinish()
	result := Result{
		MatchID:  m.id,
		Command:  cmd.Kind(),
		Actor:    actor,
		Turn:     m.turns.TurnNumber(),
		Delta:    diff(before, m.snapshot()),
		Events:   m.pending,
		Finished: m.turns.Finished(),
		Winner:   m.winner,
	}
	m.pending = nil

	m.logger.Debug("command applied",
		zap.String("actor", actor),
		zap.String("command", string(cmd.Kind())),
		zap.Int("turn", result.Turn),
		zap.Int("events", len(result.Events)),
		zap.NamedError("secondary", err))
	return result, err
}

func (m *Match) changeTurn() (bool, error) {
	current, _ := m.sides()
	if card := current.Draw(); card != nil {
		m.bus.Publish(rules.NewEvent(rules.EventCardDrawn, card.ID, "", current.Username))
	}

	m.ledger.RevertNotDurable()
	m.turns.Advance()

	owner, _ := m.sides()
	owner.Mana = m.manaForTurn(m.turns.TurnNumber())

	m.ledger.ApplyAll()
	for _, p := range m.players {
		for _, t := range p.Troops() {
			t.ResetForTurn()
		}
	}

	m.bus.Publish(rules.NewEventWithAmount(rules.EventTurnChanged, "", "", owner.Username, m.turns.TurnNumber()))
	m.logger.Debug("turn changed", zap.Int("turn", m.turns.TurnNumber()), zap.String("owner", owner.Username))
	return true, nil
}

func (m *Match) attack(c Attack) (bool, error) {
	me, opponent := m.sides()
	attacker, ok := me.Troop(c.AttackerID)
	if !ok {
		return false, rules.Errorf(rules.CodeUnknownAttacker, "%s has no troop %s", me.Username, c.AttackerID)
	}
	defender, ok := opponent.Troop(c.DefenderID)
	if !ok {
		return false, rules.Errorf(rules.CodeUnknownTarget, "%s has no troop %s", opponent.Username, c.DefenderID)
	}

	var dead []*state.Troop
	kill := func(t *state.Troop) {
		m.kill(t)
		dead = append(dead, t)
	}
	out, err := rules.ResolveAttack(attacker, defender, kill)
	if err != nil {
		return false, err
	}
	m.publishCombat([]*state.Troop{attacker}, defender, out, dead)
	return true, out.CounterErr
}

func (m *Match) comboAttack(c ComboAttack) (bool, error) {
	me, opponent := m.sides()
	attackers := make([]*state.Troop, 0, len(c.AttackerIDs))
	for _, id := range c.AttackerIDs {
		attacker, ok := me.Troop(id)
		if !ok {
			return false, rules.Errorf(rules.CodeUnknownAttacker, "%s has no troop %s", me.Username, id)
		}
		attackers = append(attackers, attacker)
	}
	defender, ok := opponent.Troop(c.DefenderID)
	if !ok {
		return false, rules.Errorf(rules.CodeUnknownTarget, "%s has no troop %s", opponent.Username, c.DefenderID)
	}

	var dead []*state.Troop
	kill := func(t *state.Troop) {
		m.kill(t)
		dead = append(dead, t)
	}
	out, err := rules.ResolveCombo(attackers, defender, kill)
	if err != nil {
		return false, err
	}
	m.publishCombat(attackers, defender, out, dead)
	return true, out.CounterErr
}

func (m *Match) publishCombat(attackers []*state.Troop, defender *state.Troop, out rules.Outcome, dead []*state.Troop) {
	ids := make([]string, len(attackers))
	for i, a := range attackers {
		ids[i] = a.ID()
	}
	hit := rules.NewEventWithAmount(rules.EventDamageDealt, defender.ID(), ids[0], attackers[0].Owner(), out.Damage)
	hit.Data = strings.Join(ids, ",")
	m.bus.Publish(hit)

	switch {
	case out.CounterErr != nil:
		blocked := rules.NewEvent(rules.EventCounterBlocked, ids[0], defender.ID(), defender.Owner())
		blocked.Data = string(rules.CodeOf(out.CounterErr))
		m.bus.Publish(blocked)
	case out.Countered:
		m.bus.Publish(rules.NewEventWithAmount(rules.EventCounterAttack, ids[0], defender.ID(), defender.Owner(), out.CounterDamage))
	}

	for _, t := range dead {
		m.bus.Publish(rules.NewEvent(rules.EventTroopDied, t.ID(), "", t.Owner()))
	}
}

func (m *Match) move(c Move) (bool, error) {
	me, _ := m.sides()
	troop, ok := me.Troop(c.TroopID)
	if !ok {
		return false, rules.Errorf(rules.CodeUnknownAttacker, "%s has no troop %s", me.Username, c.TroopID)
	}
	if !troop.CanMove || troop.Moved {
		return false, rules.Errorf(rules.CodeCannotMove, "%s cannot move this turn", troop.ID())
	}
	distance := troop.Position.ManhattanDistance(c.To)
	if !c.To.InBounds() || distance == 0 || distance > MaxMoveDistance {
		return false, rules.Errorf(rules.CodeInvalidMove, "%s cannot walk to %s", troop.ID(), c.To)
	}
	if !m.grid.Cell(c.To).Empty() {
		return false, rules.Errorf(rules.CodeInvalidMove, "cell %s is occupied", c.To)
	}

	from := troop.Position
	m.grid.Vacate(troop.ID(), from)
	if err := m.grid.Place(troop.ID(), c.To); err != nil {
		return false, fmt.Errorf("move %s: %w", troop.ID(), err)
	}
	troop.Position = c.To
	troop.Moved = true

	moved := rules.NewEvent(rules.EventTroopMoved, troop.ID(), "", me.Username)
	moved.Row, moved.Column = c.To.Row, c.To.Column
	m.bus.Publish(moved)
	return true, nil
}

func (m *Match) insert(c Insert) (bool, error) {
	me, opponent := m.sides()
	card, ok := me.HandCard(c.CardID)
	if !ok {
		return false, rules.Errorf(rules.CodeUnknownCard, "%s has no card %s in hand", me.Username, c.CardID)
	}
	if card.Card.ManaCost > me.Mana {
		return false, rules.Errorf(rules.CodeNotEnoughMana, "%s costs %d mana, %s has %d",
			card.ID, card.Card.ManaCost, me.Username, me.Mana)
	}
	if !c.At.InBounds() {
		return false, rules.Errorf(rules.CodeInvalidPlacement, "%s is off the grid", c.At)
	}

	isTroop := card.Card.Type.IsTroop()
	if isTroop {
		if !m.grid.Cell(c.At).Empty() {
			return false, rules.Errorf(rules.CodeInvalidPlacement, "cell %s is occupied", c.At)
		}
		if !m.besideOwnTroop(me, c.At) {
			return false, rules.Errorf(rules.CodeInvalidPlacement, "%s is not next to a troop of %s", c.At, me.Username)
		}
	}

	me.SpendMana(card.Card.ManaCost)
	me.RemoveFromHand(card.ID)

	if isTroop {
		troop := state.NewTroop(card, c.At)
		troop.Moved = true
		if err := m.grid.Place(troop.ID(), c.At); err != nil {
			return false, fmt.Errorf("insert %s: %w", troop.ID(), err)
		}
		me.AddTroop(troop)
		placed := rules.NewEvent(rules.EventTroopPlaced, troop.ID(), "", me.Username)
		placed.Row, placed.Column = c.At.Row, c.At.Column
		m.bus.Publish(placed)
	}

	anchors := targeting.Anchors{Card: c.At, Click: c.At, Hero: me.Hero.Position}
	for _, spell := range card.Card.SpellsAvailable(cards.OnPut) {
		m.cast(me, opponent, spell, anchors)
	}
	return true, nil
}

func (m *Match) besideOwnTroop(p *state.Player, pos board.Position) bool {
	for _, t := range p.Troops() {
		if t.Position.IsNextTo(pos) {
			return true
		}
	}
	return false
}

func (m *Match) useSpecialPower(c UseSpecialPower) (bool, error) {
	me, opponent := m.sides()
	hero := me.Hero
	if c.CardID != "" && c.CardID != hero.ID() {
		return false, rules.Errorf(rules.CodeUnknownCard, "%s is not the hero of %s", c.CardID, me.Username)
	}
	powers := hero.Card.Card.SpellsAvailable(cards.OnDemand)
	if len(powers) == 0 {
		return false, rules.Errorf(rules.CodeUnknownCard, "%s has no special power", hero.ID())
	}
	power := powers[0]

	turn := m.turns.TurnNumber()
	if last := me.LastUsed(power.ID); last > 0 && turn-last < power.Cooldown {
		return false, rules.Errorf(rules.CodeSpellOnCooldown, "%s is ready on turn %d", power.ID, last+power.Cooldown)
	}
	if !c.At.InBounds() {
		return false, rules.Errorf(rules.CodeInvalidPlacement, "%s is off the grid", c.At)
	}
	if !me.SpendMana(power.ManaCost) {
		return false, rules.Errorf(rules.CodeNotEnoughMana, "%s costs %d mana, %s has %d",
			power.ID, power.ManaCost, me.Username, me.Mana)
	}
	me.MarkUsed(power.ID, turn)

	m.cast(me, opponent, power, targeting.Anchors{Card: hero.Position, Click: c.At, Hero: hero.Position})
	return true, nil
}

func (m *Match) cast(caster, opponent *state.Player, spell cards.Spell, anchors targeting.Anchors) {
	target := targeting.Detect(m.grid, spell, anchors, caster, opponent)
	buff := m.ledger.ApplySpell(spell, caster.Username, target, m.turns.TurnNumber())

	evt := rules.NewEvent(rules.EventSpellCast, "", spell.ID, caster.Username)
	evt.Row, evt.Column = anchors.Click.Row, anchors.Click.Column
	evt.Data = buff.ID
	m.bus.Publish(evt)
}

func (m *Match) checkFinish() {
	if m.turns.Finished() {
		return
	}
	done, winner := m.policy.Check(m)
	if !done {
		return
	}
	m.turns.Finish()
	m.winner = winner
	m.bus.Publish(rules.NewEvent(rules.EventMatchFinished, "", "", winner))
	m.logger.Info("match finished",
		zap.String("winner", winner),
		zap.Int("turn", m.turns.TurnNumber()))
}
