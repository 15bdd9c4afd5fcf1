package game

import (
	"fmt"
	"strings"
)

// GameType selects the win condition of a match.
type GameType string

const (
	// GameKillHero ends the match when a hero dies.
	GameKillHero GameType = "KILL_HERO"
	// GameTurnLimit ends the match after a fixed number of turns; the side
	// whose hero has more HP wins.
	GameTurnLimit GameType = "TURN_LIMIT"
)

// ParseGameType accepts a game type name in any case. Empty means kill-hero.
func ParseGameType(name string) (GameType, error) {
	switch GameType(strings.ToUpper(strings.TrimSpace(name))) {
	case "", GameKillHero:
		return GameKillHero, nil
	case GameTurnLimit:
		return GameTurnLimit, nil
	default:
		return "", fmt.Errorf("unknown game type %q", name)
	}
}

// FinishPolicy decides after every committed command whether a match is over.
// An empty winner with finished=true is a draw.
type FinishPolicy interface {
	Check(m *Match) (finished bool, winner string)
}

// KillHero finishes the match once a hero is dead.
type KillHero struct{}

func (KillHero) Check(m *Match) (bool, string) {
	first, second := m.players[0], m.players[1]
	switch {
	case first.Hero.Dead && second.Hero.Dead:
		return true, ""
	case first.Hero.Dead:
		return true, second.Username
	case second.Hero.Dead:
		return true, first.Username
	}
	return false, ""
}

// TurnLimit finishes the match after MaxTurns or when a hero dies.
type TurnLimit struct {
	MaxTurns int
}

func (p TurnLimit) Check(m *Match) (bool, string) {
	if done, winner := (KillHero{}).Check(m); done {
		return done, winner
	}
	if m.turns.TurnNumber() <= p.MaxTurns {
		return false, ""
	}
	first, second := m.players[0], m.players[1]
	switch {
	case first.Hero.HP > second.Hero.HP:
		return true, first.Username
	case second.Hero.HP > first.Hero.HP:
		return true, second.Username
	}
	return true, ""
}

// PolicyFor returns the finish policy of a game type.
func PolicyFor(gameType GameType, maxTurns int) (FinishPolicy, error) {
	switch gameType {
	case GameKillHero:
		return KillHero{}, nil
	case GameTurnLimit:
		if maxTurns <= 0 {
			return nil, fmt.Errorf("turn limit game needs a positive turn limit")
		}
		return TurnLimit{MaxTurns: maxTurns}, nil
	default:
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
}
