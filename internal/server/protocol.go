package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/status"

	"github.com/alimohammadiamirhossein/project-7/internal/game"
	"github.com/alimohammadiamirhossein/project-7/internal/game/board"
	"github.com/alimohammadiamirhossein/project-7/internal/game/rules"
)

// MessageType discriminates websocket messages.
type MessageType string

// Client to server.
const (
	TypeHello           MessageType = "hello"
	TypeCreateMatch     MessageType = "create_match"
	TypeJoin            MessageType = "join"
	TypeView            MessageType = "view"
	TypeMove            MessageType = MessageType(game.CommandMove)
	TypeInsert          MessageType = MessageType(game.CommandInsert)
	TypeAttack          MessageType = MessageType(game.CommandAttack)
	TypeComboAttack     MessageType = MessageType(game.CommandComboAttack)
	TypeUseSpecialPower MessageType = MessageType(game.CommandUseSpecialPower)
	TypeChangeTurn      MessageType = MessageType(game.CommandChangeTurn)
)

// Server to client.
const (
	TypeWelcome      MessageType = "welcome"
	TypeMatchCreated MessageType = "match_created"
	TypeMatchView    MessageType = "match_view"
	TypeResult       MessageType = "result"
	TypeError        MessageType = "error"
	TypeNotification MessageType = "notification"
)

// ErrBadRequest marks malformed client messages.
var ErrBadRequest = errors.New("bad request")

// Envelope is the wire form of every inbound message. Payload depends on Type.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	MatchID   string          `json:"match_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Outbound is the wire form of every message the server sends.
type Outbound struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	MatchID   string      `json:"match_id,omitempty"`
	Payload   any         `json:"payload,omitempty"`
}

type HelloPayload struct {
	Username string `json:"username"`
}

type WelcomePayload struct {
	Username string   `json:"username"`
	Decks    []string `json:"decks"`
}

type CreateMatchPayload struct {
	Deck         string `json:"deck"`
	Opponent     string `json:"opponent"`
	OpponentDeck string `json:"opponent_deck"`
	GameType     string `json:"game_type,omitempty"`
}

type MovePayload struct {
	TroopID string         `json:"troop_id"`
	To      board.Position `json:"to"`
}

type InsertPayload struct {
	CardID string         `json:"card_id"`
	At     board.Position `json:"at"`
}

type AttackPayload struct {
	AttackerID string `json:"attacker_id"`
	DefenderID string `json:"defender_id"`
}

type ComboAttackPayload struct {
	AttackerIDs []string `json:"attacker_ids"`
	DefenderID  string   `json:"defender_id"`
}

type SpecialPowerPayload struct {
	CardID string         `json:"card_id,omitempty"`
	At     board.Position `json:"at"`
}

// ErrorPayload reports a rejected request. Status is the gRPC status code name.
type ErrorPayload struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ResultPayload carries a committed command and, when the counterattack was
// refused, the reason.
type ResultPayload struct {
	Result  game.Result   `json:"result"`
	Warning *ErrorPayload `json:"warning,omitempty"`
}

func decodePayload(env Envelope, into any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrBadRequest, env.Type)
	}
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrBadRequest, env.Type, err)
	}
	return nil
}

// IsCommand reports whether t is one of the match commands.
func IsCommand(t MessageType) bool {
	switch t {
	case TypeMove, TypeInsert, TypeAttack, TypeComboAttack, TypeUseSpecialPower, TypeChangeTurn:
		return true
	}
	return false
}

// DecodeCommand turns a command envelope into a match command.
func DecodeCommand(env Envelope) (game.Command, error) {
	switch env.Type {
	case TypeMove:
		var p MovePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return game.Move{TroopID: p.TroopID, To: p.To}, nil
	case TypeInsert:
		var p InsertPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return game.Insert{CardID: p.CardID, At: p.At}, nil
	case TypeAttack:
		var p AttackPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return game.Attack{AttackerID: p.AttackerID, DefenderID: p.DefenderID}, nil
	case TypeComboAttack:
		var p ComboAttackPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return game.ComboAttack{AttackerIDs: p.AttackerIDs, DefenderID: p.DefenderID}, nil
	case TypeUseSpecialPower:
		var p SpecialPowerPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return game.UseSpecialPower{CardID: p.CardID, At: p.At}, nil
	case TypeChangeTurn:
		return game.ChangeTurn{}, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a command", ErrBadRequest, env.Type)
	}
}

// NewErrorPayload describes err for the client.
func NewErrorPayload(err error) ErrorPayload {
	code := string(rules.CodeOf(err))
	switch {
	case code != "":
	case errors.Is(err, ErrBadRequest):
		code = "BAD_REQUEST"
	default:
		code = "INTERNAL"
	}
	return ErrorPayload{
		Code:    code,
		Status:  status.Code(err).String(),
		Message: err.Error(),
	}
}
