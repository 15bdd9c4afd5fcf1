package rules

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeNotYourTurn      Code = "NOT_YOUR_TURN"
	CodeUnknownAttacker  Code = "UNKNOWN_ATTACKER"
	CodeUnknownTarget    Code = "UNKNOWN_TARGET"
	CodeOutOfRange       Code = "OUT_OF_RANGE"
	CodeCannotAttack     Code = "CANNOT_ATTACK"
	CodeDefenderDisarmed Code = "DEFENDER_DISARMED"
	CodeInvalidPlacement Code = "INVALID_PLACEMENT"
	CodeUnknownCard      Code = "UNKNOWN_CARD"
	CodeNotEnoughMana    Code = "NOT_ENOUGH_MANA"
	CodeCannotMove       Code = "CANNOT_MOVE"
	CodeInvalidMove      Code = "INVALID_MOVE"
	CodeSpellOnCooldown  Code = "SPELL_ON_COOLDOWN"
	CodeMatchFinished    Code = "MATCH_FINISHED"
	CodeUnknownMatch     Code = "UNKNOWN_MATCH"
)

// GRPCCode maps rule codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotYourTurn:
		return codes.PermissionDenied
	case CodeUnknownAttacker, CodeUnknownTarget, CodeUnknownCard, CodeUnknownMatch:
		return codes.NotFound
	case CodeOutOfRange, CodeInvalidPlacement, CodeInvalidMove:
		return codes.InvalidArgument
	case CodeCannotAttack, CodeDefenderDisarmed, CodeNotEnoughMana, CodeCannotMove,
		CodeSpellOnCooldown, CodeMatchFinished:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// Error is a rejected command. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotYourTurn      = &Error{Code: CodeNotYourTurn, Message: "not your turn"}
	ErrUnknownAttacker  = &Error{Code: CodeUnknownAttacker, Message: "unknown attacker"}
	ErrUnknownTarget    = &Error{Code: CodeUnknownTarget, Message: "unknown target"}
	ErrOutOfRange       = &Error{Code: CodeOutOfRange, Message: "target out of range"}
	ErrCannotAttack     = &Error{Code: CodeCannotAttack, Message: "troop cannot attack"}
	ErrDefenderDisarmed = &Error{Code: CodeDefenderDisarmed, Message: "defender is disarmed"}
	ErrInvalidPlacement = &Error{Code: CodeInvalidPlacement, Message: "invalid placement"}
	ErrUnknownCard      = &Error{Code: CodeUnknownCard, Message: "unknown card"}
	ErrNotEnoughMana    = &Error{Code: CodeNotEnoughMana, Message: "not enough mana"}
	ErrCannotMove       = &Error{Code: CodeCannotMove, Message: "troop cannot move"}
	ErrInvalidMove      = &Error{Code: CodeInvalidMove, Message: "invalid move"}
	ErrSpellOnCooldown  = &Error{Code: CodeSpellOnCooldown, Message: "spell on cooldown"}
	ErrMatchFinished    = &Error{Code: CodeMatchFinished, Message: "match is finished"}
	ErrUnknownMatch     = &Error{Code: CodeUnknownMatch, Message: "unknown match"}
)

// Errorf builds an error with a formatted reason.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// GRPCStatus lets status.FromError convert rule errors.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code.GRPCCode(), e.Message)
}

// CodeOf extracts the rule code of err, or "" when err is not a rule error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
