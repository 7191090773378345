package gungi

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonOutOfBounds           Reason = "OUT_OF_BOUNDS"
	ReasonCannotCaptureOwnPiece Reason = "CANNOT_CAPTURE_OWN_PIECE"
	ReasonIllegalPattern        Reason = "ILLEGAL_PATTERN"
	ReasonGameNotActive         Reason = "GAME_NOT_ACTIVE"
	ReasonNoPieceAtSource       Reason = "NO_PIECE_AT_SOURCE"
	ReasonNotYourTurn           Reason = "NOT_YOUR_TURN"
	ReasonInvalidDocument       Reason = "INVALID_DOCUMENT"
)

// RuleError is returned for every recoverable rejection. Two RuleErrors match
// under errors.Is when their reasons match, so a specific message such as
// "pawn must move exactly one row forward" still satisfies
// errors.Is(err, ErrIllegalPattern).
type RuleError struct {
	Reason Reason
	Msg    string
}

func (e *RuleError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Reason)
}

func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Reason == e.Reason
}

var (
	ErrOutOfBounds           = &RuleError{Reason: ReasonOutOfBounds, Msg: "destination is outside the board"}
	ErrCannotCaptureOwnPiece = &RuleError{Reason: ReasonCannotCaptureOwnPiece, Msg: "cannot capture own piece"}
	ErrIllegalPattern        = &RuleError{Reason: ReasonIllegalPattern, Msg: "illegal movement pattern"}
	ErrGameNotActive         = &RuleError{Reason: ReasonGameNotActive, Msg: "game is not active"}
	ErrNoPieceAtSource       = &RuleError{Reason: ReasonNoPieceAtSource, Msg: "no piece at source"}
	ErrNotYourTurn           = &RuleError{Reason: ReasonNotYourTurn, Msg: "not your turn"}
	ErrInvalidDocument       = &RuleError{Reason: ReasonInvalidDocument, Msg: "invalid game document"}
)

func illegal(t PieceType, format string, args ...any) error {
	return &RuleError{Reason: ReasonIllegalPattern, Msg: fmt.Sprintf("%s: "+format, append([]any{t}, args...)...)}
}

func invalidDocument(format string, args ...any) error {
	return &RuleError{Reason: ReasonInvalidDocument, Msg: "invalid game document: " + fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection code from err, or "" when err is not a
// RuleError.
func ReasonOf(err error) Reason {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
