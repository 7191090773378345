package arena

import (
	"context"
	"errors"

	"github.com/park285/gungi-arena/internal/gungi"
	"github.com/park285/gungi-arena/internal/session"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

var sessionCodes = []struct {
	err       error
	code      string
	retryable bool
}{
	{session.ErrInvalidMove, gungidto.CodeInvalidMove, false},
	{session.ErrTooFast, gungidto.CodeTooFast, true},
	{session.ErrSessionNotFound, gungidto.CodeSessionNotFound, false},
	{session.ErrSessionExists, gungidto.CodeSessionExists, false},
	{session.ErrSessionNotActive, gungidto.CodeSessionNotActive, false},
	{session.ErrNotYourTurn, gungidto.CodeNotYourTurn, true},
	{session.ErrNotParticipant, gungidto.CodeNotParticipant, false},
	{session.ErrInvalidArgs, gungidto.CodeInvalidArgs, false},
	{ErrMatchNotFound, gungidto.CodeMatchNotFound, false},
	{ErrMatchExists, gungidto.CodeMatchExists, false},
	{ErrIDMismatch, gungidto.CodeInvalidDocument, false},
	{ErrNoLegalMoves, gungidto.CodeIllegalPattern, false},
}

// ToDomainError maps a service error to its wire form. Session errors are
// checked before rule reasons so that a rejected live move reports
// INVALID_MOVE with the rule message attached.
func ToDomainError(err error) *gungidto.DomainError {
	if err == nil {
		return nil
	}
	for _, c := range sessionCodes {
		if errors.Is(err, c.err) {
			return &gungidto.DomainError{Code: c.code, Message: err.Error(), Retryable: c.retryable}
		}
	}
	if r := gungi.ReasonOf(err); r != "" {
		return &gungidto.DomainError{Code: string(r), Message: err.Error(), Retryable: r == gungi.ReasonNotYourTurn}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &gungidto.DomainError{Code: gungidto.CodeInternal, Message: err.Error(), Retryable: true}
	}
	return &gungidto.DomainError{Code: gungidto.CodeInternal, Message: "internal error"}
}
