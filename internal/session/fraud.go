package session

import (
	"fmt"
	"time"
)

const (
	DefaultMinimumThinkingTime = 100 * time.Millisecond
	DefaultMaximumAccuracy     = 0.95
)

// FraudInput describes one submission for a FraudPolicy.
type FraudInput struct {
	SessionID  string
	PlayerID   string
	ThinkTime  time.Duration
	Confidence float64
	Token      string
}

// FraudVerdict is the outcome of a policy check. A non-nil Reject refuses the
// move; Suspicious only flags it.
type FraudVerdict struct {
	Reject     error
	Suspicious bool
	Reason     string
}

// FraudPolicy screens submissions before they reach the rules engine.
type FraudPolicy interface {
	Check(in FraudInput) FraudVerdict
}

// ThinkTimePolicy rejects moves made faster than MinimumThinkingTime after the
// previous move and flags confidence scores above MaximumAccuracy. The
// anti-fraud token is not inspected.
type ThinkTimePolicy struct {
	MinimumThinkingTime time.Duration
	MaximumAccuracy     float64
}

// DefaultPolicy returns the 100ms / 0.95 policy.
func DefaultPolicy() ThinkTimePolicy {
	return ThinkTimePolicy{
		MinimumThinkingTime: DefaultMinimumThinkingTime,
		MaximumAccuracy:     DefaultMaximumAccuracy,
	}
}

func (p ThinkTimePolicy) Check(in FraudInput) FraudVerdict {
	if p.MinimumThinkingTime > 0 && in.ThinkTime < p.MinimumThinkingTime {
		return FraudVerdict{
			Reject: fmt.Errorf("%w: %s < %s", ErrTooFast, in.ThinkTime, p.MinimumThinkingTime),
			Reason: "think_time",
		}
	}
	if p.MaximumAccuracy > 0 && in.Confidence > p.MaximumAccuracy {
		return FraudVerdict{Suspicious: true, Reason: "accuracy"}
	}
	return FraudVerdict{}
}
