// AngelaMos | 2026
// decision.go

package admission

import (
	"time"
)

type Reason string

const (
	ReasonNone      Reason = "none"
	ReasonBot       Reason = "bot"
	ReasonRateLimit Reason = "rate_limit"
	ReasonShield    Reason = "shield"
)

// Decision is the per-request verdict of a Guard. Limit bookkeeping is only
// populated once the rate limiter has run.
type Decision struct {
	Allowed    bool
	Reason     Reason
	Rule       string
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

func Allow() Decision {
	return Decision{Allowed: true, Reason: ReasonNone}
}

func Deny(reason Reason, rule string) Decision {
	return Decision{Allowed: false, Reason: reason, Rule: rule}
}

func (d Decision) IsDenied() bool {
	return !d.Allowed
}
