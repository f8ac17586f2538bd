// AngelaMos | 2026
// guard.go

package admission

import (
	"context"
)

// Request is the transport-neutral view of an inbound call.
type Request struct {
	Role      string
	UserID    int64
	IP        string
	Method    string
	Path      string
	RawQuery  string
	UserAgent string
	Referer   string
}

// Guard produces an admission decision. An error means the guard could not
// decide and the caller's failure policy applies.
type Guard interface {
	Protect(ctx context.Context, req Request, tier Tier) (Decision, error)
}

type GuardFunc func(ctx context.Context, req Request, tier Tier) (Decision, error)

func (f GuardFunc) Protect(ctx context.Context, req Request, tier Tier) (Decision, error) {
	return f(ctx, req, tier)
}

// CompositeGuard runs shield, bot detection, then rate limiting, returning
// the first denial. Rejected requests never consume quota.
type CompositeGuard struct {
	shield  *Shield
	bots    *BotDetector
	limiter RateLimiter
}

func NewCompositeGuard(
	shield *Shield,
	bots *BotDetector,
	limiter RateLimiter,
) *CompositeGuard {
	return &CompositeGuard{
		shield:  shield,
		bots:    bots,
		limiter: limiter,
	}
}

func (g *CompositeGuard) Protect(
	ctx context.Context,
	req Request,
	tier Tier,
) (Decision, error) {
	if g.shield != nil {
		if d := g.shield.Inspect(ctx, req); d.IsDenied() {
			return d, nil
		}
	}

	if g.bots != nil {
		if d := g.bots.Inspect(ctx, req); d.IsDenied() {
			return d, nil
		}
	}

	if g.limiter == nil {
		return Allow(), nil
	}
	return g.limiter.Allow(ctx, RateKey(req), tier)
}
