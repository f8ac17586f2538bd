// AngelaMos | 2026
// admission.go

package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/metrics"
)

// FailurePolicy decides what happens when the guard itself errors.
type FailurePolicy string

const (
	PolicyError  FailurePolicy = "error"
	PolicyOpen   FailurePolicy = "open"
	PolicyClosed FailurePolicy = "closed"
)

type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry_run"
)

// Result is the outcome of evaluating one request. Err is nil when the
// request may proceed and is always a *core.AppError otherwise.
type Result struct {
	Decision Decision
	Tier     Tier
	DryRun   bool
	Err      error
}

type Admission struct {
	guard  Guard
	tiers  Tiers
	policy FailurePolicy
	mode   Mode
	logger *slog.Logger
}

type Options struct {
	Tiers  Tiers
	Policy FailurePolicy
	Mode   Mode
	Logger *slog.Logger
}

func New(guard Guard, opts Options) *Admission {
	if opts.Tiers == nil {
		opts.Tiers = DefaultTiers
	}
	if opts.Policy == "" {
		opts.Policy = PolicyError
	}
	if opts.Mode == "" {
		opts.Mode = ModeLive
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Admission{
		guard:  guard,
		tiers:  opts.Tiers,
		policy: opts.Policy,
		mode:   opts.Mode,
		logger: opts.Logger,
	}
}

// TierFor maps a role to its tier. The empty role is a guest.
func (a *Admission) TierFor(role string) Tier {
	return a.tiers.For(role)
}

func (a *Admission) Evaluate(ctx context.Context, req Request) Result {
	if req.Role == "" {
		req.Role = core.RoleGuest
	}
	tier := a.TierFor(req.Role)

	decision, err := a.guard.Protect(ctx, req, tier)
	if err != nil {
		return a.onGuardError(ctx, req, tier, err)
	}

	core.AddSpanEvent(ctx, "admission.decision",
		attribute.String("role", req.Role),
		attribute.Bool("allowed", decision.Allowed),
		attribute.String("reason", string(decision.Reason)),
	)

	if decision.Allowed {
		metrics.AdmissionDecisionsTotal.WithLabelValues(req.Role, "allowed").Inc()
		return Result{Decision: decision, Tier: tier}
	}

	if a.mode == ModeDryRun {
		a.logger.InfoContext(ctx, "admission would deny request",
			"reason", decision.Reason,
			"rule", decision.Rule,
			"role", req.Role,
			"ip", req.IP,
			"path", req.Path,
		)
		metrics.AdmissionDecisionsTotal.WithLabelValues(req.Role, "dry_run").Inc()
		return Result{Decision: decision, Tier: tier, DryRun: true}
	}

	a.logger.WarnContext(ctx, "request denied by admission",
		"reason", decision.Reason,
		"rule", decision.Rule,
		"role", req.Role,
		"ip", req.IP,
		"user_agent", req.UserAgent,
		"path", req.Path,
	)
	metrics.AdmissionDecisionsTotal.WithLabelValues(req.Role, string(decision.Reason)).Inc()

	return Result{
		Decision: decision,
		Tier:     tier,
		Err:      blockedError(decision, tier),
	}
}

func (a *Admission) onGuardError(
	ctx context.Context,
	req Request,
	tier Tier,
	err error,
) Result {
	core.SetSpanError(ctx, err)
	metrics.AdmissionDecisionsTotal.WithLabelValues(req.Role, "guard_error").Inc()

	switch a.policy {
	case PolicyOpen:
		a.logger.WarnContext(ctx, "admission guard failed, allowing request",
			"error", err,
			"role", req.Role,
			"path", req.Path,
		)
		return Result{Decision: Allow(), Tier: tier}
	case PolicyClosed:
		a.logger.ErrorContext(ctx, "admission guard failed, rejecting request",
			"error", err,
			"role", req.Role,
			"path", req.Path,
		)
		return Result{Tier: tier, Err: core.UnavailableError("Security checks are temporarily unavailable")}
	default:
		a.logger.ErrorContext(ctx, "admission guard failed",
			"error", err,
			"role", req.Role,
			"path", req.Path,
		)
		appErr := core.InternalError(fmt.Errorf("admission guard: %w", err))
		appErr.Code = "ADMISSION_UNAVAILABLE"
		appErr.Message = "Something went wrong with security middleware"
		return Result{Tier: tier, Err: appErr}
	}
}

func blockedError(d Decision, tier Tier) *core.AppError {
	switch d.Reason {
	case ReasonRateLimit:
		return core.BlockedError(
			"RATE_LIMITED",
			"Too many requests",
			tier.Message,
			http.StatusTooManyRequests,
		)
	case ReasonBot:
		return core.BlockedError(
			"BOT_DETECTED",
			"Access Denied",
			"Bot traffic is not allowed",
			http.StatusForbidden,
		)
	case ReasonShield:
		return core.BlockedError(
			"SHIELD_BLOCKED",
			"Forbidden",
			"Request blocked by security policy",
			http.StatusForbidden,
		)
	default:
		return core.BlockedError(
			"ACCESS_DENIED",
			"Access Denied",
			"Request was not admitted",
			http.StatusForbidden,
		)
	}
}
