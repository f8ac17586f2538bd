// AngelaMos | 2026
// admission.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/acquisitions/api/internal/admission"
	"github.com/acquisitions/api/internal/core"
)

// Admission evaluates every request against the guard before any handler
// runs. It must be mounted after OptionalAuth so the caller's role is known.
func Admission(adm *admission.Admission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := admission.Request{
				Role:      core.RoleGuest,
				IP:        ClientIP(r),
				Method:    r.Method,
				Path:      r.URL.Path,
				RawQuery:  r.URL.RawQuery,
				UserAgent: r.UserAgent(),
				Referer:   r.Referer(),
			}
			if id, ok := GetIdentity(r.Context()); ok {
				req.Role = id.Role
				req.UserID = id.ID
			}

			result := adm.Evaluate(r.Context(), req)
			setRateLimitHeaders(w, result.Decision)

			if result.Err != nil {
				if result.Decision.Reason == admission.ReasonRateLimit {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.Decision)))
				}
				core.JSONError(w, result.Err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d admission.Decision) {
	if d.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(d.ResetAfter).Unix(), 10))
}

func retryAfterSeconds(d admission.Decision) int {
	secs := int(d.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
