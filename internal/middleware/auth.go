// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/acquisitions/api/internal/core"
)

type contextKey string

const IdentityKey contextKey = "identity"

const DefaultCookieName = "token"

var errMalformedHeader = errors.New("malformed authorization header")

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	UserID    int64
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (c *AccessTokenClaims) Identity() core.Identity {
	return core.Identity{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// Authenticator rejects requests without a valid session token.
func Authenticator(
	verifier TokenVerifier,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractToken(r, cookieName)
			if err != nil {
				core.JSONError(w, core.UnauthorizedError(
					"Invalid authorization header format. Use: Bearer <token>",
				))
				return
			}
			if token == "" {
				core.Unauthorized(w, "")
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through as a guest.
func OptionalAuth(
	verifier TokenVerifier,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractToken(r, cookieName)
			if err == nil && token != "" {
				claims, err := verifier.VerifyAccessToken(r.Context(), token)
				if err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken reads the bearer header first and falls back to the session
// cookie. A present but malformed header is an error, not a fallback.
func ExtractToken(r *http.Request, cookieName string) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", errMalformedHeader
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", errMalformedHeader
		}
		return token, nil
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value, nil
	}

	return "", nil
}

func withClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return WithIdentity(ctx, claims.Identity())
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	case errors.Is(err, core.ErrServiceUnavailable):
		core.JSONError(w, core.UnavailableError("Unable to verify session"))
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetIdentity(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(core.Identity)
	return id, ok
}

// WithIdentity is used by tests and internal callers that establish the
// caller without a token.
func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
