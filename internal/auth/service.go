// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func (u *UserInfo) Identity() core.Identity {
	return core.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserProvider is the account store as seen by authentication. Lookups of
// an unknown email fail with core.ErrNotFound and a unique violation on
// Create fails with core.ErrDuplicateKey.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(
		ctx context.Context,
		name, email, passwordHash, role string,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

type TokenService interface {
	CreateAccessToken(identity core.Identity) (string, time.Time, error)
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*middleware.AccessTokenClaims, error)
}

type Service struct {
	users       UserProvider
	hasher      core.PasswordHasher
	tokens      TokenService
	revocations RevocationStore
	logger      *slog.Logger
}

func NewService(
	users UserProvider,
	hasher core.PasswordHasher,
	tokens TokenService,
	revocations RevocationStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
	}
}

// CreateAccount registers a new account. The email is compared and stored
// in normalized form, so addresses differing only in case collide.
func (s *Service) CreateAccount(
	ctx context.Context,
	name, email, password, role string,
) (*UserInfo, error) {
	ctx, span := core.StartSpan(ctx, "auth.CreateAccount")
	defer span.End()

	email = normalizeEmail(email)
	if role == "" {
		role = core.RoleUser
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, s.unavailable(ctx, "check email", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.unavailable(ctx, "hash password", err)
	}

	user, err := s.users.Create(ctx, strings.TrimSpace(name), email, hash, role)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, s.unavailable(ctx, "create user", err)
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", user.Role,
	)

	return user, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and
// a wrong password. The unknown email path still runs a full hash
// verification so the two cannot be told apart by latency.
func (s *Service) Authenticate(
	ctx context.Context,
	email, password string,
) (*UserInfo, error) {
	ctx, span := core.StartSpan(ctx, "auth.Authenticate")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing equalization only
			_, _, _ = s.hasher.Verify(password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, s.unavailable(ctx, "get user", err)
	}

	valid, newHash, err := s.hasher.Verify(password, &user.PasswordHash)
	if err != nil {
		return nil, s.unavailable(ctx, "verify password", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		} else {
			user.PasswordHash = newHash
		}
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
	return user, nil
}

func (s *Service) IssueToken(user *UserInfo) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.CreateAccessToken(user.Identity())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, nil
}

// SignOut revokes token if it still verifies. It never fails: a token that
// is already invalid needs no revocation, and a store outage only costs the
// remaining token lifetime.
func (s *Service) SignOut(ctx context.Context, token string) {
	if token == "" || s.revocations == nil {
		return
	}

	claims, err := s.tokens.VerifyAccessToken(ctx, token)
	if err != nil {
		s.logger.DebugContext(ctx, "sign-out with unverifiable token",
			"error", err,
		)
		return
	}

	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		s.logger.WarnContext(ctx, "token revocation failed",
			"user_id", claims.UserID,
			"error", err,
		)
		return
	}

	s.logger.InfoContext(ctx, "user signed out", "user_id", claims.UserID)
}

func (s *Service) unavailable(ctx context.Context, op string, err error) error {
	core.SetSpanError(ctx, err)
	s.logger.ErrorContext(ctx, "account operation failed",
		"op", op,
		"error", err,
	)
	return fmt.Errorf("%s: %w", op, core.ErrServiceUnavailable)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
