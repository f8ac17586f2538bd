// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/api/internal/core"
)

func newTestService(t *testing.T) (*Service, *memUsers, *spyHasher, *memRevocations, *JWTManager) {
	t.Helper()
	users := newMemUsers()
	hasher := newSpyHasher(t, core.AlgorithmBcrypt)
	store := newMemRevocations()
	jwtManager := newTestJWT(t, testJWTConfig(), store)

	return NewService(users, hasher, jwtManager, store, discardLogger()), users, hasher, store, jwtManager
}

func TestCreateAccountNormalizesEmail(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateAccount(ctx, " Alice ", "  A@X.com ", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, core.RoleUser, user.Role)
	assert.NotEqual(t, "password123", users.byMail["a@x.com"].PasswordHash)

	_, err = svc.CreateAccount(ctx, "Alice", "a@X.COM", "password123", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateAccountKeepsRequestedRole(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	user, err := svc.CreateAccount(context.Background(), "Root", "root@x.com", "password123", core.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, user.Role)
}

func TestCreateAccountHidesStoreErrors(t *testing.T) {
	svc, users, _, _, _ := newTestService(t)
	users.err = errors.New("pq: connection reset by peer")

	_, err := svc.CreateAccount(context.Background(), "Bob", "b@x.com", "password123", "")

	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestAuthenticate(t *testing.T) {
	svc, _, hasher, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "Alice", "a@x.com", "password123", "")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "A@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, wrongErr := svc.Authenticate(ctx, "a@x.com", "wrong-password")
	_, unknownErr := svc.Authenticate(ctx, "nobody@x.com", "password123")

	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
	assert.Equal(t, 1, hasher.dummyCalls)
}

func TestAuthenticateRehashesOutdatedHash(t *testing.T) {
	users := newMemUsers()
	bcryptHasher := newSpyHasher(t, core.AlgorithmBcrypt)
	argonHasher := newSpyHasher(t, core.AlgorithmArgon2id)

	legacy := NewService(users, bcryptHasher, nil, nil, discardLogger())
	_, err := legacy.CreateAccount(context.Background(), "Alice", "a@x.com", "password123", "")
	require.NoError(t, err)

	svc := NewService(users, argonHasher, nil, nil, discardLogger())
	_, err = svc.Authenticate(context.Background(), "a@x.com", "password123")
	require.NoError(t, err)

	assert.Contains(t, users.byMail["a@x.com"].PasswordHash, "$argon2id$")

	_, err = svc.Authenticate(context.Background(), "a@x.com", "password123")
	assert.NoError(t, err)
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, _, _, store, jwtManager := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateAccount(ctx, "Alice", "a@x.com", "password123", "")
	require.NoError(t, err)

	token, _, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, err = jwtManager.VerifyAccessToken(ctx, token)
	require.NoError(t, err)

	svc.SignOut(ctx, token)
	assert.Len(t, store.revoked, 1)

	_, err = jwtManager.VerifyAccessToken(ctx, token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	svc.SignOut(ctx, "")
	svc.SignOut(ctx, "garbage")
	assert.Len(t, store.revoked, 1)
}
