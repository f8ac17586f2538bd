// AngelaMos | 2026
// testing_test.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acquisitions/api/internal/config"
	"github.com/acquisitions/api/internal/core"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessTokenExpire: 15 * time.Hour,
		Issuer:            "acquisitions-api",
		Audience:          "acquisitions-api",
	}
}

func newTestJWT(t *testing.T, cfg config.JWTConfig, store RevocationStore) *JWTManager {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	m, err := NewJWTManagerFromKey(key, cfg, store)
	require.NoError(t, err)
	return m
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]time.Time{}}
}

func (m *memRevocations) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]*UserInfo
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byMail: map[string]*UserInfo{}}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byMail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.byMail[email]
	return ok, nil
}

func (m *memUsers) Create(
	_ context.Context,
	name, email, passwordHash, role string,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	email = strings.ToLower(email)
	if _, ok := m.byMail[email]; ok {
		return nil, core.ErrDuplicateKey
	}
	u := &UserInfo{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.byMail[email] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byMail {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return core.ErrNotFound
}

// spyHasher wraps a real hasher and records verifications without a
// stored hash.
type spyHasher struct {
	core.PasswordHasher
	mu          sync.Mutex
	dummyCalls  int
	verifyCalls int
}

func (s *spyHasher) Verify(password string, encodedHash *string) (bool, string, error) {
	s.mu.Lock()
	s.verifyCalls++
	if encodedHash == nil {
		s.dummyCalls++
	}
	s.mu.Unlock()
	return s.PasswordHasher.Verify(password, encodedHash)
}

func newSpyHasher(t *testing.T, algorithm string) *spyHasher {
	t.Helper()
	h, err := core.NewHasher(config.PasswordConfig{Algorithm: algorithm, BcryptCost: 4})
	require.NoError(t, err)
	return &spyHasher{PasswordHasher: h}
}
