// AngelaMos | 2026
// handler_test.go

package user

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/api/internal/admission"
	"github.com/acquisitions/api/internal/auth"
	"github.com/acquisitions/api/internal/config"
	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/middleware"
)

type memRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
}

func newMemRepository() *memRepository {
	return &memRepository{nextID: 1, users: map[int64]*User{}}
}

func (m *memRepository) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepository) GetByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepository) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memRepository) List(_ context.Context, params ListUsersParams) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []User{}
	for _, u := range m.users {
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(u.Email, params.Search) &&
			!strings.Contains(u.Name, params.Search) {
			continue
		}
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *memRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(context.Background(), email)
	return err == nil, nil
}

const browserUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

type testAPI struct {
	router http.Handler
	repo   *memRepository
	jwt    *auth.JWTManager
	key    *ecdsa.PrivateKey
	jwtCfg config.JWTConfig
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwtCfg := config.JWTConfig{
		AccessTokenExpire: 15 * time.Hour,
		Issuer:            "acquisitions-api",
		Audience:          "acquisitions-api",
	}
	jwtManager, err := auth.NewJWTManagerFromKey(key, jwtCfg, nil)
	require.NoError(t, err)

	hasher, err := core.NewHasher(config.PasswordConfig{Algorithm: core.AlgorithmBcrypt, BcryptCost: 4})
	require.NoError(t, err)

	repo := newMemRepository()
	userSvc := NewService(repo, hasher)
	authSvc := auth.NewService(userSvc, hasher, jwtManager, nil, logger)

	cookie := auth.NewCookieOptions(config.CookieConfig{Name: "token", MaxAge: 15 * time.Hour}, false)

	limiter := admission.NewLocalLimiter()
	t.Cleanup(limiter.Close)
	adm := admission.New(
		admission.NewCompositeGuard(admission.NewShield(), admission.NewBotDetector(), limiter),
		admission.Options{Logger: logger},
	)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(jwtManager, cookie.Name))
		r.Use(middleware.Admission(adm))
		auth.NewHandler(authSvc, cookie, logger).RegisterRoutes(r)
		NewHandler(userSvc, NewAccessController(), logger).
			RegisterRoutes(r, middleware.Authenticator(jwtManager, cookie.Name))
	})

	return &testAPI{router: r, repo: repo, jwt: jwtManager, key: key, jwtCfg: jwtCfg}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) seed(t *testing.T, id int64, role string) string {
	t.Helper()
	a.repo.mu.Lock()
	a.repo.users[id] = &User{
		ID:    id,
		Name:  "Seeded",
		Email: "seed" + string(rune('a'+id)) + "@x.com",
		Role:  role,
	}
	if id >= a.repo.nextID {
		a.repo.nextID = id + 1
	}
	a.repo.mu.Unlock()

	token, _, err := a.jwt.CreateAccessToken(core.Identity{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSignUpNormalizesAndRejectsDuplicate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name":     "Ann",
		"email":    "A@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[auth.AuthResponse](t, rec)
	assert.Equal(t, "User registered successfully", body.Message)
	assert.Equal(t, "a@x.com", body.User.Email)
	assert.Equal(t, core.RoleUser, body.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := api.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", stored.Name)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, int((15 * time.Hour).Seconds()), cookies[0].MaxAge)

	rec = api.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name":     "Ann Again",
		"email":    "a@x.com",
		"password": "longenough2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with this email already exists", decode[core.ErrorResponse](t, rec).Error)
}

func TestSignUpValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name":     "A",
		"email":    "not-an-email",
		"password": "short",
		"role":     "root",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[core.ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Len(t, body.Details, 4)
}

func TestSignIn(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "a@x.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[core.ErrorResponse](t, rec).Error)

	rec = api.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "ghost@x.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[core.ErrorResponse](t, rec).Error)

	rec = api.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "A@X.COM", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User signed in successfully", decode[auth.AuthResponse](t, rec).Message)
}

func TestSignOutClearsCookie(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/sign-out", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User signed out successfully"}`, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestUsersRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/users", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No authorization token provided", decode[core.ErrorResponse](t, rec).Message)
}

func TestDeleteUserAuthorization(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.seed(t, 7, core.RoleUser)
	adminToken := api.seed(t, 1, core.RoleAdmin)
	api.seed(t, 5, core.RoleUser)

	rec := api.do(t, http.MethodDelete, "/api/users/5", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only delete your own account", decode[core.ErrorResponse](t, rec).Message)

	rec = api.do(t, http.MethodDelete, "/api/users/5", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, rec.Body.String())

	rec = api.do(t, http.MethodDelete, "/api/users/5", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode[core.ErrorResponse](t, rec).Error)

	rec = api.do(t, http.MethodGet, "/api/users/5", userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserIDMustBePositiveInteger(t *testing.T) {
	api := newTestAPI(t)
	token := api.seed(t, 7, core.RoleUser)

	for _, path := range []string{"/api/users/abc", "/api/users/0", "/api/users/-3"} {
		rec := api.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestUpdateUser(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.seed(t, 7, core.RoleUser)
	adminToken := api.seed(t, 1, core.RoleAdmin)

	t.Run("empty body is a validation error before authorization", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/1", userToken, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("user cannot promote self", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/7", userToken, map[string]any{
			"name": "Mallory",
			"role": core.RoleAdmin,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Only admins can change user roles", decode[core.ErrorResponse](t, rec).Message)

		u, err := api.repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "Seeded", u.Name)
		assert.Equal(t, core.RoleUser, u.Role)
	})

	t.Run("user cannot update another account", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/1", userToken, map[string]any{
			"name": "Hijacked",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "You can only update your own account", decode[core.ErrorResponse](t, rec).Message)
	})

	t.Run("user updates own profile", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/7", userToken, map[string]any{
			"name":  "  Renamed  ",
			"email": "NEW@X.com",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[UserEnvelope](t, rec)
		assert.Equal(t, "User updated successfully", body.Message)
		assert.Equal(t, "Renamed", body.User.Name)
		assert.Equal(t, "new@x.com", body.User.Email)
	})

	t.Run("email collision is a conflict", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/1", adminToken, map[string]any{
			"email": "new@x.com",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("admin changes role of missing user", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/99", adminToken, map[string]any{
			"role": core.RoleAdmin,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("password update is hashed", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/users/7", userToken, map[string]any{
			"password": "brand-new-pass",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		u, err := api.repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"))
	})
}

func TestListUsers(t *testing.T) {
	api := newTestAPI(t)
	token := api.seed(t, 1, core.RoleAdmin)
	api.seed(t, 2, core.RoleUser)

	rec := api.do(t, http.MethodGet, "/api/users", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[UserListResponse](t, rec)
	assert.Equal(t, "Users retrieved successfully", body.Message)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Users, 2)
	assert.Equal(t, int64(1), body.Users[0].ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSignUpWithLongPassword(t *testing.T) {
	api := newTestAPI(t)
	password := strings.Repeat("p", 100)

	rec := api.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "ann@x.com", "password": password,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "ann@x.com", "password": strings.Repeat("p", 99) + "q",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmissionTierFollowsSession(t *testing.T) {
	t.Run("authenticated user gets user tier", func(t *testing.T) {
		api := newTestAPI(t)
		token := api.seed(t, 7, core.RoleUser)

		for i := 1; i <= 10; i++ {
			rec := api.do(t, http.MethodGet, "/api/users", token, nil)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
			assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		}

		rec := api.do(t, http.MethodGet, "/api/users", token, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t,
			"User request limit exceeded (10 per minute). Slow down please.",
			decode[core.ErrorResponse](t, rec).Message,
		)
	})

	t.Run("expired token is admitted as guest", func(t *testing.T) {
		api := newTestAPI(t)
		api.seed(t, 7, core.RoleUser)

		expiredCfg := api.jwtCfg
		expiredCfg.AccessTokenExpire = -time.Minute
		expiredJWT, err := auth.NewJWTManagerFromKey(api.key, expiredCfg, nil)
		require.NoError(t, err)
		token, _, err := expiredJWT.CreateAccessToken(core.Identity{ID: 7, Role: core.RoleUser})
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			rec := api.do(t, http.MethodGet, "/api/users", token, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, "request %d", i)
			assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, "Token has expired", decode[core.ErrorResponse](t, rec).Message)
		}

		rec := api.do(t, http.MethodGet, "/api/users", token, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t,
			"Guest request limit exceeded (5 per minute). Slow down please.",
			decode[core.ErrorResponse](t, rec).Message,
		)
	})
}
